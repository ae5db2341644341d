package common

import "github.com/gagliardetto/solana-go"

// 链上常量
var (
	// WSOL wrapped SOL的mint地址
	WSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	// PumpFunProgram pump.fun bonding curve程序
	PumpFunProgram = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// RaydiumAMMV4Program Raydium AMM V4程序
	RaydiumAMMV4Program = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
)

const (
	// SOLDecimal 1 SOL = 1e9 lamports
	SOLDecimal = 1_000_000_000

	// TokenAccountLayoutLen SPL token账户数据长度
	TokenAccountLayoutLen = 165
)

// 事件流名称, 每个流是一个append-only日志
const (
	StreamTxEvent         = "trading:tx_event"
	StreamSwapEvent       = "trading:swap_event"
	StreamSwapResult      = "trading:swap_result"
	StreamCopyTradeNotify = "trading:copytrade_notify"
)
