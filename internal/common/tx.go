package common

import "github.com/shopspring/decimal"

// TxType 被观察交易的持仓分类
type TxType string

const (
	TxTypeOpenPosition   TxType = "open_position"
	TxTypeAddPosition    TxType = "add_position"
	TxTypeReducePosition TxType = "reduce_position"
	TxTypeClosePosition  TxType = "close_position"
)

// TxEvent 其他钱包已经在链上完成的一笔交易, 由观察管道产出后不可变
type TxEvent struct {
	Signature    string `json:"signature"`
	FromAmount   uint64 `json:"from_amount"`
	FromDecimals int32  `json:"from_decimals"`
	ToAmount     uint64 `json:"to_amount"`
	ToDecimals   int32  `json:"to_decimals"`
	// Mint 交易涉及的代币
	Mint string `json:"mint"`
	// Who 被观察的钱包
	Who         string        `json:"who"`
	TxType      TxType        `json:"tx_type"`
	TxDirection SwapDirection `json:"tx_direction"`
	Timestamp   int64         `json:"timestamp"`
	// 被观察钱包交易前后的代币余额(基础单位)
	PreTokenAmount  decimal.Decimal `json:"pre_token_amount"`
	PostTokenAmount decimal.Decimal `json:"post_token_amount"`
	// ProgramID 产生该交易的venue程序, 可为空
	ProgramID string `json:"program_id,omitempty"`
}
