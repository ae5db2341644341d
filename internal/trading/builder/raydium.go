package builder

import (
	"bytes"
	"context"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/internal/common"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

// RaydiumBuilder Raydium AMM V4恒定乘积池的交易构建器
type RaydiumBuilder struct {
	client *chain.Client
	cache  *chain.Cache
	pools  *chain.PoolStore
}

func NewRaydiumBuilder(client *chain.Client, cache *chain.Cache, pools *chain.PoolStore) *RaydiumBuilder {
	return &RaydiumBuilder{client: client, cache: cache, pools: pools}
}

func (b *RaydiumBuilder) Tag() string { return TagRaydium }

func (b *RaydiumBuilder) BuildSwapTransaction(ctx context.Context, params *SwapParams) (*solana.Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	keys, err := b.pools.PreferredPool(ctx, params.Token)
	if err != nil {
		if errors.Is(err, chain.ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}

	reserves, err := b.pools.Reserves(ctx, keys)
	if err != nil {
		return nil, err
	}

	// 池子方向: 确定token侧和WSOL侧的储备
	tokenReserve, solReserve := reserves.Base, reserves.Quote
	tokenDecimals := keys.BaseDecimals
	if !keys.BaseIsToken(common.WSOL) {
		tokenReserve, solReserve = reserves.Quote, reserves.Base
		tokenDecimals = keys.QuoteDecimals
	}

	payer := params.Payer.PublicKey()

	rentExempt, err := b.cache.MinBalanceForTokenAccount(ctx)
	if err != nil {
		return nil, err
	}

	var (
		amountIn     uint64
		minAmountOut uint64
		wsolLamports uint64
		closeSource  bool
	)

	if params.Direction == common.DirectionBuy {
		amountIn = params.UIAmount.Mul(decimal.NewFromInt(common.SOLDecimal)).Floor().BigInt().Uint64()
		if amountIn == 0 {
			return nil, ErrInvalidAmount
		}
		wsolLamports = amountIn
		expected := ConstantProductOut(amountIn, solReserve, tokenReserve)
		minAmountOut = MinAmountWithSlippage(expected, params.SlippageBps)
	} else {
		amountIn, closeSource, err = b.sellAmount(ctx, payer, params, tokenDecimals)
		if err != nil {
			return nil, err
		}
		expected := ConstantProductOut(amountIn, tokenReserve, solReserve)
		minAmountOut = MinAmountWithSlippage(expected, params.SlippageBps)
	}

	// 临时WSOL账户承接原生SOL一侧
	wsol, err := makeTempWSOLAccount(payer, wsolSeed(), wsolLamports, rentExempt)
	if err != nil {
		return nil, err
	}

	tokenATA, _, err := solana.FindAssociatedTokenAddress(payer, params.Token)
	if err != nil {
		return nil, errors.Wrap(err, "推导ATA地址失败")
	}

	unitPrice, unitLimit := CalcTxUnits(params.PriorityFee)
	var tipLamports uint64
	if params.UseJito {
		unitPrice, unitLimit, tipLamports = CalcTxUnitsAndSplitFees(params.PriorityFee)
	}
	instructions := ComputeBudgetInstructions(unitPrice, unitLimit)
	if tipLamports > 0 {
		tipIns, err := makeJitoTipInstruction(payer, tipLamports)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, tipIns)
	}
	instructions = append(instructions, wsol.Create...)

	var tokenAccountIn, tokenAccountOut solana.PublicKey
	if params.Direction == common.DirectionBuy {
		hasATA, _, err := b.client.HasTokenAccount(ctx, payer, params.Token)
		if err != nil {
			return nil, err
		}
		if !hasATA {
			createATA, err := makeCreateATAInstruction(payer, params.Token)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, createATA)
		}
		tokenAccountIn, tokenAccountOut = wsol.Address, tokenATA
	} else {
		tokenAccountIn, tokenAccountOut = tokenATA, wsol.Address
	}

	instructions = append(instructions, makeRaydiumSwapFixedInInstruction(&raydiumSwapParams{
		AmountIn:        amountIn,
		MinAmountOut:    minAmountOut,
		PoolKeys:        keys,
		TokenAccountIn:  tokenAccountIn,
		TokenAccountOut: tokenAccountOut,
		Owner:           payer,
	}))

	// 关闭临时WSOL账户回收SOL; 全仓卖出时连同源token账户一起关闭
	instructions = append(instructions, wsol.Close)
	if closeSource {
		closeIns, err := makeCloseTokenAccountInstruction(tokenATA, payer)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, closeIns)
	}

	blockhash, err := b.cache.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, errors.Wrap(err, "组装交易失败")
	}
	if err := signTransaction(tx, params.Payer); err != nil {
		return nil, err
	}

	logger.Debug("🔧 Raydium交易构建完成",
		logger.String("token", params.Token.String()),
		logger.String("direction", string(params.Direction)),
		logger.Uint64("amount_in", amountIn),
		logger.Uint64("min_amount_out", minAmountOut),
	)
	return tx, nil
}

// sellAmount 计算卖出的token数量。
// 百分比卖出按链上实际持仓取整, pct==1时直接用原始余额避免粉尘。
func (b *RaydiumBuilder) sellAmount(ctx context.Context, payer solana.PublicKey, params *SwapParams, tokenDecimals uint8) (uint64, bool, error) {
	balance, decimals, err := b.client.TokenBalance(ctx, payer, params.Token)
	if err != nil {
		return 0, false, err
	}
	if decimals == 0 {
		decimals = tokenDecimals
	}
	return resolveSellAmount(params, balance, decimals)
}

// resolveSellAmount 卖出数量换算, 独立出来方便测试
func resolveSellAmount(params *SwapParams, balance uint64, decimals uint8) (amount uint64, closeSource bool, err error) {
	if params.InType == common.SwapInPct {
		if balance == 0 {
			return 0, false, ErrInsufficientBalance
		}
		if params.UIAmount.Equal(decimal.NewFromInt(1)) {
			return balance, true, nil
		}
		amount = decimal.NewFromUint64(balance).Mul(params.UIAmount).Floor().BigInt().Uint64()
		if amount == 0 {
			return 0, false, ErrInvalidAmount
		}
		return amount, false, nil
	}

	amount = params.UIAmount.Mul(decimal.New(1, int32(decimals))).Floor().BigInt().Uint64()
	if amount == 0 {
		return 0, false, ErrInvalidAmount
	}
	if amount > balance {
		return 0, false, ErrInsufficientBalance
	}
	return amount, amount == balance, nil
}

// raydiumSwapInstruction AMM V4 swap_base_in指令, 编号9
type raydiumSwapInstruction struct {
	bin.BaseVariant
	AmountIn                uint64
	MinAmountOut            uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

type raydiumSwapParams struct {
	AmountIn        uint64
	MinAmountOut    uint64
	PoolKeys        *chain.RaydiumPoolKeys
	TokenAccountIn  solana.PublicKey
	TokenAccountOut solana.PublicKey
	Owner           solana.PublicKey
}

func (ins *raydiumSwapInstruction) ProgramID() solana.PublicKey {
	return common.RaydiumAMMV4Program
}

func (ins *raydiumSwapInstruction) Accounts() []*solana.AccountMeta {
	return ins.AccountMetaSlice
}

func (ins *raydiumSwapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(ins); err != nil {
		return nil, errors.Wrap(err, "编码swap指令失败")
	}
	return buf.Bytes(), nil
}

func (ins *raydiumSwapInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(9); err != nil {
		return err
	}
	if err := encoder.WriteUint64(ins.AmountIn, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(ins.MinAmountOut, binary.LittleEndian)
}

func makeRaydiumSwapFixedInInstruction(params *raydiumSwapParams) *raydiumSwapInstruction {
	ins := &raydiumSwapInstruction{
		AmountIn:     params.AmountIn,
		MinAmountOut: params.MinAmountOut,
	}
	ins.BaseVariant = bin.BaseVariant{Impl: ins}

	keys := params.PoolKeys
	ins.AccountMetaSlice = solana.AccountMetaSlice{
		solana.Meta(solana.TokenProgramID),
		solana.Meta(keys.ID).WRITE(),
		solana.Meta(keys.Authority),
		solana.Meta(keys.OpenOrders).WRITE(),
		solana.Meta(keys.TargetOrders).WRITE(),
		solana.Meta(keys.BaseVault).WRITE(),
		solana.Meta(keys.QuoteVault).WRITE(),
		solana.Meta(keys.MarketProgramID),
		solana.Meta(keys.MarketID).WRITE(),
		solana.Meta(keys.MarketBids).WRITE(),
		solana.Meta(keys.MarketAsks).WRITE(),
		solana.Meta(keys.MarketEventQueue).WRITE(),
		solana.Meta(keys.MarketBaseVault).WRITE(),
		solana.Meta(keys.MarketQuoteVault).WRITE(),
		solana.Meta(keys.MarketAuthority),
		solana.Meta(params.TokenAccountIn).WRITE(),
		solana.Meta(params.TokenAccountOut).WRITE(),
		solana.Meta(params.Owner).SIGNER().WRITE(),
	}
	return ins
}
