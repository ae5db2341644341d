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

// pump.fun程序的固定账户
var (
	pumpGlobal         = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	pumpFeeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	pumpEventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxHp9vN")

	// anchor指令discriminator
	pumpBuyDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	pumpSellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// PumpBuilder pump.fun bonding curve内盘交易构建器
type PumpBuilder struct {
	client *chain.Client
	cache  *chain.Cache
}

func NewPumpBuilder(client *chain.Client, cache *chain.Cache) *PumpBuilder {
	return &PumpBuilder{client: client, cache: cache}
}

func (b *PumpBuilder) Tag() string { return TagPump }

func (b *PumpBuilder) BuildSwapTransaction(ctx context.Context, params *SwapParams) (*solana.Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	curve, curveAddr, associatedCurve, err := b.client.FetchBondingCurve(ctx, params.Token)
	if err != nil {
		if errors.Is(err, chain.ErrCurveNotFound) {
			return nil, ErrCurveNotFound
		}
		return nil, err
	}
	// 已毕业的curve迁移到外盘, 本场所不再可用
	if curve.Complete {
		return nil, ErrCurveNotFound
	}

	payer := params.Payer.PublicKey()
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

	var closeSource bool
	if params.Direction == common.DirectionBuy {
		solIn := params.UIAmount.Mul(decimal.NewFromInt(common.SOLDecimal)).Floor().BigInt().Uint64()
		if solIn == 0 {
			return nil, ErrInvalidAmount
		}

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

		// pump买入指令固定token数量, SOL侧用上限约束滑点
		tokenOut := PumpCurveBuyOut(solIn, curve.VirtualSolReserves, curve.VirtualTokenReserves)
		maxSolCost := MaxAmountWithSlippage(solIn, params.SlippageBps)

		instructions = append(instructions, makePumpBuyInstruction(
			params.Token, curveAddr, associatedCurve, tokenATA, payer, tokenOut, maxSolCost))

		logger.Debug("🔧 Pump买入构建完成",
			logger.String("token", params.Token.String()),
			logger.Uint64("sol_in", solIn),
			logger.Uint64("token_out", tokenOut),
			logger.Uint64("max_sol_cost", maxSolCost),
		)
	} else {
		balance, decimals, err := b.client.TokenBalance(ctx, payer, params.Token)
		if err != nil {
			return nil, err
		}
		var amount uint64
		amount, closeSource, err = resolveSellAmount(params, balance, decimals)
		if err != nil {
			return nil, err
		}

		expected := PumpCurveSellOut(amount, curve.VirtualSolReserves, curve.VirtualTokenReserves)
		minSolOut := MinAmountWithSlippage(expected, params.SlippageBps)

		instructions = append(instructions, makePumpSellInstruction(
			params.Token, curveAddr, associatedCurve, tokenATA, payer, amount, minSolOut))

		if closeSource {
			closeIns, err := makeCloseTokenAccountInstruction(tokenATA, payer)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, closeIns)
		}

		logger.Debug("🔧 Pump卖出构建完成",
			logger.String("token", params.Token.String()),
			logger.Uint64("token_in", amount),
			logger.Uint64("min_sol_out", minSolOut),
		)
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
	return tx, nil
}

// pumpInstruction buy/sell指令共用的编码壳
type pumpInstruction struct {
	discriminator [8]byte
	amount        uint64
	threshold     uint64
	accounts      solana.AccountMetaSlice
}

func (ins *pumpInstruction) ProgramID() solana.PublicKey { return common.PumpFunProgram }

func (ins *pumpInstruction) Accounts() []*solana.AccountMeta { return ins.accounts }

func (ins *pumpInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(ins.discriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(ins.amount, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(ins.threshold, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func makePumpBuyInstruction(mint, curve, associatedCurve, userATA, user solana.PublicKey, tokenOut, maxSolCost uint64) solana.Instruction {
	return &pumpInstruction{
		discriminator: pumpBuyDiscriminator,
		amount:        tokenOut,
		threshold:     maxSolCost,
		accounts: solana.AccountMetaSlice{
			solana.Meta(pumpGlobal),
			solana.Meta(pumpFeeRecipient).WRITE(),
			solana.Meta(mint),
			solana.Meta(curve).WRITE(),
			solana.Meta(associatedCurve).WRITE(),
			solana.Meta(userATA).WRITE(),
			solana.Meta(user).SIGNER().WRITE(),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SysVarRentPubkey),
			solana.Meta(pumpEventAuthority),
			solana.Meta(common.PumpFunProgram),
		},
	}
}

func makePumpSellInstruction(mint, curve, associatedCurve, userATA, user solana.PublicKey, tokenIn, minSolOut uint64) solana.Instruction {
	return &pumpInstruction{
		discriminator: pumpSellDiscriminator,
		amount:        tokenIn,
		threshold:     minSolOut,
		accounts: solana.AccountMetaSlice{
			solana.Meta(pumpGlobal),
			solana.Meta(pumpFeeRecipient).WRITE(),
			solana.Meta(mint),
			solana.Meta(curve).WRITE(),
			solana.Meta(associatedCurve).WRITE(),
			solana.Meta(userATA).WRITE(),
			solana.Meta(user).SIGNER().WRITE(),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(pumpEventAuthority),
			solana.Meta(common.PumpFunProgram),
		},
	}
}
