package settlement

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/internal/common"
)

// Analysis 一笔已上链交易的余额变化分解。
// 恒等式: SolChange = SwapSolChange + OtherSolChange - Fee
type Analysis struct {
	Fee  uint64
	Slot uint64

	// SolChange 用户主账户lamports总变化
	SolChange int64
	// SwapSolChange 归因于swap本身的SOL变化(WSOL腿或curve原生腿)
	SwapSolChange int64
	// OtherSolChange 小费、租金等其余变化
	OtherSolChange int64

	// TokenChange 目标mint的持仓变化(基础单位, 可为负)
	TokenChange   decimal.Decimal
	TokenDecimals uint8
}

// Analyzer 从交易meta里的pre/post余额推导结算数据
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(result *rpc.GetTransactionResult, user, mint solana.PublicKey) (*Analysis, error) {
	if result == nil || result.Meta == nil {
		return nil, errors.New("交易meta缺失")
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, errors.Wrap(err, "解析交易体失败")
	}

	meta := result.Meta
	analysis := &Analysis{
		Fee:  meta.Fee,
		Slot: result.Slot,
	}

	// 用户主账户的lamports变化
	userIndex := -1
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(user) {
			userIndex = i
			break
		}
	}
	if userIndex < 0 {
		return nil, errors.Errorf("交易未包含用户账户: %s", user)
	}
	if userIndex < len(meta.PreBalances) && userIndex < len(meta.PostBalances) {
		analysis.SolChange = int64(meta.PostBalances[userIndex]) - int64(meta.PreBalances[userIndex])
	}

	tokenDelta, tokenDecimals := tokenBalanceDelta(meta, user, mint)
	wsolDelta, _ := tokenBalanceDelta(meta, user, common.WSOL)

	analysis.TokenChange = tokenDelta
	analysis.TokenDecimals = tokenDecimals

	// WSOL腿存在时它就是swap的SOL变化;
	// pump内盘直接动原生SOL, 用总变化扣掉手续费近似
	if !wsolDelta.IsZero() {
		analysis.SwapSolChange = wsolDelta.IntPart()
	} else {
		analysis.SwapSolChange = analysis.SolChange + int64(meta.Fee)
	}
	analysis.OtherSolChange = analysis.SolChange + int64(meta.Fee) - analysis.SwapSolChange

	return analysis, nil
}

// tokenBalanceDelta 汇总user持有mint的token账户在交易前后的余额差
func tokenBalanceDelta(meta *rpc.TransactionMeta, user, mint solana.PublicKey) (decimal.Decimal, uint8) {
	var delta decimal.Decimal
	var decimals uint8

	sum := func(balances []rpc.TokenBalance, sign int64) {
		for _, tb := range balances {
			if tb.Owner == nil || !tb.Owner.Equals(user) || !tb.Mint.Equals(mint) {
				continue
			}
			if tb.UiTokenAmount == nil {
				continue
			}
			amount, err := decimal.NewFromString(tb.UiTokenAmount.Amount)
			if err != nil {
				continue
			}
			decimals = tb.UiTokenAmount.Decimals
			delta = delta.Add(amount.Mul(decimal.NewFromInt(sign)))
		}
	}
	sum(meta.PostTokenBalances, 1)
	sum(meta.PreTokenBalances, -1)
	return delta, decimals
}
