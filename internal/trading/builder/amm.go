package builder

import (
	"github.com/shopspring/decimal"
)

// Raydium AMM V4 的固定手续费率 0.25%
var (
	raydiumFeeNumerator   = decimal.NewFromInt(9975)
	raydiumFeeDenominator = decimal.NewFromInt(10000)
	bpsDenominator        = decimal.NewFromInt(10000)
)

// ConstantProductOut 恒定乘积报价。
// 手续费先从输入扣除, 再按 x*y=k 计算输出:
//
//	newIn  = reserveIn + amountIn*(1-fee)
//	newOut = reserveIn*reserveOut/newIn
//	out    = reserveOut - newOut
func ConstantProductOut(amountIn, reserveIn, reserveOut uint64) uint64 {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return 0
	}
	in := decimal.NewFromUint64(reserveIn)
	out := decimal.NewFromUint64(reserveOut)
	effectiveIn := decimal.NewFromUint64(amountIn).Mul(raydiumFeeNumerator).Div(raydiumFeeDenominator)

	newIn := in.Add(effectiveIn)
	newOut := in.Mul(out).Div(newIn)
	return out.Sub(newOut).Floor().BigInt().Uint64()
}

// PumpCurveBuyOut pump bonding curve买入报价, 基于虚拟储备的恒定乘积
func PumpCurveBuyOut(solIn, virtualSolReserves, virtualTokenReserves uint64) uint64 {
	if solIn == 0 || virtualSolReserves == 0 || virtualTokenReserves == 0 {
		return 0
	}
	sol := decimal.NewFromUint64(virtualSolReserves)
	token := decimal.NewFromUint64(virtualTokenReserves)
	in := decimal.NewFromUint64(solIn)

	newSol := sol.Add(in)
	newToken := sol.Mul(token).Div(newSol)
	return token.Sub(newToken).Floor().BigInt().Uint64()
}

// PumpCurveSellOut pump bonding curve卖出报价, 返回可获得的SOL
func PumpCurveSellOut(tokenIn, virtualSolReserves, virtualTokenReserves uint64) uint64 {
	if tokenIn == 0 || virtualSolReserves == 0 || virtualTokenReserves == 0 {
		return 0
	}
	sol := decimal.NewFromUint64(virtualSolReserves)
	token := decimal.NewFromUint64(virtualTokenReserves)
	in := decimal.NewFromUint64(tokenIn)

	newToken := token.Add(in)
	newSol := sol.Mul(token).Div(newToken)
	return sol.Sub(newSol).Floor().BigInt().Uint64()
}

// MinAmountWithSlippage 按滑点下调得到最低可接受输出, 整数向下取整
func MinAmountWithSlippage(amount uint64, slippageBps int) uint64 {
	factor := bpsDenominator.Sub(decimal.NewFromInt(int64(slippageBps)))
	return decimal.NewFromUint64(amount).Mul(factor).Div(bpsDenominator).Floor().BigInt().Uint64()
}

// MaxAmountWithSlippage 按滑点上调得到最高可接受输入, 整数向下取整
func MaxAmountWithSlippage(amount uint64, slippageBps int) uint64 {
	factor := bpsDenominator.Add(decimal.NewFromInt(int64(slippageBps)))
	return decimal.NewFromUint64(amount).Mul(factor).Div(bpsDenominator).Floor().BigInt().Uint64()
}
