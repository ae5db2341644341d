package builder

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/sol-trader/internal/common"
)

func TestConstantProductOut(t *testing.T) {
	// 手工验证: reserves (1000e9, 2000e9), 投入 10e9
	// effectiveIn = 10e9 * 0.9975 = 9.975e9
	// out = 2000e9 - 1000e9*2000e9/(1000e9+9.975e9)
	out := ConstantProductOut(10_000_000_000, 1_000_000_000_000, 2_000_000_000_000)
	assert.Equal(t, uint64(19_752_964_182), out)

	// 零输入或零储备不报价
	assert.Zero(t, ConstantProductOut(0, 1000, 2000))
	assert.Zero(t, ConstantProductOut(100, 0, 2000))
	assert.Zero(t, ConstantProductOut(100, 1000, 0))
}

func TestConstantProductRoundTripLosesValue(t *testing.T) {
	// 先买后卖(各收一次手续费)必然拿回更少, 数学上不能凭空生钱
	const reserveSol, reserveToken = 500_000_000_000, 80_000_000_000_000
	const solIn = 3_000_000_000

	tokenOut := ConstantProductOut(solIn, reserveSol, reserveToken)
	require.NotZero(t, tokenOut)

	solBack := ConstantProductOut(tokenOut, reserveToken-tokenOut, reserveSol+solIn)
	assert.Less(t, solBack, uint64(solIn))
}

func TestPumpCurveQuotes(t *testing.T) {
	const vSol, vToken = 30_000_000_000, 1_000_000_000_000_000

	tokenOut := PumpCurveBuyOut(1_000_000_000, vSol, vToken)
	require.NotZero(t, tokenOut)
	// 投入1 SOL, 虚拟储备30 SOL: 约拿走1/31的token侧
	assert.InDelta(t, float64(vToken)/31, float64(tokenOut), float64(vToken)/310)

	// 立即按新储备卖回, 拿回的SOL不应超过投入
	solBack := PumpCurveSellOut(tokenOut, vSol+1_000_000_000, vToken-tokenOut)
	assert.LessOrEqual(t, solBack, uint64(1_000_000_000))
}

func TestMinAmountWithSlippage(t *testing.T) {
	tests := []struct {
		amount   uint64
		bps      int
		expected uint64
	}{
		{10000, 0, 10000},
		{10000, 100, 9900},
		{10000, 10000, 0},
		{999, 100, 989},  // floor(999*9900/10000)=989.01→989
		{1, 9999, 0},     // floor(1*1/10000)=0
		{100000, 50, 99500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MinAmountWithSlippage(tt.amount, tt.bps),
			"amount=%d bps=%d", tt.amount, tt.bps)
	}

	// 滑点越大下限越低, 单调性不允许被破坏
	prev := MinAmountWithSlippage(1_000_000, 0)
	for bps := 1; bps <= 10000; bps += 37 {
		cur := MinAmountWithSlippage(1_000_000, bps)
		assert.LessOrEqual(t, cur, prev, "bps=%d", bps)
		prev = cur
	}
}

func TestMaxAmountWithSlippage(t *testing.T) {
	assert.Equal(t, uint64(10100), MaxAmountWithSlippage(10000, 100))
	assert.Equal(t, uint64(10000), MaxAmountWithSlippage(10000, 0))
	assert.Equal(t, uint64(20000), MaxAmountWithSlippage(10000, 10000))
}

func TestResolveSellAmount(t *testing.T) {
	pctParams := func(pct string) *SwapParams {
		return &SwapParams{
			Direction: common.DirectionSell,
			InType:    common.SwapInPct,
			UIAmount:  decimal.RequireFromString(pct),
		}
	}

	t.Run("全仓卖出用链上原始余额并关闭账户", func(t *testing.T) {
		amount, closeSource, err := resolveSellAmount(pctParams("1"), 123_456_789, 6)
		require.NoError(t, err)
		assert.Equal(t, uint64(123_456_789), amount)
		assert.True(t, closeSource)
	})

	t.Run("部分卖出按比例向下取整", func(t *testing.T) {
		amount, closeSource, err := resolveSellAmount(pctParams("0.3"), 1001, 6)
		require.NoError(t, err)
		assert.Equal(t, uint64(300), amount) // floor(1001*0.3)=300.3→300
		assert.False(t, closeSource)
	})

	t.Run("零持仓按比例卖出报余额不足", func(t *testing.T) {
		_, _, err := resolveSellAmount(pctParams("0.5"), 0, 6)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("按数量卖出超出持仓报余额不足", func(t *testing.T) {
		params := &SwapParams{
			Direction: common.DirectionSell,
			InType:    common.SwapInQty,
			UIAmount:  decimal.RequireFromString("2"),
		}
		_, _, err := resolveSellAmount(params, 1_000_000, 6) // 持仓1个, 卖2个
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("按数量恰好清仓时也关闭账户", func(t *testing.T) {
		params := &SwapParams{
			Direction: common.DirectionSell,
			InType:    common.SwapInQty,
			UIAmount:  decimal.RequireFromString("1"),
		}
		amount, closeSource, err := resolveSellAmount(params, 1_000_000, 6)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000), amount)
		assert.True(t, closeSource)
	})
}

func TestCalcTxUnitsAndSplitFees(t *testing.T) {
	fee := decimal.RequireFromString("0.001") // 0.001 SOL = 1_000_000 lamports

	unitPrice, unitLimit := CalcTxUnits(fee)
	assert.Equal(t, uint32(200_000), unitLimit)
	// 1_000_000 lamports * 1e6 / 200_000 = 5_000_000 micro-lamports/CU
	assert.Equal(t, uint64(5_000_000), unitPrice)

	jitoPrice, jitoLimit, tip := CalcTxUnitsAndSplitFees(fee)
	assert.Equal(t, uint32(200_000), jitoLimit)
	// 70%给CU价格, 30%给小费
	assert.Equal(t, uint64(3_500_000), jitoPrice)
	assert.Equal(t, uint64(300_000), tip)

	zeroPrice, _ := CalcTxUnits(decimal.Zero)
	assert.Zero(t, zeroPrice)
}
