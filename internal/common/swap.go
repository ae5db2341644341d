package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SwapDirection 交易方向
type SwapDirection string

const (
	DirectionBuy  SwapDirection = "buy"
	DirectionSell SwapDirection = "sell"
)

// SwapInType 卖出数量的表达方式
type SwapInType string

const (
	// SwapInQty 按具体数量
	SwapInQty SwapInType = "qty"
	// SwapInPct 按持仓百分比
	SwapInPct SwapInType = "pct"
)

// SwapMode 交易模式: 固定输入或固定输出
type SwapMode string

const (
	SwapModeExactIn  SwapMode = "ExactIn"
	SwapModeExactOut SwapMode = "ExactOut"
)

// EventOrigin swap事件的来源
type EventOrigin string

const (
	OriginUser      EventOrigin = "user"
	OriginCopyTrade EventOrigin = "copytrade"
)

// SwapEvent 一次待执行的交易意图, 创建后不可变
type SwapEvent struct {
	UserPubkey string   `json:"user_pubkey"`
	SwapMode   SwapMode `json:"swap_mode"`
	InputMint  string   `json:"input_mint"`
	OutputMint string   `json:"output_mint"`
	// Amount 基础单位的数量: ExactIn时为输入mint, ExactOut时为被固定一侧
	Amount   uint64          `json:"amount"`
	UIAmount decimal.Decimal `json:"ui_amount"`
	// SlippageBps 滑点容忍度, 1bps = 0.01%
	SlippageBps int   `json:"slippage_bps"`
	Timestamp   int64 `json:"timestamp"`
	// AmountPct 按比例卖出时的比例(0,1], 仅ExactOut生效
	AmountPct  decimal.Decimal `json:"amount_pct,omitempty"`
	SwapInType SwapInType      `json:"swap_in_type,omitempty"`
	// PriorityFee 优先费, 单位SOL
	PriorityFee decimal.Decimal `json:"priority_fee,omitempty"`
	// UseJito 是否走jito bundle提交(抗抢跑)
	UseJito bool `json:"use_jito,omitempty"`
	// ProgramID 观察到的venue程序ID提示, 可为空
	ProgramID string      `json:"program_id,omitempty"`
	By        EventOrigin `json:"by"`

	// 动态滑点上下界, 可选
	DynamicSlippage bool `json:"dynamic_slippage,omitempty"`
	MinSlippageBps  int  `json:"min_slippage_bps,omitempty"`
	MaxSlippageBps  int  `json:"max_slippage_bps,omitempty"`

	// TxEvent 仅当By == OriginCopyTrade时携带触发本意图的链上交易
	TxEvent *TxEvent `json:"tx_event,omitempty"`
}

// Validate 校验事件不变量
func (e *SwapEvent) Validate() error {
	if e.UserPubkey == "" {
		return fmt.Errorf("user_pubkey is empty")
	}
	if e.SlippageBps < 0 || e.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps out of range: %d", e.SlippageBps)
	}
	if e.SwapMode != SwapModeExactIn && e.SwapMode != SwapModeExactOut {
		return fmt.Errorf("invalid swap_mode: %s", e.SwapMode)
	}
	if e.SwapMode == SwapModeExactOut && e.SwapInType == "" {
		return fmt.Errorf("exact-out swap requires swap_in_type")
	}
	return nil
}

// Direction 从swap模式推导交易方向
func (e *SwapEvent) Direction() SwapDirection {
	if e.SwapMode == SwapModeExactIn {
		return DirectionBuy
	}
	return DirectionSell
}

// TokenMint 返回本次交易中非WSOL一侧的mint
func (e *SwapEvent) TokenMint() string {
	if e.InputMint == WSOL.String() {
		return e.OutputMint
	}
	return e.InputMint
}
