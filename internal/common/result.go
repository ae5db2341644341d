package common

import "github.com/ninja0404/sol-trader/internal/model"

// SwapResult 单次swap处理的最终产物, 发往下游通知
type SwapResult struct {
	SwapEvent *SwapEvent `json:"swap_event"`
	// SwapRecord 结算记录, 构建/发送阶段彻底失败时为nil
	SwapRecord *model.SwapRecord `json:"swap_record,omitempty"`
	UserPubkey string            `json:"user_pubkey"`
	// TransactionHash 提交的交易签名, 从未提交时为空
	TransactionHash string `json:"transaction_hash,omitempty"`
	SubmitTime      int64  `json:"submit_time"`
}
