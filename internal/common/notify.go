package common

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CopyTradeNotify 发给跟单人的跟投通知事件
type CopyTradeNotify struct {
	Owner        string          `json:"owner"`
	TargetWallet string          `json:"target_wallet"`
	Mint         string          `json:"mint"`
	Direction    SwapDirection   `json:"direction"`
	UIAmount     decimal.Decimal `json:"ui_amount"`
	// Signature 触发跟单的原始交易签名
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

func EncodeCopyTradeNotify(n *CopyTradeNotify) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, "序列化跟单通知失败")
	}
	return data, nil
}

func DecodeCopyTradeNotify(data []byte) (*CopyTradeNotify, error) {
	var n CopyTradeNotify
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, errors.Wrap(err, "解析跟单通知失败")
	}
	return &n, nil
}
