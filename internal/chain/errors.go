package chain

import "github.com/pkg/errors"

var (
	ErrAccountNotFound     = errors.New("链上账户不存在")
	ErrTransactionNotFound = errors.New("交易不存在或尚未上链")
	ErrPoolNotFound        = errors.New("未找到可用的流动性池")
	ErrCurveNotFound       = errors.New("未找到bonding curve账户")
)
