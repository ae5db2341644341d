package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CopyTrade 一个跟单订阅: owner钱包跟随target钱包的链上交易
// 配置由外部管理端写入, 对交易管道只读
type CopyTrade struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`

	// TargetWallet 被跟随的钱包
	TargetWallet string `gorm:"column:target_wallet;type:varchar(64);index;not null;comment:目标钱包"`
	// Owner 跟单人自己的钱包
	Owner string `gorm:"column:owner;type:varchar(64);index;not null;comment:跟单人钱包"`

	// 买入策略: 固定金额买入, 或自动跟随(暂不支持)
	IsFixedBuy     bool            `gorm:"column:is_fixed_buy;not null;default:1"`
	FixedBuyAmount decimal.Decimal `gorm:"column:fixed_buy_amount;type:decimal(20,9);not null;default:0;comment:固定买入金额(SOL)"`
	AutoFollow     bool            `gorm:"column:auto_follow;not null;default:0"`

	// AntiSandwich 开启后强制使用防夹滑点
	AntiSandwich      bool `gorm:"column:anti_sandwich;not null;default:0"`
	AutoSlippage      bool `gorm:"column:auto_slippage;not null;default:1"`
	CustomSlippageBps int  `gorm:"column:custom_slippage_bps;not null;default:0"`
	AntiSlippageBps   int  `gorm:"column:anti_slippage_bps;not null;default:0;comment:防夹滑点"`

	// Priority 优先费(SOL)
	Priority decimal.Decimal `gorm:"column:priority;type:decimal(20,9);not null;default:0"`

	Active bool `gorm:"column:active;not null;default:1;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CopyTrade) TableName() string {
	return "copytrades"
}
