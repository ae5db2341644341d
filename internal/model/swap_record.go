package model

import "time"

// TransactionStatus 交易的链上终态
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
	// StatusExpired 在确认窗口内未观察到确定结果, 交易仍可能上链
	StatusExpired TransactionStatus = "expired"
)

// SwapRecord 一次提交尝试的结算结果, 创建后不再修改(重试会产生新记录)
type SwapRecord struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement;comment:主键"`

	// Signature 交易签名, 从未提交成功时为空
	Signature string            `gorm:"column:signature;type:varchar(128);index;not null;default:'';comment:交易签名"`
	Status    TransactionStatus `gorm:"column:status;type:varchar(16);not null;default:'';comment:链上状态"`

	UserPubkey string `gorm:"column:user_pubkey;type:varchar(64);index;not null;comment:用户钱包地址"`
	SwapMode   string `gorm:"column:swap_mode;type:varchar(16);not null;comment:交易模式"`
	InputMint  string `gorm:"column:input_mint;type:varchar(64);not null;comment:输入mint"`
	OutputMint string `gorm:"column:output_mint;type:varchar(64);not null;comment:输出mint"`

	InputAmount         uint64 `gorm:"column:input_amount;not null;default:0;comment:输入数量(基础单位)"`
	InputTokenDecimals  int32  `gorm:"column:input_token_decimals;not null;default:0"`
	OutputAmount        uint64 `gorm:"column:output_amount;not null;default:0;comment:输出数量(基础单位)"`
	OutputTokenDecimals int32  `gorm:"column:output_token_decimals;not null;default:0"`

	ProgramID string `gorm:"column:program_id;type:varchar(64);not null;default:''"`
	Timestamp int64  `gorm:"column:timestamp;not null;default:0;comment:意图产生时间"`

	// 结算分析结果, 仅Status为success时填充
	Fee  uint64 `gorm:"column:fee;not null;default:0;comment:交易费(lamports)"`
	Slot uint64 `gorm:"column:slot;not null;default:0;comment:确认所在slot"`
	// SolChange 自有钱包SOL总变化量(lamports, 可为负)
	SolChange int64 `gorm:"column:sol_change;not null;default:0"`
	// SwapSolChange 可归因于本次swap的SOL变化量
	SwapSolChange int64 `gorm:"column:swap_sol_change;not null;default:0"`
	// OtherSolChange 其他原因导致的SOL变化量(租金、小费等)
	OtherSolChange int64 `gorm:"column:other_sol_change;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SwapRecord) TableName() string {
	return "swap_records"
}
