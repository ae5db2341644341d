package repo

import (
	"github.com/ninja0404/sol-trader/internal/model"
	"gorm.io/gorm"
)

type SwapRecordRepo interface {
	// Create 持久化一条结算记录, 每次提交尝试恰好一条
	Create(record *model.SwapRecord) error

	// GetBySignature 按签名查询记录
	GetBySignature(signature string) (*model.SwapRecord, error)
}

type swapRecordRepoImpl struct {
	db *gorm.DB
}

func NewSwapRecordRepo(db *gorm.DB) SwapRecordRepo {
	return &swapRecordRepoImpl{
		db: db,
	}
}

func (r *swapRecordRepoImpl) Create(record *model.SwapRecord) error {
	return r.db.Create(record).Error
}

func (r *swapRecordRepoImpl) GetBySignature(signature string) (*model.SwapRecord, error) {
	var record model.SwapRecord

	err := r.db.
		Where("signature = ?", signature).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}

	return &record, nil
}
