package repo

import (
	"github.com/ninja0404/sol-trader/internal/model"
	"gorm.io/gorm"
)

type CopyTradeRepo interface {
	// GetActiveByTargetWallet 获取跟随某目标钱包的所有生效配置
	GetActiveByTargetWallet(targetWallet string) ([]*model.CopyTrade, error)
}

type copyTradeRepoImpl struct {
	db *gorm.DB
}

func NewCopyTradeRepo(db *gorm.DB) CopyTradeRepo {
	return &copyTradeRepoImpl{
		db: db,
	}
}

func (r *copyTradeRepoImpl) GetActiveByTargetWallet(targetWallet string) ([]*model.CopyTrade, error) {
	var items []*model.CopyTrade

	err := r.db.
		Where("target_wallet = ? AND active = 1", targetWallet).
		Order("id ASC").
		Find(&items).Error

	return items, err
}
