package repository

import (
	"errors"

	"github.com/promotion-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimSagaRepository 领取终态记录数据访问接口
type ClaimSagaRepository interface {
	Decide(saga *models.CouponClaimSaga) (bool, error)
	GetByReservation(reservationNo string) (*models.CouponClaimSaga, error)
	MarkReleased(reservationNo string) error
	WithTx(tx *gorm.DB) *GormClaimSagaRepository
}

// GormClaimSagaRepository GORM 实现
type GormClaimSagaRepository struct {
	db *gorm.DB
}

// NewClaimSagaRepository 创建领取终态仓库
func NewClaimSagaRepository(db *gorm.DB) *GormClaimSagaRepository {
	return &GormClaimSagaRepository{db: db}
}

// WithTx 绑定事务
func (r *GormClaimSagaRepository) WithTx(tx *gorm.DB) *GormClaimSagaRepository {
	if tx == nil {
		return r
	}
	return &GormClaimSagaRepository{db: tx}
}

// Decide 写入终态；预占单号已存在时不覆盖并返回 false
func (r *GormClaimSagaRepository) Decide(saga *models.CouponClaimSaga) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reservation_no"}},
		DoNothing: true,
	}).Create(saga)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetByReservation 根据预占单号获取终态
func (r *GormClaimSagaRepository) GetByReservation(reservationNo string) (*models.CouponClaimSaga, error) {
	var saga models.CouponClaimSaga
	if err := r.db.Where("reservation_no = ?", reservationNo).First(&saga).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &saga, nil
}

// MarkReleased 记录快速存储已回退
func (r *GormClaimSagaRepository) MarkReleased(reservationNo string) error {
	return r.db.Model(&models.CouponClaimSaga{}).
		Where("reservation_no = ?", reservationNo).
		UpdateColumn("released", true).Error
}
