package repository

import (
	"errors"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExchangeCodeRepository 兑换码数据访问接口
type ExchangeCodeRepository interface {
	CreateBatch(codes []models.ExchangeCode, batchSize int) error
	GetBySerial(serial uint) (*models.ExchangeCode, error)
	MarkUsed(serial uint, userID uint, at time.Time) (int64, error)
	List(filter ExchangeCodeListFilter) ([]models.ExchangeCode, int64, error)
	UpdateExpiredTime(couponID uint, expiredAt time.Time) (int64, error)
	CountByCoupon(couponID uint, status string) (int64, error)
	WithTx(tx *gorm.DB) *GormExchangeCodeRepository
}

// GormExchangeCodeRepository GORM 实现
type GormExchangeCodeRepository struct {
	db *gorm.DB
}

// NewExchangeCodeRepository 创建兑换码仓库
func NewExchangeCodeRepository(db *gorm.DB) *GormExchangeCodeRepository {
	return &GormExchangeCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormExchangeCodeRepository) WithTx(tx *gorm.DB) *GormExchangeCodeRepository {
	if tx == nil {
		return r
	}
	return &GormExchangeCodeRepository{db: tx}
}

// CreateBatch 分批写入兑换码，已存在的序列号跳过
func (r *GormExchangeCodeRepository) CreateBatch(codes []models.ExchangeCode, batchSize int) error {
	if len(codes) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(codes, batchSize).Error
}

// GetBySerial 根据序列号获取兑换码
func (r *GormExchangeCodeRepository) GetBySerial(serial uint) (*models.ExchangeCode, error) {
	var code models.ExchangeCode
	if err := r.db.First(&code, serial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// MarkUsed 将未使用的兑换码标记为已使用并绑定用户
func (r *GormExchangeCodeRepository) MarkUsed(serial uint, userID uint, at time.Time) (int64, error) {
	result := r.db.Model(&models.ExchangeCode{}).
		Where("id = ? AND status = ?", serial, constants.ExchangeCodeStatusUnused).
		Updates(map[string]interface{}{
			"status":  constants.ExchangeCodeStatusUsed,
			"user_id": userID,
			"used_at": at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List 兑换码分页列表
func (r *GormExchangeCodeRepository) List(filter ExchangeCodeListFilter) ([]models.ExchangeCode, int64, error) {
	var codes []models.ExchangeCode
	query := r.db.Model(&models.ExchangeCode{})
	if filter.CouponID > 0 {
		query = query.Where("exchange_target_id = ?", filter.CouponID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query, total, err := paginate(query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := query.Order("id asc").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// UpdateExpiredTime 更新券下全部兑换码的过期时间
func (r *GormExchangeCodeRepository) UpdateExpiredTime(couponID uint, expiredAt time.Time) (int64, error) {
	result := r.db.Model(&models.ExchangeCode{}).
		Where("exchange_target_id = ?", couponID).
		UpdateColumn("expired_time", expiredAt)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountByCoupon 统计券下兑换码数量，status 为空时统计全部
func (r *GormExchangeCodeRepository) CountByCoupon(couponID uint, status string) (int64, error) {
	var count int64
	query := r.db.Model(&models.ExchangeCode{}).Where("exchange_target_id = ?", couponID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
