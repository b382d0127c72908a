package repository

import (
	"github.com/promotion-next/internal/models"

	"gorm.io/gorm"
)

// CouponScopeRepository 优惠券适用范围数据访问接口
type CouponScopeRepository interface {
	ListByCoupon(couponID uint) ([]models.CouponScope, error)
	ListByCoupons(couponIDs []uint) (map[uint][]models.CouponScope, error)
	DeleteByCoupon(couponID uint) error
	WithTx(tx *gorm.DB) *GormCouponScopeRepository
}

// GormCouponScopeRepository GORM 实现
type GormCouponScopeRepository struct {
	db *gorm.DB
}

// NewCouponScopeRepository 创建适用范围仓库
func NewCouponScopeRepository(db *gorm.DB) *GormCouponScopeRepository {
	return &GormCouponScopeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponScopeRepository) WithTx(tx *gorm.DB) *GormCouponScopeRepository {
	if tx == nil {
		return r
	}
	return &GormCouponScopeRepository{db: tx}
}

// ListByCoupon 获取单张券的范围
func (r *GormCouponScopeRepository) ListByCoupon(couponID uint) ([]models.CouponScope, error) {
	var scopes []models.CouponScope
	if err := r.db.Where("coupon_id = ?", couponID).Order("id asc").Find(&scopes).Error; err != nil {
		return nil, err
	}
	return scopes, nil
}

// ListByCoupons 批量获取范围并按券分组
func (r *GormCouponScopeRepository) ListByCoupons(couponIDs []uint) (map[uint][]models.CouponScope, error) {
	result := make(map[uint][]models.CouponScope, len(couponIDs))
	if len(couponIDs) == 0 {
		return result, nil
	}
	var scopes []models.CouponScope
	if err := r.db.Where("coupon_id IN ?", couponIDs).Order("id asc").Find(&scopes).Error; err != nil {
		return nil, err
	}
	for _, scope := range scopes {
		result[scope.CouponID] = append(result[scope.CouponID], scope)
	}
	return result, nil
}

// DeleteByCoupon 删除券的全部范围
func (r *GormCouponScopeRepository) DeleteByCoupon(couponID uint) error {
	return r.db.Where("coupon_id = ?", couponID).Delete(&models.CouponScope{}).Error
}
