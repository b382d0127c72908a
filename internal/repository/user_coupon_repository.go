package repository

import (
	"errors"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/models"

	"gorm.io/gorm"
)

// UserCouponRepository 用户券数据访问接口
type UserCouponRepository interface {
	Create(userCoupon *models.UserCoupon) error
	GetByReservation(reservationNo string) (*models.UserCoupon, error)
	CountByUserAndCoupon(userID, couponID uint) (int64, error)
	CountByCoupon(couponID uint) (int64, error)
	List(filter UserCouponListFilter) ([]models.UserCoupon, int64, error)
	ListUsable(userID uint, now time.Time) ([]models.UserCoupon, error)
	WithTx(tx *gorm.DB) *GormUserCouponRepository
}

// GormUserCouponRepository GORM 实现
type GormUserCouponRepository struct {
	db *gorm.DB
}

// NewUserCouponRepository 创建用户券仓库
func NewUserCouponRepository(db *gorm.DB) *GormUserCouponRepository {
	return &GormUserCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserCouponRepository) WithTx(tx *gorm.DB) *GormUserCouponRepository {
	if tx == nil {
		return r
	}
	return &GormUserCouponRepository{db: tx}
}

// Create 写入用户券
func (r *GormUserCouponRepository) Create(userCoupon *models.UserCoupon) error {
	return r.db.Create(userCoupon).Error
}

// GetByReservation 根据预占单号获取
func (r *GormUserCouponRepository) GetByReservation(reservationNo string) (*models.UserCoupon, error) {
	var row models.UserCoupon
	if err := r.db.Where("reservation_no = ?", reservationNo).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// CountByUserAndCoupon 用户持有某券的数量
func (r *GormUserCouponRepository) CountByUserAndCoupon(userID, couponID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserCoupon{}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		Count(&count).Error
	return count, err
}

// CountByCoupon 某券已落库的领取数量
func (r *GormUserCouponRepository) CountByCoupon(couponID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserCoupon{}).Where("coupon_id = ?", couponID).Count(&count).Error
	return count, err
}

// List 用户券分页列表；expired 按有效期推导
func (r *GormUserCouponRepository) List(filter UserCouponListFilter) ([]models.UserCoupon, int64, error) {
	var rows []models.UserCoupon
	query := r.db.Model(&models.UserCoupon{}).Where("user_id = ?", filter.UserID)
	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}
	switch filter.Status {
	case constants.UserCouponStatusUnused:
		query = query.Where("status = ? AND term_end_time >= ?", constants.UserCouponStatusUnused, now)
	case constants.UserCouponStatusExpired:
		query = query.Where("status = ? AND term_end_time < ?", constants.UserCouponStatusUnused, now)
	case constants.UserCouponStatusUsed:
		query = query.Where("status = ?", constants.UserCouponStatusUsed)
	}

	query, total, err := paginate(query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Coupon").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListUsable 当前可用于下单的用户券（含券信息与范围）
func (r *GormUserCouponRepository) ListUsable(userID uint, now time.Time) ([]models.UserCoupon, error) {
	var rows []models.UserCoupon
	err := r.db.Preload("Coupon.Scopes").
		Where("user_id = ? AND status = ? AND term_begin_time <= ? AND term_end_time >= ?",
			userID, constants.UserCouponStatusUnused, now, now).
		Order("id asc").
		Find(&rows).Error
	return rows, err
}
