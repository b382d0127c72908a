package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/models"

	"gorm.io/gorm"
)

// CouponRepository 优惠券数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetWithScopes(id uint) (*models.Coupon, error)
	ListByIDs(ids []uint) ([]models.Coupon, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	Delete(id uint) error
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	ListIssuing() ([]models.Coupon, error)
	ListDueForIssue(now time.Time) ([]models.Coupon, error)
	ListDueForClose(now time.Time) ([]models.Coupon, error)
	IncrementIssueNum(id uint) (int64, error)
	TransitionStatus(id uint, from []string, to string, fields map[string]interface{}) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 根据ID获取优惠券
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetWithScopes 获取优惠券及其适用范围
func (r *GormCouponRepository) GetWithScopes(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.Preload("Scopes").First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// ListByIDs 批量获取优惠券（含适用范围）
func (r *GormCouponRepository) ListByIDs(ids []uint) ([]models.Coupon, error) {
	if len(ids) == 0 {
		return []models.Coupon{}, nil
	}
	var coupons []models.Coupon
	if err := r.db.Preload("Scopes").Where("id IN ?", ids).Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Create 创建优惠券，Scopes 随主记录一并写入
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

// Update 更新优惠券基础字段
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Omit("Scopes").Save(coupon).Error
}

// Delete 删除优惠券
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Delete(&models.Coupon{}, id).Error
}

// List 获取优惠券列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	query := r.db.Model(&models.Coupon{})

	if filter.ID > 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ObtainWay != "" {
		query = query.Where("obtain_way = ?", filter.ObtainWay)
	}

	query, total, err := paginate(query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := query.Order("id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// ListIssuing 获取发放中的公开券
func (r *GormCouponRepository) ListIssuing() ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.Where("status = ? AND obtain_way = ?", constants.CouponStatusIssuing, constants.ObtainWayPublic).
		Order("id desc").
		Find(&coupons).Error
	return coupons, err
}

// ListDueForIssue 待发放且已到开始时间的优惠券
func (r *GormCouponRepository) ListDueForIssue(now time.Time) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.Where("status = ? AND issue_begin_time <= ?", constants.CouponStatusUnscheduled, now).
		Find(&coupons).Error
	return coupons, err
}

// ListDueForClose 发放中且已过结束时间的优惠券
func (r *GormCouponRepository) ListDueForClose(now time.Time) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.Where("status = ? AND issue_end_time < ?", constants.CouponStatusIssuing, now).
		Find(&coupons).Error
	return coupons, err
}

// IncrementIssueNum 已发放数量加一，库存耗尽时影响行数为 0
func (r *GormCouponRepository) IncrementIssueNum(id uint) (int64, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND issue_num < total_num", id).
		UpdateColumn("issue_num", gorm.Expr("issue_num + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// TransitionStatus 按当前状态条件更新状态，返回影响行数
func (r *GormCouponRepository) TransitionStatus(id uint, from []string, to string, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
