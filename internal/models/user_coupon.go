package models

import (
	"time"

	"github.com/promotion-next/internal/constants"
)

// UserCoupon 用户领取的优惠券
type UserCoupon struct {
	ID            uint       `gorm:"primarykey" json:"id"`                            // 主键
	UserID        uint       `gorm:"index:idx_user_coupon;not null" json:"user_id"`   // 用户ID
	CouponID      uint       `gorm:"index:idx_user_coupon;not null" json:"coupon_id"` // 优惠券ID
	ReservationNo string     `gorm:"uniqueIndex;size:64;not null" json:"-"`           // 预占单号
	TermBeginTime time.Time  `json:"term_begin_time"`                                 // 有效期开始
	TermEndTime   time.Time  `gorm:"index" json:"term_end_time"`                      // 有效期结束
	Status        string     `gorm:"index;not null;default:unused" json:"status"`     // 状态
	UsedAt        *time.Time `json:"used_at"`                                         // 使用时间
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                         // 领取时间
	UpdatedAt     time.Time  `json:"updated_at"`                                      // 更新时间

	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}

// TableName 指定表名
func (UserCoupon) TableName() string {
	return "user_coupons"
}

// EffectiveStatus 过期状态不落库，按有效期推导
func (u *UserCoupon) EffectiveStatus(now time.Time) string {
	if u.Status == constants.UserCouponStatusUnused && now.After(u.TermEndTime) {
		return constants.UserCouponStatusExpired
	}
	return u.Status
}
