package models

import (
	"time"

	"github.com/promotion-next/internal/constants"

	"gorm.io/gorm"
)

// Coupon 优惠券（金额字段均为最小货币单位）
type Coupon struct {
	ID             uint           `gorm:"primarykey" json:"id"`                          // 主键
	Name           string         `gorm:"not null" json:"name"`                          // 名称
	DiscountType   string         `gorm:"not null" json:"discount_type"`                 // 优惠类型
	Specific       bool           `gorm:"not null;default:false" json:"specific"`        // 是否限定范围
	DiscountValue  int64          `gorm:"not null;default:0" json:"discount_value"`      // 优惠值（立减金额或折扣百分比）
	ThresholdAmt   int64          `gorm:"not null;default:0" json:"threshold_amount"`    // 使用门槛
	MaxDiscountAmt int64          `gorm:"not null;default:0" json:"max_discount_amount"` // 最大优惠金额（0 表示不限制）
	ObtainWay      string         `gorm:"not null;default:public" json:"obtain_way"`     // 领取方式（public/code）
	IssueBeginTime *time.Time     `gorm:"index" json:"issue_begin_time"`                 // 发放开始时间
	IssueEndTime   *time.Time     `gorm:"index" json:"issue_end_time"`                   // 发放结束时间
	TermDays       int            `gorm:"not null;default:0" json:"term_days"`           // 领取后有效天数
	TermBeginTime  *time.Time     `json:"term_begin_time"`                               // 使用开始时间
	TermEndTime    *time.Time     `json:"term_end_time"`                                 // 使用结束时间
	Status         string         `gorm:"index;not null;default:draft" json:"status"`    // 状态
	TotalNum       int            `gorm:"not null;default:0" json:"total_num"`           // 总库存
	IssueNum       int            `gorm:"not null;default:0" json:"issue_num"`           // 已发放数量
	UsedNum        int            `gorm:"not null;default:0" json:"used_num"`            // 已使用数量
	UserLimit      int            `gorm:"not null;default:0" json:"user_limit"`          // 每人限领（0 表示不限制）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间
	Scopes         []CouponScope  `gorm:"foreignKey:CouponID" json:"scopes,omitempty"`   // 适用范围
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// ByCode 是否通过兑换码发放
func (c *Coupon) ByCode() bool {
	return c != nil && c.ObtainWay == constants.ObtainWayCode
}

// Remaining 剩余可发放数量
func (c *Coupon) Remaining() int64 {
	if c == nil || c.TotalNum <= c.IssueNum {
		return 0
	}
	return int64(c.TotalNum - c.IssueNum)
}

// TermWindow 计算领取后的使用有效期
func (c *Coupon) TermWindow(now time.Time) (time.Time, time.Time) {
	if c.TermBeginTime != nil && c.TermEndTime != nil {
		return *c.TermBeginTime, *c.TermEndTime
	}
	return now, now.AddDate(0, 0, c.TermDays)
}
