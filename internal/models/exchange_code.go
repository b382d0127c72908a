package models

import (
	"time"

	"github.com/promotion-next/internal/constants"
)

// ExchangeCode 兑换码，ID 即序列号
type ExchangeCode struct {
	ID               uint       `gorm:"primaryKey;autoIncrement:false" json:"id"`    // 序列号
	Code             string     `gorm:"uniqueIndex;size:16;not null" json:"code"`    // 兑换码
	Status           string     `gorm:"index;not null;default:unused" json:"status"` // 状态（unused/used）
	ExchangeTargetID uint       `gorm:"index;not null" json:"exchange_target_id"`    // 优惠券ID
	UserID           *uint      `gorm:"index" json:"user_id"`                        // 兑换用户
	ExpiredTime      time.Time  `gorm:"index" json:"expired_time"`                   // 过期时间（发放结束时间）
	UsedAt           *time.Time `json:"used_at"`                                     // 兑换时间
	CreatedAt        time.Time  `json:"created_at"`                                  // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                  // 更新时间
}

// TableName 指定表名
func (ExchangeCode) TableName() string {
	return "exchange_codes"
}

// EffectiveStatus 结合过期时间计算当前状态
func (e *ExchangeCode) EffectiveStatus(now time.Time) string {
	if e.Status == constants.ExchangeCodeStatusUsed {
		return constants.ExchangeCodeStatusUsed
	}
	if now.After(e.ExpiredTime) {
		return constants.ExchangeCodeStatusExpired
	}
	return constants.ExchangeCodeStatusUnused
}
