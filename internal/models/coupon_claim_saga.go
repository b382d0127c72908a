package models

import "time"

// CouponClaimSaga 领取预占的终态记录，预占单号唯一，保证提交与补偿只有一个生效
type CouponClaimSaga struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	ReservationNo string    `gorm:"uniqueIndex;size:64;not null" json:"reservation_no"` // 预占单号
	CouponID      uint      `gorm:"index;not null" json:"coupon_id"`                    // 优惠券ID
	UserID        uint      `gorm:"index;not null" json:"user_id"`                      // 用户ID
	SerialNum     uint32    `gorm:"not null;default:0" json:"serial_num"`               // 兑换码序列号（0 表示直接领取）
	Status        string    `gorm:"index;not null" json:"status"`                       // committed / compensated
	Reason        string    `gorm:"type:text" json:"reason"`                            // 补偿原因
	Released      bool      `gorm:"not null;default:false" json:"released"`             // 快速存储是否已回退
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (CouponClaimSaga) TableName() string {
	return "coupon_claim_sagas"
}
