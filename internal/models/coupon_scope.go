package models

// CouponScope 优惠券适用范围
type CouponScope struct {
	ID       uint   `gorm:"primarykey" json:"id"`                                         // 主键
	CouponID uint   `gorm:"index;not null;uniqueIndex:idx_coupon_scope" json:"coupon_id"` // 优惠券ID
	Type     string `gorm:"not null;uniqueIndex:idx_coupon_scope" json:"type"`            // 范围类型（category/item）
	BizID    uint   `gorm:"not null;uniqueIndex:idx_coupon_scope" json:"biz_id"`          // 分类或商品ID
}

// TableName 指定表名
func (CouponScope) TableName() string {
	return "coupon_scopes"
}
