package repository

import "time"

// CouponListFilter 优惠券列表筛选
type CouponListFilter struct {
	Page      int
	PageSize  int
	ID        uint
	Name      string
	Status    string
	ObtainWay string
}

// ExchangeCodeListFilter 兑换码列表筛选
type ExchangeCodeListFilter struct {
	Page     int
	PageSize int
	CouponID uint
	Status   string
}

// UserCouponListFilter 用户券列表筛选
type UserCouponListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Status   string
	Now      time.Time
}
