package service

import "errors"

// 优惠券
var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInvalid       = errors.New("coupon invalid")
	ErrCouponScopeInvalid  = errors.New("coupon scope invalid")
	ErrCouponStatusInvalid = errors.New("coupon status does not allow this operation")
	ErrCouponNotByCode     = errors.New("coupon is not issued by exchange code")
	ErrIssueWindowInvalid  = errors.New("issue window invalid")
)

// 领取准入（与准入脚本返回码一一对应）
var (
	ErrClaimNotOpen        = errors.New("coupon issuance not open")
	ErrClaimStockExhausted = errors.New("coupon stock exhausted")
	ErrClaimIssuanceEnded  = errors.New("coupon issuance ended")
	ErrClaimQuotaExceeded  = errors.New("coupon claim quota exceeded")
)

// 领取落库
var (
	ErrClaimCommitRejected  = errors.New("claim commit rejected")
	ErrClaimPublishFailed   = errors.New("claim publish failed")
	ErrFastStoreUnavailable = errors.New("fast store unavailable")
)

// 兑换码
var (
	ErrExchangeCodeInvalid  = errors.New("exchange code invalid")
	ErrExchangeCodeMismatch = errors.New("exchange code does not match coupon")
	ErrExchangeCodeNotFound = errors.New("exchange code not found")
	ErrExchangeCodeUsed     = errors.New("exchange code used")
	ErrExchangeCodeExpired  = errors.New("exchange code expired")
	ErrCodegenBusy          = errors.New("exchange code generation busy")
)

// 计价
var (
	ErrOrderItemsInvalid = errors.New("order items invalid")
)
