package constants

// 优惠券发放状态常量
const (
	CouponStatusDraft       = "draft"
	CouponStatusUnscheduled = "unscheduled"
	CouponStatusIssuing     = "issuing"
	CouponStatusPaused      = "paused"
	CouponStatusClosed      = "closed"
)

// 优惠类型常量
const (
	DiscountTypeNoThreshold = "no_threshold" // 无门槛立减
	DiscountTypePriceOff    = "price_off"    // 满减
	DiscountTypePerPriceOff = "per_price"    // 每满减
	DiscountTypeRate        = "rate"         // 折扣（可设上限）
)

// 领取方式常量
const (
	ObtainWayPublic = "public"
	ObtainWayCode   = "code"
)

// 适用范围类型常量
const (
	ScopeTypeCategory = "category"
	ScopeTypeItem     = "item"
)

// 兑换码状态常量
const (
	ExchangeCodeStatusUnused  = "unused"
	ExchangeCodeStatusUsed    = "used"
	ExchangeCodeStatusExpired = "expired"
)

// 用户券状态常量
const (
	UserCouponStatusUnused  = "unused"
	UserCouponStatusUsed    = "used"
	UserCouponStatusExpired = "expired"
)

// 领取事务状态常量
const (
	ClaimSagaStatusCommitted   = "committed"
	ClaimSagaStatusCompensated = "compensated"
)

// 领取失败原因常量（对外稳定）
const (
	ClaimReasonNotStarted   = "not_started"
	ClaimReasonSoldOut      = "sold_out"
	ClaimReasonEnded        = "ended"
	ClaimReasonLimitReached = "limit_reached"
	ClaimReasonCodeInvalid  = "code_invalid"
	ClaimReasonCodeUsed     = "code_used"
	ClaimReasonCodeExpired  = "code_expired"
)

// 队列常量
const (
	QueueDefault          = "default"
	QueueCritical         = "critical"
	TaskCouponClaimCommit = "coupon:claim_commit"
)

// 队列投递后端
const (
	QueueBackendAsynq = "asynq"
	QueueBackendKafka = "kafka"
)

// 缓存键常量（不含全局前缀）
const (
	RedisPrefixDefault          = "prs"
	RedisKeyCouponPrefix        = "coupon:"      // coupon:{id} 发放信息哈希
	RedisKeyUserCouponSuffix    = ":usr:coupon"  // coupon:{id}:usr:coupon 用户领取计数哈希
	RedisKeyCodeSerial          = "code:serial"  // 兑换码序列号计数器
	RedisKeyCodeRange           = "code:range"   // 优惠券 -> 最大序列号
	RedisKeyCodeReserved        = "code:reserve" // 优惠券 -> 已预留序列号区间
	RedisKeyCodeStatusBitmap    = "code:status"  // 兑换码已使用位图
	RedisFieldIssueBegin        = "issue_begin"  // 发放开始时间（unix 毫秒）
	RedisFieldIssueEnd          = "issue_end"    // 发放结束时间（unix 毫秒）
	RedisFieldStock             = "stock"        // 剩余库存
	RedisFieldUserLimit         = "user_limit"   // 每人限领
	RedisFieldObtainWay         = "obtain_way"   // 领取方式
	RedisKeyClaimRateLimitScope = "claim"
)
