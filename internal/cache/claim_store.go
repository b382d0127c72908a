package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/promotion-next/internal/constants"

	"github.com/redis/go-redis/v9"
)

// AdmissionResult 领取准入脚本返回码
type AdmissionResult int64

const (
	AdmissionOK             AdmissionResult = 0
	AdmissionNotOpen        AdmissionResult = 1
	AdmissionStockExhausted AdmissionResult = 2
	AdmissionEnded          AdmissionResult = 3
	AdmissionQuotaExceeded  AdmissionResult = 4
)

// String 返回对外稳定的原因
func (r AdmissionResult) String() string {
	switch r {
	case AdmissionOK:
		return "ok"
	case AdmissionNotOpen:
		return constants.ClaimReasonNotStarted
	case AdmissionStockExhausted:
		return constants.ClaimReasonSoldOut
	case AdmissionEnded:
		return constants.ClaimReasonEnded
	case AdmissionQuotaExceeded:
		return constants.ClaimReasonLimitReached
	default:
		return "unknown"
	}
}

// KEYS[1] 优惠券发放哈希，KEYS[2] 用户领取计数哈希
// ARGV[1] 用户 ID，ARGV[2] 当前时间（unix 毫秒），ARGV[3] 领取方式（可为空）
// 限领在库存之前判断，已达上限的用户始终得到 4
var admissionScript = redis.NewScript(`
local info = redis.call("HMGET", KEYS[1], "issue_begin", "issue_end", "stock", "user_limit", "obtain_way")
if not info[1] or not info[2] or not info[3] then
	return 1
end
if ARGV[3] ~= "" and info[5] and info[5] ~= "" and info[5] ~= ARGV[3] then
	return 1
end
local now = tonumber(ARGV[2])
if now < tonumber(info[1]) then
	return 1
end
if now > tonumber(info[2]) then
	return 3
end
local limit = tonumber(info[4] or "0")
if limit > 0 then
	local held = tonumber(redis.call("HGET", KEYS[2], ARGV[1]) or "0")
	if held >= limit then
		return 4
	end
end
if tonumber(info[3]) <= 0 then
	return 2
end
redis.call("HINCRBY", KEYS[1], "stock", -1)
redis.call("HINCRBY", KEYS[2], ARGV[1], 1)
return 0
`)

// 补偿：归还库存与用户计数，发放哈希已被移除时只回退用户计数
var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("HINCRBY", KEYS[1], "stock", 1)
end
local held = tonumber(redis.call("HGET", KEYS[2], ARGV[1]) or "0")
if held > 1 then
	redis.call("HINCRBY", KEYS[2], ARGV[1], -1)
elseif held == 1 then
	redis.call("HDEL", KEYS[2], ARGV[1])
end
return 1
`)

// KEYS[1] 序列号计数器，KEYS[2] 优惠券 -> 已预留区间 "first:last"
// ARGV[1] 优惠券 ID，ARGV[2] 数量
var reserveRangeScript = redis.NewScript(`
local reserved = redis.call("HGET", KEYS[2], ARGV[1])
if reserved then
	local sep = string.find(reserved, ":", 1, true)
	return {tonumber(string.sub(reserved, 1, sep - 1)), tonumber(string.sub(reserved, sep + 1))}
end
local n = tonumber(ARGV[2])
local last = redis.call("INCRBY", KEYS[1], n)
local first = last - n + 1
redis.call("HSET", KEYS[2], ARGV[1], first .. ":" .. last)
return {first, last}
`)

// CouponSnapshot 写入快速存储的发放信息
type CouponSnapshot struct {
	CouponID   uint
	IssueBegin time.Time
	IssueEnd   time.Time
	Stock      int64
	UserLimit  int
	ObtainWay  string
}

// ClaimStore 领取相关的 Redis 原子操作
type ClaimStore struct {
	client redis.UniversalClient
	prefix string
}

// NewClaimStore 创建领取存储
func NewClaimStore(client redis.UniversalClient, prefix string) *ClaimStore {
	return &ClaimStore{client: client, prefix: normalizePrefix(prefix)}
}

// CouponKey 优惠券发放哈希键
func (s *ClaimStore) CouponKey(couponID uint) string {
	return buildKey(s.prefix, constants.RedisKeyCouponPrefix+strconv.FormatUint(uint64(couponID), 10))
}

// UserCouponKey 用户领取计数哈希键
func (s *ClaimStore) UserCouponKey(couponID uint) string {
	return s.CouponKey(couponID) + constants.RedisKeyUserCouponSuffix
}

func (s *ClaimStore) key(name string) string {
	return buildKey(s.prefix, name)
}

// WarmCoupon 写入发放窗口、剩余库存与限领
func (s *ClaimStore) WarmCoupon(ctx context.Context, snap CouponSnapshot) error {
	stock := snap.Stock
	if stock < 0 {
		stock = 0
	}
	return s.client.HSet(ctx, s.CouponKey(snap.CouponID), map[string]interface{}{
		constants.RedisFieldIssueBegin: snap.IssueBegin.UnixMilli(),
		constants.RedisFieldIssueEnd:   snap.IssueEnd.UnixMilli(),
		constants.RedisFieldStock:      stock,
		constants.RedisFieldUserLimit:  snap.UserLimit,
		constants.RedisFieldObtainWay:  snap.ObtainWay,
	}).Err()
}

// EvictCoupon 移除发放哈希，之后的领取返回未开始
func (s *ClaimStore) EvictCoupon(ctx context.Context, couponID uint) error {
	return s.client.Del(ctx, s.CouponKey(couponID)).Err()
}

// Admit 原子执行准入校验并预占库存与限领
func (s *ClaimStore) Admit(ctx context.Context, couponID, userID uint, now time.Time) (AdmissionResult, error) {
	return s.AdmitVia(ctx, couponID, userID, now, "")
}

// AdmitVia 同 Admit，并要求券的领取方式与 obtainWay 一致
func (s *ClaimStore) AdmitVia(ctx context.Context, couponID, userID uint, now time.Time, obtainWay string) (AdmissionResult, error) {
	raw, err := admissionScript.Run(ctx, s.client,
		[]string{s.CouponKey(couponID), s.UserCouponKey(couponID)},
		strconv.FormatUint(uint64(userID), 10), now.UnixMilli(), obtainWay,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("run admission script: %w", err)
	}
	return AdmissionResult(raw), nil
}

// Release 回退一次预占
func (s *ClaimStore) Release(ctx context.Context, couponID, userID uint) error {
	err := releaseScript.Run(ctx, s.client,
		[]string{s.CouponKey(couponID), s.UserCouponKey(couponID)},
		strconv.FormatUint(uint64(userID), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("run release script: %w", err)
	}
	return nil
}

// Stock 读取剩余库存，哈希不存在时返回 false
func (s *ClaimStore) Stock(ctx context.Context, couponID uint) (int64, bool, error) {
	v, err := s.client.HGet(ctx, s.CouponKey(couponID), constants.RedisFieldStock).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// UserClaimCount 读取用户已预占数量
func (s *ClaimStore) UserClaimCount(ctx context.Context, couponID, userID uint) (int64, error) {
	v, err := s.client.HGet(ctx, s.UserCouponKey(couponID), strconv.FormatUint(uint64(userID), 10)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// CodeUsed 读取兑换码使用位
func (s *ClaimStore) CodeUsed(ctx context.Context, serial uint32) (bool, error) {
	bit, err := s.client.GetBit(ctx, s.key(constants.RedisKeyCodeStatusBitmap), int64(serial)).Result()
	if err != nil {
		return false, err
	}
	return bit == 1, nil
}

// MarkCode 设置兑换码使用位，返回设置前的值
func (s *ClaimStore) MarkCode(ctx context.Context, serial uint32, used bool) (bool, error) {
	value := 0
	if used {
		value = 1
	}
	prev, err := s.client.SetBit(ctx, s.key(constants.RedisKeyCodeStatusBitmap), int64(serial), value).Result()
	if err != nil {
		return false, err
	}
	return prev == 1, nil
}

// ReserveCodeRange 为优惠券预留 n 个连续序列号，返回区间 [first, last]。
// 每张券只预留一次，重复调用返回首次的区间，供中断后续写。
func (s *ClaimStore) ReserveCodeRange(ctx context.Context, couponID uint, n int64) (int64, int64, error) {
	if n <= 0 {
		return 0, 0, fmt.Errorf("serial count must be positive")
	}
	res, err := reserveRangeScript.Run(ctx, s.client,
		[]string{s.key(constants.RedisKeyCodeSerial), s.key(constants.RedisKeyCodeReserved)},
		strconv.FormatUint(uint64(couponID), 10), n,
	).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected reserve result %v", res)
	}
	return res[0], res[1], nil
}

// RecordCodeRange 记录优惠券的最大序列号
func (s *ClaimStore) RecordCodeRange(ctx context.Context, couponID uint, maxSerial int64) error {
	return s.client.ZAdd(ctx, s.key(constants.RedisKeyCodeRange), redis.Z{
		Score:  float64(maxSerial),
		Member: strconv.FormatUint(uint64(couponID), 10),
	}).Err()
}

// CodeRangeMax 查询优惠券已分配的最大序列号，未生成时返回 false
func (s *ClaimStore) CodeRangeMax(ctx context.Context, couponID uint) (int64, bool, error) {
	score, err := s.client.ZScore(ctx, s.key(constants.RedisKeyCodeRange), strconv.FormatUint(uint64(couponID), 10)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int64(score), true, nil
}

// CouponBySerial 按序列号定位所属优惠券：score 不小于 serial 的第一个成员
func (s *ClaimStore) CouponBySerial(ctx context.Context, serial uint32) (uint, bool, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key(constants.RedisKeyCodeRange), &redis.ZRangeBy{
		Min:    strconv.FormatUint(uint64(serial), 10),
		Max:    "+inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, false, err
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(members[0], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse coupon id %q: %w", members[0], err)
	}
	return uint(id), true, nil
}
