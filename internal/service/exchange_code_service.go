package service

import (
	"context"
	"errors"
	"time"

	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/codec"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/logger"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/repository"
	"github.com/promotion-next/internal/workpool"
)

// ExchangeCodeService 兑换码生成、状态查询与管理
type ExchangeCodeService struct {
	couponRepo repository.CouponRepository
	codeRepo   repository.ExchangeCodeRepository
	store      *cache.ClaimStore
	codec      *codec.Codec
	pool       *workpool.Pool
	batchSize  int
	now        func() time.Time
}

// NewExchangeCodeService 创建兑换码服务；pool 为空时同步生成
func NewExchangeCodeService(
	couponRepo repository.CouponRepository,
	codeRepo repository.ExchangeCodeRepository,
	store *cache.ClaimStore,
	cc *codec.Codec,
	pool *workpool.Pool,
	batchSize int,
) *ExchangeCodeService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ExchangeCodeService{
		couponRepo: couponRepo,
		codeRepo:   codeRepo,
		store:      store,
		codec:      cc,
		pool:       pool,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// GenerateCodes 为兑换码券批量生成兑换码，提交到生成池后立即返回
func (s *ExchangeCodeService) GenerateCodes(ctx context.Context, couponID uint) error {
	coupon, err := s.couponRepo.GetByID(couponID)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	if !coupon.ByCode() {
		return ErrCouponNotByCode
	}
	if coupon.IssueEndTime == nil {
		return ErrIssueWindowInvalid
	}
	if s.pool == nil {
		return s.generate(context.WithoutCancel(ctx), coupon)
	}
	task := func() {
		if err := s.generate(context.WithoutCancel(ctx), coupon); err != nil {
			logger.Errorw("exchange_code_generate_failed", "coupon_id", coupon.ID, "error", err)
		}
	}
	if err := s.pool.Submit(task); err != nil {
		logger.Warnw("exchange_code_generate_rejected", "coupon_id", coupon.ID, "error", err)
		return ErrCodegenBusy
	}
	return nil
}

// generate 预留该券的序列号区间并落库，最后登记区间。
// 区间按券只预留一次，并发或中断后重试都写入同一批序列号。
func (s *ExchangeCodeService) generate(ctx context.Context, coupon *models.Coupon) error {
	if _, ok, err := s.store.CodeRangeMax(ctx, coupon.ID); err != nil {
		return err
	} else if ok {
		logger.Infow("exchange_code_generate_skipped", "coupon_id", coupon.ID, "reason", "already_generated")
		return nil
	}
	total := int64(coupon.TotalNum)
	if total <= 0 {
		return nil
	}
	first, last, err := s.store.ReserveCodeRange(ctx, coupon.ID, total)
	if err != nil {
		return err
	}

	codes := make([]models.ExchangeCode, 0, last-first+1)
	for serial := first; serial <= last; serial++ {
		codes = append(codes, models.ExchangeCode{
			ID:               uint(serial),
			Code:             s.codec.Encode(uint32(serial), coupon.ID),
			Status:           constants.ExchangeCodeStatusUnused,
			ExchangeTargetID: coupon.ID,
			ExpiredTime:      *coupon.IssueEndTime,
		})
	}
	if err := s.codeRepo.CreateBatch(codes, s.batchSize); err != nil {
		return err
	}
	if err := s.store.RecordCodeRange(ctx, coupon.ID, last); err != nil {
		return err
	}
	logger.Infow("exchange_code_generated",
		"coupon_id", coupon.ID,
		"first_serial", first,
		"last_serial", last,
	)
	return nil
}

// CheckCodeStatus 查询兑换码状态：先查使用位图，再查过期时间
func (s *ExchangeCodeService) CheckCodeStatus(ctx context.Context, code string) (string, error) {
	decoded, err := s.codec.Decode(code)
	if err != nil {
		return "", ErrExchangeCodeInvalid
	}
	used, err := s.store.CodeUsed(ctx, decoded.Serial)
	if err != nil {
		return "", err
	}
	if used {
		return constants.ExchangeCodeStatusUsed, nil
	}
	row, err := s.codeRepo.GetBySerial(uint(decoded.Serial))
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", ErrExchangeCodeNotFound
	}
	if !decoded.BelongsTo(row.ExchangeTargetID) {
		return "", ErrExchangeCodeMismatch
	}
	return row.EffectiveStatus(s.now()), nil
}

// ListCodes 兑换码分页列表
func (s *ExchangeCodeService) ListCodes(filter repository.ExchangeCodeListFilter) ([]models.ExchangeCode, int64, error) {
	return s.codeRepo.List(filter)
}

// UpdateCodeExpiry 批量更新券下兑换码的过期时间
func (s *ExchangeCodeService) UpdateCodeExpiry(couponID uint, expiredAt time.Time) (int64, error) {
	if couponID == 0 || expiredAt.IsZero() {
		return 0, ErrIssueWindowInvalid
	}
	return s.codeRepo.UpdateExpiredTime(couponID, expiredAt)
}

// MarkCodeStatus 设置使用位，返回是否发生变化
func (s *ExchangeCodeService) MarkCodeStatus(ctx context.Context, serial uint32, used bool) (bool, error) {
	if serial == 0 {
		return false, errors.New("serial must be positive")
	}
	prev, err := s.store.MarkCode(ctx, serial, used)
	if err != nil {
		return false, err
	}
	return prev != used, nil
}
