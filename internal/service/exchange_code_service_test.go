package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/repository"
	"github.com/promotion-next/internal/workpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodesIsIdempotent(t *testing.T) {
	env := setupClaimServiceTest(t, disabledPublisher(t))
	ctx := context.Background()
	coupon := env.issuedCoupon(t, 4, 1, constants.ObtainWayCode)

	require.NoError(t, env.codes.GenerateCodes(ctx, coupon.ID))
	codes, total, err := env.codes.ListCodes(repository.ExchangeCodeListFilter{CouponID: coupon.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	max, ok, err := env.store.CodeRangeMax(ctx, coupon.ID)
	require.NoError(t, err)
	require.True(t, ok)
	for _, row := range codes {
		decoded, err := env.codec.Decode(row.Code)
		require.NoError(t, err)
		assert.Equal(t, uint32(row.ID), decoded.Serial)
		assert.True(t, decoded.BelongsTo(coupon.ID))
		assert.LessOrEqual(t, int64(row.ID), max)
	}
}

func TestGenerateCodesRejectsPublicCoupon(t *testing.T) {
	env := setupClaimServiceTest(t, disabledPublisher(t))
	coupon := env.issuedCoupon(t, 4, 1, constants.ObtainWayPublic)

	assert.ErrorIs(t, env.codes.GenerateCodes(context.Background(), coupon.ID), ErrCouponNotByCode)
	assert.ErrorIs(t, env.codes.GenerateCodes(context.Background(), 404), ErrCouponNotFound)
}

func TestGenerateCodesOnPool(t *testing.T) {
	env := setupClaimServiceTest(t, disabledPublisher(t))
	pool := workpool.New("codegen-test", 1, 4, workpool.CallerRuns)
	env.codes.pool = pool

	coupon := env.issuedCoupon(t, 3, 1, constants.ObtainWayCode)
	require.NoError(t, env.codes.GenerateCodes(context.Background(), coupon.ID))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Close(ctx))

	_, total, err := env.codes.ListCodes(repository.ExchangeCodeListFilter{CouponID: coupon.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestCheckCodeStatusRejections(t *testing.T) {
	env := setupClaimServiceTest(t, disabledPublisher(t))
	ctx := context.Background()
	coupon := env.issuedCoupon(t, 1, 1, constants.ObtainWayCode)

	_, err := env.codes.CheckCodeStatus(ctx, "!!!")
	assert.ErrorIs(t, err, ErrExchangeCodeInvalid)

	_, err = env.codes.CheckCodeStatus(ctx, env.codec.Encode(5000, coupon.ID))
	assert.ErrorIs(t, err, ErrExchangeCodeNotFound)

	codes, _, err := env.codes.ListCodes(repository.ExchangeCodeListFilter{CouponID: coupon.ID})
	require.NoError(t, err)
	require.Len(t, codes, 1)
	forged := env.codec.Encode(uint32(codes[0].ID), coupon.ID+1)
	_, err = env.codes.CheckCodeStatus(ctx, forged)
	assert.ErrorIs(t, err, ErrExchangeCodeMismatch)

	_, err = env.codes.UpdateCodeExpiry(coupon.ID, time.Time{})
	assert.ErrorIs(t, err, ErrIssueWindowInvalid)
}

func (e *claimTestEnv) draftCodeCoupon(t *testing.T, total int) *models.Coupon {
	t.Helper()
	coupon, err := e.admin.Create(CreateCouponInput{
		Name:          "兑换专享",
		DiscountType:  constants.DiscountTypeNoThreshold,
		DiscountValue: 500,
		ObtainWay:     constants.ObtainWayCode,
		TotalNum:      total,
	})
	require.NoError(t, err)
	end := time.Now().Add(24 * time.Hour)
	coupon.IssueEndTime = &end
	return coupon
}

func TestOverlappingGenerateWritesOneBatch(t *testing.T) {
	env := setupClaimServiceTest(t, disabledPublisher(t))
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	coupon := env.draftCodeCoupon(t, 50)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.codes.generate(context.Background(), coupon)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	_, total, err := env.codes.ListCodes(repository.ExchangeCodeListFilter{CouponID: coupon.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
	max, ok, err := env.store.CodeRangeMax(context.Background(), coupon.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(50), max)
}

func TestGenerateResumesReservedRange(t *testing.T) {
	env := setupClaimServiceTest(t, disabledPublisher(t))
	ctx := context.Background()
	coupon := env.draftCodeCoupon(t, 6)

	// 上次生成只写入了前两条
	first, last, err := env.store.ReserveCodeRange(ctx, coupon.ID, 6)
	require.NoError(t, err)
	var partial []models.ExchangeCode
	for serial := first; serial < first+2; serial++ {
		partial = append(partial, models.ExchangeCode{
			ID:               uint(serial),
			Code:             env.codec.Encode(uint32(serial), coupon.ID),
			Status:           constants.ExchangeCodeStatusUnused,
			ExchangeTargetID: coupon.ID,
			ExpiredTime:      *coupon.IssueEndTime,
		})
	}
	require.NoError(t, repository.NewExchangeCodeRepository(env.db).CreateBatch(partial, 10))

	require.NoError(t, env.codes.generate(ctx, coupon))
	codes, total, err := env.codes.ListCodes(repository.ExchangeCodeListFilter{CouponID: coupon.ID, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	for _, row := range codes {
		assert.GreaterOrEqual(t, int64(row.ID), first)
		assert.LessOrEqual(t, int64(row.ID), last)
	}
}
