package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClaimStore(t *testing.T) (*ClaimStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewClaimStore(client, "test"), mr
}

func warm(t *testing.T, s *ClaimStore, couponID uint, stock int64, limit int, now time.Time) {
	t.Helper()
	require.NoError(t, s.WarmCoupon(context.Background(), CouponSnapshot{
		CouponID:   couponID,
		IssueBegin: now.Add(-time.Hour),
		IssueEnd:   now.Add(time.Hour),
		Stock:      stock,
		UserLimit:  limit,
	}))
}

func TestClaimStoreKeys(t *testing.T) {
	s, _ := newTestClaimStore(t)
	assert.Equal(t, "test:coupon:12", s.CouponKey(12))
	assert.Equal(t, "test:coupon:12:usr:coupon", s.UserCouponKey(12))
}

func TestAdmitWindowChecks(t *testing.T) {
	s, _ := newTestClaimStore(t)
	ctx := context.Background()
	now := time.Now()

	res, err := s.Admit(ctx, 1, 100, now)
	require.NoError(t, err)
	assert.Equal(t, AdmissionNotOpen, res, "missing coupon hash")

	require.NoError(t, s.WarmCoupon(ctx, CouponSnapshot{
		CouponID: 1, IssueBegin: now.Add(time.Minute), IssueEnd: now.Add(time.Hour), Stock: 5, UserLimit: 1,
	}))
	res, err = s.Admit(ctx, 1, 100, now)
	require.NoError(t, err)
	assert.Equal(t, AdmissionNotOpen, res)

	res, err = s.Admit(ctx, 1, 100, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, AdmissionEnded, res)

	res, err = s.Admit(ctx, 1, 100, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, AdmissionOK, res)
	stock, ok, err := s.Stock(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(4), stock)
}

func TestAdmitViaChecksObtainWay(t *testing.T) {
	s, _ := newTestClaimStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.WarmCoupon(ctx, CouponSnapshot{
		CouponID: 6, IssueBegin: now.Add(-time.Hour), IssueEnd: now.Add(time.Hour), Stock: 5, ObtainWay: "code",
	}))

	res, err := s.AdmitVia(ctx, 6, 1, now, "public")
	require.NoError(t, err)
	assert.Equal(t, AdmissionNotOpen, res)

	res, err = s.AdmitVia(ctx, 6, 1, now, "code")
	require.NoError(t, err)
	assert.Equal(t, AdmissionOK, res)
}

func TestAdmitQuotaBeforeStock(t *testing.T) {
	s, _ := newTestClaimStore(t)
	ctx := context.Background()
	now := time.Now()
	warm(t, s, 2, 2, 2, now)

	for i := 0; i < 2; i++ {
		res, err := s.Admit(ctx, 2, 7, now)
		require.NoError(t, err)
		require.Equal(t, AdmissionOK, res)
	}
	res, err := s.Admit(ctx, 2, 7, now)
	require.NoError(t, err)
	assert.Equal(t, AdmissionQuotaExceeded, res)

	res, err = s.Admit(ctx, 2, 8, now)
	require.NoError(t, err)
	assert.Equal(t, AdmissionStockExhausted, res)
}

func TestAdmitConcurrentNeverOversells(t *testing.T) {
	s, _ := newTestClaimStore(t)
	ctx := context.Background()
	now := time.Now()
	const stock, claimers = 20, 100
	warm(t, s, 3, stock, 1, now)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[AdmissionResult]int{}
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			res, err := s.Admit(ctx, 3, userID, now)
			if err != nil {
				t.Errorf("admit failed: %v", err)
				return
			}
			mu.Lock()
			results[res]++
			mu.Unlock()
		}(uint(i + 1))
	}
	wg.Wait()

	assert.Equal(t, stock, results[AdmissionOK])
	assert.Equal(t, claimers-stock, results[AdmissionStockExhausted])
	left, _, err := s.Stock(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestReleaseRestoresStockAndQuota(t *testing.T) {
	s, _ := newTestClaimStore(t)
	ctx := context.Background()
	now := time.Now()
	warm(t, s, 4, 1, 1, now)

	res, err := s.Admit(ctx, 4, 9, now)
	require.NoError(t, err)
	require.Equal(t, AdmissionOK, res)
	require.NoError(t, s.Release(ctx, 4, 9))

	stock, _, err := s.Stock(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)
	held, err := s.UserClaimCount(ctx, 4, 9)
	require.NoError(t, err)
	assert.Zero(t, held)

	res, err = s.Admit(ctx, 4, 9, now)
	require.NoError(t, err)
	assert.Equal(t, AdmissionOK, res)
}

func TestReleaseAfterEvictDoesNotRecreateHash(t *testing.T) {
	s, mr := newTestClaimStore(t)
	ctx := context.Background()
	now := time.Now()
	warm(t, s, 5, 3, 1, now)

	res, err := s.Admit(ctx, 5, 1, now)
	require.NoError(t, err)
	require.Equal(t, AdmissionOK, res)
	require.NoError(t, s.EvictCoupon(ctx, 5))
	require.NoError(t, s.Release(ctx, 5, 1))

	assert.False(t, mr.Exists(s.CouponKey(5)))
	held, err := s.UserClaimCount(ctx, 5, 1)
	require.NoError(t, err)
	assert.Zero(t, held)
}

func TestCodeBitmapAndSerials(t *testing.T) {
	s, _ := newTestClaimStore(t)
	ctx := context.Background()

	first, last, err := s.ReserveCodeRange(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(10), last)
	first, last, err = s.ReserveCodeRange(ctx, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(11), first)
	assert.Equal(t, int64(15), last)
	first, last, err = s.ReserveCodeRange(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first, "a coupon keeps its first range")
	assert.Equal(t, int64(10), last)

	used, err := s.CodeUsed(ctx, 12)
	require.NoError(t, err)
	assert.False(t, used)
	prev, err := s.MarkCode(ctx, 12, true)
	require.NoError(t, err)
	assert.False(t, prev)
	prev, err = s.MarkCode(ctx, 12, true)
	require.NoError(t, err)
	assert.True(t, prev)
	used, err = s.CodeUsed(ctx, 12)
	require.NoError(t, err)
	assert.True(t, used)

	require.NoError(t, s.RecordCodeRange(ctx, 1, 10))
	require.NoError(t, s.RecordCodeRange(ctx, 2, 15))
	owner, ok, err := s.CouponBySerial(ctx, 12)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint(2), owner)
	owner, ok, err = s.CouponBySerial(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint(1), owner)
	_, ok, err = s.CouponBySerial(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	max, ok, err := s.CodeRangeMax(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(15), max)
}

func TestAdmissionResultReasons(t *testing.T) {
	assert.Equal(t, "not_started", AdmissionNotOpen.String())
	assert.Equal(t, "sold_out", AdmissionStockExhausted.String())
	assert.Equal(t, "ended", AdmissionEnded.String())
	assert.Equal(t, "limit_reached", AdmissionQuotaExceeded.String())
}
