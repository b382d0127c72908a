package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateWith(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func createTestCoupon(t *testing.T, repo *GormCouponRepository, total int, status string) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Name:          "满100减10",
		DiscountType:  constants.DiscountTypePriceOff,
		DiscountValue: 1000,
		ThresholdAmt:  10000,
		Status:        status,
		TotalNum:      total,
		UserLimit:     1,
	}
	if err := repo.Create(coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func TestIncrementIssueNumStopsAtTotal(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCouponRepository(db)
	coupon := createTestCoupon(t, repo, 2, constants.CouponStatusIssuing)

	for i := 0; i < 2; i++ {
		affected, err := repo.IncrementIssueNum(coupon.ID)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if affected != 1 {
			t.Fatalf("increment %d want 1 row got %d", i, affected)
		}
	}
	affected, err := repo.IncrementIssueNum(coupon.ID)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("increment beyond total should affect 0 rows, got %d", affected)
	}

	reloaded, _ := repo.GetByID(coupon.ID)
	if reloaded.IssueNum != 2 {
		t.Fatalf("issue_num want 2 got %d", reloaded.IssueNum)
	}
}

func TestTransitionStatusRequiresSourceState(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCouponRepository(db)
	coupon := createTestCoupon(t, repo, 10, constants.CouponStatusDraft)

	affected, err := repo.TransitionStatus(coupon.ID, []string{constants.CouponStatusIssuing}, constants.CouponStatusPaused, nil)
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("draft coupon must not pause")
	}

	now := time.Now()
	affected, err = repo.TransitionStatus(coupon.ID,
		[]string{constants.CouponStatusDraft, constants.CouponStatusPaused},
		constants.CouponStatusIssuing,
		map[string]interface{}{"issue_begin_time": now},
	)
	if err != nil || affected != 1 {
		t.Fatalf("begin issue want 1 row got %d err=%v", affected, err)
	}
	reloaded, _ := repo.GetByID(coupon.ID)
	if reloaded.Status != constants.CouponStatusIssuing || reloaded.IssueBeginTime == nil {
		t.Fatalf("unexpected coupon after transition: %+v", reloaded)
	}
}

func TestCouponScopesLoadedWithCoupon(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCouponRepository(db)
	coupon := &models.Coupon{
		Name:         "分类券",
		DiscountType: constants.DiscountTypeRate,
		Specific:     true,
		TotalNum:     5,
		Scopes: []models.CouponScope{
			{Type: constants.ScopeTypeCategory, BizID: 11},
			{Type: constants.ScopeTypeItem, BizID: 22},
		},
	}
	if err := repo.Create(coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	loaded, err := repo.GetWithScopes(coupon.ID)
	if err != nil {
		t.Fatalf("get with scopes failed: %v", err)
	}
	if len(loaded.Scopes) != 2 {
		t.Fatalf("want 2 scopes got %d", len(loaded.Scopes))
	}

	scopeRepo := NewCouponScopeRepository(db)
	grouped, err := scopeRepo.ListByCoupons([]uint{coupon.ID, 999})
	if err != nil {
		t.Fatalf("list scopes failed: %v", err)
	}
	if len(grouped[coupon.ID]) != 2 || len(grouped[999]) != 0 {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}
	if err := scopeRepo.DeleteByCoupon(coupon.ID); err != nil {
		t.Fatalf("delete scopes failed: %v", err)
	}
	left, _ := scopeRepo.ListByCoupon(coupon.ID)
	if len(left) != 0 {
		t.Fatalf("scopes should be deleted")
	}
}

func TestListDueCoupons(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCouponRepository(db)
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := createTestCoupon(t, repo, 1, constants.CouponStatusUnscheduled)
	due.IssueBeginTime = &past
	due.IssueEndTime = &future
	_ = repo.Update(due)
	notYet := createTestCoupon(t, repo, 1, constants.CouponStatusUnscheduled)
	notYet.IssueBeginTime = &future
	_ = repo.Update(notYet)
	ended := createTestCoupon(t, repo, 1, constants.CouponStatusIssuing)
	ended.IssueEndTime = &past
	_ = repo.Update(ended)

	toIssue, err := repo.ListDueForIssue(now)
	if err != nil || len(toIssue) != 1 || toIssue[0].ID != due.ID {
		t.Fatalf("unexpected due for issue: %+v err=%v", toIssue, err)
	}
	toClose, err := repo.ListDueForClose(now)
	if err != nil || len(toClose) != 1 || toClose[0].ID != ended.ID {
		t.Fatalf("unexpected due for close: %+v err=%v", toClose, err)
	}
}

func TestExchangeCodeMarkUsedOnce(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewExchangeCodeRepository(db)
	expire := time.Now().Add(time.Hour)
	codes := []models.ExchangeCode{
		{ID: 1, Code: "AAAAAAAAAA", ExchangeTargetID: 3, ExpiredTime: expire},
		{ID: 2, Code: "BBBBBBBBBB", ExchangeTargetID: 3, ExpiredTime: expire},
	}
	if err := repo.CreateBatch(codes, 1); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	affected, err := repo.MarkUsed(2, 77, time.Now())
	if err != nil || affected != 1 {
		t.Fatalf("mark used want 1 row got %d err=%v", affected, err)
	}
	affected, err = repo.MarkUsed(2, 78, time.Now())
	if err != nil || affected != 0 {
		t.Fatalf("second mark used want 0 rows got %d err=%v", affected, err)
	}
	code, _ := repo.GetBySerial(2)
	if code.UserID == nil || *code.UserID != 77 {
		t.Fatalf("code should be bound to first user")
	}

	later := expire.Add(time.Hour)
	if n, err := repo.UpdateExpiredTime(3, later); err != nil || n != 2 {
		t.Fatalf("update expired time want 2 rows got %d err=%v", n, err)
	}
	used, _ := repo.CountByCoupon(3, constants.ExchangeCodeStatusUsed)
	all, _ := repo.CountByCoupon(3, "")
	if used != 1 || all != 2 {
		t.Fatalf("unexpected counts used=%d all=%d", used, all)
	}
	missing, err := repo.GetBySerial(404)
	if err != nil || missing != nil {
		t.Fatalf("missing serial should return nil, nil")
	}
}

func TestClaimSagaDecideOnce(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewClaimSagaRepository(db)

	won, err := repo.Decide(&models.CouponClaimSaga{
		ReservationNo: "r-1", CouponID: 1, UserID: 2, Status: constants.ClaimSagaStatusCommitted,
	})
	if err != nil || !won {
		t.Fatalf("first decide should win, err=%v", err)
	}
	won, err = repo.Decide(&models.CouponClaimSaga{
		ReservationNo: "r-1", CouponID: 1, UserID: 2, Status: constants.ClaimSagaStatusCompensated,
	})
	if err != nil || won {
		t.Fatalf("second decide should lose, err=%v", err)
	}
	saga, _ := repo.GetByReservation("r-1")
	if saga.Status != constants.ClaimSagaStatusCommitted {
		t.Fatalf("status should stay committed, got %s", saga.Status)
	}
	if err := repo.MarkReleased("r-1"); err != nil {
		t.Fatalf("mark released failed: %v", err)
	}
	saga, _ = repo.GetByReservation("r-1")
	if !saga.Released {
		t.Fatalf("released flag not persisted")
	}
}

func TestUserCouponListUsable(t *testing.T) {
	db := setupRepositoryTestDB(t)
	couponRepo := NewCouponRepository(db)
	repo := NewUserCouponRepository(db)
	coupon := createTestCoupon(t, couponRepo, 5, constants.CouponStatusIssuing)
	now := time.Now()

	rows := []models.UserCoupon{
		{UserID: 1, CouponID: coupon.ID, ReservationNo: "a", TermBeginTime: now.Add(-time.Hour), TermEndTime: now.Add(time.Hour), Status: constants.UserCouponStatusUnused},
		{UserID: 1, CouponID: coupon.ID, ReservationNo: "b", TermBeginTime: now.Add(-2 * time.Hour), TermEndTime: now.Add(-time.Hour), Status: constants.UserCouponStatusUnused},
		{UserID: 1, CouponID: coupon.ID, ReservationNo: "c", TermBeginTime: now.Add(-time.Hour), TermEndTime: now.Add(time.Hour), Status: constants.UserCouponStatusUsed},
		{UserID: 2, CouponID: coupon.ID, ReservationNo: "d", TermBeginTime: now.Add(-time.Hour), TermEndTime: now.Add(time.Hour), Status: constants.UserCouponStatusUnused},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("create user coupon failed: %v", err)
		}
	}

	usable, err := repo.ListUsable(1, now)
	if err != nil {
		t.Fatalf("list usable failed: %v", err)
	}
	if len(usable) != 1 || usable[0].ReservationNo != "a" || usable[0].Coupon == nil {
		t.Fatalf("unexpected usable coupons: %+v", usable)
	}

	expired, total, err := repo.List(UserCouponListFilter{UserID: 1, Status: constants.UserCouponStatusExpired, Now: now})
	if err != nil || total != 1 || expired[0].ReservationNo != "b" {
		t.Fatalf("unexpected expired list total=%d err=%v", total, err)
	}
	count, _ := repo.CountByUserAndCoupon(1, coupon.ID)
	if count != 3 {
		t.Fatalf("want 3 rows for user 1 got %d", count)
	}
}
