package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/config"
	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/models"
	"github.com/promotion-next/internal/provider"
	"github.com/promotion-next/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupPublicHandlerTest(t *testing.T) (*Handler, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.MigrateWith(db))
	models.DB = db

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.UseClient(client, "test")
	t.Cleanup(func() { _ = cache.Close() })

	cfg := config.Defaults()
	cfg.Queue.Enabled = false
	container, err := provider.NewContainer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	h := New(container)
	r := gin.New()
	withUser := func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			var id uint
			_, _ = fmt.Sscanf(raw, "%d", &id)
			c.Set("user_id", id)
		}
		c.Next()
	}
	r.GET("/public/coupons", h.ListIssuingCoupons)
	r.GET("/public/codes/:code/status", h.CheckCodeStatus)
	user := r.Group("/user-coupons", withUser)
	user.GET("", h.ListMyCoupons)
	user.POST("/:couponId/receive", h.ClaimCoupon)
	user.POST("/exchange", h.RedeemCode)
	user.POST("/available", h.PriceOrder)
	return h, r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, userID uint, body string) apiResponse {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("X-Test-User", fmt.Sprintf("%d", userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func reasonOf(t *testing.T, resp apiResponse) string {
	t.Helper()
	var data struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Reason
}

func issuePublicCoupon(t *testing.T, h *Handler, total, userLimit int) *models.Coupon {
	t.Helper()
	coupon, err := h.CouponAdminService.Create(service.CreateCouponInput{
		Name:          "新人立减",
		DiscountType:  constants.DiscountTypeNoThreshold,
		DiscountValue: 300,
		ObtainWay:     constants.ObtainWayPublic,
		TotalNum:      total,
		UserLimit:     userLimit,
	})
	require.NoError(t, err)
	coupon, err = h.CouponAdminService.BeginIssue(context.Background(), coupon.ID, service.BeginIssueInput{
		IssueEndTime: time.Now().Add(time.Hour),
		TermDays:     3,
	})
	require.NoError(t, err)
	return coupon
}

func TestClaimCouponEndpoint(t *testing.T) {
	h, r := setupPublicHandlerTest(t)
	coupon := issuePublicCoupon(t, h, 1, 1)
	path := fmt.Sprintf("/user-coupons/%d/receive", coupon.ID)

	resp := doRequest(t, r, http.MethodPost, path, 0, "")
	assert.Equal(t, 401, resp.StatusCode)

	resp = doRequest(t, r, http.MethodPost, path, 5, "")
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var result service.ClaimResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Committed)
	assert.Equal(t, coupon.ID, result.CouponID)

	resp = doRequest(t, r, http.MethodPost, path, 5, "")
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, constants.ClaimReasonLimitReached, reasonOf(t, resp))

	resp = doRequest(t, r, http.MethodPost, path, 6, "")
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, constants.ClaimReasonSoldOut, reasonOf(t, resp))

	resp = doRequest(t, r, http.MethodPost, "/user-coupons/999/receive", 6, "")
	assert.Equal(t, constants.ClaimReasonNotStarted, reasonOf(t, resp))
}

func TestRedeemAndCodeStatusRejectMalformedCode(t *testing.T) {
	_, r := setupPublicHandlerTest(t)

	resp := doRequest(t, r, http.MethodPost, "/user-coupons/exchange", 5, `{"code":"0000"}`)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, constants.ClaimReasonCodeInvalid, reasonOf(t, resp))

	resp = doRequest(t, r, http.MethodPost, "/user-coupons/exchange", 5, `{}`)
	assert.Equal(t, 400, resp.StatusCode)

	resp = doRequest(t, r, http.MethodGet, "/public/codes/BAD/status", 0, "")
	assert.Equal(t, constants.ClaimReasonCodeInvalid, reasonOf(t, resp))
}

func TestPriceOrderAndListEndpoints(t *testing.T) {
	h, r := setupPublicHandlerTest(t)
	coupon := issuePublicCoupon(t, h, 10, 1)

	resp := doRequest(t, r, http.MethodGet, "/public/coupons", 0, "")
	require.Equal(t, 0, resp.StatusCode)
	var issuing []IssuingCouponResp
	require.NoError(t, json.Unmarshal(resp.Data, &issuing))
	require.Len(t, issuing, 1)
	assert.Equal(t, int64(10), issuing[0].Remaining)

	resp = doRequest(t, r, http.MethodPost, "/user-coupons/available", 8, `{"items":[{"id":1,"category_id":2,"price":1000}]}`)
	require.Equal(t, 0, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(resp.Data))

	resp = doRequest(t, r, http.MethodPost, fmt.Sprintf("/user-coupons/%d/receive", coupon.ID), 8, "")
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	resp = doRequest(t, r, http.MethodPost, "/user-coupons/available", 8, `{"items":[{"id":1,"category_id":2,"price":1000}]}`)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var solutions []struct {
		Discount int64 `json:"discount_amount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &solutions))
	require.Len(t, solutions, 1)
	assert.Equal(t, int64(300), solutions[0].Discount)

	resp = doRequest(t, r, http.MethodPost, "/user-coupons/available", 8, `{"items":[]}`)
	assert.Equal(t, 400, resp.StatusCode)

	resp = doRequest(t, r, http.MethodGet, "/user-coupons?status=unused", 8, "")
	require.Equal(t, 0, resp.StatusCode)
	var mine []models.UserCoupon
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, coupon.ID, mine[0].CouponID)

	resp = doRequest(t, r, http.MethodGet, "/user-coupons?status=bogus", 8, "")
	assert.Equal(t, 400, resp.StatusCode)
}
