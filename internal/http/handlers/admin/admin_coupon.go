package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/promotion-next/internal/http/handlers/shared"
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/repository"
	"github.com/promotion-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CouponScopeRequest 适用范围
type CouponScopeRequest struct {
	Type  string `json:"type"`
	BizID uint   `json:"biz_id" binding:"required"`
}

// CreateCouponRequest 创建优惠券请求，金额单位为分
type CreateCouponRequest struct {
	Name              string               `json:"name" binding:"required"`
	DiscountType      string               `json:"discount_type" binding:"required"`
	Specific          bool                 `json:"specific"`
	DiscountValue     int64                `json:"discount_value"`
	ThresholdAmount   int64                `json:"threshold_amount"`
	MaxDiscountAmount int64                `json:"max_discount_amount"`
	ObtainWay         string               `json:"obtain_way"`
	TotalNum          int                  `json:"total_num" binding:"required"`
	UserLimit         int                  `json:"user_limit"`
	Scopes            []CouponScopeRequest `json:"scopes"`
}

// BeginIssueRequest 开始发放请求；时间为 RFC3339
type BeginIssueRequest struct {
	IssueBeginTime string `json:"issue_begin_time"`
	IssueEndTime   string `json:"issue_end_time" binding:"required"`
	TermDays       int    `json:"term_days"`
	TermBeginTime  string `json:"term_begin_time"`
	TermEndTime    string `json:"term_end_time"`
}

// CreateCoupon 创建优惠券（草稿）
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	scopes := make([]service.CouponScopeInput, 0, len(req.Scopes))
	for _, scope := range req.Scopes {
		scopes = append(scopes, service.CouponScopeInput{Type: scope.Type, BizID: scope.BizID})
	}
	coupon, err := h.CouponAdminService.Create(service.CreateCouponInput{
		Name:              req.Name,
		DiscountType:      req.DiscountType,
		Specific:          req.Specific,
		DiscountValue:     req.DiscountValue,
		ThresholdAmount:   req.ThresholdAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		ObtainWay:         req.ObtainWay,
		TotalNum:          req.TotalNum,
		UserLimit:         req.UserLimit,
		Scopes:            scopes,
	})
	if err != nil {
		respondCouponError(c, err, "error.coupon_create_failed")
		return
	}

	requestLog(c).Infow("admin_coupon_created", "coupon_id", coupon.ID, "obtain_way", coupon.ObtainWay)
	response.Success(c, coupon)
}

// GetCoupons 获取优惠券列表
func (h *Handler) GetCoupons(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)

	var id uint
	if raw := strings.TrimSpace(c.Query("id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		id = uint(parsed)
	}

	coupons, total, err := h.CouponAdminService.List(repository.CouponListFilter{
		Page:      page,
		PageSize:  pageSize,
		ID:        id,
		Name:      strings.TrimSpace(c.Query("name")),
		Status:    strings.TrimSpace(c.Query("status")),
		ObtainWay: strings.TrimSpace(c.Query("obtain_way")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, coupons, response.NewPagination(page, pageSize, total))
}

// BeginIssue 开始发放
func (h *Handler) BeginIssue(c *gin.Context) {
	couponID, ok := parseCouponIDParam(c)
	if !ok {
		return
	}
	var req BeginIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponAdminService.BeginIssue(c.Request.Context(), couponID, input)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, coupon)
}

func (r BeginIssueRequest) toInput() (service.BeginIssueInput, error) {
	input := service.BeginIssueInput{TermDays: r.TermDays}
	var err error
	if input.IssueBeginTime, err = parseTimeNullable(r.IssueBeginTime); err != nil {
		return input, err
	}
	end, err := parseTimeNullable(r.IssueEndTime)
	if err != nil {
		return input, err
	}
	if end != nil {
		input.IssueEndTime = *end
	}
	if input.TermBeginTime, err = parseTimeNullable(r.TermBeginTime); err != nil {
		return input, err
	}
	if input.TermEndTime, err = parseTimeNullable(r.TermEndTime); err != nil {
		return input, err
	}
	return input, nil
}

// PauseIssue 暂停发放
func (h *Handler) PauseIssue(c *gin.Context) {
	couponID, ok := parseCouponIDParam(c)
	if !ok {
		return
	}
	if err := h.CouponAdminService.Pause(c.Request.Context(), couponID); err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, nil)
}

// CloseIssue 结束发放
func (h *Handler) CloseIssue(c *gin.Context) {
	couponID, ok := parseCouponIDParam(c)
	if !ok {
		return
	}
	if err := h.CouponAdminService.Close(c.Request.Context(), couponID); err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, nil)
}

// DeleteCoupon 删除草稿券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	couponID, ok := parseCouponIDParam(c)
	if !ok {
		return
	}
	if err := h.CouponAdminService.Delete(couponID); err != nil {
		respondCouponError(c, err, "error.coupon_delete_failed")
		return
	}
	response.Success(c, nil)
}

func parseCouponIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
