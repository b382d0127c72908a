package public

import (
	"strconv"
	"strings"
	"time"

	"github.com/promotion-next/internal/constants"
	"github.com/promotion-next/internal/discount"
	handlershared "github.com/promotion-next/internal/http/handlers/shared"
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RedeemCodeRequest 兑换码兑换请求
type RedeemCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// PriceOrderItem 计价明细，金额单位为分
type PriceOrderItem struct {
	ID         uint  `json:"id" binding:"required"`
	CategoryID uint  `json:"category_id"`
	Price      int64 `json:"price"`
}

// PriceOrderRequest 计价请求
type PriceOrderRequest struct {
	Items []PriceOrderItem `json:"items" binding:"required"`
}

// IssuingCouponResp 发放中的券
type IssuingCouponResp struct {
	ID                uint   `json:"id"`
	Name              string `json:"name"`
	DiscountType      string `json:"discount_type"`
	Rule              string `json:"rule"`
	Specific          bool   `json:"specific"`
	ThresholdAmount   int64  `json:"threshold_amount"`
	MaxDiscountAmount int64  `json:"max_discount_amount"`
	IssueEndTime      string `json:"issue_end_time"`
	Remaining         int64  `json:"remaining"`
	UserLimit         int    `json:"user_limit"`
}

// ClaimCoupon 领取公开券
func (h *Handler) ClaimCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	couponID, err := strconv.ParseUint(c.Param("couponId"), 10, 64)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.ClaimService.Claim(c.Request.Context(), userID, uint(couponID))
	if err != nil {
		respondWithMappedError(c, err, claimErrorRules, response.CodeInternal, "error.claim_failed")
		return
	}
	response.Success(c, result)
}

// RedeemCode 兑换码兑换
func (h *Handler) RedeemCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req RedeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.ClaimService.Redeem(c.Request.Context(), userID, strings.TrimSpace(req.Code))
	if err != nil {
		respondWithMappedError(c, err, claimErrorRules, response.CodeInternal, "error.claim_failed")
		return
	}
	response.Success(c, result)
}

// PriceOrder 计算当前订单可用的优惠方案
func (h *Handler) PriceOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req PriceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items := make([]discount.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, discount.Item{ID: item.ID, CategoryID: item.CategoryID, Price: item.Price})
	}
	solutions, err := h.PricingService.PriceOrder(c.Request.Context(), userID, items)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrOrderItemsInvalid, code: response.CodeBadRequest, key: "error.order_items_invalid"},
		}, response.CodeInternal, "error.pricing_failed")
		return
	}
	response.Success(c, solutions)
}

// ListMyCoupons 我的优惠券
func (h *Handler) ListMyCoupons(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)

	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", constants.UserCouponStatusUnused, constants.UserCouponStatusUsed, constants.UserCouponStatusExpired:
	default:
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	rows, total, err := h.ClaimService.ListMyCoupons(service.ListMyCouponsInput{
		UserID:   userID,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// ListIssuingCoupons 发放中的公开券
func (h *Handler) ListIssuingCoupons(c *gin.Context) {
	coupons, err := h.CouponAdminService.ListIssuing()
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	items := make([]IssuingCouponResp, 0, len(coupons))
	for _, coupon := range coupons {
		rule := discount.Describe(discount.Terms{
			Type:        coupon.DiscountType,
			Value:       coupon.DiscountValue,
			Threshold:   coupon.ThresholdAmt,
			MaxDiscount: coupon.MaxDiscountAmt,
		})
		resp := IssuingCouponResp{
			ID:                coupon.ID,
			Name:              coupon.Name,
			DiscountType:      coupon.DiscountType,
			Rule:              rule,
			Specific:          coupon.Specific,
			ThresholdAmount:   coupon.ThresholdAmt,
			MaxDiscountAmount: coupon.MaxDiscountAmt,
			Remaining:         coupon.Remaining(),
			UserLimit:         coupon.UserLimit,
		}
		if coupon.IssueEndTime != nil {
			resp.IssueEndTime = coupon.IssueEndTime.Format(time.RFC3339)
		}
		items = append(items, resp)
	}
	response.Success(c, items)
}

// CheckCodeStatus 查询兑换码状态
func (h *Handler) CheckCodeStatus(c *gin.Context) {
	status, err := h.ExchangeCodeService.CheckCodeStatus(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		respondWithMappedError(c, err, codeStatusErrorRules, response.CodeInternal, "error.code_fetch_failed")
		return
	}
	response.Success(c, gin.H{"status": status})
}
