package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/promotion-next/internal/http/handlers/shared"
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateCodeExpiryRequest 批量更新兑换码过期时间
type UpdateCodeExpiryRequest struct {
	ExpiredTime string `json:"expired_time" binding:"required"`
}

// MarkCodeStatusRequest 设置兑换码使用位
type MarkCodeStatusRequest struct {
	Used *bool `json:"used" binding:"required"`
}

// GenerateCodes 触发兑换码生成，提交后立即返回
func (h *Handler) GenerateCodes(c *gin.Context) {
	couponID, ok := parseCouponIDParam(c)
	if !ok {
		return
	}
	if err := h.ExchangeCodeService.GenerateCodes(c.Request.Context(), couponID); err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	requestLog(c).Infow("admin_exchange_code_generate_submitted", "coupon_id", couponID)
	response.Success(c, gin.H{"coupon_id": couponID})
}

// GetCodes 兑换码列表
func (h *Handler) GetCodes(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)

	var couponID uint
	if raw := strings.TrimSpace(c.Query("coupon_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		couponID = uint(parsed)
	}

	codes, total, err := h.ExchangeCodeService.ListCodes(repository.ExchangeCodeListFilter{
		Page:     page,
		PageSize: pageSize,
		CouponID: couponID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.code_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, codes, response.NewPagination(page, pageSize, total))
}

// UpdateCodeExpiry 批量更新券下兑换码的过期时间
func (h *Handler) UpdateCodeExpiry(c *gin.Context) {
	couponID, ok := parseCouponIDParam(c)
	if !ok {
		return
	}
	var req UpdateCodeExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	expiredAt, err := parseTimeNullable(req.ExpiredTime)
	if err != nil || expiredAt == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	affected, err := h.ExchangeCodeService.UpdateCodeExpiry(couponID, *expiredAt)
	if err != nil {
		respondCouponError(c, err, "error.code_update_failed")
		return
	}
	response.Success(c, gin.H{"affected": affected})
}

// MarkCodeStatus 手动设置兑换码使用位
func (h *Handler) MarkCodeStatus(c *gin.Context) {
	serial, err := strconv.ParseUint(strings.TrimSpace(c.Param("serial")), 10, 32)
	if err != nil || serial == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req MarkCodeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	changed, err := h.ExchangeCodeService.MarkCodeStatus(c.Request.Context(), uint32(serial), *req.Used)
	if err != nil {
		respondError(c, response.CodeInternal, "error.code_update_failed", err)
		return
	}
	requestLog(c).Infow("admin_exchange_code_marked",
		"serial", serial,
		"used", *req.Used,
		"changed", changed,
		"operator_admin_id", currentAdminID(c),
	)
	response.Success(c, gin.H{"changed": changed})
}
