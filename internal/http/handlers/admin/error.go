package admin

import (
	"errors"

	handlershared "github.com/promotion-next/internal/http/handlers/shared"
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// respondCouponError 映射优惠券管理错误，未识别的错误按 fallbackKey 返回
func respondCouponError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(c, response.CodeNotFound, "error.coupon_not_found", nil)
	case errors.Is(err, service.ErrCouponInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_invalid", nil)
	case errors.Is(err, service.ErrCouponScopeInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_scope_invalid", nil)
	case errors.Is(err, service.ErrCouponStatusInvalid):
		respondError(c, response.CodeConflict, "error.coupon_status_invalid", nil)
	case errors.Is(err, service.ErrCouponNotByCode):
		respondError(c, response.CodeBadRequest, "error.coupon_not_by_code", nil)
	case errors.Is(err, service.ErrIssueWindowInvalid):
		respondError(c, response.CodeBadRequest, "error.issue_window_invalid", nil)
	case errors.Is(err, service.ErrCodegenBusy):
		respondError(c, response.CodeTooManyRequests, "error.codegen_busy", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}
