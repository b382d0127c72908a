package public

import (
	"errors"

	"github.com/promotion-next/internal/constants"
	handlershared "github.com/promotion-next/internal/http/handlers/shared"
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系；reason 非空时附带稳定原因码
type mappedHandlerError struct {
	target error
	code   int
	key    string
	reason string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.target) {
			continue
		}
		if rule.reason != "" {
			handlershared.RespondReason(c, rule.code, rule.key, rule.reason)
			return
		}
		respondError(c, rule.code, rule.key, nil)
		return
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var claimErrorRules = []mappedHandlerError{
	{target: service.ErrClaimNotOpen, code: response.CodeBadRequest, key: "error.claim_not_started", reason: constants.ClaimReasonNotStarted},
	{target: service.ErrClaimStockExhausted, code: response.CodeBadRequest, key: "error.claim_sold_out", reason: constants.ClaimReasonSoldOut},
	{target: service.ErrClaimIssuanceEnded, code: response.CodeBadRequest, key: "error.claim_ended", reason: constants.ClaimReasonEnded},
	{target: service.ErrClaimQuotaExceeded, code: response.CodeBadRequest, key: "error.claim_limit_reached", reason: constants.ClaimReasonLimitReached},
	{target: service.ErrExchangeCodeInvalid, code: response.CodeBadRequest, key: "error.code_invalid", reason: constants.ClaimReasonCodeInvalid},
	{target: service.ErrExchangeCodeNotFound, code: response.CodeBadRequest, key: "error.code_invalid", reason: constants.ClaimReasonCodeInvalid},
	{target: service.ErrExchangeCodeMismatch, code: response.CodeBadRequest, key: "error.code_invalid", reason: constants.ClaimReasonCodeInvalid},
	{target: service.ErrExchangeCodeUsed, code: response.CodeBadRequest, key: "error.code_used", reason: constants.ClaimReasonCodeUsed},
	{target: service.ErrExchangeCodeExpired, code: response.CodeBadRequest, key: "error.code_expired", reason: constants.ClaimReasonCodeExpired},
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, key: "error.coupon_not_found"},
	{target: service.ErrClaimPublishFailed, code: response.CodeUnavailable, key: "error.claim_busy"},
	{target: service.ErrFastStoreUnavailable, code: response.CodeUnavailable, key: "error.claim_busy"},
}

var codeStatusErrorRules = []mappedHandlerError{
	{target: service.ErrExchangeCodeInvalid, code: response.CodeBadRequest, key: "error.code_invalid", reason: constants.ClaimReasonCodeInvalid},
	{target: service.ErrExchangeCodeMismatch, code: response.CodeBadRequest, key: "error.code_invalid", reason: constants.ClaimReasonCodeInvalid},
	{target: service.ErrExchangeCodeNotFound, code: response.CodeNotFound, key: "error.code_not_found"},
}
