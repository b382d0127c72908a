package shared

import (
	"github.com/promotion-next/internal/http/response"
	"github.com/promotion-next/internal/i18n"
	"github.com/promotion-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.WrapError(code, i18n.T(i18n.ResolveLocale(c), key), err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	appErr.Write(c)
}

// RespondReason 返回带稳定原因码的错误响应，前端按 data.reason 分支
func RespondReason(c *gin.Context, code int, key, reason string) {
	appErr := response.WrapError(code, i18n.T(i18n.ResolveLocale(c), key), nil)
	appErr.Reason = reason
	appErr.Write(c)
}
