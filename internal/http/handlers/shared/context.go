package shared

import (
	"github.com/promotion-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUintWithKeys 读取鉴权中间件写入的主体 ID；缺失视为未登录
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	var id uint
	switch v := value.(type) {
	case uint:
		id = v
	case uint64:
		id = uint(v)
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		id = uint(v)
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
	if id == 0 {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return id, true
}
