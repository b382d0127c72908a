package admin

import (
	handlershared "github.com/promotion-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func isSuperAdmin(c *gin.Context) bool {
	value, ok := c.Get("admin_is_super")
	if !ok {
		return false
	}
	isSuper, _ := value.(bool)
	return isSuper
}

// currentAdminID 操作人 ID，仅用于审计日志，缺失时为 0
func currentAdminID(c *gin.Context) uint {
	value, _ := c.Get("admin_id")
	id, _ := value.(uint)
	return id
}
