package public

import "github.com/promotion-next/internal/provider"

// Handler 用户侧处理器：领券、兑换、计价与公开查询
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
