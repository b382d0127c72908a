package admin

import "github.com/promotion-next/internal/provider"

// Handler 管理端处理器：券生命周期、兑换码与授权管理
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
