package public

import "github.com/mintoria-api/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器仅用于游客侧 API（扫码领取、无钱包铸造）。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
