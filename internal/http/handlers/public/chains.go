package public

import (
	"github.com/mintoria-api/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetChains 返回各链可用状态（不含服务端余额）
func (h *Handler) GetChains(c *gin.Context) {
	statuses := h.MintService.ChainStatuses(c.Request.Context(), false)
	response.Success(c, gin.H{"chains": statuses})
}
