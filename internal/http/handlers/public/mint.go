package public

import (
	"github.com/mintoria-api/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ConfirmMintRequest 钱包流程回报请求：客户端自行广播交易后确认
type ConfirmMintRequest struct {
	ClaimToken string `json:"claim_token" binding:"required"`
	Chain      string `json:"chain" binding:"required"`
	TxHash     string `json:"tx_hash" binding:"required"`
	Recipient  string `json:"recipient" binding:"required"`
}

// ConfirmMint 确认外部钱包铸造并消费领取会话，重复调用幂等
func (h *Handler) ConfirmMint(c *gin.Context) {
	var req ConfirmMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	mint, err := h.MintService.ConfirmExternal(c.Request.Context(), req.ClaimToken, req.TxHash, req.Chain, req.Recipient)
	if err != nil {
		respondMintError(c, err)
		return
	}

	response.Success(c, mint)
}
