package public

import (
	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

// StartWalletlessRequest 无钱包流程启动请求
type StartWalletlessRequest struct {
	Email string `json:"email" binding:"required"`
}

// StartWalletless 发送验证码并预生成各链托管钱包
func (h *Handler) StartWalletless(c *gin.Context) {
	var req StartWalletlessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	if err := h.WalletlessService.Start(c.Request.Context(), req.Email); err != nil {
		respondWalletlessStartError(c, err)
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// VerifyWalletlessRequest 验证码校验请求
type VerifyWalletlessRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyWalletless 校验验证码，返回托管钱包地址
func (h *Handler) VerifyWalletless(c *gin.Context) {
	var req VerifyWalletlessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	keys, err := h.WalletlessService.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondWalletlessVerifyError(c, err)
		return
	}

	response.Success(c, gin.H{
		"verified":  true,
		"addresses": walletlessAddressViews(keys),
	})
}

// MintWalletlessRequest 托管铸造请求
type MintWalletlessRequest struct {
	Email      string `json:"email" binding:"required"`
	Code       string `json:"code"`
	Chain      string `json:"chain" binding:"required"`
	ClaimToken string `json:"claim_token" binding:"required"`
}

// MintWalletless 托管铸造：解封托管私钥并代为上链
func (h *Handler) MintWalletless(c *gin.Context) {
	var req MintWalletlessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	mint, err := h.WalletlessService.Mint(c.Request.Context(), service.MintInput{
		Email:      req.Email,
		Code:       req.Code,
		Chain:      req.Chain,
		ClaimToken: req.ClaimToken,
	})
	if err != nil {
		respondMintError(c, err)
		return
	}

	response.Success(c, mint)
}

// walletlessAddressView 托管钱包地址视图（不含任何密钥材料）
type walletlessAddressView struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

func walletlessAddressViews(keys []models.WalletlessKey) []walletlessAddressView {
	views := make([]walletlessAddressView, 0, len(keys))
	for _, key := range keys {
		views = append(views, walletlessAddressView{Chain: key.Chain, Address: key.Address})
	}
	return views
}
