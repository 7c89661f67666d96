package public

import (
	"errors"
	"strings"
	"time"

	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

// claimSessionView 领取会话响应结构，原始令牌只在签发时出现一次
type claimSessionView struct {
	ClaimToken string       `json:"claim_token,omitempty"`
	Status     string       `json:"status"`
	ExpiresAt  time.Time    `json:"expires_at"`
	Drop       *models.Drop `json:"drop,omitempty"`
}

// CreateClaimSession 为地点当前活跃发放签发领取令牌
func (h *Handler) CreateClaimSession(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "地点标识不能为空", nil)
		return
	}

	location, err := h.LocationService.GetDetailBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "地点不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "创建领取会话失败", err)
		return
	}

	result, err := h.ClaimService.CreateSession(location.Location.ID, c.ClientIP())
	if err != nil {
		respondClaimCreateError(c, err)
		return
	}

	response.Success(c, claimSessionView{
		ClaimToken: result.Token,
		Status:     result.Session.Status,
		ExpiresAt:  result.ExpiresAt,
		Drop:       result.Drop,
	})
}

// ValidateClaimSession 校验领取令牌有效性（只读，不消费）
func (h *Handler) ValidateClaimSession(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	session, err := h.ClaimService.Validate(token)
	if err != nil {
		respondClaimError(c, err)
		return
	}

	response.Success(c, claimSessionView{
		Status:    session.Status,
		ExpiresAt: session.ExpiresAt,
		Drop:      &session.Drop,
	})
}
