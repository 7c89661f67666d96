package public

import (
	"errors"
	"strings"

	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

// GetLocationBySlug 按 slug 返回地点详情及当前活跃发放，扫码落地页入口
func (h *Handler) GetLocationBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "地点标识不能为空", nil)
		return
	}

	detail, err := h.LocationService.GetDetailBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "地点不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取地点失败", err)
		return
	}

	response.Success(c, detail)
}
