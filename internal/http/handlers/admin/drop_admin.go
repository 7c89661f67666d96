package admin

import (
	"errors"
	"strconv"

	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/repository"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

// DropRequest 创建/更新 Drop 请求
type DropRequest struct {
	LocationID    uint                   `json:"location_id" binding:"required"`
	Name          string                 `json:"name" binding:"required"`
	Description   string                 `json:"description"`
	ImageURL      string                 `json:"image_url"`
	MetadataURI   string                 `json:"metadata_uri"`
	Attributes    map[string]interface{} `json:"attributes"`
	EnabledChains []string               `json:"enabled_chains"`
	Supply        int                    `json:"supply"`
}

func (r *DropRequest) toInput() service.DropInput {
	return service.DropInput{
		LocationID:    r.LocationID,
		Name:          r.Name,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		MetadataURI:   r.MetadataURI,
		Attributes:    r.Attributes,
		EnabledChains: r.EnabledChains,
		Supply:        r.Supply,
	}
}

// GetDrops Drop 列表 (Admin)
func (h *Handler) GetDrops(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	locationID, _ := strconv.ParseUint(c.Query("location_id"), 10, 32)

	drops, total, err := h.DropService.List(repository.DropListFilter{
		Page:         page,
		PageSize:     pageSize,
		LocationID:   uint(locationID),
		Status:       c.Query("status"),
		WithLocation: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取发放列表失败", err)
		return
	}

	response.SuccessWithPage(c, drops, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetDrop Drop 详情 (Admin)
func (h *Handler) GetDrop(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	drop, err := h.DropService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "发放不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取发放失败", err)
		return
	}

	response.Success(c, drop)
}

// CreateDrop 创建 Drop
func (h *Handler) CreateDrop(c *gin.Context) {
	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	drop, err := h.DropService.Create(req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "地点不存在", nil)
			return
		}
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	response.Success(c, drop)
}

// UpdateDrop 更新 Drop
func (h *Handler) UpdateDrop(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	drop, err := h.DropService.Update(id, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "发放不存在", nil)
			return
		}
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	response.Success(c, drop)
}

// PublishDrop 发布 Drop 并设为所在地点唯一活跃发放
func (h *Handler) PublishDrop(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	drop, err := h.DropService.Publish(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "发放不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "发布发放失败", err)
		return
	}

	response.Success(c, drop)
}

// DeactivateDrop 停用 Drop
func (h *Handler) DeactivateDrop(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	drop, err := h.DropService.Deactivate(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "发放不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "停用发放失败", err)
		return
	}

	response.Success(c, drop)
}

// DeleteDrop 删除 Drop
func (h *Handler) DeleteDrop(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.DropService.Delete(id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "发放不存在", nil)
		case errors.Is(err, service.ErrDropHasMints):
			respondError(c, response.CodeConflict, "发放已有铸造记录，无法删除", nil)
		default:
			respondError(c, response.CodeInternal, "删除发放失败", err)
		}
		return
	}

	response.SuccessWithMsg(c, "已删除", nil)
}
