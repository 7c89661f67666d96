package admin

import (
	"errors"
	"strconv"

	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/repository"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

// LocationRequest 创建/更新地点请求
type LocationRequest struct {
	ProjectID   uint   `json:"project_id" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address"`
	ImageURL    string `json:"image_url"`
}

// GetLocations 地点列表 (Admin)
func (h *Handler) GetLocations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	projectID, _ := strconv.ParseUint(c.Query("project_id"), 10, 32)

	locations, total, err := h.LocationService.List(repository.LocationListFilter{
		Page:        page,
		PageSize:    pageSize,
		Search:      c.Query("search"),
		ProjectID:   uint(projectID),
		WithProject: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取地点列表失败", err)
		return
	}

	response.SuccessWithPage(c, locations, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetLocation 地点详情 (Admin)
func (h *Handler) GetLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	location, err := h.LocationService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "地点不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取地点失败", err)
		return
	}

	response.Success(c, location)
}

// CreateLocation 创建地点
func (h *Handler) CreateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	location, err := h.LocationService.Create(service.LocationInput{
		ProjectID:   req.ProjectID,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "项目不存在", nil)
		case errors.Is(err, service.ErrSlugExists):
			respondError(c, response.CodeConflict, "标识已被占用", nil)
		default:
			respondError(c, response.CodeInternal, "创建地点失败", err)
		}
		return
	}

	response.Success(c, location)
}

// UpdateLocation 更新地点
func (h *Handler) UpdateLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	location, err := h.LocationService.Update(id, service.LocationInput{
		ProjectID:   req.ProjectID,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "地点或项目不存在", nil)
		case errors.Is(err, service.ErrSlugExists):
			respondError(c, response.CodeConflict, "标识已被占用", nil)
		default:
			respondError(c, response.CodeInternal, "更新地点失败", err)
		}
		return
	}

	response.Success(c, location)
}

// DeleteLocation 删除地点
func (h *Handler) DeleteLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.LocationService.Delete(id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "地点不存在", nil)
		case errors.Is(err, service.ErrLocationInUse):
			respondError(c, response.CodeConflict, "地点下仍有发放，无法删除", nil)
		default:
			respondError(c, response.CodeInternal, "删除地点失败", err)
		}
		return
	}

	response.SuccessWithMsg(c, "已删除", nil)
}
