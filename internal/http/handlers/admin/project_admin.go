package admin

import (
	"errors"
	"strconv"

	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/repository"
	"github.com/mintoria-api/internal/service"

	"github.com/gin-gonic/gin"
)

// ProjectRequest 创建/更新项目请求
type ProjectRequest struct {
	Slug        string `json:"slug" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// GetProjects 项目列表 (Admin)
func (h *Handler) GetProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	projects, total, err := h.ProjectService.List(repository.ProjectListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取项目列表失败", err)
		return
	}

	response.SuccessWithPage(c, projects, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetProject 项目详情 (Admin)
func (h *Handler) GetProject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.ProjectService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "项目不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取项目失败", err)
		return
	}

	response.Success(c, project)
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	project, err := h.ProjectService.Create(service.ProjectInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeConflict, "标识已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "创建项目失败", err)
		return
	}

	response.Success(c, project)
}

// UpdateProject 更新项目
func (h *Handler) UpdateProject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	project, err := h.ProjectService.Update(id, service.ProjectInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "项目不存在", nil)
		case errors.Is(err, service.ErrSlugExists):
			respondError(c, response.CodeConflict, "标识已被占用", nil)
		default:
			respondError(c, response.CodeInternal, "更新项目失败", err)
		}
		return
	}

	response.Success(c, project)
}

// DeleteProject 删除项目
func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.ProjectService.Delete(id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "项目不存在", nil)
		case errors.Is(err, service.ErrProjectInUse):
			respondError(c, response.CodeConflict, "项目下仍有地点，无法删除", nil)
		default:
			respondError(c, response.CodeInternal, "删除项目失败", err)
		}
		return
	}

	response.SuccessWithMsg(c, "已删除", nil)
}
