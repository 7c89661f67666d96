package admin

import (
	"strconv"

	"github.com/mintoria-api/internal/http/response"
	"github.com/mintoria-api/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMints 铸造流水列表 (Admin)
func (h *Handler) GetMints(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	dropID, _ := strconv.ParseUint(c.Query("drop_id"), 10, 32)

	mints, total, err := h.MintService.List(repository.MintListFilter{
		Page:     page,
		PageSize: pageSize,
		DropID:   uint(dropID),
		Chain:    c.Query("chain"),
		Status:   c.Query("status"),
		WithDrop: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取铸造流水失败", err)
		return
	}

	response.SuccessWithPage(c, mints, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetChainStatus 各链运行状态与服务端热钱包余额 (Admin)
func (h *Handler) GetChainStatus(c *gin.Context) {
	statuses := h.MintService.ChainStatuses(c.Request.Context(), true)
	response.Success(c, gin.H{"chains": statuses})
}
