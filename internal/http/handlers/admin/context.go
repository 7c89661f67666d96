package admin

import (
	"strconv"

	handlershared "github.com/mintoria-api/internal/http/handlers/shared"
	"github.com/mintoria-api/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

// parseIDParam 解析路径中的数字 ID，非法时直接响应错误
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "ID 无效", nil)
		return 0, false
	}
	return uint(id), true
}
