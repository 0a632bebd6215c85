package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sheetmerge/internal/service/merge"
)

var (
	errInvalidForm    = errors.New("无效的表单数据")
	errTemplateFormat = errors.New("仅支持 .xlsx / .xls 格式的模板文件")
)

type uploadTooLargeError struct {
	name string
}

func (e *uploadTooLargeError) Error() string {
	return "文件过大：" + e.name
}

// statusOf 前置条件 400，模板结构 422，其余 500
func statusOf(err error) int {
	var tooLarge *uploadTooLargeError
	switch {
	case merge.IsPrecondition(err), errors.Is(err, errInvalidForm),
		errors.Is(err, errTemplateFormat), errors.As(err, &tooLarge):
		return http.StatusBadRequest
	case merge.IsTemplateStructure(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
