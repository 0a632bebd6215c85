package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultRunLimit = 20

// ListRuns 最近的合并记录
// GET /api/runs?limit=N
func (h *Handler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "runs": []any{}})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRunLimit)))
	if err != nil || limit <= 0 {
		limit = defaultRunLimit
	}
	limit = min(limit, 200)

	runs, err := h.runs.ListMergeRuns(limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "runs": runs})
}
