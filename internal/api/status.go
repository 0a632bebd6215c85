package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sheetmerge/internal/model"
)

// StatusResponse 当前会话状态
type StatusResponse struct {
	SessionID      string              `json:"sessionId"`
	HasTemplate    bool                `json:"hasTemplate"`
	Template       *model.TemplateInfo `json:"template,omitempty"`
	Merged         bool                `json:"merged"`
	MergedRows     int                 `json:"mergedRows"`
	ActiveSessions int                 `json:"activeSessions"`
	Strategy       string              `json:"strategy"`
	HeaderMatch    string              `json:"headerMatch"`
	Validation     string              `json:"validationLevel"`
}

// GetStatus 获取会话状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	sess := h.sessionFor(c)
	opts := h.engine.Options()

	resp := StatusResponse{
		SessionID:      sess.ID,
		ActiveSessions: h.sessions.Len(),
		Strategy:       string(opts.Strategy),
		HeaderMatch:    string(opts.HeaderMatch),
		Validation:     string(opts.ValidationLevel),
	}
	if tpl := sess.Template(); tpl != nil {
		resp.HasTemplate = true
		resp.Template = tpl.Info()
	}
	rows, merged := sess.MergedRows()
	resp.Merged = merged
	resp.MergedRows = len(rows)

	c.JSON(http.StatusOK, resp)
}
