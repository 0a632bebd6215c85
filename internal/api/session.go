package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sheetmerge/internal/service/merge"
)

const (
	// SessionHeader 请求/响应中携带会话 ID 的头
	SessionHeader = "X-Session-ID"
	// SessionCookie 浏览器端的会话 cookie
	SessionCookie = "sheetmerge_session"
)

// sessionFor 取出请求对应的会话；没有或已过期时新建，并通过头和 cookie 返回新 ID
func (h *Handler) sessionFor(c *gin.Context) *merge.Session {
	id := c.GetHeader(SessionHeader)
	if id == "" {
		id, _ = c.Cookie(SessionCookie)
	}

	sess, created := h.sessions.GetOrCreate(id)
	if created && id != "" {
		h.log.Debug("session expired, created a new one")
	}
	h.bindSession(c, sess)
	return sess
}

func (h *Handler) bindSession(c *gin.Context, sess *merge.Session) {
	c.Header(SessionHeader, sess.ID)
	c.SetCookie(SessionCookie, sess.ID, 0, "/", "", false, true)
}

// CreateSession 新建会话
// POST /api/session
func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	h.bindSession(c, sess)
	c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID})
}
