package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sheetmerge/internal/api"
	"sheetmerge/internal/logging"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	api    *api.Handler
}

// NewServer 创建服务器
func NewServer(handler *api.Handler, devMode bool, logger *zap.Logger) *Server {
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(logger))

	s := &Server{
		router: router,
		api:    handler,
	}
	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+api.SessionHeader)
		c.Header("Access-Control-Expose-Headers", api.SessionHeader+", Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "接口不存在"})
	})
}

// Handler 供 http.Server 或测试使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
