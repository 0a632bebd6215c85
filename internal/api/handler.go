package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sheetmerge/internal/model"
	"sheetmerge/internal/service/merge"
	"sheetmerge/internal/service/session"
)

// RunLister 合并日志查询
type RunLister interface {
	ListMergeRuns(limit int) ([]*model.MergeRun, error)
}

// Handler API 处理器
type Handler struct {
	engine    *merge.Engine
	sessions  *session.Store
	runs      RunLister
	maxUpload int64
	log       *zap.Logger
}

// NewHandler 创建 API 处理器，runs 为 nil 表示未启用合并日志
func NewHandler(engine *merge.Engine, sessions *session.Store, runs RunLister, maxUpload int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:    engine,
		sessions:  sessions,
		runs:      runs,
		maxUpload: maxUpload,
		log:       logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 会话
	router.POST("/session", h.CreateSession)

	// 模板分析与合并
	router.POST("/excel/template", h.UploadTemplate)
	router.POST("/excel/merge", h.Merge)
	router.POST("/excel/merge/stream", h.MergeStream)
	router.GET("/excel/export", h.Export)

	// 合并日志
	router.GET("/runs", h.ListRuns)
}
