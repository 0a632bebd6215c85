package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sheetmerge/internal/grid"
	"sheetmerge/internal/model"
	"sheetmerge/internal/service/merge"
)

func (h *Handler) source(fh *multipart.FileHeader) (merge.Source, error) {
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return merge.Source{}, &uploadTooLargeError{name: fh.Filename}
	}
	return merge.Source{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

func (h *Handler) uploadedFiles(c *gin.Context) ([]merge.Source, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errInvalidForm
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, merge.ErrNoFiles
	}

	sources := make([]merge.Source, 0, len(headers))
	for _, fh := range headers {
		src, err := h.source(fh)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// UploadTemplate 上传并分析模板
// POST /api/excel/template
func (h *Handler) UploadTemplate(c *gin.Context) {
	sess := h.sessionFor(c)

	fh, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, merge.ErrEmptyTemplate)
		return
	}
	if !grid.IsSpreadsheetName(fh.Filename) {
		h.respondError(c, errTemplateFormat)
		return
	}
	src, err := h.source(fh)
	if err != nil {
		h.respondError(c, err)
		return
	}

	info, err := h.engine.AnalyzeTemplate(c.Request.Context(), sess, src)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Merge 合并分支文件
// POST /api/excel/merge
func (h *Handler) Merge(c *gin.Context) {
	sess := h.sessionFor(c)

	sources, err := h.uploadedFiles(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.engine.Merge(c.Request.Context(), sess, sources, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MergeStream 合并分支文件 (SSE 流式响应)
// POST /api/excel/merge/stream
func (h *Handler) MergeStream(c *gin.Context) {
	sess := h.sessionFor(c)

	// 前置条件在切换为 SSE 之前检查，保证错误仍以普通 JSON 返回
	if sess.Template() == nil {
		h.respondError(c, merge.ErrNoTemplate)
		return
	}
	sources, err := h.uploadedFiles(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event model.ProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	if _, err := h.engine.Merge(c.Request.Context(), sess, sources, send); err != nil {
		// 引擎在前置条件失败时不会发出 error 事件
		if merge.IsPrecondition(err) {
			send(model.ProgressEvent{Type: "error", Message: err.Error()})
		}
		h.log.Warn("streamed merge failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

// Export 导出最近一次合并结果
// GET /api/excel/export
func (h *Handler) Export(c *gin.Context) {
	sess := h.sessionFor(c)

	var buf bytes.Buffer
	if err := h.engine.Export(sess, &buf); err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, merge.ExportFileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
