package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sheetmerge/internal/api"
	"sheetmerge/internal/service/merge"
	"sheetmerge/internal/service/session"
)

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	h := api.NewHandler(merge.NewEngine(merge.DefaultOptions(), nil), session.NewStore(0), nil, 0, nil)
	return NewServer(h, true, zap.NewNop())
}

func TestServer_CORSAndRoutes(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/excel/merge", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), api.SessionHeader)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(api.SessionHeader))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
