package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"sheetmerge/internal/model"
	"sheetmerge/internal/service/merge"
	"sheetmerge/internal/service/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type upload struct {
	field, name string
	data        []byte
}

func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, sessionID string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	return req
}

type fakeRuns struct {
	limit int
	err   error
}

func (f *fakeRuns) ListMergeRuns(limit int) ([]*model.MergeRun, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*model.MergeRun{{ID: 7, SessionID: "s", Status: "completed"}}, nil
}

func newRouter(runs RunLister, maxUpload int64) *gin.Engine {
	r := gin.New()
	h := NewHandler(merge.NewEngine(merge.DefaultOptions(), nil), session.NewStore(0), runs, maxUpload, nil)
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func templateUpload(t *testing.T) upload {
	return upload{"file", "template.xlsx", workbook(t,
		[]interface{}{"姓名", "账号", "金额"},
		[]interface{}{"张三", "6222", 100},
	)}
}

func TestTemplateMergeExport(t *testing.T) {
	r := newRouter(nil, 1<<20)

	rec := serve(r, multipartRequest(t, "/api/excel/template", "", templateUpload(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sessionID := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, sessionID)

	var info model.TemplateInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, []string{"姓名", "账号", "金额"}, info.Headers)
	assert.Equal(t, 2, info.DataStartRow)

	branch := workbook(t,
		[]interface{}{"网点：城东支行"},
		[]interface{}{"姓名", "账号", "金额"},
		[]interface{}{"李四", "6223", "abc"},
	)
	rec = serve(r, multipartRequest(t, "/api/excel/merge", sessionID, upload{"files", "east.xlsx", branch}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, sessionID, rec.Header().Get(SessionHeader))

	var result model.MergeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.TotalRows)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 3, result.Issues[0].RowNo)
	assert.Equal(t, "金额", result.Issues[0].ColumnName)

	req := httptest.NewRequest(http.MethodGet, "/api/excel/export", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
	rec = serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), merge.ExportFileName)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(merge.SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"姓名", "账号", "金额"}, {"李四", "6223", "abc"}}, rows)
}

func TestMerge_Preconditions(t *testing.T) {
	r := newRouter(nil, 1<<20)

	rec := serve(r, multipartRequest(t, "/api/excel/merge", "", upload{"files", "a.xlsx", []byte("x")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, merge.ErrNoTemplate.Error(), errorOf(t, rec))

	rec = serve(r, multipartRequest(t, "/api/excel/template", "", templateUpload(t)))
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(SessionHeader)

	rec = serve(r, multipartRequest(t, "/api/excel/merge", sessionID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, merge.ErrNoFiles.Error(), errorOf(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/excel/export", nil)
	req.Header.Set(SessionHeader, sessionID)
	rec = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, merge.ErrNothingToExport.Error(), errorOf(t, rec))
}

func TestUploadTemplate_Errors(t *testing.T) {
	r := newRouter(nil, 64)

	rec := serve(r, multipartRequest(t, "/api/excel/template", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, merge.ErrEmptyTemplate.Error(), errorOf(t, rec))

	rec = serve(r, multipartRequest(t, "/api/excel/template", "", upload{"file", "notes.txt", []byte("hi")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, multipartRequest(t, "/api/excel/template", "", upload{"file", "bad.xlsx", []byte("not a workbook")}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.HasPrefix(errorOf(t, rec), "模板解析失败："))

	rec = serve(r, multipartRequest(t, "/api/excel/template", "", templateUpload(t)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "template exceeds the 64 byte cap")
	assert.Contains(t, errorOf(t, rec), "文件过大")
}

func TestMergeStream(t *testing.T) {
	r := newRouter(nil, 1<<20)

	rec := serve(r, multipartRequest(t, "/api/excel/merge/stream", "", upload{"files", "a.xlsx", []byte("x")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, multipartRequest(t, "/api/excel/template", "", templateUpload(t)))
	sessionID := rec.Header().Get(SessionHeader)

	branch := workbook(t,
		[]interface{}{"姓名", "账号", "金额"},
		[]interface{}{"李四", "6223", 200},
	)
	rec = serve(r, multipartRequest(t, "/api/excel/merge/stream", sessionID,
		upload{"files", "a.xlsx", branch},
		upload{"files", "empty.xlsx", nil},
	))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var types []string
	var last model.ProgressEvent
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		require.NoError(t, json.Unmarshal([]byte(payload), &last))
		types = append(types, last.Type)
	}
	assert.Equal(t, []string{"start", "file_start", "file_done", "file_start", "file_done", "done"}, types)

	data, ok := last.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, data["totalRows"])
}

func TestSessionAndStatus(t *testing.T) {
	r := newRouter(nil, 1<<20)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["sessionId"]
	require.NotEmpty(t, id)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(SessionHeader, id)
	rec = serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, id, status.SessionID)
	assert.False(t, status.HasTemplate)
	assert.Equal(t, "anchor_key", status.Strategy)
	assert.Equal(t, "best_count", status.HeaderMatch)
	assert.Equal(t, 1, status.ActiveSessions)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(SessionHeader, "expired-or-unknown")
	rec = serve(r, req)
	assert.NotEqual(t, "expired-or-unknown", rec.Header().Get(SessionHeader))
}

func TestListRuns(t *testing.T) {
	rec := serve(newRouter(nil, 0), httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false,"runs":[]}`, rec.Body.String())

	runs := &fakeRuns{}
	rec = serve(newRouter(runs, 0), httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, runs.limit)
	assert.Contains(t, rec.Body.String(), `"id":7`)

	rec = serve(newRouter(runs, 0), httptest.NewRequest(http.MethodGet, "/api/runs?limit=oops", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRunLimit, runs.limit)

	failing := &fakeRuns{err: errors.New("disk I/O error")}
	rec = serve(newRouter(failing, 0), httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{merge.ErrNoTemplate, http.StatusBadRequest},
		{merge.ErrNoFiles, http.StatusBadRequest},
		{errTemplateFormat, http.StatusBadRequest},
		{&uploadTooLargeError{name: "a.xlsx"}, http.StatusBadRequest},
		{merge.ErrHeaderNotFound, http.StatusUnprocessableEntity},
		{&merge.TemplateParseError{Err: errors.New("zip: not a valid zip file")}, http.StatusUnprocessableEntity},
		{&merge.DuplicateHeaderError{Header: "金额"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
