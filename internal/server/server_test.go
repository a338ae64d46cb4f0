package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartdeck/internal/chart"
	"chartdeck/internal/config"
	"chartdeck/internal/dashboard"
	"chartdeck/internal/report"
	"chartdeck/internal/storage"
)

const salesCSV = `region,product,revenue,units
north,apples,120.5,10
south,apples,80,8
north,pears,60,5
east,pears,,3
south,plums,45.25,4
`

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	server *Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := storage.NewLocalStorageClient(t.TempDir())
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	manager, err := dashboard.NewManager(context.Background(), store, "dashboards", dashboard.WithClock(clock))
	require.NoError(t, err)

	cfg := &config.Config{
		Port:           "0",
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadMB:    1,
		StorageBackend: config.BackendLocal,
		DashboardsDir:  "dashboards",
		ChartHeight:    400,
		FetchTimeout:   time.Second,
	}
	builder := chart.NewBuilder(chart.WithDefaultHeight(cfg.ChartHeight))
	srv := NewServer(cfg, manager, builder, report.NewGenerator(builder, report.WithClock(clock)))
	return &testAPI{t: t, router: srv.Router(), server: srv}
}

func (a *testAPI) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) json(method, path string, payload any) *httptest.ResponseRecorder {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(data)
	}
	return a.do(method, path, body, "application/json")
}

func (a *testAPI) upload(path, filename, content string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(a.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())
	return a.do(http.MethodPost, path, &buf, mw.FormDataContentType())
}

func (a *testAPI) newSession() string {
	a.t.Helper()
	w := a.json(http.MethodPost, "/api/sessions", nil)
	require.Equal(a.t, http.StatusCreated, w.Code)
	var resp struct {
		ID string `json:"id"`
	}
	decode(a.t, w, &resp)
	require.NotEmpty(a.t, resp.ID)
	return resp.ID
}

func (a *testAPI) sessionWithData() string {
	a.t.Helper()
	id := a.newSession()
	w := a.upload("/api/sessions/"+id+"/data", "sales.csv", salesCSV)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorEnvelope
	decode(t, w, &env)
	assert.NotEmpty(t, env.Error.Message)
	return env.Error.Code
}

func TestHealthAndChartTypes(t *testing.T) {
	api := newTestAPI(t)

	w := api.json(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	decode(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, map[string]any{"storage": "local", "narrative": "disabled"}, health["checks"])

	w = api.json(http.MethodGet, "/api/chart-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var types struct {
		ChartTypes []chartTypeInfo `json:"chart_types"`
		Schemes    []string        `json:"color_schemes"`
	}
	decode(t, w, &types)
	require.Len(t, types.ChartTypes, 8)
	assert.Equal(t, chart.Bar, types.ChartTypes[0].Type)
	assert.Equal(t, []string{"x_column", "y_column"}, types.ChartTypes[0].Required)
	assert.Contains(t, types.Schemes, "Viridis")
}

func TestCORS(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/dashboards", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionErrors(t *testing.T) {
	api := newTestAPI(t)

	w := api.json(http.MethodGet, "/api/sessions/nope/data", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", errorCode(t, w))

	id := api.newSession()
	w = api.json(http.MethodGet, "/api/sessions/"+id+"/data", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_data", errorCode(t, w))

	w = api.upload("/api/sessions/"+id+"/data", "notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported_format", errorCode(t, w))

	w = api.json(http.MethodPost, "/api/sessions/"+id+"/report/html", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "only GET is routed")

	w = api.json(http.MethodGet, "/api/sessions/"+id+"/report/html", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_report", errorCode(t, w))

	w = api.json(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.json(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadAndTransform(t *testing.T) {
	api := newTestAPI(t)
	id := api.sessionWithData()
	base := "/api/sessions/" + id + "/data"

	w := api.json(http.MethodGet, base+"?rows=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dataResponse
	decode(t, w, &resp)
	assert.Equal(t, "sales.csv", resp.Name)
	assert.Equal(t, 5, resp.Preview.Rows)
	assert.Equal(t, 4, resp.Preview.Cols)
	assert.Len(t, resp.Preview.Head, 2)

	w = api.json(http.MethodPost, base+"/filters", map[string]any{
		"filters": map[string]any{"region": map[string]any{"type": "equals", "value": "north"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Preview.Rows)

	w = api.json(http.MethodGet, "/api/sessions/"+id+"/dashboard", nil)
	var board dashboardResponse
	decode(t, w, &board)
	assert.Contains(t, board.Dashboard.Filters, "region")

	w = api.json(http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 5, resp.Preview.Rows)

	w = api.json(http.MethodPost, base+"/clean", map[string]any{"operations": []string{"drop_nulls"}})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 4, resp.Preview.Rows)

	w = api.json(http.MethodPost, base+"/derive", map[string]any{
		"derivations": []map[string]any{{"name": "total", "operation": "multiply", "columns": []string{"revenue", "units"}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.Equal(t, 5, resp.Preview.Cols)

	w = api.json(http.MethodPost, base+"/convert", map[string]any{"column": "units", "kind": "text"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.json(http.MethodPost, base+"/select", map[string]any{"columns": []string{"region", "revenue"}})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Preview.Cols)

	w = api.json(http.MethodPost, base+"/select", map[string]any{"columns": []string{"missing"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_column", errorCode(t, w))

	w = api.json(http.MethodPost, base+"/clean", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errorCode(t, w))

	w = api.json(http.MethodGet, base+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="sales.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "region,revenue\n"))

	w = api.json(http.MethodGet, base+"/export?format=excel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="sales.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = api.json(http.MethodGet, base+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported_format", errorCode(t, w))
}

func TestUploadTooLarge(t *testing.T) {
	api := newTestAPI(t)
	id := api.newSession()
	big := "a,b\n" + strings.Repeat("1,2\n", 300_000)
	w := api.upload("/api/sessions/"+id+"/data", "big.csv", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "too_large", errorCode(t, w))
}

func TestChartsAndDashboardRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	id := api.sessionWithData()
	base := "/api/sessions/" + id

	w := api.json(http.MethodPost, base+"/charts", chart.Config{Type: chart.Bar, XColumn: "region", YColumn: "revenue"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added chartResponse
	decode(t, w, &added)
	assert.Equal(t, "chart_1", added.Chart.ID)
	assert.Equal(t, "revenue by region", added.Title)

	w = api.json(http.MethodPost, base+"/charts", chart.Config{Type: chart.Pie, ValuesColumn: "revenue", NamesColumn: "product"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.json(http.MethodPost, base+"/charts", chart.Config{Type: chart.Scatter, XColumn: "units"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_field", errorCode(t, w))

	w = api.json(http.MethodPost, base+"/charts", chart.Config{Type: "radar", XColumn: "units"})
	assert.Equal(t, "unsupported_type", errorCode(t, w))

	w = api.json(http.MethodPost, base+"/charts", chart.Config{Type: chart.Histogram, XColumn: "region"})
	assert.Equal(t, "not_numeric", errorCode(t, w))

	w = api.json(http.MethodGet, base+"/charts/chart_1/html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "revenue by region")
	assert.Contains(t, w.Body.String(), "<body>")

	w = api.json(http.MethodGet, base+"/charts/chart_1/html?fragment=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "echarts.init")
	assert.NotContains(t, w.Body.String(), "<body>")

	w = api.json(http.MethodGet, base+"/dashboard/html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Chart-Errors"))

	w = api.json(http.MethodPost, base+"/dashboard/save", map[string]string{"name": "sales"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.json(http.MethodDelete, base+"/charts/chart_2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.json(http.MethodDelete, base+"/charts/chart_2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.json(http.MethodPost, base+"/dashboard/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board dashboardResponse
	decode(t, w, &board)
	assert.Empty(t, board.Dashboard.Charts)

	w = api.json(http.MethodPost, base+"/dashboard/load", map[string]string{"name": "sales"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &board)
	assert.Equal(t, "sales", board.Name)
	assert.Len(t, board.Dashboard.Charts, 2)
	assert.Empty(t, board.Errors)

	w = api.json(http.MethodPost, base+"/data/select", map[string]any{"columns": []string{"region", "units"}})
	require.Equal(t, http.StatusOK, w.Code)
	w = api.json(http.MethodPost, base+"/dashboard/load", map[string]string{"name": "sales"})
	decode(t, w, &board)
	assert.Len(t, board.Errors, 2, "both charts need the revenue column")

	w = api.json(http.MethodPost, base+"/dashboard/load", map[string]string{"name": "absent"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

func TestReportEndpoints(t *testing.T) {
	api := newTestAPI(t)
	id := api.sessionWithData()
	base := "/api/sessions/" + id

	w := api.do(http.MethodPost, base+"/report", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var r report.Report
	decode(t, w, &r)
	assert.Equal(t, report.DefaultTitle, r.Metadata.Title)
	assert.Equal(t, [2]int{5, 4}, r.Metadata.DataShape)
	require.Len(t, r.Sections, 3)

	w = api.json(http.MethodPost, base+"/report", report.Config{
		Title:    "Sales review",
		Sections: []report.SectionName{report.SectionCharts, report.SectionInsights, report.SectionNarrative},
	})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &r)
	assert.Equal(t, report.ErrNarratorDisabled.Error(), r.Sections[2].Error)

	w = api.json(http.MethodGet, base+"/report/html?download=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Sales review</h1>")
	assert.Equal(t, `attachment; filename="report.html"`, w.Header().Get("Content-Disposition"))

	w = api.json(http.MethodGet, base+"/report/charts/0/png", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = api.json(http.MethodGet, base+"/report/charts/99/png", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSavedDashboards(t *testing.T) {
	api := newTestAPI(t)

	doc := `{"layout":{"type":"grid","rows":1,"cols":1,"gap":5},"charts":[{"id":"chart_1","type":"bar","config":{"type":"bar","x_column":"a","y_column":"b"}}],"filters":{}}`
	w := api.do(http.MethodPost, "/api/dashboards/import?name=imported", strings.NewReader(doc), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/dashboards/import?name=broken", strings.NewReader(`{"charts":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_config", errorCode(t, w))

	w = api.do(http.MethodPost, "/api/dashboards/import", strings.NewReader(doc), "application/json")
	assert.Equal(t, "invalid_name", errorCode(t, w))

	w = api.json(http.MethodPost, "/api/dashboards/imported/duplicate", map[string]string{"target": "copy"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = api.json(http.MethodPost, "/api/dashboards/absent/duplicate", map[string]string{"target": "copy2"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.json(http.MethodGet, "/api/dashboards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Dashboards []string `json:"dashboards"`
		Count      int      `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, []string{"copy", "imported"}, list.Dashboards)
	assert.Equal(t, 2, list.Count)

	w = api.json(http.MethodGet, "/api/dashboards/copy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info dashboard.Info
	decode(t, w, &info)
	assert.Equal(t, "copy", info.Name)
	assert.Equal(t, 1, info.ChartCount)
	assert.False(t, info.HasFilters)

	description := "quarterly numbers"
	w = api.json(http.MethodPatch, "/api/dashboards/copy/metadata", dashboard.MetadataPatch{Description: &description})
	require.Equal(t, http.StatusOK, w.Code)
	var meta dashboard.Metadata
	decode(t, w, &meta)
	assert.Equal(t, description, meta.Description)

	w = api.json(http.MethodGet, "/api/dashboards/copy/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"description": "quarterly numbers"`)
	assert.Equal(t, `attachment; filename="copy.json"`, w.Header().Get("Content-Disposition"))

	w = api.json(http.MethodDelete, "/api/dashboards/copy", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.json(http.MethodDelete, "/api/dashboards/copy", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.json(http.MethodGet, "/api/dashboards/copy", nil)
	assert.Equal(t, "not_found", errorCode(t, w))
}
