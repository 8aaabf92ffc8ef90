package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/catalog"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// stubAdapter serves a fixed dataset list with a loadable table.
type stubAdapter struct {
	name     string
	mode     string
	datasets []types.DatasetSummary
	table    *cachestore.Table
}

func (a *stubAdapter) Name() string       { return a.name }
func (a *stubAdapter) AccessMode() string { return a.mode }

func (a *stubAdapter) ListDatasets(ctx context.Context) ([]types.DatasetSummary, error) {
	return a.datasets, nil
}

func (a *stubAdapter) Load(ctx context.Context, id types.DatasetID, filters map[string]string) (*cachestore.Table, error) {
	if a.table == nil {
		return nil, registry.ErrUnsupported
	}
	return a.table, nil
}

func (a *stubAdapter) Ingest(ctx context.Context, id types.DatasetID, filePath string) (*registry.IngestPayload, error) {
	return nil, registry.ErrUnsupported
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	idx, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	adapter := &stubAdapter{
		name: "eurostat",
		mode: "direct",
		datasets: []types.DatasetSummary{
			{ID: "eurostat:une_rt_m", Source: "eurostat", Title: "Unemployment rate - monthly data"},
			{ID: "eurostat:nama_10_gdp", Source: "eurostat", Title: "GDP and main components"},
		},
		table: &cachestore.Table{
			Columns: []string{"geo", "value"},
			Rows:    []map[string]string{{"geo": "DE", "value": "5.7"}},
		},
	}
	cache := cachestore.New(filepath.Join(t.TempDir(), "cache"), nil)
	svc := registry.NewService(registry.New(adapter), idx, cache, nil)

	// Populate the index so info and search have something to serve.
	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("failed to seed index: %v", err)
	}

	return NewServer(svc, nil).Router()
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing request id header")
	}
}

func TestServer_ListDatasets(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/datasets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summaries []types.DatasetSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("got %d datasets, want 2", len(summaries))
	}
}

func TestServer_Search(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/search?q=unemployment", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summaries []types.DatasetSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "eurostat:une_rt_m" {
		t.Errorf("search returned %v", summaries)
	}
}

func TestServer_SearchValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		target string
		status int
	}{
		{"/search", http.StatusBadRequest},
		{"/search?q=x&limit=0", http.StatusBadRequest},
		{"/search?q=x&limit=1001", http.StatusBadRequest},
		{"/search?q=x&limit=abc", http.StatusBadRequest},
		{"/search?q=x&limit=10", http.StatusOK},
	}
	for _, tc := range cases {
		rec := doRequest(t, router, http.MethodGet, tc.target, "")
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.target, rec.Code, tc.status)
		}
	}
}

func TestServer_GetInfo(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/datasets/eurostat/une_rt_m/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var record types.CatalogRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if record.ID != "eurostat:une_rt_m" {
		t.Errorf("record id = %s", record.ID)
	}

	rec = doRequest(t, router, http.MethodGet, "/datasets/eurostat/nothere/info", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing dataset status = %d", rec.Code)
	}
	var errBody ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("invalid error json: %v", err)
	}
	if errBody.Error == "" || errBody.RequestID == "" {
		t.Errorf("error body = %+v", errBody)
	}
}

func TestServer_Load(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/datasets/eurostat/une_rt_m/load", `{"filters":{"geo":"DE"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		DatasetID string              `json:"dataset_id"`
		Columns   []string            `json:"columns"`
		Rows      []map[string]string `json:"rows"`
		RowCount  int                 `json:"row_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.DatasetID != "eurostat:une_rt_m" || body.RowCount != 1 {
		t.Errorf("load response = %+v", body)
	}

	// A malformed body is a client error.
	rec = doRequest(t, router, http.MethodPost, "/datasets/eurostat/une_rt_m/load", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}

	// An unknown source maps to 404.
	rec = doRequest(t, router, http.MethodPost, "/datasets/destatis/12411/load", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown source status = %d", rec.Code)
	}
}

func TestServer_RebuildIndex(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodPost, "/rebuild-index", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["indexed"] != 2 {
		t.Errorf("rebuild indexed %d datasets, want 2", body["indexed"])
	}
}

func TestServer_RequestIDPropagation(t *testing.T) {
	rec := doRequest(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("no request id assigned")
	}

	// A caller-supplied id is echoed back.
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-id-42")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	if got := rec2.Header().Get("X-Request-ID"); got != "caller-id-42" {
		t.Errorf("request id = %q, want caller-id-42", got)
	}
}
