package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/melosso/reef-sub003/internal/config"
	"github.com/melosso/reef-sub003/internal/ingest"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			PreviewRows:   100,
			BatchSize:     50,
			Timeout:       time.Minute,
		},
		Rate: config.RateLimitConfig{Enabled: false},
	}
	return NewServer(ingest.NewService(nil, cfg), cfg)
}

// multipartBody builds a multipart form with the given file and value fields.
func multipartBody(t *testing.T, files map[string]string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("CreateFormFile(%s): %v", field, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write file field: %v", err)
		}
	}
	for field, value := range values {
		if err := mw.WriteField(field, value); err != nil {
			t.Fatalf("WriteField(%s): %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestFormatsEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/formats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Formats []string `json:"formats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(body.Formats) == 0 {
		t.Fatal("formats list is empty")
	}
	found := false
	for _, f := range body.Formats {
		if f == "CSV" {
			found = true
		}
	}
	if !found {
		t.Errorf("formats %v missing CSV", body.Formats)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"file": "id,name\n1,alpha\n2,\"broken\n3,gamma\n"},
		map[string]string{"format": "CSV", "hasHeader": "true"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res struct {
		Summary ingest.PreviewSummary `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.Summary.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", res.Summary.TotalRows)
	}
	if res.Summary.ErrorRows != 1 {
		t.Errorf("ErrorRows = %d, want 1", res.Summary.ErrorRows)
	}
}

func TestPreviewRejectsMissingFormat(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"file": "id\n1\n"},
		nil,
	)
	req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPreviewRejectsUnsupportedFormat(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"file": "id\n1\n"},
		map[string]string{"format": "parquet"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestDiffEndpoint(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartBody(t,
		map[string]string{
			"previous": "id,name\n1,alpha\n2,beta\n",
			"current":  "id,name\n1,alpha\n3,gamma\n",
		},
		map[string]string{"format": "CSV", "keyColumns": "id"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/diff", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res ingest.CompareResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(res.Changes.Added) != 1 || res.Changes.Added[0] != "3" {
		t.Errorf("Added = %v, want [3]", res.Changes.Added)
	}
	if len(res.Changes.Removed) != 1 || res.Changes.Removed[0] != "2" {
		t.Errorf("Removed = %v, want [2]", res.Changes.Removed)
	}
}

func TestImportWithoutDatabase(t *testing.T) {
	srv := testServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"file": "id\n1\n"},
		map[string]string{"format": "CSV", "profile": "orders"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusNotImplemented, rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
}
