package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartalloc/portal/internal/allocator"
	"github.com/smartalloc/portal/internal/analytics"
	"github.com/smartalloc/portal/internal/config"
	"github.com/smartalloc/portal/internal/session"
)

const candidatesCSV = "id,name,skills,category\n" +
	"C1,Asha Verma,Python,Rural\n" +
	"C2,Ben Kumar,Design,\n"

const internshipsCSV = "id,title,location,capacity\n" +
	"I1,Data Analyst,Delhi,2\n" +
	"I2,Web Developer,Mumbai,1\n"

const allocationsJSON = `{"allocations":[
	{"Candidate":"Asha Verma","Internship":"Data Analyst","Score":87.5,"Reason":"Strong skill match","Category":"Rural","Location":"Delhi"},
	{"Candidate":"Ben Kumar","Internship":"Web Developer","Score":64,"Reason":"Geographic fit","Location":"Mumbai"}
]}`

// newTestServer wires a full portal server against the given backend URL.
func newTestServer(backendURL string) *Server {
	cfg := &config.Config{}
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Allocator.BaseURL = backendURL

	return NewServer(cfg, session.New(), allocator.NewClient(backendURL, 5*time.Second))
}

// fakeBackend counts allocation requests and answers with a fixed response.
func fakeBackend(status int, body string) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	return srv, &calls
}

// multipartUpload builds a multipart body from the named file parts.
func multipartUpload(t *testing.T, parts map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, content := range parts {
		fw, err := w.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("CreateFormFile(%q): %v", field, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write part %q: %v", field, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doRequest(t *testing.T, s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func submit(t *testing.T, s *Server, parts map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, parts)
	return doRequest(t, s, http.MethodPost, "/allocate", body, contentType)
}

// ============================================================================
// View Flow Tests
// ============================================================================

func TestFlow_UploadThroughAnalyticsAndReset(t *testing.T) {
	backend, calls := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	// Initial view is the upload page.
	rec := doRequest(t, s, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Smart Allocation Engine") {
		t.Fatalf("GET / = %d, body %q", rec.Code, rec.Body.String())
	}

	// Submit both files; the handler redirects back to the portal page.
	rec = submit(t, s, map[string]string{"candidates": candidatesCSV, "internships": internshipsCSV})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /allocate = %d, want 303", rec.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("backend saw %d calls, want 1", calls.Load())
	}

	// The portal page now renders results.
	rec = doRequest(t, s, http.MethodGet, "/", nil, "")
	body := rec.Body.String()
	if !strings.Contains(body, "Allocation Results") {
		t.Fatalf("expected results view, got: %q", body)
	}
	if !strings.Contains(body, "Asha Verma") || !strings.Contains(body, "Data Analyst") {
		t.Errorf("results table missing allocation rows: %q", body)
	}
	if !strings.Contains(body, "N/A") {
		t.Errorf("allocations without category must render N/A: %q", body)
	}

	// Move to analytics and back.
	doRequest(t, s, http.MethodPost, "/view/analytics", nil, "")
	rec = doRequest(t, s, http.MethodGet, "/", nil, "")
	if !strings.Contains(rec.Body.String(), "Allocation Analytics") {
		t.Fatalf("expected analytics view, got: %q", rec.Body.String())
	}

	doRequest(t, s, http.MethodPost, "/view/results", nil, "")
	rec = doRequest(t, s, http.MethodGet, "/", nil, "")
	if !strings.Contains(rec.Body.String(), "Allocation Results") {
		t.Fatalf("expected results view after back, got: %q", rec.Body.String())
	}

	// Reset returns to a clean upload view.
	doRequest(t, s, http.MethodPost, "/reset", nil, "")
	rec = doRequest(t, s, http.MethodGet, "/", nil, "")
	body = rec.Body.String()
	if !strings.Contains(body, "Smart Allocation Engine") {
		t.Fatalf("expected upload view after reset, got: %q", body)
	}
	if strings.Contains(body, "alert") {
		t.Errorf("reset must clear any error banner: %q", body)
	}
}

func TestAllocate_MissingFileShowsErrorWithoutBackendCall(t *testing.T) {
	backend, calls := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	rec := submit(t, s, map[string]string{"candidates": candidatesCSV})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /allocate = %d, want 303", rec.Code)
	}
	if calls.Load() != 0 {
		t.Errorf("backend saw %d calls, validation failures must not reach it", calls.Load())
	}

	rec = doRequest(t, s, http.MethodGet, "/", nil, "")
	body := rec.Body.String()
	if !strings.Contains(body, "Smart Allocation Engine") {
		t.Fatalf("expected upload view, got: %q", body)
	}
	if !strings.Contains(body, "internships") {
		t.Errorf("error banner must name the missing file: %q", body)
	}
}

func TestAllocate_BackendDetailSurfacedVerbatim(t *testing.T) {
	backend, _ := fakeBackend(http.StatusInternalServerError, `{"detail":"internal error"}`)
	defer backend.Close()
	s := newTestServer(backend.URL)

	submit(t, s, map[string]string{"candidates": candidatesCSV, "internships": internshipsCSV})

	rec := doRequest(t, s, http.MethodGet, "/", nil, "")
	body := rec.Body.String()
	if !strings.Contains(body, "internal error") {
		t.Fatalf("service detail must be surfaced as-is, got: %q", body)
	}
	if !strings.Contains(body, "Smart Allocation Engine") {
		t.Errorf("failed submission must stay on the upload view: %q", body)
	}
}

func TestAllocate_UnparseableCSVShowsParseError(t *testing.T) {
	backend, calls := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	submit(t, s, map[string]string{
		"candidates":  "id,name\nC1,\"unterminated\n",
		"internships": internshipsCSV,
	})
	if calls.Load() != 0 {
		t.Errorf("backend saw %d calls, parse failures must not reach it", calls.Load())
	}

	rec := doRequest(t, s, http.MethodGet, "/", nil, "")
	if !strings.Contains(rec.Body.String(), "Failed to process files") {
		t.Fatalf("expected parse error banner, got: %q", rec.Body.String())
	}
}

// ============================================================================
// Fragment and Data Endpoint Tests
// ============================================================================

func TestResultsTable_Filter(t *testing.T) {
	backend, _ := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)
	submit(t, s, map[string]string{"candidates": candidatesCSV, "internships": internshipsCSV})

	rec := doRequest(t, s, http.MethodGet, "/results/table?q=asha", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /results/table = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Asha Verma") {
		t.Errorf("matching row missing: %q", body)
	}
	if strings.Contains(body, "Ben Kumar") {
		t.Errorf("non-matching row must be filtered out: %q", body)
	}

	rec = doRequest(t, s, http.MethodGet, "/results/table?q=nothing-matches-this", nil, "")
	if !strings.Contains(rec.Body.String(), "No matching allocations") {
		t.Errorf("empty result must render the placeholder: %q", rec.Body.String())
	}
}

func TestResultsTable_WithoutBatch(t *testing.T) {
	backend, _ := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	rec := doRequest(t, s, http.MethodGet, "/results/table", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /results/table without results = %d, want 404", rec.Code)
	}
}

func TestAnalyticsJSON(t *testing.T) {
	backend, _ := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)
	submit(t, s, map[string]string{"candidates": candidatesCSV, "internships": internshipsCSV})

	rec := doRequest(t, s, http.MethodGet, "/api/analytics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/analytics = %d", rec.Code)
	}

	var summary analytics.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Status.Allocated != 2 || summary.Status.Unallocated != 0 {
		t.Errorf("status = %+v, want 2 allocated of 2 candidates", summary.Status)
	}
	if len(summary.Scores) != 5 {
		t.Errorf("got %d score bins, want 5", len(summary.Scores))
	}
	if len(summary.Capacity) != 2 {
		t.Errorf("got %d capacity rows, want one per internship", len(summary.Capacity))
	}
}

func TestExportAllocations(t *testing.T) {
	backend, _ := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	// Without a batch the export redirects home instead of serving an empty file.
	rec := doRequest(t, s, http.MethodGet, "/export/allocations.csv", nil, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("export without results = %d, want 303", rec.Code)
	}

	submit(t, s, map[string]string{"candidates": candidatesCSV, "internships": internshipsCSV})

	rec = doRequest(t, s, http.MethodGet, "/export/allocations.csv", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "allocations.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d csv lines, want header plus 2 rows: %q", len(lines), rec.Body.String())
	}
	if !strings.HasPrefix(lines[0], "Candidate,Internship,Score") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Asha Verma") {
		t.Errorf("first row = %q", lines[1])
	}
}

// ============================================================================
// Operational Endpoint Tests
// ============================================================================

func TestHealthz(t *testing.T) {
	backend, _ := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestSecurityHeaders(t *testing.T) {
	backend, _ := fakeBackend(http.StatusOK, allocationsJSON)
	defer backend.Close()
	s := newTestServer(backend.URL)

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil, "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("Content-Security-Policy header missing")
	}
}
