package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/pipeline"
)

func TestHandleStatus_NoRunYet(t *testing.T) {
	t.Parallel()

	s := NewServer(filepath.Join(t.TempDir(), "missing.json"), nil, zerolog.Nop(), Options{})

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil), rec)
	if err := s.handleStatus(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first run, got %d", rec.Code)
	}
}

func TestHandleStatus_ServesPersistedReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "last_run_report.json")
	report := &pipeline.Report{Collected: 5, Published: 2}
	if err := report.Save(reportPath); err != nil {
		t.Fatalf("save report: %v", err)
	}

	sizes := func() StateSizes { return StateSizes{CollectedGlobal: 17} }
	s := NewServer(reportPath, sizes, zerolog.Nop(), Options{})

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil), rec)
	if err := s.handleStatus(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			LastRun pipeline.Report `json:"last_run"`
			State   StateSizes      `json:"state"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "success" {
		t.Fatalf("expected jsend success, got %q", body.Status)
	}
	if body.Data.LastRun.Published != 2 || body.Data.State.CollectedGlobal != 17 {
		t.Fatalf("unexpected payload: %+v", body.Data)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := NewServer(filepath.Join(t.TempDir(), "r.json"), nil, zerolog.Nop(), Options{})

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
	if err := s.handleHealth(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
