package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dupefind/dupefind/internal/api/handlers"
	"github.com/dupefind/dupefind/internal/grouper"
	"github.com/dupefind/dupefind/internal/results"
	"github.com/dupefind/dupefind/internal/scanner"
	"github.com/dupefind/dupefind/internal/stats"
	"github.com/dupefind/dupefind/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func entry(path string, size int64) *grouper.Entry {
	return &grouper.Entry{FileDescriptor: &scanner.FileDescriptor{Path: path, Size: size}}
}

func TestStatusEndpointReportsIdle(t *testing.T) {
	db := openTestDB(t)
	runState := handlers.NewRunState()

	srv := New(":0", db, runState, nil, "test", nil)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if active, _ := body["active"].(bool); active {
		t.Error("expected active=false for idle run state")
	}
}

func TestRunsGroupsUnknownIDReturns404(t *testing.T) {
	db := openTestDB(t)
	srv := New(":0", db, handlers.NewRunState(), nil, "test", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/999/groups", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRunsListReturnsSavedRun(t *testing.T) {
	db := openTestDB(t)

	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10}, []*grouper.Entry{
		entry("/a", 10), entry("/b", 10),
	})
	st := stats.Compute(grouper.ModeSize, time.Now(), []grouper.Group{g}, nil)
	report := results.Build(grouper.ModeSize, 0, time.Now(), st, []grouper.Group{g}, nil, 0)
	if _, err := store.SaveRun(db, time.Now().Add(-time.Minute), time.Now(), []string{"/data"}, false, report); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	srv := New(":0", db, handlers.NewRunState(), nil, "test", nil)
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 {
		t.Fatalf("expected 1 run, got %d", len(body.Items))
	}
}
