package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tutorcal/internal/calendar"
	"tutorcal/internal/config"
	"tutorcal/internal/model"
	"tutorcal/internal/notify"
	"tutorcal/internal/remind"
	"tutorcal/internal/sched"
	"tutorcal/internal/store"
)

type nopNotifier struct{}

func (nopNotifier) Show(notify.Notification) error { return nil }
func (nopNotifier) Cancel(int) error               { return nil }

type staticFetcher struct {
	schedules []model.Schedule
}

func (f *staticFetcher) FetchToday(context.Context) ([]model.Schedule, error) {
	return f.schedules, nil
}

func (f *staticFetcher) FetchByDate(context.Context, string) ([]model.Schedule, error) {
	return f.schedules, nil
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *sched.Coordinator) {
	t.Helper()

	kv, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	scheduler := remind.NewScheduler(nopNotifier{}, time.UTC)
	presenter := remind.NewPresenter(nopNotifier{}, time.UTC)
	t.Cleanup(scheduler.CancelAll)
	t.Cleanup(presenter.StopAll)

	fetcher := &staticFetcher{schedules: []model.Schedule{
		{ID: 1, StudentName: "Alice", Subject: "Math", TimeSlot: "14:00-15:00", Status: model.StatusCompleted},
	}}
	coord := sched.New(fetcher, store.NewScheduleCache(kv), store.NewSyncLog(kv), scheduler, presenter, 2)

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	exporter := calendar.NewExporter(t.TempDir(), time.UTC)
	return NewServer(cfg, coord, exporter), coord
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSchedules(t *testing.T) {
	srv, coord := newTestServer(t, nil)
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	coord.LoadDate(context.Background(), day)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedules?date=2024-03-10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Date  string          `json:"date"`
		State sched.DateState `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2024-03-10" || !resp.State.HasData || len(resp.State.Schedules) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSchedulesBadDate(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedules?date=tomorrow", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogsAndClear(t *testing.T) {
	srv, coord := newTestServer(t, nil)
	coord.LoadDate(context.Background(), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	var entries []model.SyncLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != store.ActionFirstSync {
		t.Fatalf("entries = %+v", entries)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/logs", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if got := coord.SyncLogs(); len(got) != 0 {
		t.Errorf("logs after clear = %+v", got)
	}
}

func TestExport(t *testing.T) {
	srv, coord := newTestServer(t, nil)
	coord.LoadDate(context.Background(), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export?id=1&date=2024-03-10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "lesson-1-2024-03-10.ics") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export?id=99&date=2024-03-10", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	srv, _ := newTestServer(t, cfg)
	handler := srv.Handler()

	// /health stays open.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health without creds = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("logs without creds = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	req.SetBasicAuth("admin", "wrong")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("logs with bad creds = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	req.SetBasicAuth("admin", "secret")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("logs with creds = %d", rec.Code)
	}
}
