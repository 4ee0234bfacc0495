package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"NewsTranslator/internal/domain"
)

type fakeScheduler struct {
	mu       sync.Mutex
	running  bool
	busy     bool
	closing  bool
	triggers int
	status   domain.SchedulerStatus
}

func (f *fakeScheduler) Status() domain.SchedulerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status
	st.IsRunning = f.running
	st.JobActive = f.busy
	return st
}

func (f *fakeScheduler) Start(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeScheduler) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.running
	f.running = false
	return was
}

func (f *fakeScheduler) Trigger(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closing {
		return domain.ErrShuttingDown
	}
	if f.busy {
		return domain.ErrBusy
	}
	f.busy = true
	f.triggers++
	return nil
}

type fakeArticles struct {
	items []domain.ArticleItem
	err   error
	asked []int
}

func (f *fakeArticles) ListRecent(_ context.Context, limit int) ([]domain.ArticleItem, error) {
	f.asked = append(f.asked, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.items) {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeArticles) DeleteAll(context.Context) (int, error) {
	n := len(f.items)
	f.items = nil
	return n, f.err
}

func (f *fakeArticles) Count(context.Context) (int, error) {
	return len(f.items), f.err
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: decode body %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, body
}

func sampleArticles(n int) []domain.ArticleItem {
	items := make([]domain.ArticleItem, n)
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	for i := range items {
		items[i] = domain.NewArticleItem(domain.RawItem{
			ID:          fmt.Sprintf("id-%d", i),
			Title:       fmt.Sprintf("Nyhed %d", i),
			PublishedAt: base.Add(-time.Duration(i) * time.Minute),
		}, base)
	}
	translated := "Interest rates rise"
	items[0].TitleTranslated = &translated
	items[0].TitleStatus = domain.TranslationSuccess
	items[0].Resolve()
	return items
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	last := time.Date(2025, time.March, 10, 8, 0, 5, 0, time.UTC)
	sched := &fakeScheduler{status: domain.SchedulerStatus{
		LastRunAt:     &last,
		LastRunStatus: domain.RunPartialFailure,
		RunCount:      3,
		NextRunAt:     time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC),
		Timezone:      "Europe/Vienna",
		TriggerHours:  []int{6, 8, 10, 12},
		LastOutcome:   &domain.RunOutcome{RunID: "r1", Status: domain.RunPartialFailure, ItemsFailed: 2},
	}}
	router := NewRouter(Deps{Scheduler: sched, Articles: &fakeArticles{items: sampleArticles(4)}, Provider: "together"})

	rec, body := do(t, router, http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if body["last_run_status"] != "partial_failure" || body["run_count"] != float64(3) || body["provider"] != "together" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["article_count"] != float64(4) || body["timezone"] != "Europe/Vienna" {
		t.Fatalf("unexpected body %v", body)
	}
	outcome, ok := body["last_outcome"].(map[string]any)
	if !ok || outcome["items_failed"] != float64(2) {
		t.Fatalf("unexpected last outcome %v", body["last_outcome"])
	}
}

func TestSchedulerControlEndpoints(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	router := NewRouter(Deps{Scheduler: sched, Articles: &fakeArticles{}})

	_, body := do(t, router, http.MethodPost, "/api/scheduler/start")
	if body["started"] != true || body["is_running"] != true {
		t.Fatalf("unexpected start body %v", body)
	}
	_, body = do(t, router, http.MethodPost, "/api/scheduler/start")
	if body["started"] != false || body["is_running"] != true {
		t.Fatalf("second start must be a no-op, got %v", body)
	}
	_, body = do(t, router, http.MethodPost, "/api/scheduler/stop")
	if body["stopped"] != true || body["is_running"] != false {
		t.Fatalf("unexpected stop body %v", body)
	}
}

func TestRunEndpoint(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	router := NewRouter(Deps{Scheduler: sched, Articles: &fakeArticles{}})

	rec, _ := do(t, router, http.MethodPost, "/api/run")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	rec, body := do(t, router, http.MethodPost, "/api/run")
	if rec.Code != http.StatusConflict || body["error"] == "" {
		t.Fatalf("expected 409 with error, got %d %v", rec.Code, body)
	}
	if sched.triggers != 1 {
		t.Fatalf("expected a single triggered run, got %d", sched.triggers)
	}
}

func TestRunEndpointDuringShutdown(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{closing: true}
	router := NewRouter(Deps{Scheduler: sched, Articles: &fakeArticles{}})

	rec, body := do(t, router, http.MethodPost, "/api/run")
	if rec.Code != http.StatusServiceUnavailable || body["error"] == "" {
		t.Fatalf("expected 503 with error, got %d %v", rec.Code, body)
	}
	if sched.triggers != 0 {
		t.Fatalf("no run may be triggered during shutdown")
	}
}

func TestListArticlesEndpoint(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{items: sampleArticles(60)}
	router := NewRouter(Deps{Scheduler: &fakeScheduler{}, Articles: articles})

	_, body := do(t, router, http.MethodGet, "/api/articles")
	if body["count"] != float64(defaultArticleLimit) {
		t.Fatalf("expected default limit, got %v", body["count"])
	}

	_, body = do(t, router, http.MethodGet, "/api/articles?limit=2")
	list := body["articles"].([]any)
	first := list[0].(map[string]any)
	if len(list) != 2 || first["title"] != "Interest rates rise" || first["title_original"] != "Nyhed 0" {
		t.Fatalf("unexpected articles %v", list)
	}
	second := list[1].(map[string]any)
	if second["title"] != "Nyhed 1" || second["title_translated"] != nil {
		t.Fatalf("untranslated item should fall back to the original, got %v", second)
	}

	_, _ = do(t, router, http.MethodGet, "/api/articles?limit=10000")
	if got := articles.asked[len(articles.asked)-1]; got != maxArticleLimit {
		t.Fatalf("limit not capped, store asked for %d", got)
	}

	_, body = do(t, router, http.MethodGet, "/api/articles?q=rates")
	if body["count"] != float64(1) {
		t.Fatalf("expected one match for q, got %v", body["count"])
	}

	rec, body := do(t, router, http.MethodGet, "/api/articles?limit=abc")
	if rec.Code != http.StatusBadRequest || body["error"] == nil {
		t.Fatalf("expected 400, got %d %v", rec.Code, body)
	}
}

func TestDeleteArticlesEndpoint(t *testing.T) {
	t.Parallel()

	articles := &fakeArticles{items: sampleArticles(3)}
	router := NewRouter(Deps{Scheduler: &fakeScheduler{}, Articles: articles})

	_, body := do(t, router, http.MethodDelete, "/api/articles")
	if body["deleted"] != float64(3) || len(articles.items) != 0 {
		t.Fatalf("unexpected delete body %v", body)
	}

	failing := NewRouter(Deps{Scheduler: &fakeScheduler{}, Articles: &fakeArticles{err: errors.New("db locked")}})
	rec, body := do(t, failing, http.MethodGet, "/api/articles")
	if rec.Code != http.StatusInternalServerError || body["error"] == nil {
		t.Fatalf("expected 500, got %d %v", rec.Code, body)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec, body := do(t, NewRouter(Deps{Scheduler: &fakeScheduler{}}), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", rec.Code, body)
	}
}
