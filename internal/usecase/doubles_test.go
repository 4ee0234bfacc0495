package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"NewsTranslator/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTranslator is deterministic: output depends only on kind and text.
type fakeTranslator struct {
	kind  domain.ProviderKind
	model string
	limit int

	mu       sync.Mutex
	calls    int
	requests []domain.TranslationRequest
	// errs are returned, in order, before falling back to the translation.
	errs     map[domain.Kind][]error
	failKind map[domain.Kind]error
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{kind: domain.ProviderCloudLLM, model: "fake-7b", limit: 32768}
}

func (f *fakeTranslator) Name() string              { return "fake" }
func (f *fakeTranslator) Kind() domain.ProviderKind { return f.kind }
func (f *fakeTranslator) Model() string             { return f.model }
func (f *fakeTranslator) ContextLimit() int         { return f.limit }

func (f *fakeTranslator) Translate(_ context.Context, req domain.TranslationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.requests = append(f.requests, req)
	if err := f.failKind[req.Kind]; err != nil {
		return "", err
	}
	if queued := f.errs[req.Kind]; len(queued) > 0 {
		f.errs[req.Kind] = queued[1:]
		return "", queued[0]
	}
	return "EN(" + strings.ToUpper(req.Text) + ")", nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value
	return nil
}

type stubSource struct {
	items []domain.RawItem
	err   error
}

func (s stubSource) FetchLatest(context.Context) ([]domain.RawItem, error) {
	return s.items, s.err
}

// memoryStore is an ArticleStore keyed by id.
type memoryStore struct {
	mu        sync.Mutex
	items     map[string]domain.ArticleItem
	order     []string
	failIDs   map[string]bool
	upserts   int
	purgedAt  time.Time
	purgeSize int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]domain.ArticleItem{}}
}

func (m *memoryStore) Upsert(_ context.Context, item domain.ArticleItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[item.ID] {
		return errors.New("disk full")
	}
	m.upserts++
	if _, ok := m.items[item.ID]; !ok {
		m.order = append(m.order, item.ID)
	}
	m.items[item.ID] = item
	return nil
}

func (m *memoryStore) ListRecent(_ context.Context, limit int) ([]domain.ArticleItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ArticleItem
	for _, id := range m.order {
		if len(out) == limit {
			break
		}
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *memoryStore) AlreadyTranslated(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.TranslationStatus == domain.TranslationSuccess {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgedAt = cutoff
	return m.purgeSize, nil
}

func (m *memoryStore) DeleteAll(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.items)
	m.items = map[string]domain.ArticleItem{}
	m.order = nil
	return n, nil
}

func (m *memoryStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memoryStore) get(id string) (domain.ArticleItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	return item, ok
}

// blockingJob counts runs and blocks each one until release is closed.
type blockingJob struct {
	mu      sync.Mutex
	runs    int
	started chan struct{}
	release chan struct{}
	status  domain.RunStatus
}

func newBlockingJob() *blockingJob {
	return &blockingJob{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
		status:  domain.RunSuccess,
	}
}

func (j *blockingJob) Run(ctx context.Context, trigger domain.Trigger) domain.RunOutcome {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	j.started <- struct{}{}
	<-j.release
	now := time.Now()
	return domain.RunOutcome{RunID: "run", Trigger: trigger, StartedAt: now, FinishedAt: now, Status: j.status}
}

func (j *blockingJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

// manualDriver records the job and lets tests fire it.
type manualDriver struct {
	mu      sync.Mutex
	job     func(time.Time)
	starts  int
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.job = job
	d.starts++
	d.stopped = false
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *manualDriver) fire(at time.Time) {
	d.mu.Lock()
	job := d.job
	d.mu.Unlock()
	job(at)
}

type memoryState struct {
	mu    sync.Mutex
	state domain.PersistedState
	saves int
}

func (m *memoryState) LoadState(context.Context) (domain.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memoryState) SaveState(_ context.Context, state domain.PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []string
}

func (n *recordingNotifier) PublishReport(_ context.Context, report string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reports)
}
