package ports

import (
	"context"
	"time"

	"NewsTranslator/internal/domain"
)

// FeedSource pulls the latest items from upstream feeds.
type FeedSource interface {
	FetchLatest(ctx context.Context) ([]domain.RawItem, error)
}

// ArticleStore persists translated items; Upsert is idempotent by item id.
type ArticleStore interface {
	Upsert(ctx context.Context, item domain.ArticleItem) error
	ListRecent(ctx context.Context, limit int) ([]domain.ArticleItem, error)
	AlreadyTranslated(ctx context.Context, ids []string) (map[string]bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// StateStore keeps scheduler bookkeeping across restarts.
type StateStore interface {
	LoadState(ctx context.Context) (domain.PersistedState, error)
	SaveState(ctx context.Context, state domain.PersistedState) error
}

// Translator is a single translation backend.
type Translator interface {
	Name() string
	Kind() domain.ProviderKind
	// Model identifies the model or language pair; it scopes cached output.
	Model() string
	// ContextLimit is the total token window shared by prompt and output.
	ContextLimit() int
	Translate(ctx context.Context, req domain.TranslationRequest) (string, error)
}

// TranslationCache memoises provider output keyed by provider, model, kind and text.
type TranslationCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Archiver copies stored items to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, item domain.ArticleItem) error
}

// Notifier publishes run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler drives when jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
