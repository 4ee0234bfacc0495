package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// JobRunnerDeps wires all driven adapters into the fetch-and-translate run.
type JobRunnerDeps struct {
	Source     ports.FeedSource
	Store      ports.ArticleStore
	Translator *TranslationService
	Archiver   ports.Archiver
	Logger     *slog.Logger
	// Enabled gates translation; disabled runs still store items.
	Enabled   bool
	Retention time.Duration
	Now       func() time.Time
}

// JobRunner executes one fetch, translate and store cycle.
type JobRunner struct {
	source     ports.FeedSource
	store      ports.ArticleStore
	translator *TranslationService
	archiver   ports.Archiver
	logger     *slog.Logger
	enabled    bool
	retention  time.Duration
	now        func() time.Time
}

// NewJobRunner constructs the run orchestration component.
func NewJobRunner(deps JobRunnerDeps) *JobRunner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &JobRunner{
		source:     deps.Source,
		store:      deps.Store,
		translator: deps.Translator,
		archiver:   deps.Archiver,
		logger:     logger,
		enabled:    deps.Enabled,
		retention:  deps.Retention,
		now:        now,
	}
}

// RunOnce performs a manual run.
func (r *JobRunner) RunOnce(ctx context.Context) domain.RunOutcome {
	return r.Run(ctx, domain.TriggerManual)
}

// Run fetches the latest items, translates each one in fetch order and
// stores it. Item failures never abort the run.
func (r *JobRunner) Run(ctx context.Context, trigger domain.Trigger) domain.RunOutcome {
	outcome := domain.RunOutcome{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: r.now(),
	}
	log := r.logger.With("run_id", outcome.RunID, "trigger", trigger)
	log.Info("run started")

	if err := r.process(ctx, log, &outcome); err != nil {
		outcome.Status = domain.RunFailed
		outcome.Err = err.Error()
	} else if outcome.ItemsFailed > 0 {
		outcome.Status = domain.RunPartialFailure
	} else {
		outcome.Status = domain.RunSuccess
	}

	outcome.FinishedAt = r.now()
	log.Info("run finished",
		"status", outcome.Status,
		"fetched", outcome.ItemsFetched,
		"translated", outcome.ItemsTranslated,
		"failed", outcome.ItemsFailed,
		"skipped", outcome.ItemsSkipped,
		"stored", outcome.ItemsStored,
		"purged", outcome.ItemsPurged,
		"duration", outcome.Duration())
	return outcome
}

func (r *JobRunner) process(ctx context.Context, log *slog.Logger, outcome *domain.RunOutcome) error {
	if r.source == nil {
		return fmt.Errorf("feed source is not configured")
	}

	raws, err := r.source.FetchLatest(ctx)
	if err != nil {
		log.Error("fetch failed", "error", err)
		return fmt.Errorf("fetch latest: %w", err)
	}
	outcome.ItemsFetched = len(raws)

	translate := r.enabled && r.translator.Active()
	if !translate {
		log.Info("translation inactive, storing originals", "enabled", r.enabled, "provider", r.translator.ProviderName())
	}

	skip := map[string]bool{}
	if translate && r.store != nil && len(raws) > 0 {
		ids := make([]string, len(raws))
		for i, raw := range raws {
			ids[i] = raw.ID
		}
		skip, err = r.store.AlreadyTranslated(ctx, ids)
		if err != nil {
			log.Warn("load translated ids", "error", err)
			skip = map[string]bool{}
		}
	}

	fetchedAt := r.now()
	for _, raw := range raws {
		if skip[raw.ID] {
			outcome.ItemsSkipped++
			continue
		}

		item := domain.NewArticleItem(raw, fetchedAt)
		if translate {
			item = r.translator.Translate(ctx, item)
		}

		failed := item.TranslationStatus == domain.TranslationFailed
		if item.TranslationStatus == domain.TranslationSuccess {
			outcome.ItemsTranslated++
		}

		if r.store != nil {
			if err := r.store.Upsert(ctx, item); err != nil {
				log.Error("store item", "item_id", item.ID, "error", err)
				failed = true
			} else {
				outcome.ItemsStored++
				r.archive(ctx, log, item)
			}
		}

		if failed {
			outcome.ItemsFailed++
		}
	}

	r.purge(ctx, log, outcome)
	return nil
}

func (r *JobRunner) archive(ctx context.Context, log *slog.Logger, item domain.ArticleItem) {
	if r.archiver == nil {
		return
	}
	if err := r.archiver.Archive(ctx, item); err != nil {
		log.Warn("archive item", "item_id", item.ID, "error", err)
	}
}

func (r *JobRunner) purge(ctx context.Context, log *slog.Logger, outcome *domain.RunOutcome) {
	if r.store == nil || r.retention <= 0 {
		return
	}
	cutoff := r.now().Add(-r.retention)
	removed, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Warn("retention cleanup", "cutoff", cutoff, "error", err)
		return
	}
	outcome.ItemsPurged = removed
}
