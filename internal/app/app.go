package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/infrastructure/archive"
	"NewsTranslator/internal/infrastructure/cache"
	"NewsTranslator/internal/infrastructure/httpapi"
	"NewsTranslator/internal/infrastructure/llm"
	"NewsTranslator/internal/infrastructure/mt"
	"NewsTranslator/internal/infrastructure/parser"
	"NewsTranslator/internal/infrastructure/scheduler"
	"NewsTranslator/internal/infrastructure/storage"
	"NewsTranslator/internal/infrastructure/telegram"
	"NewsTranslator/internal/logging"
	"NewsTranslator/internal/ports"
	"NewsTranslator/internal/scanner"
	"NewsTranslator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	scheduler *usecase.Scheduler
	server    *http.Server
	closers   []io.Closer
}

// New opens storage, selects the translation provider and assembles the
// scheduler and status API. Optional adapters (cache, archive, Telegram)
// that fail to initialise are logged and left out.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	schedule, err := cfg.Scheduler.Schedule()
	if err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	repo, err := storage.NewSQLRepository(db, cfg.Database.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, db: db}

	translator, err := a.buildTranslationService(ctx)
	if err != nil {
		_ = a.close()
		return nil, err
	}

	feedClient := &http.Client{Timeout: cfg.Feeds.Timeout}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewRSSScanner(feedClient, cfg.Feeds.UserAgent, baseLogger.With("component", "scanner.rss")))

	var scraper parser.BodyScraper
	if cfg.Feeds.ScrapeEnabled() {
		scraper = parser.NewArticleScraper(feedClient)
	}
	source := parser.NewStrategySource(parser.SourceDeps{
		Registry: registry,
		Sites:    cfg.Sites,
		Feeds:    cfg.Feeds,
		Scraper:  scraper,
		Logger:   baseLogger.With("component", "source"),
	})

	runner := usecase.NewJobRunner(usecase.JobRunnerDeps{
		Source:     source,
		Store:      repo,
		Translator: translator,
		Archiver:   a.buildArchiver(ctx),
		Logger:     baseLogger.With("component", "job"),
		Enabled:    cfg.Translation.IsEnabled(),
		Retention:  cfg.Scheduler.Retention,
	})

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	a.scheduler = usecase.NewScheduler(usecase.SchedulerDeps{
		Schedule:        schedule,
		Job:             runner,
		Driver:          scheduler.NewHourlyTrigger(schedule, baseLogger.With("component", "trigger")),
		State:           repo,
		Notifier:        notifier,
		NotifyOnSuccess: cfg.Notifications.Telegram.ReportsSuccess(),
		Logger:          baseLogger.With("component", "scheduler"),
	})
	if err := a.scheduler.Restore(ctx); err != nil {
		baseLogger.Warn("scheduler state not restored", "error", err)
	}

	a.server = httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(httpapi.Deps{
		Scheduler: a.scheduler,
		Articles:  repo,
		Provider:  translator.ProviderName(),
		Logger:    baseLogger.With("component", "http"),
	}))

	return a, nil
}

// Run serves the API and, when configured, the scheduling loop until ctx is
// cancelled, then shuts down within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Scheduler.StartsAutomatically() {
		a.scheduler.Start(ctx)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Scheduler.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.scheduler.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	return errors.Join(runErr, a.close())
}

func (a *Application) buildTranslationService(ctx context.Context) (*usecase.TranslationService, error) {
	tcfg := a.cfg.Translation
	requested, err := domain.ParseProviderKind(tcfg.Provider)
	if err != nil {
		return nil, err
	}

	exec := config.DetectExecutionContext(tcfg, nil)
	available := map[domain.ProviderKind]ports.Translator{}

	if tcfg.Cloud.APIKey != "" {
		if t, err := buildLLM(cloudName(tcfg.Cloud), domain.ProviderCloudLLM, tcfg.Cloud); err != nil {
			a.logger.Warn("cloud translator unavailable", "error", err)
		} else {
			available[domain.ProviderCloudLLM] = t
		}
	}
	if exec.HasLocalCompute && tcfg.Local.Endpoint != "" {
		if t, err := buildLLM("ollama", domain.ProviderLocalModel, tcfg.Local); err != nil {
			a.logger.Warn("local translator unavailable", "error", err)
		} else {
			available[domain.ProviderLocalModel] = t
		}
	}
	if tcfg.DeepL.APIKey != "" {
		if t, err := mt.NewDeepLClient(tcfg.DeepL, nil); err != nil {
			a.logger.Warn("deepl translator unavailable", "error", err)
		} else {
			available[domain.ProviderTraditionalMT] = t
		}
	}

	choice := usecase.SelectProvider(requested, exec, available)
	a.logger.Info("translation provider selected",
		"requested", requested,
		"selected", choice.Kind,
		"local_compute", exec.HasLocalCompute,
		"enabled", tcfg.IsEnabled(),
		"reason", choice.Reason)

	var translationCache ports.TranslationCache
	if a.cfg.Cache.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, a.cfg.Cache)
		if err != nil {
			a.logger.Warn("translation cache disabled", "error", err)
		} else {
			translationCache = rc
			a.closers = append(a.closers, rc)
		}
	}

	return usecase.NewTranslationService(usecase.TranslationDeps{
		Translator: choice.Translator,
		Cache:      translationCache,
		Policy: usecase.RetryPolicy{
			MaxRetries:     uint64(tcfg.Retries()),
			InitialBackoff: tcfg.InitialBackoff,
			MaxBackoff:     tcfg.MaxBackoff,
			CallTimeout:    tcfg.CallTimeout,
		},
		Logger: a.logger.With("component", "translation"),
	}), nil
}

func (a *Application) buildArchiver(ctx context.Context) ports.Archiver {
	if a.cfg.Archive.Bucket == "" {
		return nil
	}
	archiver, err := archive.NewS3Archiver(ctx, a.cfg.Archive)
	if err != nil {
		a.logger.Warn("archive disabled", "bucket", a.cfg.Archive.Bucket, "error", err)
		return nil
	}
	return archiver
}

func (a *Application) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func buildLLM(name string, kind domain.ProviderKind, cfg config.LLMConfig) (ports.Translator, error) {
	if cfg.API == "anthropic" {
		return llm.NewAnthropicTranslator(name, cfg, nil)
	}
	return llm.NewChatTranslator(name, kind, cfg, nil)
}

func cloudName(cfg config.LLMConfig) string {
	if cfg.API == "anthropic" {
		return "anthropic"
	}
	return "together"
}
