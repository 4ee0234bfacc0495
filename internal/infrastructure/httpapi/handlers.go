package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"NewsTranslator/internal/domain"
)

const (
	defaultArticleLimit = 50
	maxArticleLimit     = 500
)

// SchedulerControl is the part of the scheduler the API drives.
type SchedulerControl interface {
	Status() domain.SchedulerStatus
	Start(ctx context.Context) bool
	Stop() bool
	Trigger(ctx context.Context) error
}

// ArticleReader exposes stored items to the API.
type ArticleReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ArticleItem, error)
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// Deps wires the API with the scheduler and the article store.
type Deps struct {
	Scheduler SchedulerControl
	Articles  ArticleReader
	// Provider is the active translation backend name, "none" when inactive.
	Provider string
	Logger   *slog.Logger
}

// Handler serves the status and control API.
type Handler struct {
	scheduler SchedulerControl
	articles  ArticleReader
	provider  string
	logger    *slog.Logger
}

// NewRouter builds the chi router with all API routes mounted.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		scheduler: deps.Scheduler,
		articles:  deps.Articles,
		provider:  deps.Provider,
		logger:    logger,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", h.Health)
	mux.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/scheduler/start", h.StartScheduler)
		r.Post("/scheduler/stop", h.StopScheduler)
		r.Post("/run", h.Run)
		r.Get("/articles", h.ListArticles)
		r.Delete("/articles", h.DeleteArticles)
	})
	return mux
}

// NewServer wraps the router in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := toStatusResponse(h.scheduler.Status(), h.provider)
	if h.articles != nil {
		n, err := h.articles.Count(r.Context())
		if err != nil {
			h.logger.Warn("count articles", "error", err, "request_id", middleware.GetReqID(r.Context()))
		} else {
			resp.ArticleCount = &n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	started := h.scheduler.Start(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"started":    started,
		"is_running": h.scheduler.Status().IsRunning,
	})
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	stopped := h.scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]any{
		"stopped":    stopped,
		"is_running": h.scheduler.Status().IsRunning,
	})
}

// Run starts a manual run in the background.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	err := h.scheduler.Trigger(r.Context())
	switch {
	case errors.Is(err, domain.ErrBusy):
		writeError(w, http.StatusConflict, "a run is already in progress")
	case errors.Is(err, domain.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case err != nil:
		h.logger.Error("trigger run", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start run")
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	limit := defaultArticleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxArticleLimit)
	}
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	fetch := limit
	if q != "" {
		fetch = maxArticleLimit
	}
	items, err := h.articles.ListRecent(r.Context(), fetch)
	if err != nil {
		h.logger.Error("list articles", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list articles")
		return
	}

	out := make([]articleResponse, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if q != "" && !matchesTitle(item, q) {
			continue
		}
		out = append(out, toArticleResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": out, "count": len(out)})
}

func (h *Handler) DeleteArticles(w http.ResponseWriter, r *http.Request) {
	n, err := h.articles.DeleteAll(r.Context())
	if err != nil {
		h.logger.Error("delete articles", "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete articles")
		return
	}
	h.logger.Info("article store reset", "deleted", n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func matchesTitle(item domain.ArticleItem, q string) bool {
	return strings.Contains(strings.ToLower(item.TitleOriginal), q) ||
		strings.Contains(strings.ToLower(item.DisplayTitle()), q)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
