package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsTranslator/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cloudConfig(apiKey string) config.LLMConfig {
	return config.LLMConfig{
		API:          "openai",
		Endpoint:     "http://127.0.0.1:1/v1",
		Model:        "mistralai/Mistral-7B-Instruct-v0.2",
		APIKey:       apiKey,
		ContextLimit: 32768,
	}
}

func TestBuildTranslationServiceSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		provider string
		cloudKey string
		deeplKey string
		want     string
	}{
		{"cloud without api key falls back to none", "cloud-llm", "", "", "none"},
		{"cloud with api key", "cloud-llm", "together-key", "", "together"},
		{"mt without api key falls back to none", "traditional-mt", "together-key", "", "none"},
		{"mt with api key", "deepl", "", "deepl-key", "deepl"},
		{"local without local compute uses cloud", "local-model", "together-key", "", "together"},
		{"local without anything configured", "local-model", "", "", "none"},
		{"provider none", "none", "together-key", "deepl-key", "none"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := &Application{
				logger: discardLogger(),
				cfg: config.Config{
					Translation: config.TranslationConfig{
						Provider:     tc.provider,
						LocalCompute: "false",
						CallTimeout:  time.Second,
						Cloud:        cloudConfig(tc.cloudKey),
						DeepL: config.DeepLConfig{
							Endpoint:   "http://127.0.0.1:1/v2/translate",
							APIKey:     tc.deeplKey,
							SourceLang: "DA",
						},
					},
				},
			}

			svc, err := a.buildTranslationService(context.Background())
			if err != nil {
				t.Fatalf("buildTranslationService: %v", err)
			}
			if got := svc.ProviderName(); got != tc.want {
				t.Fatalf("provider = %q, want %q", got, tc.want)
			}
			if svc.Active() != (tc.want != "none") {
				t.Fatalf("Active() = %v for provider %q", svc.Active(), tc.want)
			}
		})
	}
}

func TestBuildTranslationServiceRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	a := &Application{
		logger: discardLogger(),
		cfg:    config.Config{Translation: config.TranslationConfig{Provider: "babelfish"}},
	}
	if _, err := a.buildTranslationService(context.Background()); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewWithoutCredentialsServesStatus(t *testing.T) {
	t.Parallel()

	autoStart := false
	cfg := config.Config{
		HTTP:     config.HTTPConfig{Addr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Scheduler: config.SchedulerConfig{
			TriggerHours:    []int{6, 8, 10, 12},
			AutoStart:       &autoStart,
			Retention:       7 * 24 * time.Hour,
			ShutdownTimeout: time.Second,
		},
		Feeds: config.FeedsConfig{Timeout: time.Second},
		Translation: config.TranslationConfig{
			Provider:     "cloud-llm",
			LocalCompute: "false",
			Cloud:        cloudConfig(""),
		},
		Sites: []config.SiteConfig{{
			Name:       "borsen",
			Scanner:    "rss",
			Categories: []config.CategoryConfig{{Name: "forside", URL: "http://127.0.0.1:1/rss"}},
		}},
	}

	a, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.close() })

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["provider"] != "none" {
		t.Fatalf("status should report provider none, got %v", body["provider"])
	}
	if body["is_running"] != false {
		t.Fatalf("scheduler must not run before Run, got %v", body["is_running"])
	}
}
