package mt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// statusQuotaExceeded is DeepL's non-standard "quota exceeded" status.
const statusQuotaExceeded = 456

// DeepLClient talks to the DeepL v2 translate API.
type DeepLClient struct {
	endpoint     string
	apiKey       string
	sourceLang   string
	targetLang   string
	contextLimit int
	http         *http.Client
}

var _ ports.Translator = (*DeepLClient)(nil)

// NewDeepLClient creates a reusable HTTP client.
func NewDeepLClient(cfg config.DeepLConfig, httpClient *http.Client) (*DeepLClient, error) {
	if cfg.APIKey == "" || cfg.Endpoint == "" {
		return nil, fmt.Errorf("deepl client misconfigured")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	target := cfg.TargetLang
	if target == "" {
		target = "EN"
	}
	return &DeepLClient{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		sourceLang:   cfg.SourceLang,
		targetLang:   target,
		contextLimit: cfg.ContextLimit,
		http:         httpClient,
	}, nil
}

func (c *DeepLClient) Name() string              { return "deepl" }
func (c *DeepLClient) Kind() domain.ProviderKind { return domain.ProviderTraditionalMT }
func (c *DeepLClient) Model() string             { return c.sourceLang + "-" + c.targetLang }
func (c *DeepLClient) ContextLimit() int         { return c.contextLimit }

// Translate sends the raw text; DeepL is deterministic and takes no prompt.
func (c *DeepLClient) Translate(ctx context.Context, req domain.TranslationRequest) (string, error) {
	payload := map[string]any{
		"text":        []string{req.Text},
		"target_lang": c.targetLang,
	}
	if c.sourceLang != "" {
		payload["source_lang"] = c.sourceLang
	}

	var resp struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := c.post(ctx, payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Translations) == 0 {
		return "", fmt.Errorf("deepl: %w", domain.ErrEmptyResponse)
	}
	return resp.Translations[0].Text, nil
}

func (c *DeepLClient) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ClassifyCallError("deepl", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		if resp.StatusCode == statusQuotaExceeded {
			return fmt.Errorf("deepl: quota exceeded: %w: %v", domain.ErrBadRequest, statusErr)
		}
		return domain.ClassifyCallError("deepl", resp.StatusCode, statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("deepl: decode response: %w", err)
	}
	return nil
}
