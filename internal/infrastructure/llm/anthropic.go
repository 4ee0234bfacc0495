package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// AnthropicTranslator translates through the Anthropic Messages API.
type AnthropicTranslator struct {
	name         string
	client       *anthropic.Client
	model        anthropic.Model
	stop         []string
	contextLimit int
}

var _ ports.Translator = (*AnthropicTranslator)(nil)

// NewAnthropicTranslator builds a cloud translator from configuration.
func NewAnthropicTranslator(name string, cfg config.LLMConfig, httpClient *http.Client) (*AnthropicTranslator, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%s translator misconfigured", name)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")+"/"))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicTranslator{
		name:         name,
		client:       &client,
		model:        anthropic.Model(cfg.Model),
		stop:         cfg.Stop,
		contextLimit: cfg.ContextLimit,
	}, nil
}

func (a *AnthropicTranslator) Name() string              { return a.name }
func (a *AnthropicTranslator) Kind() domain.ProviderKind { return domain.ProviderCloudLLM }
func (a *AnthropicTranslator) Model() string             { return string(a.model) }
func (a *AnthropicTranslator) ContextLimit() int         { return a.contextLimit }

// Translate sends the prompt at temperature zero and joins the text blocks.
func (a *AnthropicTranslator) Translate(ctx context.Context, req domain.TranslationRequest) (string, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = req.Text
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:         a.model,
		MaxTokens:     int64(req.MaxOutputTokens),
		Temperature:   anthropic.Float(0),
		StopSequences: a.stop,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", domain.ClassifyCallError(a.name, apiErr.StatusCode, err)
		}
		return "", domain.ClassifyCallError(a.name, 0, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%s: %w", a.name, domain.ErrEmptyResponse)
	}
	return b.String(), nil
}
