package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// ChatTranslator translates through an OpenAI-compatible chat completion API
// such as Together AI or a local Ollama server.
type ChatTranslator struct {
	name         string
	kind         domain.ProviderKind
	client       *openai.Client
	model        openai.ChatModel
	stop         []string
	contextLimit int
}

var _ ports.Translator = (*ChatTranslator)(nil)

// NewChatTranslator builds a translator from configuration. SDK retries are
// disabled; the translation service owns the retry policy.
func NewChatTranslator(name string, kind domain.ProviderKind, cfg config.LLMConfig, httpClient *http.Client) (*ChatTranslator, error) {
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
	client := openai.NewClient(opts...)

	return &ChatTranslator{
		name:         name,
		kind:         kind,
		client:       &client,
		model:        openai.ChatModel(cfg.Model),
		stop:         cfg.Stop,
		contextLimit: cfg.ContextLimit,
	}, nil
}

func (c *ChatTranslator) Name() string              { return c.name }
func (c *ChatTranslator) Kind() domain.ProviderKind { return c.kind }
func (c *ChatTranslator) Model() string             { return string(c.model) }
func (c *ChatTranslator) ContextLimit() int         { return c.contextLimit }

// Translate sends the rendered prompt as a single user message at
// temperature zero and returns the first choice verbatim.
func (c *ChatTranslator) Translate(ctx context.Context, req domain.TranslationRequest) (string, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = req.Text
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(req.MaxOutputTokens)),
		Temperature: openai.Float(0),
	}
	if len(c.stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: c.stop}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", domain.ClassifyCallError(c.name, apiErr.StatusCode, err)
		}
		return "", domain.ClassifyCallError(c.name, 0, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", c.name, domain.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
