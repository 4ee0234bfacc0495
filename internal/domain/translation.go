package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind selects the prompt template and the output budget.
type Kind string

const (
	KindTitle Kind = "title"
	KindBody  Kind = "body"
)

// Output token caps per kind.
const (
	TitleMaxOutputTokens = 50
	BodyMaxOutputTokens  = 8400
)

// MaxOutputTokens returns the fixed output budget for a kind.
func MaxOutputTokens(kind Kind) int {
	if kind == KindTitle {
		return TitleMaxOutputTokens
	}
	return BodyMaxOutputTokens
}

// TranslationRequest is one provider call. Prompt is the rendered template for
// LLM providers; machine translation providers use Text directly.
type TranslationRequest struct {
	Text            string
	Kind            Kind
	Prompt          string
	MaxOutputTokens int
}

// EstimatedTokens approximates the input size at four characters per token.
func (r TranslationRequest) EstimatedTokens() int {
	input := r.Prompt
	if input == "" {
		input = r.Text
	}
	return (utf8.RuneCountInString(input) + 3) / 4
}

// ProviderKind is the closed set of translation backends.
type ProviderKind string

const (
	ProviderNone          ProviderKind = "none"
	ProviderCloudLLM      ProviderKind = "cloud-llm"
	ProviderTraditionalMT ProviderKind = "traditional-mt"
	ProviderLocalModel    ProviderKind = "local-model"
)

// ParseProviderKind maps configuration values, including legacy names, onto a kind.
func ParseProviderKind(value string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "off":
		return ProviderNone, nil
	case "cloud-llm", "cloud", "togetherai", "together", "openai", "anthropic":
		return ProviderCloudLLM, nil
	case "traditional-mt", "mt", "deepl":
		return ProviderTraditionalMT, nil
	case "local-model", "local", "ollama", "mistral7b":
		return ProviderLocalModel, nil
	default:
		return ProviderNone, fmt.Errorf("unknown translation provider %q", value)
	}
}

// ExecutionContext describes the host the process runs on.
type ExecutionContext struct {
	HasLocalCompute bool
}
