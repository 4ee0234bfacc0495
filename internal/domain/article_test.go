package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCombineStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title, body TranslationStatus
		want        TranslationStatus
	}{
		{TranslationNotAttempted, TranslationNotAttempted, TranslationNotAttempted},
		{TranslationSuccess, TranslationNotAttempted, TranslationSuccess},
		{TranslationSuccess, TranslationSuccess, TranslationSuccess},
		{TranslationSuccess, TranslationFailed, TranslationFailed},
		{TranslationFailed, TranslationNotAttempted, TranslationFailed},
	}

	for _, tc := range cases {
		if got := CombineStatus(tc.title, tc.body); got != tc.want {
			t.Errorf("CombineStatus(%s, %s) = %s, want %s", tc.title, tc.body, got, tc.want)
		}
	}
}

func TestDisplayFallsBackToOriginal(t *testing.T) {
	t.Parallel()

	item := NewArticleItem(RawItem{ID: "a", Title: "Rentestigning", Body: "Nationalbanken hæver renten."}, time.Time{})
	if item.DisplayTitle() != "Rentestigning" {
		t.Fatalf("unexpected title: %s", item.DisplayTitle())
	}

	translated := "Rate hike"
	item.TitleTranslated = &translated
	if item.DisplayTitle() != "Rate hike" {
		t.Fatalf("unexpected title: %s", item.DisplayTitle())
	}
	if item.DisplayBody() != "Nationalbanken hæver renten." {
		t.Fatalf("body should fall back to original, got %s", item.DisplayBody())
	}
}

func TestGenerateIDIsStable(t *testing.T) {
	t.Parallel()

	a := GenerateID("https://borsen.dk/nyheder/1")
	b := GenerateID("https://borsen.dk/nyheder/1")
	c := GenerateID("https://borsen.dk/nyheder/2")
	if a != b {
		t.Fatalf("ids differ for same url: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("ids collide for different urls")
	}
	if len(a) != 16 {
		t.Fatalf("unexpected id length %d", len(a))
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	transient := []error{
		ErrRateLimited,
		ErrTimeout,
		fmt.Errorf("together: %w", ErrUnavailable),
		context.DeadlineExceeded,
	}
	for _, err := range transient {
		if !IsTransient(err) {
			t.Errorf("expected %v to be transient", err)
		}
	}

	permanent := []error{
		nil,
		ErrUnauthorized,
		fmt.Errorf("deepl: %w", ErrBadRequest),
		ErrInputTooLarge,
		ErrEmptyResponse,
		errors.New("boom"),
	}
	for _, err := range permanent {
		if IsTransient(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}
}

func TestParseProviderKind(t *testing.T) {
	t.Parallel()

	cases := map[string]ProviderKind{
		"":               ProviderNone,
		"none":           ProviderNone,
		"togetherai":     ProviderCloudLLM,
		"Cloud-LLM":      ProviderCloudLLM,
		"deepl":          ProviderTraditionalMT,
		"traditional-mt": ProviderTraditionalMT,
		"mistral7b":      ProviderLocalModel,
		"local-model":    ProviderLocalModel,
	}
	for in, want := range cases {
		got, err := ParseProviderKind(in)
		if err != nil {
			t.Fatalf("ParseProviderKind(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseProviderKind(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseProviderKind("babelfish"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestEstimatedTokensPrefersPrompt(t *testing.T) {
	t.Parallel()

	req := TranslationRequest{Text: "abcd", Prompt: "abcdefgh"}
	if got := req.EstimatedTokens(); got != 2 {
		t.Fatalf("expected 2 tokens, got %d", got)
	}
	req.Prompt = ""
	if got := req.EstimatedTokens(); got != 1 {
		t.Fatalf("expected 1 token, got %d", got)
	}
}

func TestClassifyCallError(t *testing.T) {
	t.Parallel()

	if err := ClassifyCallError("p", 429, errors.New("slow down")); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("429 should map to rate limited, got %v", err)
	}
	if err := ClassifyCallError("p", 403, errors.New("forbidden")); !errors.Is(err, ErrUnauthorized) || IsTransient(err) {
		t.Fatalf("403 should map to a permanent unauthorized error, got %v", err)
	}
	if err := ClassifyCallError("p", 0, context.DeadlineExceeded); !errors.Is(err, ErrTimeout) {
		t.Fatalf("deadline should map to timeout, got %v", err)
	}
	if err := ClassifyCallError("p", 0, errors.New("connection refused")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("transport failure should map to unavailable, got %v", err)
	}
	if err := ClassifyCallError("p", 0, context.Canceled); IsTransient(err) {
		t.Fatalf("cancellation must not be retried")
	}
}
