package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// RetryPolicy bounds provider calls.
type RetryPolicy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	CallTimeout    time.Duration
}

// DefaultRetryPolicy allows two extra attempts for transient failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		CallTimeout:    30 * time.Second,
	}
}

// TranslationDeps wires the active provider and optional cache.
type TranslationDeps struct {
	Translator ports.Translator
	Cache      ports.TranslationCache
	Policy     RetryPolicy
	Logger     *slog.Logger
}

// TranslationService translates item fields through the single active provider.
type TranslationService struct {
	translator ports.Translator
	cache      ports.TranslationCache
	policy     RetryPolicy
	logger     *slog.Logger
}

// NewTranslationService builds the service; a nil translator means pass-through.
func NewTranslationService(deps TranslationDeps) *TranslationService {
	policy := deps.Policy
	if policy.CallTimeout <= 0 {
		policy.CallTimeout = DefaultRetryPolicy().CallTimeout
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = DefaultRetryPolicy().InitialBackoff
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TranslationService{
		translator: deps.Translator,
		cache:      deps.Cache,
		policy:     policy,
		logger:     logger,
	}
}

// Active reports whether a provider is configured.
func (s *TranslationService) Active() bool {
	return s != nil && s.translator != nil
}

// ProviderName names the active provider, or "none".
func (s *TranslationService) ProviderName() string {
	if !s.Active() {
		return string(domain.ProviderNone)
	}
	return s.translator.Name()
}

// Translate fills the translated fields of item. Title and body are translated
// concurrently and independently; originals are never modified.
func (s *TranslationService) Translate(ctx context.Context, item domain.ArticleItem) domain.ArticleItem {
	if !s.Active() {
		item.Resolve()
		return item
	}

	var (
		wg          sync.WaitGroup
		title, body fieldResult
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		title = s.translateField(ctx, item.ID, domain.KindTitle, item.TitleOriginal)
	}()
	go func() {
		defer wg.Done()
		body = s.translateField(ctx, item.ID, domain.KindBody, item.BodyOriginal)
	}()
	wg.Wait()

	item.TitleStatus = title.status
	item.BodyStatus = body.status
	if title.status == domain.TranslationSuccess {
		text := cleanTitle(item.TitleOriginal, title.text)
		item.TitleTranslated = &text
	}
	if body.status == domain.TranslationSuccess {
		text := body.text
		item.BodyTranslated = &text
	}
	if title.status != domain.TranslationNotAttempted || body.status != domain.TranslationNotAttempted {
		item.Provider = s.translator.Name()
	}
	item.Resolve()
	return item
}

type fieldResult struct {
	text   string
	status domain.TranslationStatus
}

func (s *TranslationService) translateField(ctx context.Context, itemID string, kind domain.Kind, text string) fieldResult {
	if strings.TrimSpace(text) == "" {
		return fieldResult{status: domain.TranslationNotAttempted}
	}

	out, err := s.TranslateText(ctx, kind, text)
	if err != nil {
		s.logger.Warn("translation failed",
			"item_id", itemID,
			"kind", kind,
			"provider", s.translator.Name(),
			"transient", domain.IsTransient(err),
			"error", err)
		return fieldResult{status: domain.TranslationFailed}
	}
	return fieldResult{text: out, status: domain.TranslationSuccess}
}

// TranslateText runs one text through the size policy, cache and retry loop.
func (s *TranslationService) TranslateText(ctx context.Context, kind domain.Kind, text string) (string, error) {
	if !s.Active() {
		return "", fmt.Errorf("no translation provider configured")
	}

	req := buildRequest(s.translator.Kind(), kind, text)
	if limit := s.translator.ContextLimit(); limit > 0 {
		if need := req.EstimatedTokens() + req.MaxOutputTokens; need > limit {
			return "", fmt.Errorf("%w: need %d tokens, limit %d", domain.ErrInputTooLarge, need, limit)
		}
	}

	key := s.cacheKey(kind, text)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("translation cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	out, err := s.callWithRetry(ctx, req)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out); err != nil {
			s.logger.Debug("translation cache write failed", "error", err)
		}
	}
	return out, nil
}

func (s *TranslationService) callWithRetry(ctx context.Context, req domain.TranslationRequest) (string, error) {
	var (
		out      string
		attempts int
	)

	operation := func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, s.policy.CallTimeout)
		defer cancel()

		text, err := s.translator.Translate(callCtx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
			}
			if !domain.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return backoff.Permanent(domain.ErrEmptyResponse)
		}
		out = text
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Debug("retrying translation",
			"kind", req.Kind,
			"attempt", attempts,
			"wait", wait,
			"error", err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(s.newBackOff(), ctx), notify)
	if err != nil {
		if domain.IsTransient(err) {
			return "", fmt.Errorf("%s gave up after %d attempts: %w", s.translator.Name(), attempts, err)
		}
		return "", fmt.Errorf("%s: %w", s.translator.Name(), err)
	}
	return out, nil
}

func (s *TranslationService) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.policy.InitialBackoff
	exp.MaxInterval = s.policy.MaxBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, s.policy.MaxRetries)
}

func (s *TranslationService) cacheKey(kind domain.Kind, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("translation:%s:%s:%s:%s", s.translator.Name(), s.translator.Model(), kind, hex.EncodeToString(sum[:]))
}
