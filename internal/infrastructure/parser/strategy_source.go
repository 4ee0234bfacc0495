package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
	"NewsTranslator/internal/scanner"
)

// BodyScraper replaces a feed summary with the full article text.
type BodyScraper interface {
	Scrape(ctx context.Context, pageURL string) (string, error)
}

// SourceDeps wires StrategySource collaborators.
type SourceDeps struct {
	Registry *scanner.Registry
	Sites    []config.SiteConfig
	Feeds    config.FeedsConfig
	// Scraper is optional; nil keeps feed summaries as bodies.
	Scraper BodyScraper
	Logger  *slog.Logger
	Now     func() time.Time
}

// StrategySource implements FeedSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	feeds    config.FeedsConfig
	scraper  BodyScraper
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.FeedSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(deps SourceDeps) *StrategySource {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &StrategySource{
		registry: deps.Registry,
		sites:    deps.Sites,
		feeds:    deps.Feeds,
		scraper:  deps.Scraper,
		logger:   deps.Logger,
		now:      now,
	}
}

// FetchLatest iterates over configured sites and returns entries newer than
// the configured max age, deduplicated by id in fetch order. A failing site
// is skipped; the fetch fails only when every site fails.
func (s *StrategySource) FetchLatest(ctx context.Context) ([]domain.RawItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}

	var since time.Time
	if s.feeds.MaxAge > 0 {
		since = s.now().Add(-s.feeds.MaxAge)
	}
	s.debug("fetch latest", "sites", len(s.sites), "since", since)

	var (
		aggregated []domain.RawItem
		seen       = map[string]struct{}{}
		errs       []error
	)
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Since:      since,
			SiteName:   site.Name,
			Options:    site.Options,
			Categories: toScannerCategories(site.Categories),
			MaxItems:   s.feeds.MaxItemsPerFeed,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("scan site %s: %w", site.Name, err))
			s.warn("site scan failed", "site", site.Name, "error", err)
			continue
		}

		for _, item := range results {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			if item.Feed == "" {
				item.Feed = site.Name
			}
			aggregated = append(aggregated, item)
		}
		s.debug("site produced items", "site", site.Name, "count", len(results))
	}

	if len(errs) == len(s.sites) {
		return nil, errors.Join(errs...)
	}

	if s.feeds.ScrapeEnabled() && s.scraper != nil {
		s.enrich(ctx, aggregated)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

// enrich swaps summaries for scraped bodies; failures keep the summary.
func (s *StrategySource) enrich(ctx context.Context, items []domain.RawItem) {
	for i := range items {
		if ctx.Err() != nil {
			return
		}
		if items[i].Link == "" {
			continue
		}
		body, err := s.scraper.Scrape(ctx, items[i].Link)
		if err != nil {
			s.debug("scrape failed, keeping summary", "link", items[i].Link, "error", err)
			continue
		}
		items[i].Body = body
	}
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
