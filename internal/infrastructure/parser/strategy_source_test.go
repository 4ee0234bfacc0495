package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/scanner"
)

type stubScanner struct {
	name  string
	items map[string][]domain.RawItem
	errs  map[string]error
	seen  []scanner.Request
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.RawItem, error) {
	s.seen = append(s.seen, req)
	if err := s.errs[req.SiteName]; err != nil {
		return nil, err
	}
	return s.items[req.SiteName], nil
}

type stubScraper struct {
	bodies map[string]string
}

func (s stubScraper) Scrape(_ context.Context, link string) (string, error) {
	if body, ok := s.bodies[link]; ok {
		return body, nil
	}
	return "", errors.New("no content")
}

func TestStrategySourceFetchLatest(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	stub := &stubScanner{
		name: "rss",
		items: map[string][]domain.RawItem{
			"borsen": {
				{ID: "1", Title: "En", Body: "resume", Link: "https://borsen.dk/1"},
				{ID: "2", Title: "To", Body: "resume", Link: "https://borsen.dk/2"},
			},
			"finans": {
				{ID: "2", Title: "To igen", Link: "https://finans.dk/2"},
				{ID: "3", Title: "Tre", Link: "https://finans.dk/3", Feed: "finans/marked"},
			},
		},
	}
	reg := scanner.NewRegistry()
	reg.Register(stub)
	scrape := true

	src := NewStrategySource(SourceDeps{
		Registry: reg,
		Sites: []config.SiteConfig{
			{Name: "borsen", Scanner: "rss", Categories: []config.CategoryConfig{{Name: "finans", URL: "https://borsen.dk/rss/finans"}}},
			{Name: "finans", Scanner: "rss"},
		},
		Feeds:   config.FeedsConfig{MaxAge: 24 * time.Hour, MaxItemsPerFeed: 5, Scrape: &scrape},
		Scraper: stubScraper{bodies: map[string]string{"https://borsen.dk/1": "fuld tekst"}},
		Now:     func() time.Time { return now },
	})

	items, err := src.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "2" || items[2].ID != "3" {
		t.Fatalf("unexpected order %+v", items)
	}
	if items[1].Title != "To" {
		t.Fatalf("duplicate should keep first occurrence, got %q", items[1].Title)
	}
	if items[0].Body != "fuld tekst" || items[1].Body != "resume" {
		t.Fatalf("unexpected bodies %q %q", items[0].Body, items[1].Body)
	}
	if items[0].Feed != "borsen" || items[2].Feed != "finans/marked" {
		t.Fatalf("unexpected feeds %q %q", items[0].Feed, items[2].Feed)
	}

	req := stub.seen[0]
	if !req.Since.Equal(now.Add(-24*time.Hour)) || req.MaxItems != 5 || len(req.Categories) != 1 {
		t.Fatalf("unexpected scan request %+v", req)
	}
}

func TestStrategySourceFailures(t *testing.T) {
	t.Parallel()

	stub := &stubScanner{
		name:  "rss",
		items: map[string][]domain.RawItem{"ok": {{ID: "1"}}},
		errs:  map[string]error{"down": errors.New("timeout"), "ok": nil},
	}
	reg := scanner.NewRegistry()
	reg.Register(stub)

	partial := NewStrategySource(SourceDeps{
		Registry: reg,
		Sites:    []config.SiteConfig{{Name: "down", Scanner: "rss"}, {Name: "ok", Scanner: "rss"}},
	})
	items, err := partial.FetchLatest(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one item from the healthy site, got %v, %v", items, err)
	}

	allDown := NewStrategySource(SourceDeps{
		Registry: reg,
		Sites:    []config.SiteConfig{{Name: "down", Scanner: "rss"}},
	})
	if _, err := allDown.FetchLatest(context.Background()); err == nil {
		t.Fatalf("expected error when every site fails")
	}

	unknown := NewStrategySource(SourceDeps{
		Registry: reg,
		Sites:    []config.SiteConfig{{Name: "x", Scanner: "sitemap"}},
	})
	if _, err := unknown.FetchLatest(context.Background()); err == nil {
		t.Fatalf("expected error for unregistered scanner")
	}
}
