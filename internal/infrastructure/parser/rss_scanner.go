package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/scanner"
)

// RSSScanner reads RSS/Atom category feeds and keeps entries newer than the
// request cutoff.
type RSSScanner struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewRSSScanner wires an HTTP client; the user agent defaults to NewsTranslator/1.0.
func NewRSSScanner(client *http.Client, userAgent string, log *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = "NewsTranslator/1.0"
	}
	return &RSSScanner{client: client, userAgent: userAgent, logger: log}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches every category feed. A failing feed is logged and skipped;
// the scan fails only when no feed could be read.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	results := make([]domain.RawItem, 0)
	seen := map[string]struct{}{}
	var errs []error

	for _, cat := range req.Categories {
		items, err := r.fetchFeed(ctx, cat.URL, feedName(req.SiteName, cat.Name), req.Since, req.MaxItems)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("category %s: %w", cat.Name, err))
			if r.logger != nil {
				r.logger.Warn("feed fetch failed", "site", req.SiteName, "category", cat.Name, "url", cat.URL, "error", err)
			}
			continue
		}

		for _, item := range items {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			results = append(results, item)
		}
	}

	if len(errs) == len(req.Categories) {
		return nil, fmt.Errorf("all feeds of site %s failed: %w", req.SiteName, errors.Join(errs...))
	}
	return results, nil
}

func (r *RSSScanner) fetchFeed(ctx context.Context, feedURL, name string, since time.Time, maxItems int) ([]domain.RawItem, error) {
	fp := gofeed.NewParser()
	fp.Client = r.client
	fp.UserAgent = r.userAgent

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
		item, ok := toRawItem(entry, name)
		if !ok {
			continue
		}
		if !since.IsZero() && item.PublishedAt.Before(since) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// toRawItem drops entries without a usable date or identity.
func toRawItem(entry *gofeed.Item, feed string) (domain.RawItem, bool) {
	var publishedAt time.Time
	if entry.PublishedParsed != nil {
		publishedAt = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		publishedAt = *entry.UpdatedParsed
	}
	if publishedAt.IsZero() {
		return domain.RawItem{}, false
	}

	link := strings.TrimSpace(entry.Link)
	id := strings.TrimSpace(entry.GUID)
	if id == "" {
		if link == "" {
			return domain.RawItem{}, false
		}
		id = domain.GenerateID(link)
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}

	return domain.RawItem{
		ID:          id,
		Title:       strings.TrimSpace(entry.Title),
		Body:        htmlToText(summary),
		Link:        link,
		Feed:        feed,
		PublishedAt: publishedAt.UTC(),
	}, true
}

// htmlToText flattens an HTML fragment to whitespace-normalised text.
func htmlToText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func feedName(site, category string) string {
	if category == "" {
		return site
	}
	return fmt.Sprintf("%s/%s", site, category)
}
