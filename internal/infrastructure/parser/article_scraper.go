package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	minTextLength        = 30
	minContentParagraphs = 2
	minParagraphLength   = 50
	maxPageBytes         = 5 << 20
)

var (
	articleSelectors = []string{
		"article",
		".article-content",
		".content",
		".post-content",
		".entry-content",
		".article-body",
		".story-content",
		"main",
		".main-content",
	}

	unwantedTags = "script, style, nav, footer, header, aside"

	unwantedKeywords = []string{
		"advertisement", "cookie", "gdpr", "subscribe", "reklame",
		"pro indhold", "læs mere og bli", "nyhedsbreve", "menu",
	}

	browserHeaders = map[string]string{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
)

// ArticleScraper downloads an article page and extracts its body text.
type ArticleScraper struct {
	client *http.Client
}

// NewArticleScraper wires an HTTP client with a 10s default timeout.
func NewArticleScraper(client *http.Client) *ArticleScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ArticleScraper{client: client}
}

// Scrape returns the article text of pageURL. Paragraph extraction runs
// first; readability is used when it finds nothing.
func (s *ArticleScraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid article url %s: %w", pageURL, err)
	}

	raw, err := s.download(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	if text := extractArticleText(doc); text != "" {
		return text, nil
	}

	article, err := readability.FromReader(bytes.NewReader(raw), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("could not find article content at %s", pageURL)
	}
	return text, nil
}

func (s *ArticleScraper) download(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("article page returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return raw, nil
}

func extractArticleText(doc *goquery.Document) string {
	doc.Find(unwantedTags).Remove()

	container := findArticleContainer(doc)
	if container.Length() == 0 {
		return ""
	}

	var parts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) > minTextLength && !hasUnwantedKeyword(text) {
			parts = append(parts, text)
		}
	})

	if len(parts) < minContentParagraphs {
		parts = parts[:0]
		for _, line := range strings.Split(container.Text(), "\n") {
			line = strings.TrimSpace(line)
			if len(line) > minParagraphLength && !hasUnwantedKeyword(line) {
				parts = append(parts, line)
			}
		}
	}

	return strings.Join(strings.Fields(strings.Join(parts, "\n\n")), " ")
}

func findArticleContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range articleSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find("body").First()
}

func hasUnwantedKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range unwantedKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
