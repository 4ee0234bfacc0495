package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawItem is one feed entry as delivered by a feed source.
type RawItem struct {
	ID          string
	Title       string
	Body        string
	Link        string
	Feed        string
	PublishedAt time.Time
}

// TranslationStatus tracks the outcome of translating a field or an item.
type TranslationStatus string

const (
	TranslationNotAttempted TranslationStatus = "not_attempted"
	TranslationSuccess      TranslationStatus = "success"
	TranslationFailed       TranslationStatus = "failed"
)

// ArticleItem is a feed entry enriched with translations. Original text is
// never overwritten; translated fields are nil unless that field succeeded.
type ArticleItem struct {
	ID                string
	Link              string
	Feed              string
	PublishedAt       time.Time
	FetchedAt         time.Time
	TitleOriginal     string
	BodyOriginal      string
	TitleTranslated   *string
	BodyTranslated    *string
	TitleStatus       TranslationStatus
	BodyStatus        TranslationStatus
	TranslationStatus TranslationStatus
	Provider          string
}

// NewArticleItem builds an untranslated item from a raw feed entry.
func NewArticleItem(raw RawItem, fetchedAt time.Time) ArticleItem {
	return ArticleItem{
		ID:                raw.ID,
		Link:              raw.Link,
		Feed:              raw.Feed,
		PublishedAt:       raw.PublishedAt,
		FetchedAt:         fetchedAt,
		TitleOriginal:     raw.Title,
		BodyOriginal:      raw.Body,
		TitleStatus:       TranslationNotAttempted,
		BodyStatus:        TranslationNotAttempted,
		TranslationStatus: TranslationNotAttempted,
	}
}

// DisplayTitle returns the translated title when present, else the original.
func (a ArticleItem) DisplayTitle() string {
	if a.TitleTranslated != nil {
		return *a.TitleTranslated
	}
	return a.TitleOriginal
}

// DisplayBody returns the translated body when present, else the original.
func (a ArticleItem) DisplayBody() string {
	if a.BodyTranslated != nil {
		return *a.BodyTranslated
	}
	return a.BodyOriginal
}

// Resolve derives the item-level status from the two field statuses.
func (a *ArticleItem) Resolve() {
	a.TranslationStatus = CombineStatus(a.TitleStatus, a.BodyStatus)
}

// CombineStatus folds field statuses: any failure wins, then any success.
func CombineStatus(fields ...TranslationStatus) TranslationStatus {
	result := TranslationNotAttempted
	for _, s := range fields {
		switch s {
		case TranslationFailed:
			return TranslationFailed
		case TranslationSuccess:
			result = TranslationSuccess
		}
	}
	return result
}

// GenerateID creates a stable identifier from a URL.
func GenerateID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
