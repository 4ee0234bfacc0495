package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"NewsTranslator/internal/config"
	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes one JSON object per stored item, keyed by publication day.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
}

var _ ports.Archiver = (*S3Archiver)(nil)

// NewS3Archiver loads the default AWS credential chain for the configured region.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newS3Archiver(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3Archiver(client putObjectAPI, bucket, prefix string) *S3Archiver {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

type archivedItem struct {
	ID                string    `json:"id"`
	Link              string    `json:"link"`
	Feed              string    `json:"feed"`
	PublishedAt       time.Time `json:"published_at"`
	FetchedAt         time.Time `json:"fetched_at"`
	TitleOriginal     string    `json:"title_original"`
	BodyOriginal      string    `json:"body_original"`
	TitleTranslated   *string   `json:"title_translated"`
	BodyTranslated    *string   `json:"body_translated"`
	TranslationStatus string    `json:"translation_status"`
	Provider          string    `json:"provider,omitempty"`
}

// Archive uploads the item; re-archiving overwrites the same key.
func (a *S3Archiver) Archive(ctx context.Context, item domain.ArticleItem) error {
	payload, err := json.Marshal(archivedItem{
		ID:                item.ID,
		Link:              item.Link,
		Feed:              item.Feed,
		PublishedAt:       item.PublishedAt,
		FetchedAt:         item.FetchedAt,
		TitleOriginal:     item.TitleOriginal,
		BodyOriginal:      item.BodyOriginal,
		TitleTranslated:   item.TitleTranslated,
		BodyTranslated:    item.BodyTranslated,
		TranslationStatus: string(item.TranslationStatus),
		Provider:          item.Provider,
	})
	if err != nil {
		return fmt.Errorf("marshal item %s: %w", item.ID, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.objectKey(item)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}
	return nil
}

func (a *S3Archiver) objectKey(item domain.ArticleItem) string {
	day := item.PublishedAt.UTC().Format("2006/01/02")
	return fmt.Sprintf("%s%s/%s.json", a.prefix, day, safeKey(item.ID))
}

// safeKey keeps GUIDs that are URLs from nesting into extra key segments.
func safeKey(id string) string {
	if strings.ContainsAny(id, "/?#: ") {
		return domain.GenerateID(id)
	}
	return id
}
