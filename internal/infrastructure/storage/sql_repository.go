package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	articlesTable = "articles"
	stateTable    = "scheduler_state"

	stateLastRunAt     = "last_run_at"
	stateLastRunStatus = "last_run_status"
	stateRunCount      = "run_count"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id                 TEXT PRIMARY KEY,
		link               TEXT NOT NULL DEFAULT '',
		feed               TEXT NOT NULL DEFAULT '',
		published_at       BIGINT NOT NULL,
		fetched_at         BIGINT NOT NULL,
		title_original     TEXT NOT NULL DEFAULT '',
		body_original      TEXT NOT NULL DEFAULT '',
		title_translated   TEXT,
		body_translated    TEXT,
		title_status       TEXT NOT NULL,
		body_status        TEXT NOT NULL,
		translation_status TEXT NOT NULL,
		provider           TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS articles_published_at_idx ON articles (published_at)`,
	`CREATE TABLE IF NOT EXISTS scheduler_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

var articleColumns = []string{
	"id", "link", "feed", "published_at", "fetched_at",
	"title_original", "body_original", "title_translated", "body_translated",
	"title_status", "body_status", "translation_status", "provider",
}

// SQLRepository persists articles and scheduler state in SQLite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect string
	builder sq.StatementBuilderType
}

var (
	_ ports.ArticleStore = (*SQLRepository)(nil)
	_ ports.StateStore   = (*SQLRepository)(nil)
)

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewSQLRepository wires a sql.DB for the given dialect.
func NewSQLRepository(db *sql.DB, dialect string) (*SQLRepository, error) {
	builder := sq.StatementBuilder
	switch dialect {
	case DriverSQLite:
		builder = builder.PlaceholderFormat(sq.Question)
	case DriverPostgres:
		builder = builder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &SQLRepository{db: db, dialect: dialect, builder: builder.RunWith(db)}, nil
}

// EnsureSchema creates tables that do not exist yet.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces the item by id. A successfully translated row is
// never downgraded by a later untranslated or failed copy.
func (r *SQLRepository) Upsert(ctx context.Context, item domain.ArticleItem) error {
	_, err := r.builder.Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			item.ID,
			item.Link,
			item.Feed,
			toMillis(item.PublishedAt),
			toMillis(item.FetchedAt),
			item.TitleOriginal,
			item.BodyOriginal,
			nullString(item.TitleTranslated),
			nullString(item.BodyTranslated),
			string(item.TitleStatus),
			string(item.BodyStatus),
			string(item.TranslationStatus),
			item.Provider,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			link = excluded.link,
			feed = excluded.feed,
			published_at = excluded.published_at,
			fetched_at = excluded.fetched_at,
			title_original = excluded.title_original,
			body_original = excluded.body_original,
			title_translated = excluded.title_translated,
			body_translated = excluded.body_translated,
			title_status = excluded.title_status,
			body_status = excluded.body_status,
			translation_status = excluded.translation_status,
			provider = excluded.provider
		WHERE articles.translation_status <> 'success' OR excluded.translation_status = 'success'`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", item.ID, err)
	}
	return nil
}

// ListRecent returns up to limit items, newest publication first.
func (r *SQLRepository) ListRecent(ctx context.Context, limit int) ([]domain.ArticleItem, error) {
	query := r.builder.Select(articleColumns...).
		From(articlesTable).
		OrderBy("published_at DESC", "id")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var items []domain.ArticleItem
	for rows.Next() {
		item, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// AlreadyTranslated returns the ids among ids whose stored copy is fully translated.
func (r *SQLRepository) AlreadyTranslated(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}

	var idFilter sq.Sqlizer = sq.Eq{"id": ids}
	if r.dialect == DriverPostgres {
		idFilter = sq.Expr("id = ANY(?)", pq.StringArray(ids))
	}

	rows, err := r.builder.Select("id").
		From(articlesTable).
		Where(idFilter).
		Where(sq.Eq{"translation_status": string(domain.TranslationSuccess)}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query translated: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// DeleteOlderThan removes items published before cutoff.
func (r *SQLRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.builder.Delete(articlesTable).
		Where(sq.Lt{"published_at": toMillis(cutoff)}).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	return affected(res)
}

// DeleteAll empties the article table.
func (r *SQLRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.builder.Delete(articlesTable).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete articles: %w", err)
	}
	return affected(res)
}

// Count returns the number of stored items.
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.builder.Select("COUNT(*)").From(articlesTable).QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// LoadState reads scheduler bookkeeping; a fresh database yields never_run.
func (r *SQLRepository) LoadState(ctx context.Context) (domain.PersistedState, error) {
	state := domain.PersistedState{LastRunStatus: domain.RunNeverRun}

	rows, err := r.builder.Select("key", "value").From(stateTable).QueryContext(ctx)
	if err != nil {
		return state, fmt.Errorf("query scheduler state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return state, fmt.Errorf("scan scheduler state: %w", err)
		}
		switch key {
		case stateLastRunAt:
			ts, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return state, fmt.Errorf("parse %s: %w", key, err)
			}
			state.LastRunAt = &ts
		case stateLastRunStatus:
			state.LastRunStatus = domain.RunStatus(value)
		case stateRunCount:
			n, err := strconv.Atoi(value)
			if err != nil {
				return state, fmt.Errorf("parse %s: %w", key, err)
			}
			state.RunCount = n
		}
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("rows iteration: %w", err)
	}
	return state, nil
}

// SaveState writes scheduler bookkeeping in one transaction.
func (r *SQLRepository) SaveState(ctx context.Context, state domain.PersistedState) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state tx: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	values := map[string]string{
		stateLastRunStatus: string(state.LastRunStatus),
		stateRunCount:      strconv.Itoa(state.RunCount),
	}
	if state.LastRunAt != nil {
		values[stateLastRunAt] = state.LastRunAt.UTC().Format(time.RFC3339Nano)
	}

	builder := r.builder.RunWith(tx)
	for key, value := range values {
		if _, err = builder.Insert(stateTable).
			Columns("key", "value").
			Values(key, value).
			Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value").
			ExecContext(ctx); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

func scanArticle(rows *sql.Rows) (domain.ArticleItem, error) {
	var (
		item                   domain.ArticleItem
		publishedAt, fetchedAt int64
		titleTr, bodyTr        sql.NullString
		titleSt, bodySt, st    string
	)
	if err := rows.Scan(
		&item.ID, &item.Link, &item.Feed, &publishedAt, &fetchedAt,
		&item.TitleOriginal, &item.BodyOriginal, &titleTr, &bodyTr,
		&titleSt, &bodySt, &st, &item.Provider,
	); err != nil {
		return item, fmt.Errorf("scan article: %w", err)
	}
	item.PublishedAt = fromMillis(publishedAt)
	item.FetchedAt = fromMillis(fetchedAt)
	item.TitleTranslated = stringPtr(titleTr)
	item.BodyTranslated = stringPtr(bodyTr)
	item.TitleStatus = domain.TranslationStatus(titleSt)
	item.BodyStatus = domain.TranslationStatus(bodySt)
	item.TranslationStatus = domain.TranslationStatus(st)
	return item, nil
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
