package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/ports"
)

const timeLayout = time.RFC3339

// SQLiteStore persists the three article tables in a local SQLite file.
// The article URL is the primary key everywhere; scraped and processed rows
// only ever exist for URLs present in the articles table.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.ArticleStore = (*SQLiteStore)(nil)

// Open opens (or creates) the database file and initializes the schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		url TEXT PRIMARY KEY,
		newspaper_id TEXT NOT NULL,
		published_at TEXT,
		index_day TEXT NOT NULL,
		indexed_at TEXT NOT NULL,
		premium INTEGER,
		scraped_at TEXT,
		scrape_error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS scraped_articles (
		url TEXT PRIMARY KEY REFERENCES articles(url),
		title TEXT,
		authors TEXT,
		published_at TEXT,
		description TEXT,
		site_name TEXT,
		language TEXT,
		image_url TEXT,
		cleaned_text TEXT,
		raw_html BLOB,
		scraped_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS processed_articles (
		url TEXT PRIMARY KEY REFERENCES scraped_articles(url),
		tokens TEXT,
		entities TEXT,
		token_count INTEGER NOT NULL DEFAULT 0,
		sentence_count INTEGER NOT NULL DEFAULT 0,
		processed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_newspaper
		ON articles(newspaper_id, scraped_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertIndexed inserts discovered articles, skipping URLs that already
// exist. Repeated indexing of the same range is a no-op.
func (s *SQLiteStore) UpsertIndexed(ctx context.Context, articles []domain.IndexedArticle) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, article := range articles {
		query, args, err := sq.Insert("articles").
			Columns("url", "newspaper_id", "published_at", "index_day", "indexed_at", "premium").
			Values(
				article.URL,
				article.NewspaperID,
				formatTime(article.PublishedAt),
				article.IndexDay.Format("2006-01-02"),
				formatTime(article.IndexedAt),
				article.Premium,
			).
			Suffix("ON CONFLICT(url) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", article.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return inserted, nil
}

// IndexedDays returns the archive days already indexed for a newspaper.
func (s *SQLiteStore) IndexedDays(ctx context.Context, newspaperID string) (map[string]bool, error) {
	query, args, err := sq.Select("DISTINCT index_day").
		From("articles").
		Where(sq.Eq{"newspaper_id": newspaperID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indexed days: %w", err)
	}
	defer rows.Close()

	days := map[string]bool{}
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days[day] = true
	}

	return days, rows.Err()
}

// UnscrapedPublic lists unscraped articles that are public or whose premium
// status is still unknown.
func (s *SQLiteStore) UnscrapedPublic(ctx context.Context, newspaperID string) ([]domain.IndexedArticle, error) {
	return s.queryIndexed(ctx, sq.And{
		sq.Eq{"newspaper_id": newspaperID},
		sq.Eq{"scraped_at": nil},
		sq.Or{sq.Eq{"premium": nil}, sq.Eq{"premium": 0}},
	})
}

// UnscrapedPremium lists unscraped articles known to be paywalled.
func (s *SQLiteStore) UnscrapedPremium(ctx context.Context, newspaperID string) ([]domain.IndexedArticle, error) {
	return s.queryIndexed(ctx, sq.And{
		sq.Eq{"newspaper_id": newspaperID},
		sq.Eq{"scraped_at": nil},
		sq.Eq{"premium": 1},
	})
}

func (s *SQLiteStore) queryIndexed(ctx context.Context, where sq.Sqlizer) ([]domain.IndexedArticle, error) {
	query, args, err := sq.Select("url", "newspaper_id", "published_at", "index_day",
		"indexed_at", "premium", "scraped_at", "scrape_error").
		From("articles").
		Where(where).
		OrderBy("indexed_at", "url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.IndexedArticle
	for rows.Next() {
		article, err := scanIndexed(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

func scanIndexed(rows *sql.Rows) (domain.IndexedArticle, error) {
	var (
		article     domain.IndexedArticle
		publishedAt sql.NullString
		indexDay    string
		indexedAt   sql.NullString
		premium     sql.NullBool
		scrapedAt   sql.NullString
	)

	err := rows.Scan(&article.URL, &article.NewspaperID, &publishedAt, &indexDay,
		&indexedAt, &premium, &scrapedAt, &article.ScrapeError)
	if err != nil {
		return domain.IndexedArticle{}, fmt.Errorf("scan article: %w", err)
	}

	article.PublishedAt = parseTime(publishedAt.String)
	article.IndexedAt = parseTime(indexedAt.String)
	if day, err := time.Parse("2006-01-02", indexDay); err == nil {
		article.IndexDay = day
	}
	if premium.Valid {
		value := premium.Bool
		article.Premium = &value
	}
	if scrapedAt.Valid && scrapedAt.String != "" {
		value := parseTime(scrapedAt.String)
		article.ScrapedAt = &value
	}

	return article, nil
}

// MarkPremium records the paywall status discovered during a fetch.
func (s *SQLiteStore) MarkPremium(ctx context.Context, url string, premium bool) error {
	query, args, err := sq.Update("articles").
		Set("premium", premium).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark premium %s: %w", url, err)
	}
	return nil
}

// RecordScrapeError stores a per-article failure without touching the
// scraped status, so the article stays eligible for a later retry.
func (s *SQLiteStore) RecordScrapeError(ctx context.Context, url, message string) error {
	query, args, err := sq.Update("articles").
		Set("scrape_error", message).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record error %s: %w", url, err)
	}
	return nil
}

// SaveScraped writes the scraped row and stamps the article as scraped in
// one transaction; a failure leaves neither behind.
func (s *SQLiteStore) SaveScraped(ctx context.Context, article domain.ScrapedArticle) error {
	authors, err := json.Marshal(article.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var publishedAt any
	if article.PublishedAt != nil {
		publishedAt = article.PublishedAt.Format(timeLayout)
	}

	query, args, err := sq.Insert("scraped_articles").
		Columns("url", "title", "authors", "published_at", "description",
			"site_name", "language", "image_url", "cleaned_text", "raw_html", "scraped_at").
		Values(article.URL, article.Title, string(authors), publishedAt, article.Description,
			article.SiteName, article.Language, article.ImageURL, article.CleanedText,
			article.RawHTML, article.ScrapedAt.Format(timeLayout)).
		Suffix(`ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			published_at = excluded.published_at,
			description = excluded.description,
			site_name = excluded.site_name,
			language = excluded.language,
			image_url = excluded.image_url,
			cleaned_text = excluded.cleaned_text,
			raw_html = excluded.raw_html,
			scraped_at = excluded.scraped_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save scraped %s: %w", article.URL, err)
	}

	query, args, err = sq.Update("articles").
		Set("scraped_at", article.ScrapedAt.Format(timeLayout)).
		Set("scrape_error", "").
		Where(sq.Eq{"url": article.URL}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("stamp scraped %s: %w", article.URL, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UnprocessedScraped lists scraped articles without a processed row.
func (s *SQLiteStore) UnprocessedScraped(ctx context.Context, newspaperID string) ([]domain.ScrapedArticle, error) {
	query, args, err := sq.Select("s.url", "a.newspaper_id", "s.title", "s.authors",
		"s.published_at", "s.description", "s.site_name", "s.language",
		"s.image_url", "s.cleaned_text", "s.scraped_at").
		From("scraped_articles s").
		Join("articles a ON a.url = s.url").
		LeftJoin("processed_articles p ON p.url = s.url").
		Where(sq.And{sq.Eq{"a.newspaper_id": newspaperID}, sq.Eq{"p.url": nil}}).
		OrderBy("s.scraped_at", "s.url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	defer rows.Close()

	var articles []domain.ScrapedArticle
	for rows.Next() {
		var (
			article     domain.ScrapedArticle
			authors     sql.NullString
			publishedAt sql.NullString
			scrapedAt   string
		)
		err := rows.Scan(&article.URL, &article.NewspaperID, &article.Title, &authors,
			&publishedAt, &article.Description, &article.SiteName, &article.Language,
			&article.ImageURL, &article.CleanedText, &scrapedAt)
		if err != nil {
			return nil, fmt.Errorf("scan scraped: %w", err)
		}

		if authors.Valid && authors.String != "" {
			if err := json.Unmarshal([]byte(authors.String), &article.Authors); err != nil {
				return nil, fmt.Errorf("unmarshal authors %s: %w", article.URL, err)
			}
		}
		if publishedAt.Valid && publishedAt.String != "" {
			value := parseTime(publishedAt.String)
			article.PublishedAt = &value
		}
		article.ScrapedAt = parseTime(scrapedAt)

		articles = append(articles, article)
	}

	return articles, rows.Err()
}

// SaveProcessed upserts the linguistic feature row for one article.
func (s *SQLiteStore) SaveProcessed(ctx context.Context, article domain.ProcessedArticle) error {
	tokens, err := json.Marshal(article.Tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	entities, err := json.Marshal(article.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}

	query, args, err := sq.Insert("processed_articles").
		Columns("url", "tokens", "entities", "token_count", "sentence_count", "processed_at").
		Values(article.URL, string(tokens), string(entities),
			article.TokenCount, article.SentenceCount, article.ProcessedAt.Format(timeLayout)).
		Suffix(`ON CONFLICT(url) DO UPDATE SET
			tokens = excluded.tokens,
			entities = excluded.entities,
			token_count = excluded.token_count,
			sentence_count = excluded.sentence_count,
			processed_at = excluded.processed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save processed %s: %w", article.URL, err)
	}
	return nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, _ := time.Parse(timeLayout, value)
	return t
}
