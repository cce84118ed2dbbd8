package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/ports"
)

// Repository persists article masters and per-day delta records in SQLite.
type Repository struct {
	db *sql.DB
}

var (
	_ ports.ArticleRepository = (*Repository)(nil)
	_ ports.DeltaRepository   = (*Repository)(nil)
	_ ports.ReportRepository  = (*Repository)(nil)
)

// Open prepares a SQLite database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// NewRepository wires a sql.DB implementation.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureArticle upserts the master record keyed by the source-provided id.
// An empty incoming URL never clobbers a known one.
func (r *Repository) EnsureArticle(ctx context.Context, article domain.Article) error {
	query, args, err := sq.Insert("articles").
		Columns("id", "title", "url", "status").
		Values(article.ID, article.Title, article.URL, string(article.Status)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = CASE WHEN excluded.url <> '' THEN excluded.url ELSE articles.url END,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build article upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert article %s: %w", article.ID, err)
	}
	return nil
}

// FindOrCreateByTitle resolves the title natural key used by the CSV path.
// Re-resolving an existing title returns the existing id; a fresh title
// mints a uuid and creates the record as published, the way imports of
// note's own exports behave.
func (r *Repository) FindOrCreateByTitle(ctx context.Context, title string) (domain.Article, error) {
	query, args, err := sq.Select("id", "title", "url", "status").
		From("articles").
		Where(sq.Eq{"title": title}).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build title lookup: %w", err)
	}

	var (
		found  domain.Article
		status string
	)
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&found.ID, &found.Title, &found.URL, &status)
	switch {
	case err == nil:
		found.Status = domain.ArticleStatus(status)
		return found, nil
	case errors.Is(err, sql.ErrNoRows):
		// fall through to create
	default:
		return domain.Article{}, fmt.Errorf("find article by title: %w", err)
	}

	created := domain.Article{
		ID:     uuid.NewString(),
		Title:  title,
		Status: domain.StatusPublished,
	}
	insert, insertArgs, err := sq.Insert("articles").
		Columns("id", "title", "url", "status").
		Values(created.ID, created.Title, created.URL, string(created.Status)).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, insert, insertArgs...); err != nil {
		return domain.Article{}, fmt.Errorf("create article %q: %w", title, err)
	}
	return created, nil
}

// PublishDraftsByTitles flips drafts matching the given titles to
// published, returning how many changed.
func (r *Repository) PublishDraftsByTitles(ctx context.Context, titles []string) (int, error) {
	if len(titles) == 0 {
		return 0, nil
	}

	query, args, err := sq.Update("articles").
		Set("status", string(domain.StatusPublished)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"status": string(domain.StatusDraft)}).
		Where(sq.Eq{"title": titles}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build draft update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("publish drafts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// PriorCumulative sums every stored delta strictly before the cutoff, per
// article, in a single batched query. Callers take this snapshot fresh for
// each reconciliation run.
func (r *Repository) PriorCumulative(ctx context.Context, articleIDs []string, before time.Time) (map[string]domain.MetricTotals, error) {
	prior := make(map[string]domain.MetricTotals, len(articleIDs))
	if len(articleIDs) == 0 {
		return prior, nil
	}

	query, args, err := sq.Select(
		"article_id",
		"COALESCE(SUM(pv), 0)",
		"COALESCE(SUM(likes), 0)",
		"COALESCE(SUM(comments), 0)",
	).
		From("article_deltas").
		Where(sq.Eq{"article_id": articleIDs}).
		Where(sq.Lt{"date": before.Format(domain.DateLayout)}).
		GroupBy("article_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build prior query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prior cumulative: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			totals domain.MetricTotals
		)
		if err := rows.Scan(&id, &totals.PV, &totals.Likes, &totals.Comments); err != nil {
			return nil, fmt.Errorf("scan prior row: %w", err)
		}
		prior[id] = totals
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prior rows iteration: %w", err)
	}
	return prior, nil
}

// UpsertDeltas replaces each (article, date) record in one transaction.
// Re-running the same batch is a no-op beyond the first commit.
func (r *Repository) UpsertDeltas(ctx context.Context, records []domain.DeltaRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		day := rec.Date.Format(domain.DateLayout)
		query, args, err := sq.Insert("article_deltas").
			Columns("article_id", "date", "pv", "likes", "comments").
			Values(rec.ArticleID, day, rec.Totals.PV, rec.Totals.Likes, rec.Totals.Comments).
			Suffix(`ON CONFLICT(article_id, date) DO UPDATE SET
				pv = excluded.pv,
				likes = excluded.likes,
				comments = excluded.comments`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delta upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert delta %s@%s: %w", rec.ArticleID, day, err)
		}
	}

	return tx.Commit()
}

// OverallTotals sums every stored delta, the lifetime KPI numbers.
func (r *Repository) OverallTotals(ctx context.Context) (domain.MetricTotals, error) {
	query, args, err := sq.Select(
		"COALESCE(SUM(pv), 0)",
		"COALESCE(SUM(likes), 0)",
		"COALESCE(SUM(comments), 0)",
	).From("article_deltas").ToSql()
	if err != nil {
		return domain.MetricTotals{}, fmt.Errorf("build totals query: %w", err)
	}

	var totals domain.MetricTotals
	if err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&totals.PV, &totals.Likes, &totals.Comments); err != nil {
		return domain.MetricTotals{}, fmt.Errorf("query overall totals: %w", err)
	}
	return totals, nil
}

// DailyTotals returns the site-wide growth per day within [from, to],
// oldest first.
func (r *Repository) DailyTotals(ctx context.Context, from, to time.Time) ([]domain.DailyStat, error) {
	query, args, err := sq.Select(
		"date",
		"COALESCE(SUM(pv), 0)",
		"COALESCE(SUM(likes), 0)",
		"COALESCE(SUM(comments), 0)",
	).
		From("article_deltas").
		Where(sq.GtOrEq{"date": from.Format(domain.DateLayout)}).
		Where(sq.LtOrEq{"date": to.Format(domain.DateLayout)}).
		GroupBy("date").
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build daily query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var stats []domain.DailyStat
	for rows.Next() {
		var (
			day  string
			stat domain.DailyStat
		)
		if err := rows.Scan(&day, &stat.Totals.PV, &stat.Totals.Likes, &stat.Totals.Comments); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		stat.Date, err = time.Parse(domain.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", day, err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily rows iteration: %w", err)
	}
	return stats, nil
}

// ArticleSummaries returns lifetime totals per article, highest pv first.
func (r *Repository) ArticleSummaries(ctx context.Context) ([]domain.ArticleSummary, error) {
	query, args, err := sq.Select(
		"a.id",
		"a.title",
		"a.url",
		"COALESCE(SUM(d.pv), 0)",
		"COALESCE(SUM(d.likes), 0)",
		"COALESCE(SUM(d.comments), 0)",
	).
		From("articles a").
		LeftJoin("article_deltas d ON d.article_id = a.id").
		GroupBy("a.id", "a.title", "a.url").
		OrderBy("SUM(d.pv) DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summaries query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query article summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ArticleSummary
	for rows.Next() {
		var s domain.ArticleSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.URL, &s.Totals.PV, &s.Totals.Likes, &s.Totals.Comments); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary rows iteration: %w", err)
	}
	return summaries, nil
}

// DeltaRows returns stored deltas joined with titles within [from, to],
// ordered by date then title, for the detail export.
func (r *Repository) DeltaRows(ctx context.Context, from, to time.Time) ([]domain.DeltaRow, error) {
	query, args, err := sq.Select("a.title", "d.date", "d.pv", "d.likes", "d.comments").
		From("article_deltas d").
		Join("articles a ON a.id = d.article_id").
		Where(sq.GtOrEq{"d.date": from.Format(domain.DateLayout)}).
		Where(sq.LtOrEq{"d.date": to.Format(domain.DateLayout)}).
		OrderBy("d.date ASC", "a.title ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delta rows query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query delta rows: %w", err)
	}
	defer rows.Close()

	var result []domain.DeltaRow
	for rows.Next() {
		var (
			day string
			row domain.DeltaRow
		)
		if err := rows.Scan(&row.Title, &day, &row.Totals.PV, &row.Totals.Likes, &row.Totals.Comments); err != nil {
			return nil, fmt.Errorf("scan delta row: %w", err)
		}
		row.Date, err = time.Parse(domain.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", day, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delta rows iteration: %w", err)
	}
	return result, nil
}
