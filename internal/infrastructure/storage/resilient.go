package storage

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/ports"
	"NoteAnalytics/internal/retry"
)

// Resilient decorates the repository with timeout-bounded retries so that
// every gateway call shares the same backoff behavior instead of growing
// its own loop.
type Resilient struct {
	inner   *Repository
	retrier retry.Retrier
}

var (
	_ ports.ArticleRepository = (*Resilient)(nil)
	_ ports.DeltaRepository   = (*Resilient)(nil)
	_ ports.ReportRepository  = (*Resilient)(nil)
)

// NewResilient wraps inner with the shared retrier.
func NewResilient(inner *Repository, retrier retry.Retrier) *Resilient {
	return &Resilient{inner: inner, retrier: retrier}
}

// Transient reports whether a storage failure is worth retrying. Lock
// contention and timeouts are; a well-formed constraint rejection is not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "constraint") {
		return false
	}
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "i/o")
}

func (r *Resilient) EnsureArticle(ctx context.Context, article domain.Article) error {
	return r.retrier.Do(ctx, "storage.EnsureArticle", Transient, func(ctx context.Context) error {
		return r.inner.EnsureArticle(ctx, article)
	})
}

func (r *Resilient) FindOrCreateByTitle(ctx context.Context, title string) (domain.Article, error) {
	var found domain.Article
	err := r.retrier.Do(ctx, "storage.FindOrCreateByTitle", Transient, func(ctx context.Context) error {
		var innerErr error
		found, innerErr = r.inner.FindOrCreateByTitle(ctx, title)
		return innerErr
	})
	return found, err
}

func (r *Resilient) PublishDraftsByTitles(ctx context.Context, titles []string) (int, error) {
	var count int
	err := r.retrier.Do(ctx, "storage.PublishDraftsByTitles", Transient, func(ctx context.Context) error {
		var innerErr error
		count, innerErr = r.inner.PublishDraftsByTitles(ctx, titles)
		return innerErr
	})
	return count, err
}

func (r *Resilient) PriorCumulative(ctx context.Context, articleIDs []string, before time.Time) (map[string]domain.MetricTotals, error) {
	var prior map[string]domain.MetricTotals
	err := r.retrier.Do(ctx, "storage.PriorCumulative", Transient, func(ctx context.Context) error {
		var innerErr error
		prior, innerErr = r.inner.PriorCumulative(ctx, articleIDs, before)
		return innerErr
	})
	return prior, err
}

func (r *Resilient) UpsertDeltas(ctx context.Context, records []domain.DeltaRecord) error {
	return r.retrier.Do(ctx, "storage.UpsertDeltas", Transient, func(ctx context.Context) error {
		return r.inner.UpsertDeltas(ctx, records)
	})
}

func (r *Resilient) OverallTotals(ctx context.Context) (domain.MetricTotals, error) {
	var totals domain.MetricTotals
	err := r.retrier.Do(ctx, "storage.OverallTotals", Transient, func(ctx context.Context) error {
		var innerErr error
		totals, innerErr = r.inner.OverallTotals(ctx)
		return innerErr
	})
	return totals, err
}

func (r *Resilient) DailyTotals(ctx context.Context, from, to time.Time) ([]domain.DailyStat, error) {
	var stats []domain.DailyStat
	err := r.retrier.Do(ctx, "storage.DailyTotals", Transient, func(ctx context.Context) error {
		var innerErr error
		stats, innerErr = r.inner.DailyTotals(ctx, from, to)
		return innerErr
	})
	return stats, err
}

func (r *Resilient) ArticleSummaries(ctx context.Context) ([]domain.ArticleSummary, error) {
	var summaries []domain.ArticleSummary
	err := r.retrier.Do(ctx, "storage.ArticleSummaries", Transient, func(ctx context.Context) error {
		var innerErr error
		summaries, innerErr = r.inner.ArticleSummaries(ctx)
		return innerErr
	})
	return summaries, err
}

func (r *Resilient) DeltaRows(ctx context.Context, from, to time.Time) ([]domain.DeltaRow, error) {
	var rows []domain.DeltaRow
	err := r.retrier.Do(ctx, "storage.DeltaRows", Transient, func(ctx context.Context) error {
		var innerErr error
		rows, innerErr = r.inner.DeltaRows(ctx, from, to)
		return innerErr
	})
	return rows, err
}
