package ports

import (
	"context"
	"time"

	"NoteAnalytics/internal/domain"
)

// StatsSource pulls raw cumulative stats from the remote platform.
type StatsSource interface {
	FetchAll(ctx context.Context, creds domain.Credentials) ([]domain.RawStat, error)
}

// ArticleRepository owns the article master table.
type ArticleRepository interface {
	EnsureArticle(ctx context.Context, article domain.Article) error
	FindOrCreateByTitle(ctx context.Context, title string) (domain.Article, error)
	PublishDraftsByTitles(ctx context.Context, titles []string) (int, error)
}

// DeltaRepository owns the per-(article, date) delta table.
type DeltaRepository interface {
	PriorCumulative(ctx context.Context, articleIDs []string, before time.Time) (map[string]domain.MetricTotals, error)
	UpsertDeltas(ctx context.Context, records []domain.DeltaRecord) error
}

// ReportRepository serves the read side: KPIs, trends, and export rows.
type ReportRepository interface {
	OverallTotals(ctx context.Context) (domain.MetricTotals, error)
	DailyTotals(ctx context.Context, from, to time.Time) ([]domain.DailyStat, error)
	ArticleSummaries(ctx context.Context) ([]domain.ArticleSummary, error)
	DeltaRows(ctx context.Context, from, to time.Time) ([]domain.DeltaRow, error)
}

// MetadataEnricher backfills master-record metadata from the public
// article page.
type MetadataEnricher interface {
	Enrich(ctx context.Context, pageURL string) (domain.PageMetadata, error)
}

// Scheduler controls when recurring syncs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
