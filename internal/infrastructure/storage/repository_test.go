package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NoteAnalytics/internal/domain"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(domain.DateLayout, value)
	require.NoError(t, err)
	return parsed
}

func TestEnsureArticleUpsert(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{
		ID:     "a1",
		Title:  "first title",
		URL:    "https://note.com/u/n/a1",
		Status: domain.StatusPublished,
	}))

	// Second upsert with an empty URL must keep the stored one.
	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{
		ID:     "a1",
		Title:  "renamed title",
		Status: domain.StatusPublished,
	}))

	found, err := repo.FindOrCreateByTitle(ctx, "renamed title")
	require.NoError(t, err)
	require.Equal(t, "a1", found.ID)
	require.Equal(t, "https://note.com/u/n/a1", found.URL)
}

func TestFindOrCreateByTitleIsIdempotent(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	first, err := repo.FindOrCreateByTitle(ctx, "My Post")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, domain.StatusPublished, first.Status)

	second, err := repo.FindOrCreateByTitle(ctx, "My Post")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestPublishDraftsByTitles(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "d1", Title: "draft one", Status: domain.StatusDraft}))
	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "p1", Title: "already out", Status: domain.StatusPublished}))

	count, err := repo.PublishDraftsByTitles(ctx, []string{"draft one", "already out", "missing"})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPriorCumulativeIsStrictlyBefore(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "a1", Title: "t", Status: domain.StatusPublished}))
	require.NoError(t, repo.UpsertDeltas(ctx, []domain.DeltaRecord{
		{ArticleID: "a1", Date: day(t, "2024-05-30"), Totals: domain.MetricTotals{PV: 60, Likes: 6}},
		{ArticleID: "a1", Date: day(t, "2024-05-31"), Totals: domain.MetricTotals{PV: 40, Likes: 4}},
		{ArticleID: "a1", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 999}},
	}))

	prior, err := repo.PriorCumulative(ctx, []string{"a1", "unknown"}, day(t, "2024-06-01"))
	require.NoError(t, err)
	// The cutoff day itself is excluded.
	require.Equal(t, domain.MetricTotals{PV: 100, Likes: 10}, prior["a1"])
	_, ok := prior["unknown"]
	require.False(t, ok)
}

func TestUpsertDeltasReplaces(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "a1", Title: "t", Status: domain.StatusPublished}))

	target := day(t, "2024-06-01")
	require.NoError(t, repo.UpsertDeltas(ctx, []domain.DeltaRecord{
		{ArticleID: "a1", Date: target, Totals: domain.MetricTotals{PV: 50, Likes: 5, Comments: 1}},
	}))
	require.NoError(t, repo.UpsertDeltas(ctx, []domain.DeltaRecord{
		{ArticleID: "a1", Date: target, Totals: domain.MetricTotals{PV: 70, Likes: 5, Comments: 2}},
	}))

	totals, err := repo.OverallTotals(ctx)
	require.NoError(t, err)
	// Replacement, not accumulation.
	require.Equal(t, domain.MetricTotals{PV: 70, Likes: 5, Comments: 2}, totals)
}

func TestDailyTotalsAggregatesAcrossArticles(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "a1", Title: "one", Status: domain.StatusPublished}))
	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "a2", Title: "two", Status: domain.StatusPublished}))
	require.NoError(t, repo.UpsertDeltas(ctx, []domain.DeltaRecord{
		{ArticleID: "a1", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 10}},
		{ArticleID: "a2", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 5, Likes: 1}},
		{ArticleID: "a1", Date: day(t, "2024-06-02"), Totals: domain.MetricTotals{PV: 3}},
		{ArticleID: "a1", Date: day(t, "2024-06-10"), Totals: domain.MetricTotals{PV: 100}},
	}))

	stats, err := repo.DailyTotals(ctx, day(t, "2024-06-01"), day(t, "2024-06-05"))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, day(t, "2024-06-01"), stats[0].Date)
	require.Equal(t, domain.MetricTotals{PV: 15, Likes: 1}, stats[0].Totals)
	require.Equal(t, domain.MetricTotals{PV: 3}, stats[1].Totals)
}

func TestArticleSummariesOrderAndJoin(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "low", Title: "low", Status: domain.StatusPublished}))
	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "high", Title: "high", Status: domain.StatusPublished}))
	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "none", Title: "none", Status: domain.StatusDraft}))
	require.NoError(t, repo.UpsertDeltas(ctx, []domain.DeltaRecord{
		{ArticleID: "low", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 1}},
		{ArticleID: "high", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 50}},
		{ArticleID: "high", Date: day(t, "2024-06-02"), Totals: domain.MetricTotals{PV: 25}},
	}))

	summaries, err := repo.ArticleSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, "high", summaries[0].ID)
	require.Equal(t, uint64(75), summaries[0].Totals.PV)
	// Articles without deltas still appear, zeroed.
	require.Equal(t, "none", summaries[2].ID)
	require.Equal(t, domain.MetricTotals{}, summaries[2].Totals)
}

func TestDeltaRowsRangeAndOrder(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "a1", Title: "beta", Status: domain.StatusPublished}))
	require.NoError(t, repo.EnsureArticle(ctx, domain.Article{ID: "a2", Title: "alpha", Status: domain.StatusPublished}))
	require.NoError(t, repo.UpsertDeltas(ctx, []domain.DeltaRecord{
		{ArticleID: "a1", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 1}},
		{ArticleID: "a2", Date: day(t, "2024-06-01"), Totals: domain.MetricTotals{PV: 2}},
		{ArticleID: "a1", Date: day(t, "2024-07-01"), Totals: domain.MetricTotals{PV: 3}},
	}))

	rows, err := repo.DeltaRows(ctx, day(t, "2024-06-01"), day(t, "2024-06-30"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "alpha", rows[0].Title)
	require.Equal(t, "beta", rows[1].Title)
}
