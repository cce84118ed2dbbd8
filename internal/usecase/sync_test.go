package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/normalize"
	"NoteAnalytics/internal/retry"
)

type fakeSource struct {
	items   []domain.RawStat
	err     error
	release chan struct{} // when set, FetchAll blocks until closed
	calls   int
}

func (f *fakeSource) FetchAll(ctx context.Context, creds domain.Credentials) ([]domain.RawStat, error) {
	f.calls++
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

type fakeEnricher struct {
	meta domain.PageMetadata
	err  error
}

func (f *fakeEnricher) Enrich(ctx context.Context, pageURL string) (domain.PageMetadata, error) {
	return f.meta, f.err
}

var testCreds = domain.Credentials{AuthToken: "auth", SessionToken: "session"}

func newRunner(t *testing.T, source *fakeSource, enricher *fakeEnricher) (*SyncRunner, *Reconciler) {
	t.Helper()
	rec, _ := testReconciler(t)
	deps := SyncRunnerDeps{
		Source:     source,
		Normalizer: normalize.New(""),
		Reconciler: rec,
		Retrier:    retry.New(2, time.Millisecond, time.Second, nil),
	}
	if enricher != nil {
		deps.Enricher = enricher
	}
	return NewSyncRunner(deps), rec
}

func TestRunSyncsObservedArticles(t *testing.T) {
	source := &fakeSource{items: []domain.RawStat{
		{"id": "a1", "name": "post one", "readCount": float64(150), "likeCount": float64(10), "commentCount": float64(2)},
		{"id": "a2", "name": "post two", "readCount": float64(30)},
	}}
	runner, _ := newRunner(t, source, nil)

	count, err := runner.Run(context.Background(), testCreds, mustDay(t, "2024-06-01"))
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, StateIdle, runner.State())

	_, ok := runner.LastSync()
	require.True(t, ok)
}

func TestRunRejectsMissingCredentials(t *testing.T) {
	source := &fakeSource{}
	runner, _ := newRunner(t, source, nil)

	_, err := runner.Run(context.Background(), domain.Credentials{}, time.Now())
	require.ErrorIs(t, err, ErrMissingCredentials)
	// Configuration errors do no work at all.
	require.Zero(t, source.calls)
}

func TestRunGuardRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{release: release}
	runner, _ := newRunner(t, source, nil)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), testCreds, time.Now())
		done <- err
	}()

	require.Eventually(t, runner.Active, time.Second, time.Millisecond)

	_, err := runner.Run(context.Background(), testCreds, time.Now())
	require.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, StateIdle, runner.State())
}

func TestRunSurfacesFetchFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	runner, _ := newRunner(t, source, nil)

	_, err := runner.Run(context.Background(), testCreds, time.Now())
	require.Error(t, err)
	require.Equal(t, StateIdle, runner.State())
	// The default predicate treats the failure as transient; both
	// configured attempts were spent.
	require.Equal(t, 2, source.calls)
}

func TestRunDoesNotRetryRejections(t *testing.T) {
	rejection := errors.New("status 401")
	source := &fakeSource{err: rejection}
	rec, _ := testReconciler(t)
	runner := NewSyncRunner(SyncRunnerDeps{
		Source:     source,
		Normalizer: normalize.New(""),
		Reconciler: rec,
		Retrier:    retry.New(3, time.Millisecond, time.Second, nil),
		FetchRetryable: func(err error) bool {
			return !errors.Is(err, rejection)
		},
	})

	_, err := runner.Run(context.Background(), testCreds, time.Now())
	require.ErrorIs(t, err, rejection)
	require.Equal(t, 1, source.calls)
}

func TestRunEnrichesPlaceholderTitles(t *testing.T) {
	source := &fakeSource{items: []domain.RawStat{
		{"id": "a1", "noteUrl": "https://note.com/u/n/a1", "readCount": float64(10)},
	}}
	enricher := &fakeEnricher{meta: domain.PageMetadata{Title: "scraped title"}}
	runner, rec := newRunner(t, source, enricher)

	count, err := runner.Run(context.Background(), testCreds, mustDay(t, "2024-06-01"))
	require.NoError(t, err)
	require.Equal(t, 1, count)

	article, err := rec.articles.FindOrCreateByTitle(context.Background(), "scraped title")
	require.NoError(t, err)
	require.Equal(t, "a1", article.ID)
}

func TestRunEnricherFailureDegradesGracefully(t *testing.T) {
	source := &fakeSource{items: []domain.RawStat{
		{"id": "a1", "noteUrl": "https://note.com/u/n/a1", "readCount": float64(10)},
	}}
	enricher := &fakeEnricher{err: errors.New("page gone")}
	runner, _ := newRunner(t, source, enricher)

	count, err := runner.Run(context.Background(), testCreds, mustDay(t, "2024-06-01"))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
