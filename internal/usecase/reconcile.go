package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/normalize"
	"NoteAnalytics/internal/ports"
)

// Reconciler converts cumulative observations into per-day delta records.
// Summing an article's stored deltas up to any observation point always
// reproduces the cumulative total reported there; regressions in the
// source data clamp to zero instead of subtracting from history.
type Reconciler struct {
	articles ports.ArticleRepository
	deltas   ports.DeltaRepository
	logger   *slog.Logger
}

// NewReconciler wires the two persistence ports.
func NewReconciler(articles ports.ArticleRepository, deltas ports.DeltaRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{articles: articles, deltas: deltas, logger: logger}
}

// Reconcile plans and persists the deltas for targetDate in one call.
func (r *Reconciler) Reconcile(ctx context.Context, observations []domain.CumulativeObservation, targetDate time.Time) ([]domain.DeltaRecord, error) {
	records, err := r.Plan(ctx, observations, targetDate)
	if err != nil {
		return nil, err
	}
	if err := r.Persist(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Plan resolves article identities, snapshots the prior cumulative state
// once, and computes the clamped delta per article for targetDate. An
// observation that cannot be resolved is skipped, never fatal for the
// batch; duplicates collapse to the last observation in input order.
func (r *Reconciler) Plan(ctx context.Context, observations []domain.CumulativeObservation, targetDate time.Time) ([]domain.DeltaRecord, error) {
	day := domain.Day(targetDate)

	order := make([]string, 0, len(observations))
	byID := make(map[string]domain.CumulativeObservation, len(observations))
	for _, obs := range observations {
		id, err := r.resolve(ctx, obs)
		if err != nil {
			r.warn("skipping observation", "title", obs.Title, "error", err)
			continue
		}
		if id == "" {
			r.warn("skipping observation without identity", "title", obs.Title)
			continue
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = obs
	}

	if len(order) == 0 {
		return nil, nil
	}

	// One snapshot, taken before any delta writes, keeps every record in
	// this batch consistent with the same prior state.
	prior, err := r.deltas.PriorCumulative(ctx, order, day)
	if err != nil {
		return nil, fmt.Errorf("load prior cumulative: %w", err)
	}

	records := make([]domain.DeltaRecord, 0, len(order))
	for _, id := range order {
		obs := byID[id]
		base := prior[id]
		records = append(records, domain.DeltaRecord{
			ArticleID: id,
			Date:      day,
			Totals: domain.MetricTotals{
				PV:       clampDelta(obs.Totals.PV, base.PV),
				Likes:    clampDelta(obs.Totals.Likes, base.Likes),
				Comments: clampDelta(obs.Totals.Comments, base.Comments),
			},
		})
	}
	return records, nil
}

// Persist writes the batch through one idempotent keyed upsert. A failure
// here is fatal for the run and surfaced to the caller.
func (r *Reconciler) Persist(ctx context.Context, records []domain.DeltaRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.deltas.UpsertDeltas(ctx, records); err != nil {
		return fmt.Errorf("upsert deltas: %w", err)
	}
	return nil
}

// resolve maps an observation to its article id, creating the master
// record on first sighting. The source-provided id is canonical; the CSV
// path falls back to the title natural key. An empty id with no usable
// title resolves to "" and the caller skips the observation.
func (r *Reconciler) resolve(ctx context.Context, obs domain.CumulativeObservation) (string, error) {
	if obs.ArticleID != "" {
		err := r.articles.EnsureArticle(ctx, domain.Article{
			ID:     obs.ArticleID,
			Title:  obs.Title,
			URL:    obs.URL,
			Status: domain.StatusPublished,
		})
		if err != nil {
			return "", fmt.Errorf("ensure article: %w", err)
		}
		return obs.ArticleID, nil
	}

	if obs.Title == "" || obs.Title == normalize.UntitledTitle {
		return "", nil
	}
	article, err := r.articles.FindOrCreateByTitle(ctx, obs.Title)
	if err != nil {
		return "", fmt.Errorf("find or create by title: %w", err)
	}
	return article.ID, nil
}

func clampDelta(observed, prior uint64) uint64 {
	if observed <= prior {
		return 0
	}
	return observed - prior
}

func (r *Reconciler) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
