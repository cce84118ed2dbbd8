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

// Importer applies a CSV export of cumulative totals to one target date
// chosen by the caller for the whole file.
type Importer struct {
	articles   ports.ArticleRepository
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewImporter wires the article port used for the draft-promotion side
// effect plus the shared reconciler.
func NewImporter(articles ports.ArticleRepository, reconciler *Reconciler, logger *slog.Logger) *Importer {
	return &Importer{articles: articles, reconciler: reconciler, logger: logger}
}

// Import reconciles the observations against stored history for targetDate.
// When publishDrafts is set, draft articles matching imported titles are
// promoted to published first, mirroring how a stats export proves a draft
// went live.
func (i *Importer) Import(ctx context.Context, observations []domain.CumulativeObservation, targetDate time.Time, publishDrafts bool) (int, error) {
	if publishDrafts {
		// Only titles the reconciler can resolve; the untitled placeholder
		// is skipped there and must not promote drafts either.
		titles := make([]string, 0, len(observations))
		for _, obs := range observations {
			if obs.Title != "" && obs.Title != normalize.UntitledTitle {
				titles = append(titles, obs.Title)
			}
		}
		promoted, err := i.articles.PublishDraftsByTitles(ctx, titles)
		if err != nil {
			return 0, fmt.Errorf("publish drafts: %w", err)
		}
		if promoted > 0 && i.logger != nil {
			i.logger.Info("promoted drafts to published", "count", promoted)
		}
	}

	records, err := i.reconciler.Reconcile(ctx, observations, targetDate)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
