package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/normalize"
	"NoteAnalytics/internal/ports"
	"NoteAnalytics/internal/retry"
)

// ErrAlreadyRunning rejects a sync requested while another is in flight.
// The request is dropped, not queued; callers simply try again later.
var ErrAlreadyRunning = errors.New("a sync is already running")

// ErrMissingCredentials is the configuration-error exit: nothing has been
// fetched or written when it is returned.
var ErrMissingCredentials = errors.New("note credentials are required")

// RunState is the phase of the single in-flight ingestion run.
type RunState int32

const (
	StateIdle RunState = iota
	StateFetching
	StateNormalizing
	StateReconciling
	StatePersisting
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateNormalizing:
		return "normalizing"
	case StateReconciling:
		return "reconciling"
	case StatePersisting:
		return "persisting"
	default:
		return "unknown"
	}
}

// SyncRunnerDeps wires the driven adapters into the ingestion run.
type SyncRunnerDeps struct {
	Source         ports.StatsSource
	Normalizer     normalize.Normalizer
	Reconciler     *Reconciler
	Enricher       ports.MetadataEnricher
	Retrier        retry.Retrier
	FetchRetryable func(error) bool
	Logger         *slog.Logger
}

// SyncRunner executes one full ingestion pass: fetch, normalize, reconcile,
// persist. At most one run is active at a time; the guard is an explicit
// state value set atomically at run start, not a bare flag.
type SyncRunner struct {
	source         ports.StatsSource
	normalizer     normalize.Normalizer
	reconciler     *Reconciler
	enricher       ports.MetadataEnricher
	retrier        retry.Retrier
	fetchRetryable func(error) bool
	logger         *slog.Logger

	state    atomic.Int32
	lastSync atomic.Pointer[time.Time]
}

// NewSyncRunner constructs the orchestration component.
func NewSyncRunner(deps SyncRunnerDeps) *SyncRunner {
	return &SyncRunner{
		source:         deps.Source,
		normalizer:     deps.Normalizer,
		reconciler:     deps.Reconciler,
		enricher:       deps.Enricher,
		retrier:        deps.Retrier,
		fetchRetryable: deps.FetchRetryable,
		logger:         deps.Logger,
	}
}

// State reports the current phase of the in-flight run, if any.
func (s *SyncRunner) State() RunState {
	return RunState(s.state.Load())
}

// Active reports whether a run is in flight.
func (s *SyncRunner) Active() bool {
	return s.State() != StateIdle
}

// LastSync returns when the most recent successful run finished.
func (s *SyncRunner) LastSync() (time.Time, bool) {
	if t := s.lastSync.Load(); t != nil {
		return *t, true
	}
	return time.Time{}, false
}

// Run performs one ingestion run attributing today's growth to targetDate.
// It returns the number of articles whose deltas were written.
func (s *SyncRunner) Run(ctx context.Context, creds domain.Credentials, targetDate time.Time) (int, error) {
	if creds.AuthToken == "" || creds.SessionToken == "" {
		return 0, ErrMissingCredentials
	}

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateFetching)) {
		return 0, ErrAlreadyRunning
	}
	defer s.state.Store(int32(StateIdle))

	var raw []domain.RawStat
	err := s.retrier.Do(ctx, "noteapi.FetchAll", s.fetchRetryable, func(ctx context.Context) error {
		var fetchErr error
		raw, fetchErr = s.source.FetchAll(ctx, creds)
		return fetchErr
	})
	if err != nil {
		return 0, fmt.Errorf("fetch stats: %w", err)
	}
	if len(raw) == 0 {
		s.info("sync fetched no articles")
		return 0, nil
	}

	s.state.Store(int32(StateNormalizing))
	observations := make([]domain.CumulativeObservation, 0, len(raw))
	for _, item := range raw {
		observations = append(observations, s.normalizer.Observation(item))
	}
	s.enrichTitles(ctx, observations)

	s.state.Store(int32(StateReconciling))
	records, err := s.reconciler.Plan(ctx, observations, targetDate)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	s.state.Store(int32(StatePersisting))
	if err := s.reconciler.Persist(ctx, records); err != nil {
		return 0, fmt.Errorf("persist: %w", err)
	}

	now := time.Now()
	s.lastSync.Store(&now)
	s.info("sync completed",
		"articles", len(records),
		"date", domain.Day(targetDate).Format(domain.DateLayout))
	return len(records), nil
}

// enrichTitles backfills placeholder titles from the public article page.
// This is a degraded-tolerant path: a failed scrape keeps the placeholder
// and says so, it never aborts the run.
func (s *SyncRunner) enrichTitles(ctx context.Context, observations []domain.CumulativeObservation) {
	if s.enricher == nil {
		return
	}
	for i := range observations {
		obs := &observations[i]
		if obs.Title != normalize.UntitledTitle || obs.URL == "" {
			continue
		}
		meta, err := s.enricher.Enrich(ctx, obs.URL)
		if err != nil {
			s.warn("metadata enrichment failed, keeping placeholder title", "url", obs.URL, "error", err)
			continue
		}
		if meta.Title != "" {
			obs.Title = meta.Title
		}
		if meta.CanonicalURL != "" {
			obs.URL = meta.CanonicalURL
		}
	}
}

func (s *SyncRunner) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *SyncRunner) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
