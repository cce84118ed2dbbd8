package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"NoteAnalytics/internal/config"
	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/infrastructure/noteapi"
	"NoteAnalytics/internal/infrastructure/notepage"
	"NoteAnalytics/internal/infrastructure/scheduler"
	"NoteAnalytics/internal/infrastructure/storage"
	"NoteAnalytics/internal/logging"
	"NoteAnalytics/internal/normalize"
	"NoteAnalytics/internal/retry"
	"NoteAnalytics/internal/server"
	"NoteAnalytics/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	server   *server.Server
	autoSync *usecase.AutoSync
}

// New builds the full runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	retrier := retry.New(
		cfg.Retry.MaxAttempts,
		cfg.Retry.BaseDelay(),
		cfg.Retry.Timeout(),
		baseLogger.With("component", "retry"),
	)

	repo := storage.NewRepository(db)
	resilient := storage.NewResilient(repo, retrier)

	source := noteapi.NewClient(
		cfg.Note.BaseURL,
		cfg.Note.MaxPages,
		cfg.Note.PageDelay(),
		baseLogger.With("component", "noteapi"),
	)
	enricher := notepage.NewEnricher(nil)

	reconciler := usecase.NewReconciler(resilient, resilient,
		baseLogger.With("component", "reconciler"))

	runner := usecase.NewSyncRunner(usecase.SyncRunnerDeps{
		Source:         source,
		Normalizer:     normalize.New(cfg.Note.SiteURL),
		Reconciler:     reconciler,
		Enricher:       enricher,
		Retrier:        retrier,
		FetchRetryable: noteapi.Retryable,
		Logger:         baseLogger.With("component", "sync"),
	})
	importer := usecase.NewImporter(resilient, reconciler,
		baseLogger.With("component", "import"))

	creds := domain.Credentials{
		AuthToken:    cfg.Note.AuthToken,
		SessionToken: cfg.Note.SessionToken,
	}

	srv := server.New(cfg.Server.Addr, runner, importer, resilient, creds,
		baseLogger.With("component", "http"))

	app := &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		server: srv,
	}

	// The recurring sync only makes sense with a configured credential pair.
	if cfg.Sync.AutoSyncHours > 0 && creds.AuthToken != "" && creds.SessionToken != "" {
		interval := time.Duration(cfg.Sync.AutoSyncHours) * time.Hour
		app.autoSync = usecase.NewAutoSync(
			scheduler.NewInterval(interval),
			runner,
			creds,
			baseLogger.With("component", "autosync"),
		)
	}

	return app, nil
}

// Run starts the recurring sync (if configured) and serves HTTP until the
// listener fails or Shutdown is called.
func (a *Application) Run(ctx context.Context) error {
	if a.autoSync != nil {
		if err := a.autoSync.Start(ctx); err != nil {
			return fmt.Errorf("start auto sync: %w", err)
		}
		a.logger.Info("auto sync enabled", "everyHours", a.cfg.Sync.AutoSyncHours)
	}
	return a.server.ListenAndServe()
}

// Shutdown stops the scheduler, drains the HTTP server, and closes the
// database.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.autoSync != nil {
		if err := a.autoSync.Stop(ctx); err != nil {
			a.logger.Warn("auto sync stop failed", "error", err)
		}
	}
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return a.db.Close()
}
