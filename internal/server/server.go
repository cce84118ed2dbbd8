package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NoteAnalytics/internal/csvio"
	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/ports"
	"NoteAnalytics/internal/usecase"
)

// SyncService triggers a fetch-and-reconcile run against the stats source.
type SyncService interface {
	Run(ctx context.Context, creds domain.Credentials, targetDate time.Time) (int, error)
	LastSync() (time.Time, bool)
}

// ImportService reconciles externally supplied observations for one date.
type ImportService interface {
	Import(ctx context.Context, observations []domain.CumulativeObservation, targetDate time.Time, publishDrafts bool) (int, error)
}

type Server struct {
	engine   *gin.Engine
	syncer   SyncService
	importer ImportService
	reports  ports.ReportRepository
	creds    domain.Credentials
	logger   *slog.Logger
	http     *http.Server
}

func New(addr string, syncer SyncService, importer ImportService, reports ports.ReportRepository, creds domain.Credentials, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		syncer:   syncer,
		importer: importer,
		reports:  reports,
		creds:    creds,
		logger:   logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	engine.POST("/sync", s.handleSync)
	engine.POST("/import", s.handleImport)
	engine.GET("/api/stats", s.handleStats)
	engine.GET("/api/trends", s.handleTrends)
	engine.GET("/api/articles", s.handleArticles)
	engine.GET("/export", s.handleExport)

	s.engine = engine
	s.http = &http.Server{Addr: addr, Handler: engine}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// The dashboard is served from a different origin during development, so
// every response allows cross-origin reads.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type syncRequest struct {
	AuthToken    string `json:"authToken"`
	SessionToken string `json:"sessionToken"`
}

func (s *Server) handleSync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	// Request credentials win; the server-held pair is the fallback for
	// deployments that configure them once. Exactly one token is a client
	// mistake, not a fallback case.
	creds := domain.Credentials{AuthToken: req.AuthToken, SessionToken: req.SessionToken}
	if (creds.AuthToken == "") != (creds.SessionToken == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "auth token and session token must be supplied together"})
		return
	}
	if creds.AuthToken == "" {
		creds = s.creds
	}

	count, err := s.syncer.Run(c.Request.Context(), creds, domain.Day(time.Now()))
	switch {
	case errors.Is(err, usecase.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "auth token and session token are required"})
	case errors.Is(err, usecase.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": "a sync is already in progress"})
	case err != nil:
		s.logger.Error("sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"count":   count,
			"message": fmt.Sprintf("synced %d articles", count),
		})
	}
}

func (s *Server) handleImport(c *gin.Context) {
	targetDate := domain.Day(time.Now())
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		targetDate = parsed
	}
	publishDrafts := c.Query("publishDrafts") == "true"

	observations, err := csvio.ParseImport(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid csv: %v", err)})
		return
	}

	count, err := s.importer.Import(c.Request.Context(), observations, targetDate, publishDrafts)
	if err != nil {
		s.logger.Error("import failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
		"message": fmt.Sprintf("imported %d rows for %s", count, targetDate.Format(domain.DateLayout)),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	totals, err := s.reports.OverallTotals(c.Request.Context())
	if err != nil {
		s.logger.Error("overall totals query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	resp := gin.H{
		"totalPv":       totals.PV,
		"totalLikes":    totals.Likes,
		"totalComments": totals.Comments,
	}
	if last, ok := s.syncer.LastSync(); ok {
		resp["lastSync"] = last.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTrends(c *gin.Context) {
	start, end, err := dateRange(c, 30)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := s.reports.DailyTotals(c.Request.Context(), start, end)
	if err != nil {
		s.logger.Error("daily totals query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	type trendPoint struct {
		Date     string `json:"date"`
		PV       uint64 `json:"pv"`
		Likes    uint64 `json:"likes"`
		Comments uint64 `json:"comments"`
	}
	points := make([]trendPoint, 0, len(stats))
	for _, stat := range stats {
		points = append(points, trendPoint{
			Date:     stat.Date.Format(domain.DateLayout),
			PV:       stat.Totals.PV,
			Likes:    stat.Totals.Likes,
			Comments: stat.Totals.Comments,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trends": points})
}

func (s *Server) handleArticles(c *gin.Context) {
	summaries, err := s.reports.ArticleSummaries(c.Request.Context())
	if err != nil {
		s.logger.Error("article summaries query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	type articleEntry struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		URL      string `json:"url,omitempty"`
		PV       uint64 `json:"pv"`
		Likes    uint64 `json:"likes"`
		Comments uint64 `json:"comments"`
	}
	entries := make([]articleEntry, 0, len(summaries))
	for _, summary := range summaries {
		entries = append(entries, articleEntry{
			ID:       summary.ID,
			Title:    summary.Title,
			URL:      summary.URL,
			PV:       summary.Totals.PV,
			Likes:    summary.Totals.Likes,
			Comments: summary.Totals.Comments,
		})
	}
	c.JSON(http.StatusOK, gin.H{"articles": entries})
}

func (s *Server) handleExport(c *gin.Context) {
	kind := c.DefaultQuery("type", "detail")

	switch kind {
	case "detail":
		start, end, err := dateRange(c, 365)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := s.reports.DeltaRows(c.Request.Context(), start, end)
		if err != nil {
			s.logger.Error("delta rows query failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		writeAttachment(c, fmt.Sprintf("note-stats-detail-%s.csv", end.Format(domain.DateLayout)))
		if err := csvio.WriteDetail(c.Writer, rows); err != nil {
			s.logger.Error("csv export failed", "error", err)
		}
	case "summary":
		summaries, err := s.reports.ArticleSummaries(c.Request.Context())
		if err != nil {
			s.logger.Error("article summaries query failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		writeAttachment(c, fmt.Sprintf("note-stats-summary-%s.csv", time.Now().Format(domain.DateLayout)))
		if err := csvio.WriteSummary(c.Writer, summaries); err != nil {
			s.logger.Error("csv export failed", "error", err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be detail or summary"})
	}
}

func writeAttachment(c *gin.Context, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
}

func dateRange(c *gin.Context, defaultDays int) (time.Time, time.Time, error) {
	end := domain.Day(time.Now())
	start := end.AddDate(0, 0, -defaultDays)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be YYYY-MM-DD")
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be YYYY-MM-DD")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end must not be before start")
	}
	return start, end, nil
}
