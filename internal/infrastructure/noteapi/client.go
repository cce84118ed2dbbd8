package noteapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/ports"
)

const (
	defaultBaseURL   = "https://note.com/api"
	defaultMaxPages  = 10
	defaultPageDelay = time.Second

	authCookie    = "note_gql_auth_token"
	sessionCookie = "_note_session_v5"
)

// StatusError marks a non-2xx rejection from the stats endpoint. Stale
// session cookies are the usual cause, so retrying without fresh
// credentials cannot help.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("note stats endpoint returned status %d", e.Code)
}

// Retryable reports whether a fetch failure is worth another attempt.
// Transport errors are; endpoint rejections are not.
func Retryable(err error) bool {
	var status *StatusError
	return !errors.As(err, &status)
}

// Client pages through the private stats endpoint.
type Client struct {
	http      *resty.Client
	maxPages  int
	pageDelay time.Duration
	logger    *slog.Logger
}

var _ ports.StatsSource = (*Client)(nil)

// NewClient wires a resty client against baseURL. maxPages bounds the
// pagination walk; pageDelay is the pause between successive pages.
func NewClient(baseURL string, maxPages int, pageDelay time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if maxPages < 1 {
		maxPages = defaultMaxPages
	}
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	return &Client{
		http:      resty.New().SetBaseURL(baseURL),
		maxPages:  maxPages,
		pageDelay: pageDelay,
		logger:    logger,
	}
}

type statsPage struct {
	Data struct {
		// Older API versions return "contents", newer ones "note_stats".
		Contents  []domain.RawStat `json:"contents"`
		NoteStats []domain.RawStat `json:"note_stats"`
		LastPage  bool             `json:"last_page"`
	} `json:"data"`
}

func (p statsPage) items() []domain.RawStat {
	if len(p.Data.Contents) > 0 {
		return p.Data.Contents
	}
	return p.Data.NoteStats
}

// FetchAll accumulates pages in source order until the endpoint signals the
// end of data, either with an empty page or an explicit last_page flag, or
// until maxPages is reached. Hitting the cap is not an error: the caller
// gets whatever was gathered, possibly partial.
func (c *Client) FetchAll(ctx context.Context, creds domain.Credentials) ([]domain.RawStat, error) {
	var all []domain.RawStat

	for page := 1; page <= c.maxPages; page++ {
		stats, err := c.fetchPage(ctx, creds, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		items := stats.items()
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
		c.debug("fetched stats page", "page", page, "items", len(items))

		if stats.Data.LastPage {
			break
		}
		if page == c.maxPages {
			c.debug("page cap reached, returning partial result", "pages", page)
			break
		}

		// The endpoint throttles aggressive sessions; the pause between
		// pages is a correctness requirement, not an optimization.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, creds domain.Credentials, page int) (statsPage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", fmt.Sprintf("%s=%s; %s=%s",
			authCookie, creds.AuthToken, sessionCookie, creds.SessionToken)).
		SetQueryParams(map[string]string{
			"filter": "all",
			"page":   strconv.Itoa(page),
			"sort":   "pv",
		}).
		Get("/v1/stats/pv")
	if err != nil {
		return statsPage{}, fmt.Errorf("request stats: %w", err)
	}
	if resp.IsError() {
		return statsPage{}, &StatusError{Code: resp.StatusCode()}
	}

	var parsed statsPage
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return statsPage{}, fmt.Errorf("decode stats payload: %w", err)
	}
	return parsed, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
