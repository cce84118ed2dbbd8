package domain

import "time"

// Article is the master record for one note. It is created on first
// sighting (scrape or CSV import) and only metadata-updated afterwards;
// deletion is a user action outside this service.
type Article struct {
	ID        string
	Title     string
	URL       string
	Status    ArticleStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArticleStatus tracks the publication lifecycle of a note.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusArchived  ArticleStatus = "archived"
)

// MetricTotals groups the three engagement counters. Counters are always
// non-negative; 64 bits is far beyond blog scale.
type MetricTotals struct {
	PV       uint64
	Likes    uint64
	Comments uint64
}

// Add accumulates other into t.
func (t *MetricTotals) Add(other MetricTotals) {
	t.PV += other.PV
	t.Likes += other.Likes
	t.Comments += other.Comments
}

// CumulativeObservation is a single reading of lifetime totals as reported
// by the stats endpoint or a CSV export. It is not yet attributed to a date
// and never persisted as-is.
type CumulativeObservation struct {
	ArticleID string
	Title     string
	URL       string
	Totals    MetricTotals
}

// DeltaRecord is the metric growth attributed to exactly one calendar day
// for one article. There is at most one record per (article, date); a
// re-import fully replaces it.
type DeltaRecord struct {
	ArticleID string
	Date      time.Time
	Totals    MetricTotals
}

// RawStat is one unnormalized item as returned by the stats endpoint. Field
// names vary across API versions, so the shape stays loose until the
// normalizer has run.
type RawStat = map[string]any

// Credentials carries the two opaque note session tokens. The service never
// inspects them beyond checking presence.
type Credentials struct {
	AuthToken    string
	SessionToken string
}

// DateLayout is the canonical persisted form of a calendar date.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
