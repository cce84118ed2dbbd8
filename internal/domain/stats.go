package domain

import "time"

// DailyStat is the site-wide metric growth for one calendar day.
type DailyStat struct {
	Date   time.Time
	Totals MetricTotals
}

// ArticleSummary is the lifetime total per article, derived by summing its
// stored delta records.
type ArticleSummary struct {
	ID     string
	Title  string
	URL    string
	Totals MetricTotals
}

// DeltaRow is one stored delta joined with its article title, the unit of
// the detail CSV export.
type DeltaRow struct {
	Title  string
	Date   time.Time
	Totals MetricTotals
}

// PageMetadata is what the public article page exposes about itself.
type PageMetadata struct {
	Title        string
	CanonicalURL string
}
