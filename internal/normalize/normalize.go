package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"NoteAnalytics/internal/domain"
)

// UntitledTitle mirrors the placeholder note itself shows for nameless
// drafts.
const UntitledTitle = "無題"

const defaultSiteURL = "https://note.com"

// Accessor candidates per logical field, evaluated in priority order. The
// stats endpoint renamed most of these at least once across API versions,
// and CSV re-imports bring back the older spellings.
var (
	idFields      = []string{"id", "key"}
	keyFields     = []string{"key"}
	titleFields   = []string{"name", "title"}
	urlFields     = []string{"noteUrl", "url"}
	userFields    = []string{"userUrlname", "urlname"}
	pvFields      = []string{"readCount", "pv", "read_count"}
	likeFields    = []string{"likeCount", "likes", "like_count"}
	commentFields = []string{"commentCount", "comments", "comment_count"}
)

// Normalizer maps raw stats payloads into canonical observations.
type Normalizer struct {
	siteURL string
}

// New builds a normalizer; siteURL is the public site root used when a URL
// has to be templated from its components.
func New(siteURL string) Normalizer {
	if siteURL == "" {
		siteURL = defaultSiteURL
	}
	return Normalizer{siteURL: strings.TrimSuffix(siteURL, "/")}
}

// Observation converts one raw item into the canonical shape. It is total:
// missing fields fall back to zero counts, the untitled placeholder, or an
// empty URL, never to an error.
func (n Normalizer) Observation(raw domain.RawStat) domain.CumulativeObservation {
	obs := domain.CumulativeObservation{
		ArticleID: stringField(raw, idFields),
		Title:     stringField(raw, titleFields),
		URL:       stringField(raw, urlFields),
		Totals: domain.MetricTotals{
			PV:       countField(raw, pvFields),
			Likes:    countField(raw, likeFields),
			Comments: countField(raw, commentFields),
		},
	}

	if obs.Title == "" {
		obs.Title = UntitledTitle
	}
	if obs.URL == "" {
		obs.URL = n.templateURL(raw)
	}

	return obs
}

func (n Normalizer) templateURL(raw domain.RawStat) string {
	user := stringField(raw, userFields)
	key := stringField(raw, keyFields)
	if user == "" || key == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/n/%s", n.siteURL, user, key)
}

func stringField(raw domain.RawStat, candidates []string) string {
	for _, name := range candidates {
		v, ok := raw[name]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case int:
			return strconv.Itoa(s)
		case int64:
			return strconv.FormatInt(s, 10)
		}
	}
	return ""
}

// countField returns the first alias that coerces to a positive count.
// A present-but-zero field falls through to later aliases, matching how
// the endpoint reports zeros under stale field names.
func countField(raw domain.RawStat, candidates []string) uint64 {
	for _, name := range candidates {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		if count := coerceCount(v); count > 0 {
			return count
		}
	}
	return 0
}

// coerceCount clamps negatives to zero at parse time; counters are
// non-negative by contract.
func coerceCount(v any) uint64 {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case int:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case int64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case uint64:
		return n
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if cleaned == "" {
			return 0
		}
		parsed, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil || parsed < 0 {
			return 0
		}
		return uint64(parsed)
	}
	return 0
}
