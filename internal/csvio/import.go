package csvio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"NoteAnalytics/internal/domain"
)

// ErrNoTitleColumn means the header matched none of the known title
// aliases; the file is not a stats export we can read.
var ErrNoTitleColumn = errors.New("no title column found in csv header")

// Header aliases accepted on import. note's own exports label columns in
// Japanese; spreadsheets re-saved by users often rename them.
var (
	titleAliases   = []string{"タイトル", "記事名", "title", "記事タイトル", "Title", "Article"}
	pvAliases      = []string{"ビュー", "PV", "pv", "ビュー数", "累計ビュー数", "Views", "views"}
	likeAliases    = []string{"スキ", "いいね", "likes", "Likes", "Like", "スキ数", "累計スキ数"}
	commentAliases = []string{"コメント", "comments", "Comments", "Comment", "コメント数", "累計コメント数"}
)

// ParseImport reads a cumulative-totals CSV into observations. Rows carry
// no date; the caller picks one target date for the whole file. The input
// may be BOM-prefixed and uses RFC 4180 quoting.
func ParseImport(r io.Reader) ([]domain.CumulativeObservation, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	titleIdx := columnIndex(header, titleAliases)
	if titleIdx < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoTitleColumn, header)
	}
	pvIdx := columnIndex(header, pvAliases)
	likeIdx := columnIndex(header, likeAliases)
	commentIdx := columnIndex(header, commentAliases)

	var observations []domain.CumulativeObservation
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if blankRow(row) {
			continue
		}

		observations = append(observations, domain.CumulativeObservation{
			Title: strings.TrimSpace(field(row, titleIdx)),
			Totals: domain.MetricTotals{
				PV:       parseCount(field(row, pvIdx)),
				Likes:    parseCount(field(row, likeIdx)),
				Comments: parseCount(field(row, commentIdx)),
			},
		})
	}
	return observations, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(3); err == nil && bytes.Equal(lead, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}

func columnIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range header {
			if strings.TrimSpace(cell) == alias {
				return i
			}
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseCount clamps unparseable and negative values to zero; import never
// fails on a single bad cell.
func parseCount(value string) uint64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return uint64(parsed)
}
