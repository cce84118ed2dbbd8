package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"NoteAnalytics/internal/domain"
)

// utf8BOM keeps spreadsheet apps from mangling the Japanese headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	detailHeader  = []string{"記事タイトル", "日付", "ビュー数", "スキ数", "コメント数"}
	summaryHeader = []string{"記事タイトル", "累計ビュー数", "累計スキ数", "累計コメント数", "URL"}
)

// WriteDetail emits one row per stored delta record, BOM-prefixed.
func WriteDetail(w io.Writer, rows []domain.DeltaRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(detailHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Title,
			row.Date.Format(domain.DateLayout),
			strconv.FormatUint(row.Totals.PV, 10),
			strconv.FormatUint(row.Totals.Likes, 10),
			strconv.FormatUint(row.Totals.Comments, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary emits one row per article with its lifetime totals.
func WriteSummary(w io.Writer, summaries []domain.ArticleSummary) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range summaries {
		record := []string{
			s.Title,
			strconv.FormatUint(s.Totals.PV, 10),
			strconv.FormatUint(s.Totals.Likes, 10),
			strconv.FormatUint(s.Totals.Comments, 10),
			s.URL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
