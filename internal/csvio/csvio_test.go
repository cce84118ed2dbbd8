package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NoteAnalytics/internal/domain"
)

func TestParseImportReadsNoteExport(t *testing.T) {
	input := "\xEF\xBB\xBF" +
		"タイトル,ビュー,スキ,コメント\n" +
		"\"記事, その1\",\"1,234\",56,7\n" +
		"\"引用 \"\"あり\"\" の記事\",90,0,1\n"

	observations, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, observations, 2)

	require.Equal(t, "記事, その1", observations[0].Title)
	require.Equal(t, domain.MetricTotals{PV: 1234, Likes: 56, Comments: 7}, observations[0].Totals)
	require.Equal(t, `引用 "あり" の記事`, observations[1].Title)
	require.Equal(t, domain.MetricTotals{PV: 90, Comments: 1}, observations[1].Totals)
}

func TestParseImportAcceptsAliasHeaders(t *testing.T) {
	input := "Title,Views,Likes,Comments\npost,10,2,1\n"

	observations, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, observations, 1)
	require.Equal(t, "post", observations[0].Title)
	require.Equal(t, domain.MetricTotals{PV: 10, Likes: 2, Comments: 1}, observations[0].Totals)
}

func TestParseImportSkipsBlankAndBadRows(t *testing.T) {
	input := "タイトル,ビュー\n" +
		"post,100\n" +
		",\n" +
		"another,not-a-number\n"

	observations, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, observations, 2)
	require.Equal(t, uint64(100), observations[0].Totals.PV)
	// Unparseable counts clamp to zero instead of failing the file.
	require.Equal(t, uint64(0), observations[1].Totals.PV)
}

func TestParseImportRejectsUnknownHeader(t *testing.T) {
	_, err := ParseImport(strings.NewReader("foo,bar\n1,2\n"))
	require.ErrorIs(t, err, ErrNoTitleColumn)
}

func TestWriteDetailIsBOMPrefixed(t *testing.T) {
	date, err := time.Parse(domain.DateLayout, "2024-06-01")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDetail(&buf, []domain.DeltaRow{
		{Title: "記事A", Date: date, Totals: domain.MetricTotals{PV: 50, Likes: 3, Comments: 1}},
	}))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"))
	require.Equal(t,
		"記事タイトル,日付,ビュー数,スキ数,コメント数\n記事A,2024-06-01,50,3,1\n",
		strings.TrimPrefix(out, "\xEF\xBB\xBF"))
}

func TestWriteSummaryIncludesURL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, []domain.ArticleSummary{
		{Title: "記事A", URL: "https://note.com/u/n/a1", Totals: domain.MetricTotals{PV: 500, Likes: 20, Comments: 4}},
	}))

	out := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	require.Equal(t,
		"記事タイトル,累計ビュー数,累計スキ数,累計コメント数,URL\n記事A,500,20,4,https://note.com/u/n/a1\n",
		out)
}

func TestImportExportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, []domain.ArticleSummary{
		{Title: "記事A", Totals: domain.MetricTotals{PV: 500, Likes: 20, Comments: 4}},
	}))

	// A summary export uses alias headers the importer understands.
	observations, err := ParseImport(&buf)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	require.Equal(t, "記事A", observations[0].Title)
	require.Equal(t, domain.MetricTotals{PV: 500, Likes: 20, Comments: 4}, observations[0].Totals)
}
