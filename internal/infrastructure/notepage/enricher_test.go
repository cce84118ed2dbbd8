package notepage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnrichReadsOpenGraphHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<title>fallback title｜note</title>
			<meta property="og:title" content="雨の日の書き方">
			<link rel="canonical" href="https://note.com/writer/n/nabc123">
		</head><body></body></html>`)
	}))
	defer srv.Close()

	meta, err := NewEnricher(srv.Client()).Enrich(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "雨の日の書き方", meta.Title)
	require.Equal(t, "https://note.com/writer/n/nabc123", meta.CanonicalURL)
}

func TestEnrichFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>plain title</title></head><body></body></html>`)
	}))
	defer srv.Close()

	meta, err := NewEnricher(srv.Client()).Enrich(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "plain title", meta.Title)
	require.Empty(t, meta.CanonicalURL)
}

func TestEnrichRejectsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewEnricher(srv.Client()).Enrich(context.Background(), srv.URL)
	require.Error(t, err)
}
