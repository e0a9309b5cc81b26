package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Markets</title>
<item><title>Stocks rally into the close</title><link>https://news.example/rally</link>
<description><![CDATA[<p>The <b>S&amp;P 500</b> rose   1%.</p>]]></description>
<pubDate>Mon, 06 Oct 2025 15:00:00 GMT</pubDate></item>
<item><title>Oil slips on supply data</title><link>https://news.example/oil</link>
<description>Crude fell.</description>
<pubDate>Mon, 06 Oct 2025 18:30:00 GMT</pubDate></item>
<item><title>  </title><link>https://news.example/empty</link></item>
</channel></rss>`

func TestGetNewsMergesAndSorts(t *testing.T) {
	var calls atomic.Int32
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer bad.Close()

	n := NewNews(NewsOptions{
		Sources: []NewsSource{{Name: "Good", RSSURL: good.URL}, {Name: "Bad", RSSURL: bad.URL}},
		TTL:     time.Minute,
	})

	res, err := n.GetNews(context.Background())
	require.NoError(t, err)
	require.Len(t, res.News, 2, "blank titles are dropped")

	assert.Equal(t, "Oil slips on supply data", res.News[0].Title, "newest first")
	assert.Equal(t, "The S&P 500 rose 1%.", res.News[1].Summary)
	assert.Equal(t, "Good", res.News[0].Source)
	require.Len(t, res.Sources, 1)

	_, err = n.GetNews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call is served from cache")
}

func TestGetNewsAllFeedsFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()

	n := NewNews(NewsOptions{Sources: []NewsSource{{Name: "Bad", RSSURL: bad.URL}}})
	_, err := n.GetNews(context.Background())
	assert.Error(t, err)
}

func TestGetNewsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	n := NewNews(NewsOptions{Sources: []NewsSource{{Name: "A", RSSURL: srv.URL}}, Limit: 1})
	res, err := n.GetNews(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.News, 1)
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Hello <a href='#'>world</a></p>", "Hello world"},
		{"line one<br/>\n  line two", "line one line two"},
	}
	for _, tt := range tests {
		if got := cleanHTML(tt.in); got != tt.want {
			t.Errorf("cleanHTML(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
