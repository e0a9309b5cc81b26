package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/marketpulse/pkg/models"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

const batchBody = `{"quoteResponse":{"result":[
  {"symbol":"^GSPC","shortName":"S&P 500","regularMarketPrice":5123.4,"regularMarketChange":-12.3,"regularMarketChangePercent":-0.24,"regularMarketTime":1760000000},
  {"symbol":"AAPL","shortName":"Apple Inc.","regularMarketPrice":180,"regularMarketChange":2.66,"regularMarketChangePercent":1.5,"regularMarketTime":1760000000}
],"error":null}}`

func chartBody(symbol string, price, prev float64, closes string) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":%q,"gmtoffset":0,"regularMarketPrice":%g,"chartPreviousClose":%g},
"timestamp":[1759708800,1759795200,1759881600],"indicators":{"quote":[{"close":%s}]}}],"error":null}}`,
		symbol, price, prev, closes)
}

// yahooServer serves the quote and chart endpoints and counts requests.
type yahooServer struct {
	*httptest.Server
	quoteCalls atomic.Int32
	chartCalls atomic.Int32
	quoteBody  atomic.Value // string
	failQuote  atomic.Bool
	charts     map[string]string
}

func newYahooServer(t *testing.T) *yahooServer {
	t.Helper()
	ys := &yahooServer{charts: map[string]string{}}
	ys.quoteBody.Store(batchBody)

	mux := http.NewServeMux()
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		ys.quoteCalls.Add(1)
		if ys.failQuote.Load() {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, ys.quoteBody.Load().(string))
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		ys.chartCalls.Add(1)
		sym := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		body, ok := ys.charts[sym]
		if !ok {
			http.Error(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	})
	ys.Server = httptest.NewServer(mux)
	t.Cleanup(ys.Close)
	return ys
}

func (ys *yahooServer) fetcher(clk *testClock, proxies ...string) *Yahoo {
	return NewYahoo(YahooOptions{
		QuoteURL: ys.URL + "/v7/finance/quote",
		ChartURL: ys.URL + "/v8/finance/chart",
		Proxies:  proxies,
		QuoteTTL: 10 * time.Second,
		Now:      clk.Now,
	})
}

// ════════════════════════════════════════════════════════════════════
// Quotes
// ════════════════════════════════════════════════════════════════════

func TestGetQuotesOrderAndNormalization(t *testing.T) {
	ys := newYahooServer(t)
	y := ys.fetcher(&testClock{t: time.Now()})

	res, err := y.GetQuotes(context.Background(), []string{" aapl", "SPX", "AAPL"})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)

	assert.Equal(t, "AAPL", res.Data[0].Symbol)
	assert.Equal(t, "SPX", res.Data[1].Symbol)
	assert.Equal(t, "S&P 500", res.Data[1].DisplayName)
	assert.Equal(t, "180.00", res.Data[0].Price)
	assert.Equal(t, "+2.66", res.Data[0].AbsoluteChange)
	assert.Equal(t, "+1.50%", res.Data[0].PercentChange)
	assert.True(t, res.Data[0].IsPositive)
	assert.False(t, res.Data[1].IsPositive)
	assert.Equal(t, "Yahoo Finance", res.Sources[0].Name)
}

func TestGetQuotesWithinTTLDoesNotRefetch(t *testing.T) {
	ys := newYahooServer(t)
	clk := &testClock{t: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}
	y := ys.fetcher(clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := y.GetQuotes(ctx, []string{"AAPL", "SPX"})
		require.NoError(t, err)
		clk.Advance(3 * time.Second)
	}
	assert.Equal(t, int32(1), ys.quoteCalls.Load(), "calls inside the TTL must be served from cache")

	clk.Advance(2 * time.Second) // 11s after the fetch
	_, err := y.GetQuotes(ctx, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), ys.quoteCalls.Load(), "stale entry must trigger a new fetch")
}

func TestGetQuotesFallsBackToChart(t *testing.T) {
	ys := newYahooServer(t)
	ys.charts["MSFT"] = chartBody("MSFT", 400, 404, "[401,402,400]")
	y := ys.fetcher(&testClock{t: time.Now()})

	res, err := y.GetQuotes(context.Background(), []string{"AAPL", "MSFT", "ZZZZ"})
	require.NoError(t, err)
	require.Len(t, res.Data, 2, "unknown symbols are omitted, not nulled")

	assert.Equal(t, "AAPL", res.Data[0].Symbol)
	msft := res.Data[1]
	assert.Equal(t, "MSFT", msft.Symbol)
	assert.Equal(t, "Microsoft Corporation", msft.DisplayName)
	assert.Equal(t, "-4.00", msft.AbsoluteChange)
	assert.False(t, msft.IsPositive)
	assert.Equal(t, int32(2), ys.chartCalls.Load())
}

func TestGetQuotesAllFailed(t *testing.T) {
	ys := newYahooServer(t)
	ys.failQuote.Store(true)
	y := ys.fetcher(&testClock{t: time.Now()})

	_, err := y.GetQuotes(context.Background(), []string{"NOPE"})
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "quotes", fe.Op)
	assert.Equal(t, []string{"NOPE"}, fe.Symbols)
}

func TestGetQuotesServesStaleOnFailure(t *testing.T) {
	ys := newYahooServer(t)
	clk := &testClock{t: time.Now()}
	y := ys.fetcher(clk)
	ctx := context.Background()

	_, err := y.GetQuotes(ctx, []string{"AAPL"})
	require.NoError(t, err)

	ys.failQuote.Store(true)
	clk.Advance(time.Minute)

	res, err := y.GetQuotes(ctx, []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "180.00", res.Data[0].Price)
	assert.Contains(t, res.Sources, models.Source{Name: "cache (stale)"})
}

func TestGetQuotesEmptyInput(t *testing.T) {
	ys := newYahooServer(t)
	y := ys.fetcher(&testClock{t: time.Now()})

	res, err := y.GetQuotes(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Zero(t, ys.quoteCalls.Load())
}

func TestGetQuotesProxyChain(t *testing.T) {
	ys := newYahooServer(t)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer broken.Close()

	var forwarded atomic.Value
	wrapping := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		forwarded.Store(target)
		resp, err := http.Get(target)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(w, `{"contents":%q,"status":{"http_code":200}}`, body)
	}))
	defer wrapping.Close()

	y := ys.fetcher(&testClock{t: time.Now()}, broken.URL+"/?url=", wrapping.URL+"/get?url=")
	res, err := y.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)

	assert.Contains(t, forwarded.Load().(string), "/v7/finance/quote?symbols=AAPL")
	assert.Equal(t, "Yahoo Finance via "+strings.TrimPrefix(wrapping.URL, "http://"), res.Sources[0].Name)
}

// ════════════════════════════════════════════════════════════════════
// History
// ════════════════════════════════════════════════════════════════════

func TestGetHistorySkipsNullCloses(t *testing.T) {
	ys := newYahooServer(t)
	ys.charts["^GSPC"] = chartBody("^GSPC", 5123.4, 5100, "[5000.5,null,5123.4]")
	y := ys.fetcher(&testClock{t: time.Now()})

	res, err := y.GetHistory(context.Background(), "spx", models.Range1M)
	require.NoError(t, err)
	require.Len(t, res.History, 2)
	assert.Equal(t, models.HistoryPoint{Label: "Oct 06", Price: 5000.5}, res.History[0])
	assert.Equal(t, 5123.4, res.History[1].Price)

	_, err = y.GetHistory(context.Background(), "SPX", models.Range1M)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ys.chartCalls.Load(), "second request is served from the history cache")
}

func TestGetHistoryUnknownRange(t *testing.T) {
	ys := newYahooServer(t)
	y := ys.fetcher(&testClock{t: time.Now()})

	_, err := y.GetHistory(context.Background(), "AAPL", models.Range("3D"))
	assert.Error(t, err)
}

func TestGetHistoryNotFound(t *testing.T) {
	ys := newYahooServer(t)
	y := ys.fetcher(&testClock{t: time.Now()})

	_, err := y.GetHistory(context.Background(), "NOPE", models.Range1D)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "history", fe.Op)
}

func TestSynthesizeHistory(t *testing.T) {
	q := models.NewQuote("AAPL", "Apple Inc.", 180, 2, 1.12, time.Now())
	pts := SynthesizeHistory(q, 10)

	require.Len(t, pts, 10)
	assert.InDelta(t, 178.0, pts[0].Price, 1e-9)
	assert.InDelta(t, 180.0, pts[9].Price, 1e-9)
	assert.Equal(t, "Now", pts[9].Label)
	for i := 1; i < len(pts); i++ {
		assert.GreaterOrEqual(t, pts[i].Price, pts[i-1].Price)
	}

	assert.Len(t, SynthesizeHistory(q, 1), 2, "at least two points")
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func TestUnwrapProxyBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"wrapped", `{"contents":"{\"a\":1}"}`, `{"a":1}`},
		{"plain json", `{"quoteResponse":{}}`, `{"quoteResponse":{}}`},
		{"xml", `<rss></rss>`, `<rss></rss>`},
		{"non-string contents", `{"contents":{"a":1}}`, `{"contents":{"a":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(unwrapProxyBody([]byte(tt.in))); got != tt.want {
				t.Errorf("unwrapProxyBody(%s): got %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestHTTPErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := doGet(context.Background(), srv.Client(), srv.URL)
	var httpErr *ErrHTTP
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}
