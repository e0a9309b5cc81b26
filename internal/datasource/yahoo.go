package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// Default Yahoo Finance endpoints.
const (
	DefaultQuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	DefaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// maxSingleFetches bounds concurrent fallback chart requests.
const maxSingleFetches = 4

// YahooOptions configures a Yahoo fetcher. Zero values take defaults.
type YahooOptions struct {
	QuoteURL   string
	ChartURL   string
	Proxies    []string
	QuoteTTL   time.Duration
	HistoryTTL time.Duration
	Timeout    time.Duration
	RateLimit  int // requests per second; 0 disables limiting
	Client     *http.Client
	Logger     zerolog.Logger
	Now        infra.Clock
}

// Yahoo is the quote cache and fetcher backed by Yahoo Finance.
type Yahoo struct {
	quoteURL string
	chartURL string
	client   *proxyClient
	limiter  *infra.RateLimiter
	log      zerolog.Logger
	now      infra.Clock

	quoteTTL time.Duration
	mu       sync.RWMutex
	quotes   map[string]models.QuoteCacheEntry // display symbol → entry; stale entries are overwritten, never deleted

	history *infra.Cache[models.HistoryResult]
	flight  singleflight.Group
}

// NewYahoo creates a Yahoo Finance fetcher.
func NewYahoo(opts YahooOptions) *Yahoo {
	if opts.QuoteURL == "" {
		opts.QuoteURL = DefaultQuoteURL
	}
	if opts.ChartURL == "" {
		opts.ChartURL = DefaultChartURL
	}
	if opts.QuoteTTL <= 0 {
		opts.QuoteTTL = 10 * time.Second
	}
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = 5 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Yahoo{
		quoteURL: strings.TrimRight(opts.QuoteURL, "/"),
		chartURL: strings.TrimRight(opts.ChartURL, "/"),
		client:   newProxyClient(opts.Client, opts.Timeout, opts.Proxies, "Yahoo Finance"),
		limiter:  infra.NewRateLimiter(opts.RateLimit, time.Second),
		log:      opts.Logger,
		now:      opts.Now,
		quoteTTL: opts.QuoteTTL,
		quotes:   make(map[string]models.QuoteCacheEntry),
		history:  infra.NewCacheWithClock[models.HistoryResult](opts.HistoryTTL, opts.Now),
	}
}

// Name returns the data source name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	ShortName          string  `json:"shortName"`
	LongName           string  `json:"longName"`
	Currency           string  `json:"currency"`
	GMTOffset          int     `json:"gmtoffset"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	PreviousClose      float64 `json:"previousClose"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

type yfIndicators struct {
	Quote []struct {
		Close []*float64 `json:"close"`
	} `json:"quote"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// rangeSpec is the provider request and label layout for a history range.
type rangeSpec struct {
	providerRange string
	interval      string
	layout        string
}

var rangeSpecs = map[models.Range]rangeSpec{
	models.Range1D:  {"1d", "5m", "15:04"},
	models.Range1W:  {"5d", "1d", "Jan 02"},
	models.Range1M:  {"1mo", "1d", "Jan 02"},
	models.Range1Y:  {"1y", "1wk", "Jan 02 2006"},
	models.Range5Y:  {"5y", "1mo", "Jan 2006"},
	models.RangeMax: {"max", "3mo", "Jan 2006"},
}

// ── Quotes ──

// GetQuotes returns quotes for symbols in the order of the normalized
// (trimmed, uppercased, deduplicated) input. Fresh cache entries are served
// without a network call; the rest are batch-fetched, with single chart
// fetches as fallback. Symbols nothing is known about are omitted. An error
// is returned only when no symbol at all could be served.
func (y *Yahoo) GetQuotes(ctx context.Context, symbols []string) (models.QuoteResult, error) {
	wanted := NormalizeSymbols(symbols)
	if len(wanted) == 0 {
		return models.QuoteResult{}, nil
	}

	var misses []string
	now := y.now()
	y.mu.RLock()
	for _, s := range wanted {
		if e, ok := y.quotes[s]; !ok || !e.Fresh(now, y.quoteTTL) {
			misses = append(misses, s)
		}
	}
	y.mu.RUnlock()

	var sources []models.Source
	var fetchErr error
	if len(misses) > 0 {
		v, err, _ := y.flight.Do("quotes:"+strings.Join(misses, ","), func() (any, error) {
			return y.refresh(ctx, misses)
		})
		if v != nil {
			sources = v.([]models.Source)
		}
		if err != nil {
			fetchErr = err
			y.log.Warn().Err(err).Strs("symbols", misses).Msg("quote fetch failed, serving cached quotes")
		}
	}

	out := models.QuoteResult{Sources: sources}
	stale := false
	now = y.now()
	y.mu.RLock()
	for _, s := range wanted {
		e, ok := y.quotes[s]
		if !ok {
			continue
		}
		if !e.Fresh(now, y.quoteTTL) {
			stale = true
		}
		out.Data = append(out.Data, e.Quote)
	}
	y.mu.RUnlock()

	if len(out.Data) == 0 {
		if fetchErr == nil {
			fetchErr = ErrSymbolNotFound
		}
		return out, &FetchError{Op: "quotes", Symbols: wanted, Err: fetchErr}
	}
	if len(misses) < len(wanted) {
		out.Sources = append(out.Sources, models.Source{Name: "cache"})
	}
	if stale {
		out.Sources = append(out.Sources, models.Source{Name: "cache (stale)"})
	}
	return out, nil
}

// Quote returns the quote for a single symbol.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	res, err := y.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return models.Quote{}, err
	}
	return res.Data[0], nil
}

// refresh fetches the given display symbols and stores whatever comes back.
func (y *Yahoo) refresh(ctx context.Context, symbols []string) ([]models.Source, error) {
	var sources []models.Source

	got, src, batchErr := y.fetchBatch(ctx, symbols)
	if batchErr == nil {
		sources = append(sources, src)
		y.store(got)
	} else {
		y.log.Debug().Err(batchErr).Strs("symbols", symbols).Msg("batch quote fetch failed, falling back to chart")
	}

	var missing []string
	for _, s := range symbols {
		if _, ok := got[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return sources, nil
	}

	var (
		mu     sync.Mutex
		errs   []error
		served = make(map[string]models.Quote)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSingleFetches)
	for _, s := range missing {
		g.Go(func() error {
			q, src, err := y.fetchSingle(gctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Non-fatal: one missing symbol must not sink the rest.
				errs = append(errs, fmt.Errorf("%s: %w", s, err))
				return nil
			}
			served[s] = q
			sources = appendSource(sources, src)
			return nil
		})
	}
	_ = g.Wait()
	y.store(served)

	if len(served) == 0 && batchErr != nil {
		return sources, errors.Join(append([]error{batchErr}, errs...)...)
	}
	if len(errs) > 0 {
		y.log.Debug().Errs("errors", errs).Msg("some symbols could not be fetched")
	}
	return sources, nil
}

func (y *Yahoo) store(quotes map[string]models.Quote) {
	if len(quotes) == 0 {
		return
	}
	now := y.now()
	y.mu.Lock()
	for s, q := range quotes {
		y.quotes[s] = models.QuoteCacheEntry{Quote: q, FetchedAt: now}
	}
	y.mu.Unlock()
}

// fetchBatch requests all symbols from the quote endpoint in one call.
func (y *Yahoo) fetchBatch(ctx context.Context, symbols []string) (map[string]models.Quote, models.Source, error) {
	provider := make([]string, len(symbols))
	for i, s := range symbols {
		provider[i] = ToProvider(s)
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, models.Source{}, err
	}
	target := y.quoteURL + "?symbols=" + url.QueryEscape(strings.Join(provider, ","))
	body, src, err := y.client.get(ctx, target)
	if err != nil {
		return nil, src, fmt.Errorf("yahoo quote: %w", err)
	}

	quotes, err := parseQuoteBatch(body, y.now())
	if err != nil {
		return nil, src, err
	}
	return quotes, src, nil
}

// parseQuoteBatch reads a v7 quote response keyed by display symbol.
func parseQuoteBatch(body []byte, at time.Time) (map[string]models.Quote, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse yahoo quote: invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if desc := root.Get("quoteResponse.error.description"); desc.Exists() {
		return nil, fmt.Errorf("yahoo quote error: %s", desc.String())
	}
	results := root.Get("quoteResponse.result")
	if !results.IsArray() {
		return nil, fmt.Errorf("parse yahoo quote: %w", ErrNoData)
	}

	out := make(map[string]models.Quote)
	results.ForEach(func(_, r gjson.Result) bool {
		price := r.Get("regularMarketPrice")
		if !price.Exists() {
			return true
		}
		display := FromProvider(r.Get("symbol").String())
		ts := at
		if t := r.Get("regularMarketTime").Int(); t > 0 {
			ts = time.Unix(t, 0)
		}
		name := coalesce(r.Get("shortName").String(), r.Get("longName").String(), DisplayName(display))
		if info, ok := Lookup(display); ok {
			name = info.Name
		}
		out[display] = models.NewQuote(display, name,
			price.Float(),
			r.Get("regularMarketChange").Float(),
			r.Get("regularMarketChangePercent").Float(),
			ts,
		)
		return true
	})
	return out, nil
}

// fetchSingle builds a quote from the chart endpoint's metadata.
func (y *Yahoo) fetchSingle(ctx context.Context, symbol string) (models.Quote, models.Source, error) {
	res, src, err := y.fetchChart(ctx, symbol, rangeSpec{providerRange: "1d", interval: "1d"})
	if err != nil {
		return models.Quote{}, src, err
	}
	m := res.Meta
	if m.RegularMarketPrice == 0 {
		return models.Quote{}, src, ErrNoData
	}
	prev := m.ChartPreviousClose
	if prev == 0 {
		prev = m.PreviousClose
	}
	var change, pct float64
	if prev > 0 {
		change = m.RegularMarketPrice - prev
		pct = change / prev * 100
	}
	ts := y.now()
	if m.RegularMarketTime > 0 {
		ts = time.Unix(m.RegularMarketTime, 0)
	}
	name := DisplayName(symbol)
	if _, ok := Lookup(symbol); !ok {
		name = coalesce(m.ShortName, m.LongName, symbol)
	}
	return models.NewQuote(symbol, name, m.RegularMarketPrice, change, pct, ts), src, nil
}

// ── History ──

// GetHistory returns the price history of symbol over r, oldest first.
// Null closes are skipped. Series shorter than two points are returned as
// they are; callers decide whether to synthesize.
func (y *Yahoo) GetHistory(ctx context.Context, symbol string, r models.Range) (models.HistoryResult, error) {
	sym := NormalizeSymbol(symbol)
	spec, ok := rangeSpecs[r]
	if !ok {
		return models.HistoryResult{}, fmt.Errorf("history %s: unknown range %q", sym, r)
	}

	key := sym + ":" + string(r)
	if cached, ok := y.history.Get(key); ok {
		return cached, nil
	}

	v, err, _ := y.flight.Do("history:"+key, func() (any, error) {
		res, src, err := y.fetchChart(ctx, sym, spec)
		if err != nil {
			return nil, err
		}
		out := models.HistoryResult{
			History: parseHistory(res, spec.layout),
			Sources: []models.Source{src},
		}
		y.history.Set(key, out)
		return out, nil
	})
	if err != nil {
		if stale, _, ok := y.history.GetStale(key); ok {
			y.log.Warn().Err(err).Str("symbol", sym).Msg("history fetch failed, serving stale series")
			return stale, nil
		}
		return models.HistoryResult{}, &FetchError{Op: "history", Symbols: []string{sym}, Err: err}
	}
	return v.(models.HistoryResult), nil
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol string, spec rangeSpec) (yfChartResult, models.Source, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return yfChartResult{}, models.Source{}, err
	}

	target := fmt.Sprintf("%s/%s?range=%s&interval=%s",
		y.chartURL, url.PathEscape(ToProvider(symbol)), spec.providerRange, spec.interval)
	body, src, err := y.client.get(ctx, target)
	if err != nil {
		return yfChartResult{}, src, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return yfChartResult{}, src, fmt.Errorf("parse yahoo chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return yfChartResult{}, src, fmt.Errorf("yahoo chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return yfChartResult{}, src, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return resp.Chart.Result[0], src, nil
}

// parseHistory converts chart closes to labelled points in the exchange's
// local time.
func parseHistory(result yfChartResult, layout string) []models.HistoryPoint {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	closes := result.Indicators.Quote[0].Close
	loc := time.FixedZone("exchange", result.Meta.GMTOffset)

	points := make([]models.HistoryPoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || math.IsNaN(*closes[i]) {
			continue
		}
		points = append(points, models.HistoryPoint{
			Label: time.Unix(ts, 0).In(loc).Format(layout),
			Price: *closes[i],
		})
	}
	return points
}

// SynthesizeHistory returns an n-point straight line from the quote's
// previous close to its current price. It stands in for provider history
// that has fewer than two usable points.
func SynthesizeHistory(q models.Quote, n int) []models.HistoryPoint {
	if n < 2 {
		n = 2
	}
	start, end := q.PreviousClose(), q.PriceValue()
	points := make([]models.HistoryPoint, n)
	for i := range points {
		frac := float64(i) / float64(n-1)
		points[i] = models.HistoryPoint{
			Label: fmt.Sprintf("T-%d", n-1-i),
			Price: start + (end-start)*frac,
		}
	}
	points[n-1].Label = "Now"
	return points
}

func appendSource(sources []models.Source, src models.Source) []models.Source {
	for _, s := range sources {
		if s.Name == src.Name {
			return sources
		}
	}
	return append(sources, src)
}
