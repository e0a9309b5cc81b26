package assistant

import (
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/internal/analysis/technical"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// SyntheticPoints is the length of the stand-in series used when the
// provider returns fewer than two history points.
const SyntheticPoints = 10

// Index symbols shown in overviews.
var Indices = []string{"SPX", "NDX", "DJI", "DAX", "FTSE", "N225"}

// Options configures an Engine and the Assistant built on it.
type Options struct {
	HistoryRange     models.Range
	DefaultAmount    float64
	DefaultYears     float64
	FearIndexSymbol  string
	DefaultFearIndex float64
	Tracked          []string // breadth universe for the market state
	Tables           *Tables
	Logger           zerolog.Logger
	Rand             *rand.Rand
	Now              func() time.Time
}

// DefaultOptions returns the standard engine settings.
func DefaultOptions() Options {
	return Options{
		HistoryRange:     models.Range1M,
		DefaultAmount:    10,
		DefaultYears:     5,
		FearIndexSymbol:  "VIX",
		DefaultFearIndex: 20,
		Tracked: []string{
			"SPX", "NDX", "DJI", "VIX", "DAX", "FTSE", "N225",
			"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA",
		},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HistoryRange == "" {
		o.HistoryRange = d.HistoryRange
	}
	if o.DefaultAmount <= 0 {
		o.DefaultAmount = d.DefaultAmount
	}
	if o.DefaultYears <= 0 {
		o.DefaultYears = d.DefaultYears
	}
	if o.FearIndexSymbol == "" {
		o.FearIndexSymbol = d.FearIndexSymbol
	}
	if o.DefaultFearIndex <= 0 {
		o.DefaultFearIndex = d.DefaultFearIndex
	}
	if len(o.Tracked) == 0 {
		o.Tracked = d.Tracked
	}
	if o.Tables == nil {
		o.Tables = DefaultTables()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// goalDefaults are the goal fallbacks at the current engine time.
func (o Options) goalDefaults() GoalDefaults {
	return GoalDefaults{Amount: o.DefaultAmount, Years: o.DefaultYears, Now: o.Now()}
}

// Engine holds a refreshable quote snapshot and a per-symbol history cache
// and renders the analysis reports. Neither cache expires: quotes are
// refreshed explicitly before each report, and history is fetched once per
// symbol for the engine's lifetime.
type Engine struct {
	data MarketData
	opts Options
	log  zerolog.Logger

	mu      sync.RWMutex
	quotes  map[string]models.Quote
	history map[string][]models.HistoryPoint
}

// NewEngine creates an engine reading from data.
func NewEngine(data MarketData, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		data:    data,
		opts:    opts,
		log:     opts.Logger,
		quotes:  make(map[string]models.Quote),
		history: make(map[string][]models.HistoryPoint),
	}
}

// Refresh updates the snapshot for symbols. A failed fetch is logged and
// the previous snapshot is kept.
func (e *Engine) Refresh(ctx context.Context, symbols ...string) {
	if len(symbols) == 0 {
		return
	}
	res, err := e.data.GetQuotes(ctx, symbols)
	if err != nil {
		e.log.Warn().Err(err).Strs("symbols", symbols).Str("op", "quotes").Msg("refresh failed, using cached quotes")
	}
	if len(res.Data) == 0 {
		return
	}
	e.mu.Lock()
	for _, q := range res.Data {
		e.quotes[q.Symbol] = q
	}
	e.mu.Unlock()
}

// Quote returns the cached quote for symbol.
func (e *Engine) Quote(symbol string) (models.Quote, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	q, ok := e.quotes[symbol]
	return q, ok
}

// quotesFor returns cached quotes for symbols in order, skipping unknowns.
func (e *Engine) quotesFor(symbols []string) []models.Quote {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := e.quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Prices returns the history prices for symbol. Provider history is cached
// for the engine's lifetime. When the provider has fewer than two points a
// straight-line series from the quote is used instead and not cached.
func (e *Engine) Prices(ctx context.Context, symbol string) []float64 {
	e.mu.RLock()
	cached, ok := e.history[symbol]
	e.mu.RUnlock()
	if ok {
		return models.Prices(cached)
	}

	res, err := e.data.GetHistory(ctx, symbol, e.opts.HistoryRange)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Str("op", "history").Msg("history fetch failed")
	}
	if len(res.History) >= 2 {
		e.mu.Lock()
		e.history[symbol] = res.History
		e.mu.Unlock()
		return models.Prices(res.History)
	}

	if q, ok := e.Quote(symbol); ok {
		return models.Prices(datasource.SynthesizeHistory(q, SyntheticPoints))
	}
	return nil
}

// Metrics is the computed view of one symbol.
type Metrics struct {
	Quote      models.Quote
	Trend      technical.Trend
	TrendDelta float64
	Momentum   float64
	Volatility float64
	Levels     technical.Levels
	Average    float64 // mean of the last five points, 0 without enough data
	Points     int
}

// metrics computes the metrics of a symbol whose quote is cached.
func (e *Engine) metrics(ctx context.Context, q models.Quote) Metrics {
	prices := e.Prices(ctx, q.Symbol)
	trend, delta := technical.TrendOf(prices)
	return Metrics{
		Quote:      q,
		Trend:      trend,
		TrendDelta: delta,
		Momentum:   technical.Momentum(q.PercentValue(), prices),
		Volatility: technical.Volatility(prices),
		Levels:     technical.SupportResistance(prices),
		Average:    technical.SMALatest(prices, technical.MomentumWindow),
		Points:     len(prices),
	}
}

// FearIndex returns the cached fear-index level or the configured default.
func (e *Engine) FearIndex() float64 {
	if q, ok := e.Quote(e.opts.FearIndexSymbol); ok && q.PriceValue() > 0 {
		return q.PriceValue()
	}
	return e.opts.DefaultFearIndex
}

// MarketState refreshes the tracked universe and classifies the market.
// The fear index itself is excluded from the breadth count.
func (e *Engine) MarketState(ctx context.Context) technical.MarketState {
	e.Refresh(ctx, e.trackedWithFear()...)
	return e.marketState()
}

func (e *Engine) marketState() technical.MarketState {
	bias := technical.PositiveBias(e.quotesFor(e.opts.Tracked), e.opts.FearIndexSymbol)
	return technical.ClassifyMarket(bias, e.FearIndex())
}

func (e *Engine) trackedWithFear() []string {
	if slices.Contains(e.opts.Tracked, e.opts.FearIndexSymbol) {
		return e.opts.Tracked
	}
	return append(slices.Clone(e.opts.Tracked), e.opts.FearIndexSymbol)
}

// trackedStocks returns the tracked symbols that are individual stocks.
func (e *Engine) trackedStocks() []string {
	var out []string
	for _, s := range e.opts.Tracked {
		if info, ok := datasource.Lookup(s); ok && info.Kind != datasource.KindStock {
			continue
		}
		out = append(out, s)
	}
	return out
}
