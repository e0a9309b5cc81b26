// Package market keeps the process-wide snapshot of quotes, news and
// portfolio valuations, refreshed by cron jobs.
package market

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketpulse/internal/analysis/sentiment"
	"github.com/seenimoa/marketpulse/internal/portfolio"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// QuoteSource fetches quotes.
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string) (models.QuoteResult, error)
}

// NewsSource fetches headlines.
type NewsSource interface {
	GetNews(ctx context.Context) (models.NewsResult, error)
}

// UpdateKind identifies what a refresh changed.
type UpdateKind string

const (
	UpdateQuotes    UpdateKind = "quotes"
	UpdateNews      UpdateKind = "news"
	UpdatePortfolio UpdateKind = "portfolio"
)

// Update is sent to subscribers after a successful refresh.
type Update struct {
	Kind      UpdateKind                `json:"kind"`
	UserID    string                    `json:"userId,omitempty"`
	Quotes    []models.Quote            `json:"quotes,omitempty"`
	News      []models.NewsItem         `json:"news,omitempty"`
	Mood      *sentiment.Mood           `json:"mood,omitempty"`
	Portfolio *models.PortfolioSnapshot `json:"portfolio,omitempty"`
	At        time.Time                 `json:"at"`
}

// Snapshot is a consistent copy of the store.
type Snapshot struct {
	Quotes        []models.Quote    `json:"quotes"`
	QuoteSources  []models.Source   `json:"quoteSources"`
	QuotesUpdated time.Time         `json:"quotesUpdated"`
	News          []models.NewsItem `json:"news"`
	NewsSources   []models.Source   `json:"newsSources"`
	NewsUpdated   time.Time         `json:"newsUpdated"`
	NewsMood      sentiment.Mood    `json:"newsMood"`
}

// Options configures a Store.
type Options struct {
	Tracked        []string
	QuotesEvery    time.Duration
	NewsEvery      time.Duration
	PortfolioEvery time.Duration
	JobTimeout     time.Duration
	Logger         zerolog.Logger
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.QuotesEvery <= 0 {
		o.QuotesEvery = 15 * time.Second
	}
	if o.NewsEvery <= 0 {
		o.NewsEvery = 2 * time.Minute
	}
	if o.PortfolioEvery <= 0 {
		o.PortfolioEvery = 15 * time.Second
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Store holds the latest market snapshot. A failed refresh keeps the
// previous data in place.
type Store struct {
	quotes QuoteSource
	news   NewsSource
	books  *portfolio.Manager
	opts   Options
	log    zerolog.Logger

	mu         sync.RWMutex
	snap       Snapshot
	quoteIndex map[string]int
	portfolios map[string]models.PortfolioSnapshot
	subs       []func(Update)

	cron *cron.Cron
	ctx  context.Context
}

// New creates a store. books may be nil when portfolio valuation is not
// needed.
func New(quotes QuoteSource, news NewsSource, books *portfolio.Manager, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		quotes:     quotes,
		news:       news,
		books:      books,
		opts:       opts,
		log:        opts.Logger.With().Str("component", "market").Logger(),
		quoteIndex: make(map[string]int),
		portfolios: make(map[string]models.PortfolioSnapshot),
		ctx:        context.Background(),
	}
}

// ════════════════════════════════════════════════════════════════════
// Scheduling
// ════════════════════════════════════════════════════════════════════

// Start runs an initial refresh and schedules the refresh jobs. Jobs run
// with ctx until Stop is called.
func (s *Store) Start(ctx context.Context) error {
	s.ctx = ctx
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})))

	jobs := []struct {
		name  string
		every time.Duration
		run   func(context.Context) error
	}{
		{"quotes", s.opts.QuotesEvery, s.RefreshQuotes},
		{"news", s.opts.NewsEvery, s.RefreshNews},
		{"portfolio", s.opts.PortfolioEvery, s.RefreshPortfolios},
	}
	for _, j := range jobs {
		j := j
		spec := fmt.Sprintf("@every %s", j.every)
		if _, err := c.AddFunc(spec, func() { s.runJob(j.name, j.run) }); err != nil {
			return fmt.Errorf("register %s job: %w", j.name, err)
		}
	}

	s.RefreshAll(ctx)
	s.cron = c
	c.Start()
	s.log.Info().
		Dur("quotes", s.opts.QuotesEvery).
		Dur("news", s.opts.NewsEvery).
		Dur("portfolio", s.opts.PortfolioEvery).
		Msg("refresh jobs started")
	return nil
}

// Stop stops the jobs and waits for running ones to finish.
func (s *Store) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info().Msg("refresh jobs stopped")
}

// RefreshAll refreshes quotes and news concurrently, then portfolios.
// Failures are logged.
func (s *Store) RefreshAll(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { s.runJobCtx(ctx, "quotes", s.RefreshQuotes); return nil })
	g.Go(func() error { s.runJobCtx(ctx, "news", s.RefreshNews); return nil })
	_ = g.Wait()
	s.runJobCtx(ctx, "portfolio", s.RefreshPortfolios)
}

func (s *Store) runJob(name string, run func(context.Context) error) {
	s.runJobCtx(s.ctx, name, run)
}

func (s *Store) runJobCtx(ctx context.Context, name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.JobTimeout)
	defer cancel()
	start := time.Now()
	if err := run(ctx); err != nil {
		s.log.Warn().Err(err).Str("job", name).Msg("refresh failed, keeping previous snapshot")
		return
	}
	s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("refreshed")
}

// ════════════════════════════════════════════════════════════════════
// Refresh
// ════════════════════════════════════════════════════════════════════

// RefreshQuotes fetches the tracked symbols. Symbols missing from the
// result keep their previous quote.
func (s *Store) RefreshQuotes(ctx context.Context) error {
	if len(s.opts.Tracked) == 0 {
		return nil
	}
	res, err := s.quotes.GetQuotes(ctx, s.opts.Tracked)
	if len(res.Data) == 0 {
		if err == nil {
			err = fmt.Errorf("no quotes returned")
		}
		return fmt.Errorf("refresh quotes: %w", err)
	}

	now := s.opts.Now()
	s.mu.Lock()
	for _, q := range res.Data {
		if i, ok := s.quoteIndex[q.Symbol]; ok {
			s.snap.Quotes[i] = q
			continue
		}
		s.quoteIndex[q.Symbol] = len(s.snap.Quotes)
		s.snap.Quotes = append(s.snap.Quotes, q)
	}
	s.snap.QuoteSources = res.Sources
	s.snap.QuotesUpdated = now
	quotes := slices.Clone(s.snap.Quotes)
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateQuotes, Quotes: quotes, At: now})
	return nil
}

// RefreshNews replaces the headlines.
func (s *Store) RefreshNews(ctx context.Context) error {
	if s.news == nil {
		return nil
	}
	res, err := s.news.GetNews(ctx)
	if err != nil && len(res.News) == 0 {
		return fmt.Errorf("refresh news: %w", err)
	}

	now := s.opts.Now()
	s.mu.Lock()
	s.snap.News = res.News
	s.snap.NewsSources = res.Sources
	s.snap.NewsUpdated = now
	s.snap.NewsMood = sentiment.Aggregate(res.News, now)
	mood := s.snap.NewsMood
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateNews, News: slices.Clone(res.News), Mood: &mood, At: now})
	return nil
}

// RefreshPortfolios values every loaded book at current quotes.
func (s *Store) RefreshPortfolios(ctx context.Context) error {
	if s.books == nil {
		return nil
	}
	var errs []error
	for _, id := range s.books.Users() {
		if _, err := s.RefreshPortfolio(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshPortfolio values one user's book and stores the snapshot.
func (s *Store) RefreshPortfolio(ctx context.Context, userID string) (models.PortfolioSnapshot, error) {
	if s.books == nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("portfolio valuation is not configured")
	}
	b, err := s.books.For(ctx, userID)
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}

	var held []string
	for _, p := range b.Portfolio() {
		held = append(held, p.Symbol)
	}
	var quotes []models.Quote
	if len(held) > 0 {
		res, err := s.quotes.GetQuotes(ctx, held)
		if err != nil && len(res.Data) == 0 {
			s.log.Warn().Err(err).Str("user", userID).Msg("portfolio quotes unavailable")
		}
		quotes = res.Data
	}

	snap := b.Valuation(quotes, s.opts.Now())
	s.mu.Lock()
	s.portfolios[userID] = snap
	s.mu.Unlock()

	s.notify(Update{Kind: UpdatePortfolio, UserID: userID, Portfolio: &snap, At: snap.UpdatedAt})
	return snap, nil
}

// ════════════════════════════════════════════════════════════════════
// Reads
// ════════════════════════════════════════════════════════════════════

// Snapshot returns a copy of the current quotes and news.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Quotes = slices.Clone(s.snap.Quotes)
	out.QuoteSources = slices.Clone(s.snap.QuoteSources)
	out.News = slices.Clone(s.snap.News)
	out.NewsSources = slices.Clone(s.snap.NewsSources)
	return out
}

// Quote returns the latest quote for symbol.
func (s *Store) Quote(symbol string) (models.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.quoteIndex[symbol]
	if !ok {
		return models.Quote{}, false
	}
	return s.snap.Quotes[i], true
}

// Portfolio returns the last valuation of the user's book.
func (s *Store) Portfolio(userID string) (models.PortfolioSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.portfolios[userID]
	return snap, ok
}

// OnUpdate registers fn to be called after each successful refresh.
// Callbacks run synchronously on the refreshing goroutine.
func (s *Store) OnUpdate(fn func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify(u Update) {
	s.mu.RLock()
	subs := slices.Clone(s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(u)
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
