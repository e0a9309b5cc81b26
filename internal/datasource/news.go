package datasource

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketpulse/internal/infra"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// NewsSource is one RSS feed.
type NewsSource struct {
	Name   string
	RSSURL string
}

// DefaultNewsSources lists the market news RSS feeds used when none are configured.
var DefaultNewsSources = []NewsSource{
	{Name: "Yahoo Finance", RSSURL: "https://finance.yahoo.com/news/rssindex"},
	{Name: "CNBC Markets", RSSURL: "https://www.cnbc.com/id/10000664/device/rss/rss.html"},
	{Name: "MarketWatch", RSSURL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
}

// DefaultNewsLimit caps the merged headline list.
const DefaultNewsLimit = 30

const newsCacheKey = "news"

// NewsOptions configures a News fetcher. Zero values take defaults.
type NewsOptions struct {
	Sources []NewsSource
	Proxies []string
	TTL     time.Duration
	Timeout time.Duration
	Limit   int
	Client  *http.Client
	Logger  zerolog.Logger
}

// News fetches and merges market headlines from RSS feeds.
type News struct {
	sources []NewsSource
	limit   int
	client  *proxyClient
	cache   *infra.Cache[models.NewsResult]
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
	log     zerolog.Logger
}

// NewNews creates a news fetcher.
func NewNews(opts NewsOptions) *News {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultNewsSources
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultNewsLimit
	}
	return &News{
		sources: opts.Sources,
		limit:   opts.Limit,
		client:  newProxyClient(opts.Client, opts.Timeout, opts.Proxies, "RSS"),
		cache:   infra.NewCache[models.NewsResult](opts.TTL),
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  gofeed.NewParser(),
		log:     opts.Logger,
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "RSS News" }

// GetNews returns recent headlines from all feeds, newest first. Failed
// feeds are skipped; an error is returned only when every feed failed.
func (n *News) GetNews(ctx context.Context) (models.NewsResult, error) {
	if cached, ok := n.cache.Get(newsCacheKey); ok {
		return cached, nil
	}

	var (
		mu     sync.Mutex
		result models.NewsResult
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range n.sources {
		g.Go(func() error {
			items, err := n.fetchRSS(gctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Non-critical: skip failed sources.
				failed++
				n.log.Warn().Err(err).Str("feed", src.Name).Msg("news feed failed")
				return nil
			}
			result.News = append(result.News, items...)
			result.Sources = append(result.Sources, models.Source{Name: src.Name, URL: src.RSSURL})
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(n.sources) {
		if stale, _, ok := n.cache.GetStale(newsCacheKey); ok {
			return stale, nil
		}
		return models.NewsResult{}, &FetchError{Op: "news", Err: ErrNoData}
	}

	sortNewsByDate(result.News)
	if len(result.News) > n.limit {
		result.News = result.News[:n.limit]
	}
	sort.Slice(result.Sources, func(i, j int) bool { return result.Sources[i].Name < result.Sources[j].Name })

	n.cache.Set(newsCacheKey, result)
	return result, nil
}

// fetchRSS parses one feed into news items.
func (n *News) fetchRSS(ctx context.Context, src NewsSource) ([]models.NewsItem, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _, err := n.client.get(ctx, src.RSSURL)
	if err != nil {
		return nil, fmt.Errorf("fetch RSS %s: %w", src.Name, err)
	}
	feed, err := n.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		ni := models.NewsItem{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Source:  src.Name,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			ni.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			ni.PublishedAt = *item.UpdatedParsed
		}
		items = append(items, ni)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sortNewsByDate sorts items by published date, newest first.
func sortNewsByDate(items []models.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}
