package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/seenimoa/marketpulse/internal/assistant"
	"github.com/seenimoa/marketpulse/internal/config"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/internal/logging"
	"github.com/seenimoa/marketpulse/internal/market"
	"github.com/seenimoa/marketpulse/internal/portfolio"
	"github.com/seenimoa/marketpulse/internal/store"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// app is the wired component graph shared by the commands.
type app struct {
	log       zerolog.Logger
	kv        store.Store
	yahoo     *datasource.Yahoo
	news      *datasource.News
	books     *portfolio.Manager
	market    *market.Store
	assistant *assistant.Assistant
}

func newApp(cfg *config.Config) (*app, error) {
	log := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	kv, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	yahoo := datasource.NewYahoo(datasource.YahooOptions{
		QuoteURL:   cfg.DataSource.QuoteURL,
		ChartURL:   cfg.DataSource.ChartURL,
		Proxies:    cfg.DataSource.Proxies,
		QuoteTTL:   cfg.DataSource.QuoteTTL,
		HistoryTTL: cfg.DataSource.HistoryTTL,
		Timeout:    cfg.DataSource.Timeout,
		RateLimit:  cfg.DataSource.RateLimit,
		Logger:     logging.Component(log, "datasource"),
	})

	feeds := make([]datasource.NewsSource, 0, len(cfg.DataSource.NewsFeeds))
	for _, f := range cfg.DataSource.NewsFeeds {
		feeds = append(feeds, datasource.NewsSource{Name: f.Name, RSSURL: f.URL})
	}
	news := datasource.NewNews(datasource.NewsOptions{
		Sources: feeds,
		Proxies: cfg.DataSource.Proxies,
		TTL:     cfg.DataSource.NewsTTL,
		Timeout: cfg.DataSource.Timeout,
		Limit:   cfg.DataSource.NewsLimit,
		Logger:  logging.Component(log, "news"),
	})

	books := portfolio.NewManager(kv, logging.Component(log, "portfolio"))

	mk := market.New(yahoo, news, books, market.Options{
		Tracked:        cfg.Assistant.Tracked,
		QuotesEvery:    cfg.Refresh.Quotes,
		NewsEvery:      cfg.Refresh.News,
		PortfolioEvery: cfg.Refresh.Portfolio,
		Logger:         logging.Component(log, "market"),
	})

	opts, err := assistantOptions(cfg, logging.Component(log, "assistant"))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		log:       log,
		kv:        kv,
		yahoo:     yahoo,
		news:      news,
		books:     books,
		market:    mk,
		assistant: assistant.New(yahoo, opts, nil),
	}, nil
}

// assistantOptions maps the assistant config section onto engine options.
func assistantOptions(cfg *config.Config, log zerolog.Logger) (assistant.Options, error) {
	rng, err := models.ParseRange(cfg.Assistant.HistoryRange)
	if err != nil {
		return assistant.Options{}, err
	}
	opts := assistant.Options{
		HistoryRange:     rng,
		DefaultAmount:    cfg.Assistant.DefaultAmount,
		DefaultYears:     cfg.Assistant.DefaultYears,
		FearIndexSymbol:  cfg.Assistant.FearIndexSymbol,
		DefaultFearIndex: cfg.Assistant.DefaultFearIndex,
		Tracked:          cfg.Assistant.Tracked,
		Logger:           log,
	}
	if path := cfg.Assistant.TablesFile; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return assistant.Options{}, fmt.Errorf("read assistant tables: %w", err)
		}
		if opts.Tables, err = assistant.ParseTables(data); err != nil {
			return assistant.Options{}, fmt.Errorf("assistant tables %s: %w", path, err)
		}
	}
	return opts, nil
}

func (a *app) Close() {
	a.market.Stop()
	if err := a.kv.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing store")
	}
}
