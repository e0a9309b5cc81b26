package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/seenimoa/marketpulse/api"
	"github.com/seenimoa/marketpulse/internal/analysis/sentiment"
	"github.com/seenimoa/marketpulse/internal/analysis/technical"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

var (
	up   = color.New(color.FgGreen).SprintFunc()
	down = color.New(color.FgRed).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

func colored(positive bool, s string) string {
	if positive {
		return up(s)
	}
	return down(s)
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() { cancel(); stop() }
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the refresh jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := commandContext(0)
		defer stop()

		srv := api.NewServer(cfg, api.Deps{
			Quotes:    a.yahoo,
			News:      a.news,
			Market:    a.market,
			Books:     a.books,
			Assistant: a.assistant,
			KV:        a.kv,
			Logger:    a.log,
		})
		if err := a.market.Start(ctx); err != nil {
			return err
		}

		addr := cfg.Addr()
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			addr = fmt.Sprintf("%s:%d", cfg.API.Host, port)
		}
		fmt.Printf("🌐 MarketPulse API on http://%s (market %s)\n", addr, utils.MarketStatus())
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "override api.port")
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbols...]",
	Short: "Print live quotes (default: the tracked list)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		symbols := datasource.NormalizeSymbols(args)
		if len(symbols) == 0 {
			symbols = cfg.Assistant.Tracked
		}
		ctx, stop := commandContext(cfg.DataSource.Timeout * 2)
		defer stop()

		res, err := a.yahoo.GetQuotes(ctx, symbols)
		if len(res.Data) == 0 {
			return err
		}
		for _, q := range res.Data {
			fmt.Printf("%-8s %-28s %14s  %s\n",
				bold(q.Symbol), q.DisplayName, q.Price,
				colored(q.IsPositive, q.AbsoluteChange+" ("+q.PercentChange+"%)"))
		}
		if err != nil {
			fmt.Println(dim("some symbols failed: " + err.Error()))
		}
		return nil
	},
}

// --- History Command ---

var historyCmd = &cobra.Command{
	Use:   "history [symbol]",
	Short: "Print price history with trend and levels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rangeFlag, _ := cmd.Flags().GetString("range")
		rng, err := models.ParseRange(rangeFlag)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := commandContext(cfg.DataSource.Timeout * 2)
		defer stop()

		symbol := datasource.NormalizeSymbol(args[0])
		res, err := a.yahoo.GetHistory(ctx, symbol, rng)
		if len(res.History) == 0 {
			return err
		}
		for _, p := range res.History {
			fmt.Printf("  %-18s %s\n", p.Label, utils.FormatPrice(p.Price))
		}

		prices := models.Prices(res.History)
		trend, delta := technical.TrendOf(prices)
		lv := technical.SupportResistance(prices)
		fmt.Println()
		fmt.Printf("%s %s over %s: %s (%s)\n", bold(symbol), datasource.DisplayName(symbol), rng,
			colored(!trend.IsDown(), string(trend)), utils.FormatSignedPercent(delta))
		fmt.Printf("Support %s | Resistance %s | Volatility %.2f%%\n",
			utils.FormatPrice(lv.Support), utils.FormatPrice(lv.Resistance), technical.Volatility(prices))
		return nil
	},
}

func init() {
	historyCmd.Flags().String("range", string(models.Range1M), "history range (1D, 1W, 1M, 1Y, 5Y, MAX)")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Print the latest market headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := commandContext(cfg.DataSource.Timeout * 2)
		defer stop()

		res, err := a.news.GetNews(ctx)
		if len(res.News) == 0 {
			return err
		}
		mood := sentiment.Aggregate(res.News, time.Now())
		fmt.Printf("News mood: %s (%+.2f, %d up / %d down)\n\n",
			colored(mood.Score >= 0, string(mood.Label)), mood.Score, mood.Bullish, mood.Bearish)
		for i, n := range res.News {
			if limit > 0 && i >= limit {
				break
			}
			s := sentiment.ScoreItem(n)
			fmt.Printf("%s %s %s\n   %s\n", colored(s.Value >= 0, fmt.Sprintf("%+.1f", s.Value)),
				bold(n.Title), dim("("+n.Source+", "+utils.FormatDateTimeET(n.PublishedAt)+")"), n.Link)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 10, "number of headlines")
}

// --- Search Command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the symbol directory",
	Args:  cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		hits := datasource.Search(args[0], 20)
		if len(hits) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, h := range hits {
			fmt.Printf("%-8s %-10s %s\n", bold(h.Symbol), dim(string(h.Kind)), h.Name)
		}
		return nil
	},
}
