package assistant

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/seenimoa/marketpulse/internal/analysis/technical"
	"github.com/seenimoa/marketpulse/internal/datasource"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// Fixed replies.
const (
	HelpText = "**I'm your market assistant.** Here is what I can do:\n" +
		"- **Analyze a stock:** \"Analyze AAPL\"\n" +
		"- **Compare:** \"Compare MSFT vs GOOGL\"\n" +
		"- **Market overview:** \"How are the markets today?\"\n" +
		"- **Investment goals:** \"I have $500, can I turn it into $2,000?\"\n" +
		"- **Portfolio ideas:** \"Suggest dividend stocks\" or \"Create a tech portfolio\"\n" +
		"- **Watchlist:** \"Add TSLA to my watchlist\", \"Show my watchlist\"\n" +
		"- **Learn:** \"What is an ETF?\""

	ClarifyText = "Happy to help, but I need a bit more detail. What should I do it with?\n" +
		"For example: \"Create a **tech** portfolio\", \"Add **NVDA** to my watchlist\" or \"Analyze **AAPL**\"."

	WelcomeText = "Hi! I'm your trading assistant. Ask me about any ticker, the overall market, " +
		"or an investment goal. Type **help** to see everything I can do."

	FallbackText = "Sorry, I'm having a connection issue and couldn't finish that analysis. Please try again in a moment."
)

// ── Single symbol ──

// DeepStockAnalysis renders the full technical report for one symbol.
func (e *Engine) DeepStockAnalysis(ctx context.Context, symbol string) string {
	e.Refresh(ctx, symbol)
	q, ok := e.Quote(symbol)
	if !ok {
		return fmt.Sprintf("I couldn't find live data for **%s**. Check the symbol and try again, "+
			"or ask for a market overview instead.", symbol)
	}
	m := e.metrics(ctx, q)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s · %s**\n", q.Symbol, q.DisplayName)
	fmt.Fprintf(&b, "Price: **%s** (%s today)\n\n", utils.FormatUSD(q.PriceValue()), q.PercentChange)
	fmt.Fprintf(&b, "**Technical picture (%s)**\n", e.opts.HistoryRange)
	if m.Trend == technical.TrendInsufficient {
		fmt.Fprintf(&b, "- Trend: **%s**\n", m.Trend)
	} else {
		fmt.Fprintf(&b, "- Trend: **%s** (%s)\n", m.Trend, utils.FormatSignedPercent(m.TrendDelta))
	}
	fmt.Fprintf(&b, "- Momentum: **%s** (%s)\n", signed(m.Momentum), direction(m.Momentum))
	fmt.Fprintf(&b, "- Volatility: **%.2f%%** daily (%s)\n", m.Volatility, volatilityBand(m.Volatility))
	if m.Levels != (technical.Levels{}) {
		fmt.Fprintf(&b, "- Support: **%s** | Resistance: **%s**\n",
			utils.FormatUSD(m.Levels.Support), utils.FormatUSD(m.Levels.Resistance))
	}
	if m.Average > 0 {
		side := "above"
		if q.PriceValue() < m.Average {
			side = "below"
		}
		fmt.Fprintf(&b, "- 5-point average: %s, price is %s it\n", utils.FormatUSD(m.Average), side)
	}
	fmt.Fprintf(&b, "\n**Take:** %s", verdict(m))
	return b.String()
}

func verdict(m Metrics) string {
	price := m.Quote.PriceValue()
	var parts []string
	switch {
	case m.Trend == technical.TrendInsufficient:
		parts = append(parts, "Not enough history for a trend read, so lean on the daily move and keep positions small.")
	case m.Trend.IsUp() && m.Momentum > 0:
		parts = append(parts, fmt.Sprintf("Buyers are in control. Pullbacks toward support at %s have been buying opportunities.",
			utils.FormatUSD(m.Levels.Support)))
	case m.Trend.IsUp():
		parts = append(parts, "The uptrend is intact but losing steam. Waiting for momentum to turn up is the safer entry.")
	case m.Trend.IsDown() && m.Momentum < 0:
		parts = append(parts, "Sellers are in control. Wait for a base above support before adding.")
	case m.Trend.IsDown():
		parts = append(parts, fmt.Sprintf("A bounce inside a downtrend. Confirmation needs a move above resistance at %s.",
			utils.FormatUSD(m.Levels.Resistance)))
	default:
		parts = append(parts, fmt.Sprintf("Range-bound. Support at %s and resistance at %s frame the trade.",
			utils.FormatUSD(m.Levels.Support), utils.FormatUSD(m.Levels.Resistance)))
	}
	if m.Levels.Resistance > 0 && price >= m.Levels.Resistance {
		parts = append(parts, "Price is testing resistance, so a breakout or a pullback is next.")
	} else if m.Levels.Support > 0 && price <= m.Levels.Support {
		parts = append(parts, "Price is sitting on support. A close below it would weaken the picture.")
	}
	if m.Volatility >= 3.5 {
		parts = append(parts, "Swings are large, so size the position accordingly.")
	}
	return strings.Join(parts, " ")
}

// ── Comparison ──

// benchmark is compared against when only one symbol is named.
const benchmark = "SPX"

// CompareStocks renders a side-by-side comparison. A single symbol is
// compared with the S&P 500.
func (e *Engine) CompareStocks(ctx context.Context, symbols []string) string {
	symbols = capSymbols(symbols)
	if len(symbols) == 1 && symbols[0] != benchmark {
		symbols = append(symbols, benchmark)
	}
	e.Refresh(ctx, symbols...)

	var (
		rows    []Metrics
		missing []string
	)
	for _, s := range symbols {
		q, ok := e.Quote(s)
		if !ok {
			missing = append(missing, s)
			continue
		}
		rows = append(rows, e.metrics(ctx, q))
	}
	if len(rows) == 0 {
		return fmt.Sprintf("I couldn't load data for %s right now. Please try again shortly.", strings.Join(symbols, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Comparison: %s**\n", strings.Join(symbolsOf(rows), " vs "))
	for _, m := range rows {
		fmt.Fprintf(&b, "- **%s** %s (%s) | %s | momentum %s | volatility %.2f%%\n",
			m.Quote.Symbol, utils.FormatUSD(m.Quote.PriceValue()), m.Quote.PercentChange,
			m.Trend, signed(m.Momentum), m.Volatility)
	}

	if len(rows) >= 2 {
		strongest, calmest := rows[0], rows[0]
		for _, m := range rows[1:] {
			if m.Momentum > strongest.Momentum {
				strongest = m
			}
			if m.Volatility < calmest.Volatility {
				calmest = m
			}
		}
		fmt.Fprintf(&b, "\nStrongest momentum: **%s** (%s). Calmest: **%s** (%.2f%% daily volatility).",
			strongest.Quote.Symbol, signed(strongest.Momentum), calmest.Quote.Symbol, calmest.Volatility)
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nNo data for: %s.", strings.Join(missing, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ── Market-wide reports ──

// MarketOverview renders index levels and the market state.
func (e *Engine) MarketOverview(ctx context.Context) string {
	e.Refresh(ctx, append(slices.Clone(Indices), e.trackedWithFear()...)...)
	st := e.marketState()

	var b strings.Builder
	fmt.Fprintf(&b, "**Market overview: %s** (risk: %s)\n\n", st.Sentiment, st.Risk)
	for _, q := range e.quotesFor(Indices) {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", q.DisplayName, q.Price, q.PercentChange)
	}
	fmt.Fprintf(&b, "\nBreadth: **%.0f%%** of tracked symbols are up. Fear index: **%.2f**.\n", st.Bias*100, st.FearIndex)
	fmt.Fprintf(&b, "Suggested stance: **%s**.", st.Action)
	return b.String()
}

// FindOpportunities lists pullbacks in uptrends and momentum leaders.
func (e *Engine) FindOpportunities(ctx context.Context) string {
	stocks := e.trackedStocks()
	e.Refresh(ctx, stocks...)

	var all []Metrics
	for _, q := range e.quotesFor(stocks) {
		all = append(all, e.metrics(ctx, q))
	}
	if len(all) == 0 {
		return "I couldn't load enough market data to look for opportunities. Please try again shortly."
	}

	var pullbacks, leaders []Metrics
	for _, m := range all {
		if m.Trend.IsUp() && !m.Quote.IsPositive {
			pullbacks = append(pullbacks, m)
		}
		if m.Momentum > 0 {
			leaders = append(leaders, m)
		}
	}
	sort.SliceStable(leaders, func(i, j int) bool { return leaders[i].Momentum > leaders[j].Momentum })
	if len(leaders) > 3 {
		leaders = leaders[:3]
	}

	var b strings.Builder
	b.WriteString("**Opportunities right now**\n")
	if len(pullbacks) > 0 {
		b.WriteString("\n**Pullbacks in uptrends** (down today, trending up):\n")
		for _, m := range pullbacks {
			fmt.Fprintf(&b, "- **%s** %s (%s), support %s\n", m.Quote.Symbol,
				utils.FormatUSD(m.Quote.PriceValue()), m.Quote.PercentChange, utils.FormatUSD(m.Levels.Support))
		}
	}
	if len(leaders) > 0 {
		b.WriteString("\n**Momentum leaders:**\n")
		for _, m := range leaders {
			fmt.Fprintf(&b, "- **%s** momentum %s, %s\n", m.Quote.Symbol, signed(m.Momentum), m.Trend)
		}
	}
	if len(pullbacks) == 0 && len(leaders) == 0 {
		b.WriteString("\nNo clean setups at the moment. Patience is a position too.\n")
	}
	b.WriteString("\nThese are technical observations, not recommendations. Always size positions to your risk tolerance.")
	return b.String()
}

// RiskAnalysis renders the fear index, market state and index volatility.
func (e *Engine) RiskAnalysis(ctx context.Context) string {
	st := e.MarketState(ctx)
	spxVol := technical.Volatility(e.Prices(ctx, benchmark))

	var b strings.Builder
	fmt.Fprintf(&b, "**Risk check: %s**\n\n", st.Risk)
	fmt.Fprintf(&b, "- Fear index: **%.2f** (%s)\n", st.FearIndex, fearBand(st.FearIndex))
	fmt.Fprintf(&b, "- Market sentiment: **%s**\n", st.Sentiment)
	fmt.Fprintf(&b, "- S&P 500 daily volatility: **%.2f%%** (%s)\n\n", spxVol, volatilityBand(spxVol))
	switch st.Risk {
	case "low":
		b.WriteString("Conditions are calm. It is a reasonable time to build positions, but keep stop-losses in place.")
	case "high":
		b.WriteString("Conditions are stressed. Cut leverage, hold more cash or bonds, and avoid chasing rebounds.")
	case "elevated":
		b.WriteString("Risk is rising. Trim the most speculative holdings and tighten stops.")
	default:
		b.WriteString("Risk is moderate. Stay diversified and rebalance rather than make big bets.")
	}
	return b.String()
}

// CryptoAnalysis renders Bitcoin and Ethereum reports.
func (e *Engine) CryptoAnalysis(ctx context.Context) string {
	coins := []string{"BTC", "ETH"}
	e.Refresh(ctx, coins...)

	var b strings.Builder
	b.WriteString("**Crypto check**\n")
	found := false
	for _, q := range e.quotesFor(coins) {
		found = true
		m := e.metrics(ctx, q)
		fmt.Fprintf(&b, "- **%s** %s (%s) | %s | momentum %s | volatility %.2f%%\n",
			q.DisplayName, utils.FormatUSD(q.PriceValue()), q.PercentChange, m.Trend, signed(m.Momentum), m.Volatility)
	}
	if !found {
		return "I couldn't load crypto prices right now. Please try again shortly."
	}
	b.WriteString("\nCrypto trades around the clock and often moves several times more than stocks. " +
		"Keep it to a slice of the portfolio you can afford to see fall 50%.")
	return b.String()
}

// SectorAnalysis renders the tech sector basket.
func (e *Engine) SectorAnalysis(ctx context.Context) string {
	theme, _ := e.opts.Tables.Theme("tech")
	e.Refresh(ctx, theme.Symbols...)
	quotes := e.quotesFor(theme.Symbols)
	if len(quotes) == 0 {
		return "I couldn't load sector data right now. Please try again shortly."
	}

	leader, laggard := quotes[0], quotes[0]
	var sum float64
	for _, q := range quotes {
		sum += q.PercentValue()
		if q.PercentValue() > leader.PercentValue() {
			leader = q
		}
		if q.PercentValue() < laggard.PercentValue() {
			laggard = q
		}
	}
	avgChange := sum / float64(len(quotes))

	var b strings.Builder
	fmt.Fprintf(&b, "**Tech sector: %s on average today**\n\n", utils.FormatSignedPercent(avgChange))
	for _, q := range quotes {
		fmt.Fprintf(&b, "- %s %s (%s)\n", q.Symbol, utils.FormatUSD(q.PriceValue()), q.PercentChange)
	}
	fmt.Fprintf(&b, "\nLeader: **%s** (%s). Laggard: **%s** (%s).", leader.Symbol, leader.PercentChange, laggard.Symbol, laggard.PercentChange)
	switch {
	case avgChange > 1:
		b.WriteString(" Strong sector-wide buying.")
	case avgChange < -1:
		b.WriteString(" Broad sector selling, so watch support levels.")
	default:
		b.WriteString(" Mixed trade with no clear sector direction.")
	}
	return b.String()
}

// ── Dynamic reports ──

// InvestmentAdvice renders goal feasibility plus the market backdrop and
// returns the context updated with the parsed goal.
func (e *Engine) InvestmentAdvice(ctx context.Context, msg string, cc ConversationContext) (string, ConversationContext) {
	g := ParseGoal(msg, cc, e.opts.goalDefaults())
	st := e.MarketState(ctx)
	reply := GoalAdvice(g) + fmt.Sprintf("\n**Market backdrop:** %s (risk: %s). Suggested stance: %s.",
		st.Sentiment, st.Risk, st.Action)
	return reply, cc.Remember(g)
}

// MarketAnalysis answers "what should I do" with a playbook for the
// current market state.
func (e *Engine) MarketAnalysis(ctx context.Context) string {
	st := e.MarketState(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "**Market read: %s** (risk: %s, fear index %.2f)\n\n", st.Sentiment, st.Risk, st.FearIndex)
	switch st.Sentiment {
	case technical.SentimentBullish:
		b.WriteString("- Put new money to work in quality names and broad ETFs.\n- Let winners run and trail stops up.\n")
	case technical.SentimentSlightlyBullish:
		b.WriteString("- Add selectively on pullbacks.\n- Favor stocks in established uptrends.\n")
	case technical.SentimentBearish:
		b.WriteString("- Protect capital first: raise cash and cut leverage.\n- Only buy long-term holdings in small tranches.\n")
	case technical.SentimentSlightlyBearish:
		b.WriteString("- Reduce speculative positions.\n- Keep a watchlist ready for better prices.\n")
	default:
		b.WriteString("- Hold core positions and wait for a clearer trend.\n- Rebalance instead of making big bets.\n")
	}
	fmt.Fprintf(&b, "\nSuggested stance: **%s**.", st.Action)
	return b.String()
}

// ExplainMovement answers "why" questions about the day's move.
func (e *Engine) ExplainMovement(ctx context.Context) string {
	st := e.MarketState(ctx)
	spx, ok := e.Quote(benchmark)
	if !ok {
		return "I couldn't load index data to explain today's move. Please try again shortly."
	}

	var b strings.Builder
	move := "higher"
	if !spx.IsPositive {
		move = "lower"
	}
	fmt.Fprintf(&b, "**Why the market is %s today**\n\n", move)
	fmt.Fprintf(&b, "The S&P 500 is %s (%s).", spx.Price, spx.PercentChange)
	fmt.Fprintf(&b, " %.0f%% of tracked symbols are up, so the move is %s.", st.Bias*100, breadthWord(st.Bias, spx.IsPositive))
	fmt.Fprintf(&b, " The fear index at %.2f shows %s.\n", st.FearIndex, fearBand(st.FearIndex))

	stocks := e.quotesFor(e.trackedStocks())
	if len(stocks) > 0 {
		best, worst := stocks[0], stocks[0]
		for _, q := range stocks {
			if q.PercentValue() > best.PercentValue() {
				best = q
			}
			if q.PercentValue() < worst.PercentValue() {
				worst = q
			}
		}
		fmt.Fprintf(&b, "\nBiggest gainer: **%s** (%s). Biggest decliner: **%s** (%s).\n",
			best.Symbol, best.PercentChange, worst.Symbol, worst.PercentChange)
	}
	b.WriteString("\nDaily moves are driven by rates, earnings and positioning. One day rarely changes a long-term plan.")
	return b.String()
}

// LiveSnapshot renders a compact snapshot of the tracked symbols.
func (e *Engine) LiveSnapshot(ctx context.Context) string {
	st := e.MarketState(ctx)
	quotes := e.quotesFor(e.opts.Tracked)
	if len(quotes) == 0 {
		return "Market data is loading. Meanwhile, ask me to analyze a ticker like **AAPL** or type **help**."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Live market snapshot: %s**\n", st.Sentiment)
	for i, q := range quotes {
		if i == 8 {
			break
		}
		fmt.Fprintf(&b, "- %s %s (%s)\n", q.Symbol, q.Price, q.PercentChange)
	}
	b.WriteString("\nAsk me to analyze any of these, compare two tickers, or check an investment goal.")
	return b.String()
}

// ── Strategy and knowledge ──

// StrategyIdeas renders each matched theme, concatenated in table order.
func (e *Engine) StrategyIdeas(ctx context.Context, themes []string) string {
	var sections []string
	for _, name := range themes {
		th, ok := e.opts.Tables.Theme(name)
		if !ok {
			continue
		}
		e.Refresh(ctx, th.Symbols...)

		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n%s\n", th.Title, th.Description)
		for _, s := range th.Symbols {
			if q, ok := e.Quote(s); ok {
				fmt.Fprintf(&b, "- **%s** %s %s (%s)\n", s, q.DisplayName, utils.FormatUSD(q.PriceValue()), q.PercentChange)
			} else {
				fmt.Fprintf(&b, "- **%s** %s\n", s, datasource.DisplayName(s))
			}
		}
		fmt.Fprintf(&b, "Say \"create a %s portfolio\" to add these to your watchlist and portfolio.", th.Name)
		sections = append(sections, b.String())
	}
	if len(sections) == 0 {
		return "I don't have a portfolio idea for that yet. Try tech, dividend, growth, safe or crypto."
	}
	return strings.Join(sections, "\n\n")
}

// Knowledge renders a FAQ answer.
func (e *Engine) Knowledge(topic string) string {
	tp, ok := e.opts.Tables.Topic(topic)
	if !ok {
		return HelpText
	}
	return tp.Answer + "\n\nWant to see it in practice? Ask me to analyze a ticker."
}

// ── Helpers ──

func signed(v float64) string {
	s, _ := utils.SignedDecimal(v, 2)
	return s
}

func direction(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	}
	return "flat"
}

func volatilityBand(v float64) string {
	switch {
	case v < 1:
		return "low"
	case v < 2:
		return "moderate"
	case v < 3.5:
		return "elevated"
	}
	return "high"
}

func fearBand(vix float64) string {
	switch {
	case vix < 15:
		return "calm markets"
	case vix < 20:
		return "normal conditions"
	case vix < 25:
		return "some nervousness"
	case vix < 30:
		return "high anxiety"
	}
	return "extreme fear"
}

func breadthWord(bias float64, up bool) string {
	agrees := (up && bias >= 0.5) || (!up && bias < 0.5)
	switch {
	case math.Abs(bias-0.5) >= 0.25 && agrees:
		return "broad-based"
	case agrees:
		return "moderately broad"
	}
	return "narrow, led by a few heavyweights"
}

func symbolsOf(rows []Metrics) []string {
	out := make([]string, len(rows))
	for i, m := range rows {
		out[i] = m.Quote.Symbol
	}
	return out
}
