package assistant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

// Capabilities are the host-owned state mutations the executor may request.
// The executor never touches watchlist or portfolio state directly.
type Capabilities interface {
	Watchlist() []string
	// AddToWatchlist adds symbol and reports false if it was already present.
	AddToWatchlist(symbol string) bool
	// RemoveFromWatchlist removes symbol and reports false if it was absent.
	RemoveFromWatchlist(symbol string) bool
	Portfolio() []models.PortfolioPosition
	// AddToPortfolio adds quantity shares of symbol. Quantity must be positive.
	AddToPortfolio(symbol string, quantity float64) error
}

// CommandKind identifies an action template.
type CommandKind int

const (
	CmdAddWatchlist CommandKind = iota + 1
	CmdRemoveWatchlist
	CmdAddPortfolio
	CmdShowWatchlist
	CmdShowPortfolio
	CmdCreateWatchlist
	CmdCreateThemedPortfolio
)

var commandNames = map[CommandKind]string{
	CmdAddWatchlist:          "add-watchlist",
	CmdRemoveWatchlist:       "remove-watchlist",
	CmdAddPortfolio:          "add-portfolio",
	CmdShowWatchlist:         "show-watchlist",
	CmdShowPortfolio:         "show-portfolio",
	CmdCreateWatchlist:       "create-watchlist",
	CmdCreateThemedPortfolio: "create-themed-portfolio",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is a parsed action request.
type Command struct {
	Kind     CommandKind
	Symbols  []string
	Quantity float64
	Theme    string
	Text     string // original message, kept for the realism check
}

var (
	addWatchRe     = regexp.MustCompile(`(?i)\b(?:add|put|include|track|watch)\s+([a-z]{1,5})\s+(?:to|in|on|into)\s+(?:my\s+|the\s+)?watch\s?list\b`)
	removeWatchRe  = regexp.MustCompile(`(?i)\b(?:remove|delete|drop|unwatch)\s+([a-z]{1,5})\s+(?:from|off)\s+(?:of\s+)?(?:my\s+|the\s+)?watch\s?list\b`)
	addPortfolioRe = regexp.MustCompile(`(?i)\b(?:add|buy|purchase)\s+(-?\d+(?:\.\d+)?)\s+(?:shares?\s+(?:of\s+)?)?([a-z]{1,5})\s+(?:to|in|into)\s+(?:my\s+|the\s+)?portfolio\b`)
	createWatchRe  = regexp.MustCompile(`(?i)\b(?:create|make|build|start)\s+(?:(?:a|an|my|new|the)\s+)*watch\s?list\s+(?:with|of|for|containing|from)\s+(.+)$`)
	createThemedRe = regexp.MustCompile(`(?i)\b(?:make|create|build|give|start|set\s+up)\b.*\b(?:portfolio|watch\s?list|investments?)\b`)
	listSymbolRe   = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// actionStopWords are tokens that look like symbols inside commands but
// are not.
var actionStopWords = map[string]bool{
	"A": true, "I": true, "AN": true, "AND": true, "OR": true, "THE": true,
	"IT": true, "ITS": true, "THIS": true, "THAT": true, "THEM": true, "ME": true,
	"MY": true, "TO": true, "OF": true, "IN": true, "ON": true, "WITH": true,
	"ALL": true, "SOME": true, "PLUS": true, "ALSO": true,
}

// ParseCommand matches msg against the action templates in priority order
// and returns the first match.
func ParseCommand(msg string, tables *Tables) (Command, bool) {
	text := strings.TrimSpace(msg)
	lower := strings.ToLower(text)

	if m := addWatchRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdAddWatchlist, Symbols: []string{upper(m[1])}, Text: text}, true
	}
	if m := removeWatchRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdRemoveWatchlist, Symbols: []string{upper(m[1])}, Text: text}, true
	}
	if m := addPortfolioRe.FindStringSubmatch(text); m != nil {
		qty, _ := utils.ParseNumber(m[1])
		return Command{Kind: CmdAddPortfolio, Symbols: []string{upper(m[2])}, Quantity: qty, Text: text}, true
	}
	if (strings.Contains(lower, "show") && strings.Contains(lower, "watchlist")) || strings.Contains(lower, "my watchlist") {
		if !createWatchRe.MatchString(text) {
			return Command{Kind: CmdShowWatchlist, Text: text}, true
		}
	}
	if (strings.Contains(lower, "show") && strings.Contains(lower, "portfolio")) || strings.Contains(lower, "my portfolio") {
		if !createThemedRe.MatchString(text) {
			return Command{Kind: CmdShowPortfolio, Text: text}, true
		}
	}
	if m := createWatchRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdCreateWatchlist, Symbols: listSymbols(m[1]), Text: text}, true
	}
	if createThemedRe.MatchString(text) {
		theme := DefaultTheme
		if matched := tables.MatchThemes(text); len(matched) > 0 {
			theme = matched[0].Name
		}
		return Command{Kind: CmdCreateThemedPortfolio, Theme: theme, Text: text}, true
	}
	return Command{}, false
}

// listSymbols extracts uppercase 1-5 letter tokens, deduplicated.
func listSymbols(tail string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range listSymbolRe.FindAllString(tail, -1) {
		if actionStopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// Execute runs cmd against caps and returns the reply. Invalid input is
// reported in the reply, never as an error.
func Execute(cmd Command, caps Capabilities, tables *Tables, d GoalDefaults) string {
	if caps == nil {
		return "Watchlist and portfolio changes are not available in this session."
	}

	switch cmd.Kind {
	case CmdAddWatchlist:
		sym := cmd.Symbols[0]
		if actionStopWords[sym] {
			return "I couldn't tell which symbol to add. Try something like \"add TSLA to my watchlist\"."
		}
		if !caps.AddToWatchlist(sym) {
			return fmt.Sprintf("**%s** is already on your watchlist.", sym)
		}
		return fmt.Sprintf("Added **%s** to your watchlist.", sym)

	case CmdRemoveWatchlist:
		sym := cmd.Symbols[0]
		if !caps.RemoveFromWatchlist(sym) {
			return fmt.Sprintf("**%s** is not on your watchlist.", sym)
		}
		return fmt.Sprintf("Removed **%s** from your watchlist.", sym)

	case CmdAddPortfolio:
		sym := cmd.Symbols[0]
		if cmd.Quantity <= 0 {
			return fmt.Sprintf("Quantity must be greater than zero. I did not add %s to your portfolio.", sym)
		}
		if actionStopWords[sym] {
			return "I couldn't tell which symbol to buy. Try something like \"add 10 shares of AAPL to my portfolio\"."
		}
		if err := caps.AddToPortfolio(sym, cmd.Quantity); err != nil {
			return fmt.Sprintf("I couldn't add %s to your portfolio: %v", sym, err)
		}
		return fmt.Sprintf("Added **%s** shares of **%s** to your portfolio.", formatQty(cmd.Quantity), sym)

	case CmdShowWatchlist:
		list := caps.Watchlist()
		if len(list) == 0 {
			return "Your watchlist is empty. Try \"add AAPL to my watchlist\"."
		}
		return fmt.Sprintf("**Your watchlist** (%d): %s", len(list), strings.Join(list, ", "))

	case CmdShowPortfolio:
		positions := caps.Portfolio()
		if len(positions) == 0 {
			return "Your portfolio is empty. Try \"add 10 shares of AAPL to my portfolio\"."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "**Your portfolio** (%d positions):\n", len(positions))
		for _, p := range positions {
			fmt.Fprintf(&b, "- %s: %s shares\n", p.Symbol, formatQty(p.Quantity))
		}
		return strings.TrimRight(b.String(), "\n")

	case CmdCreateWatchlist:
		if len(cmd.Symbols) == 0 {
			return "I couldn't find any ticker symbols in that list. Use uppercase symbols, e.g. \"create watchlist with AAPL, MSFT, TSLA\"."
		}
		var added, existing []string
		for _, sym := range cmd.Symbols {
			if caps.AddToWatchlist(sym) {
				added = append(added, sym)
			} else {
				existing = append(existing, sym)
			}
		}
		var b strings.Builder
		if len(added) > 0 {
			fmt.Fprintf(&b, "Created your watchlist with **%s**.", strings.Join(added, ", "))
		}
		if len(existing) > 0 {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "Already watching: %s.", strings.Join(existing, ", "))
		}
		return b.String()

	case CmdCreateThemedPortfolio:
		return createThemedPortfolio(cmd, caps, tables, d)
	}
	return ""
}

// TryExecuteAction parses msg and, if it is a command, executes it. It
// reports false when msg is not a command so routing can continue.
func TryExecuteAction(msg string, caps Capabilities, tables *Tables, d GoalDefaults) (string, bool) {
	cmd, ok := ParseCommand(msg, tables)
	if !ok {
		return "", false
	}
	return Execute(cmd, caps, tables, d), true
}

// ── Themed portfolio realism gate ──

// Realism rates a portfolio goal by its required yearly growth.
type Realism struct {
	Amount     float64
	Target     float64
	Years      float64
	Multiplier float64
	CAGR       float64 // fraction
	Tag        string
}

// Gate thresholds: goals above this multiplier on budgets below this amount
// are refused.
const (
	gateMultiplier = 5
	gateBudget     = 100
)

// CheckRealism reads budget, target and horizon from msg. The horizon is
// "N years" or a calendar year counted from d.Now, else d.Years. It reports
// false unless both an amount and a larger target are present.
func CheckRealism(msg string, d GoalDefaults) (Realism, bool) {
	var r Realism
	var text string
	r.Years, text = horizon(msg, d)

	nums := numbers(text)
	if len(nums) < 2 {
		return r, false
	}
	r.Amount, r.Target = minMax(nums)
	if r.Amount <= 0 || r.Target <= r.Amount {
		return r, false
	}
	r.Multiplier = r.Target / r.Amount
	r.CAGR = cagr(r.Amount, r.Target, r.Years)
	r.Tag = realismTag(r.CAGR)
	return r, true
}

// Blocked reports whether the gate refuses to build the portfolio.
func (r Realism) Blocked() bool {
	return r.Multiplier > gateMultiplier && r.Amount < gateBudget
}

func realismTag(c float64) string {
	switch {
	case c <= 0.10:
		return "realistic"
	case c <= 0.20:
		return "ambitious"
	case c <= 0.40:
		return "very aggressive"
	default:
		return "unrealistic"
	}
}

func createThemedPortfolio(cmd Command, caps Capabilities, tables *Tables, d GoalDefaults) string {
	theme, ok := tables.Theme(cmd.Theme)
	if !ok {
		theme, _ = tables.Theme(DefaultTheme)
	}

	realism, hasGoal := CheckRealism(cmd.Text, d)
	if hasGoal && realism.Blocked() {
		return fmt.Sprintf("**Let's be realistic first.** Turning %s into %s (%.0fx) in %s would need about %s a year. "+
			"No portfolio can promise that, so I haven't added anything.\n\n"+
			"With a budget under %s, start with one broad ETF such as SPY or VTI and add to it monthly. "+
			"Ask again with a longer horizon or a smaller target and I'll build the %s portfolio.",
			utils.FormatUSD(realism.Amount), utils.FormatUSD(realism.Target), realism.Multiplier,
			years(realism.Years), pct(realism.CAGR), utils.FormatUSD(gateBudget), strings.ToLower(theme.Title))
	}

	var failed []string
	for _, sym := range theme.Symbols {
		caps.AddToWatchlist(sym)
		if err := caps.AddToPortfolio(sym, 1); err != nil {
			failed = append(failed, sym)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Created your %s portfolio**\n%s\n\n", theme.Title, theme.Description)
	fmt.Fprintf(&b, "Added to watchlist and portfolio (1 share each): **%s**\n", strings.Join(theme.Symbols, ", "))
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Could not add: %s\n", strings.Join(failed, ", "))
	}
	if hasGoal {
		fmt.Fprintf(&b, "\n**Goal check: %s**\n", realism.Tag)
		fmt.Fprintf(&b, "%s → %s over %s needs about %s a year (%.1fx).\n",
			utils.FormatUSD(realism.Amount), utils.FormatUSD(realism.Target), years(realism.Years),
			pct(realism.CAGR), realism.Multiplier)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatQty(q float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", q), "0"), ".")
}
