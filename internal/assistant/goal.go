package assistant

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/marketpulse/pkg/utils"
)

// GoalTier buckets how realistic an investment goal is.
type GoalTier string

const (
	TierTooSmall       GoalTier = "too small"
	TierExtreme        GoalTier = "extremely unrealistic"
	TierVeryAggressive GoalTier = "very aggressive"
	TierAchievable     GoalTier = "achievable"
	TierConservative   GoalTier = "conservative"
	TierOpen           GoalTier = "open-ended"
)

// MinGoalAmount is the budget below which goal advice focuses on saving.
const MinGoalAmount = 50

// Goal is an amount/target pair parsed from a message.
type Goal struct {
	Amount     float64
	Target     float64
	Multiplier float64 // Target / Amount, 0 without a target
	Years      float64
	Tier       GoalTier
}

// RequiredCAGR is the yearly growth rate needed to reach the target, as a
// fraction. It is 0 without a target.
func (g Goal) RequiredCAGR() float64 {
	return cagr(g.Amount, g.Target, g.Years)
}

const numPattern = `(\d[\d,]*(?:\.\d+)?)(?:\s*(k|m|thousand|million)\b)?`

var (
	numberRe = regexp.MustCompile(`(?i)` + numPattern + `\b`)
	yearsRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:years?|yrs?)\b`)
	rangeRe  = regexp.MustCompile(`(?i)[$€]?\s*` + numPattern +
		`\s*(?:\$|€|dollars?|euros?|usd|eur)?\s+to\s+[$€]?\s*` + numPattern)
	haveRe = regexp.MustCompile(`(?i)\b(?:have|got|with|invest|investing|start with|starting with)\s+` +
		`(?:only\s+|just\s+|about\s+|around\s+|roughly\s+)?[$€]?\s*` + numPattern)
	intoRe = regexp.MustCompile(`(?i)\b(?:into|become|becomes|reach|goal(?:\s+(?:is|of))?)\s+(?:of\s+|about\s+|around\s+)?[$€]?\s*` +
		numPattern)
	multWordRe = regexp.MustCompile(`(?i)\b(double|triple|quadruple)\b`)
	multNumRe  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:x|times)\b`)
	multTailRe = regexp.MustCompile(`(?i)^\s*(?:x|times)\b`)
	byYearRe   = regexp.MustCompile(`(?i)\b(?:by|in|until)\s+(20\d\d)\b`)
)

var multWords = map[string]float64{"double": 2, "triple": 3, "quadruple": 4}

// GoalDefaults are the fallbacks used when a message and the context say
// nothing about the amount or horizon. Now anchors calendar years such as
// "by 2030"; the zero value means the current time.
type GoalDefaults struct {
	Amount float64
	Years  float64
	Now    time.Time
}

func (d GoalDefaults) now() time.Time {
	if d.Now.IsZero() {
		return time.Now()
	}
	return d.Now
}

// horizon reads the investment horizon from msg, either "N years" or a
// future calendar year ("by 2030"), and returns it with the matched text
// blanked so the remaining numbers are amounts only.
func horizon(msg string, d GoalDefaults) (float64, string) {
	yrs, text := d.Years, msg
	explicit := false
	if loc := yearsRe.FindStringSubmatchIndex(text); loc != nil {
		if y, err := utils.ParseNumber(text[loc[2]:loc[3]]); err == nil && y > 0 {
			yrs, explicit = y, true
		}
		text = blank(text, loc[0], loc[1])
	}
	if loc := byYearRe.FindStringSubmatchIndex(text); loc != nil {
		y, _ := strconv.Atoi(text[loc[2]:loc[3]])
		// Past years and "in 2000 dollars" are amounts.
		if n := y - d.now().Year(); n > 0 {
			if !explicit {
				yrs = float64(n)
			}
			text = blank(text, loc[0], loc[1])
		}
	}
	return yrs, text
}

// followedByMultiplier reports whether the number ending at end is a
// multiplier ("10x", "5 times") rather than an amount.
func followedByMultiplier(text string, end int) bool {
	return multTailRe.MatchString(text[end:])
}

// ParseGoal extracts an amount and target from msg. Patterns are tried in
// order: an explicit range "X to Y", then "have X" / "into Y", then
// multiplier words ("double", "10x"), then the smallest and largest of all
// numbers. Missing values come from cc, and the amount finally defaults to
// d.Amount.
func ParseGoal(msg string, cc ConversationContext, d GoalDefaults) Goal {
	yrs, text := horizon(msg, d)
	g := Goal{Years: yrs}

	var amount, target float64
	if loc := rangeRe.FindStringSubmatchIndex(text); loc != nil && !followedByMultiplier(text, loc[1]) {
		amount, target = amountAt(text, loc, 1), amountAt(text, loc, 3)
	} else {
		if m := haveRe.FindStringSubmatch(text); m != nil {
			amount = amountOf(m[1], m[2])
		}
		if loc := intoRe.FindStringSubmatchIndex(text); loc != nil && !followedByMultiplier(text, loc[1]) {
			target = amountAt(text, loc, 1)
		}
		// "$20 into $1000": the smallest other number is the amount.
		if amount == 0 && target > 0 {
			for _, v := range numbers(text) {
				if v < target && (amount == 0 || v < amount) {
					amount = v
				}
			}
		}
	}
	// A target has to grow the amount.
	if target <= amount {
		target = 0
	}

	if target == 0 {
		if mult, rest, ok := parseMultiplier(text); ok {
			if amount == 0 {
				if nums := numbers(rest); len(nums) > 0 {
					amount = nums[0]
				}
			}
			if amount == 0 {
				amount = fallbackAmount(cc, d)
			}
			target = amount * mult
		} else if nums := numbers(text); len(nums) > 0 {
			lo, hi := minMax(nums)
			if amount == 0 {
				amount = lo
			}
			if len(nums) >= 2 && hi > amount {
				target = hi
			}
		}
	}

	if amount == 0 {
		amount = fallbackAmount(cc, d)
	}
	if target == 0 && cc.LastTarget > amount {
		target = cc.LastTarget
	}

	g.Amount, g.Target = amount, target
	g.Multiplier, g.Tier = classifyGoal(amount, target)
	return g
}

// classifyGoal buckets a goal by budget and multiplier.
func classifyGoal(amount, target float64) (float64, GoalTier) {
	var mult float64
	if target > 0 && amount > 0 {
		mult = target / amount
	}
	switch {
	case amount < MinGoalAmount:
		return mult, TierTooSmall
	case mult == 0:
		return mult, TierOpen
	case mult >= 25:
		return mult, TierExtreme
	case mult >= 10:
		return mult, TierVeryAggressive
	case mult >= 2:
		return mult, TierAchievable
	default:
		return mult, TierConservative
	}
}

// GoalAdvice renders the feasibility report for g.
func GoalAdvice(g Goal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Investment goal: %s", utils.FormatUSD(g.Amount))
	if g.Target > 0 {
		fmt.Fprintf(&b, " → %s** (%.1fx)\n\n", utils.FormatUSD(g.Target), g.Multiplier)
	} else {
		b.WriteString("**\n\n")
	}

	switch g.Tier {
	case TierTooSmall:
		fmt.Fprintf(&b, "Assessment: **%s**\n", g.Tier)
		fmt.Fprintf(&b, "With less than %s the best return comes from adding money, not from stock picking.\n", utils.FormatUSD(MinGoalAmount))
		b.WriteString("- Set up a small monthly deposit and buy a broad ETF such as SPY or VTI.\n")
		b.WriteString("- Use a broker with fractional shares and no commissions.\n")
		b.WriteString("- Treat the first year as learning, not earning.\n")
	case TierExtreme:
		fmt.Fprintf(&b, "Assessment: **%s**\n", g.Tier)
		fmt.Fprintf(&b, "Growing money %.0fx needs about %s a year over %s. Even professional funds rarely beat 15%%.\n",
			g.Multiplier, pct(g.RequiredCAGR()), years(g.Years))
		b.WriteString("- Anything promising returns like this is gambling or a scam.\n")
		b.WriteString("- Focus on a realistic 7-10% a year and regular contributions.\n")
	case TierVeryAggressive:
		fmt.Fprintf(&b, "Assessment: **%s**\n", g.Tier)
		fmt.Fprintf(&b, "A %.0fx return needs about %s a year over %s. That is possible only with concentrated, high-risk bets.\n",
			g.Multiplier, pct(g.RequiredCAGR()), years(g.Years))
		b.WriteString("- Keep most of the money in diversified funds.\n")
		b.WriteString("- Cap speculative positions at 10-20% of the total.\n")
		b.WriteString("- Extend the horizon: time does more work than risk.\n")
	case TierAchievable:
		fmt.Fprintf(&b, "Assessment: **%s**\n", g.Tier)
		fmt.Fprintf(&b, "Reaching %.1fx needs about %s a year over %s.\n", g.Multiplier, pct(g.RequiredCAGR()), years(g.Years))
		b.WriteString("- A growth-tilted mix of index funds and quality stocks fits this goal.\n")
		b.WriteString("- Add to the position regularly to shorten the path.\n")
	case TierConservative:
		fmt.Fprintf(&b, "Assessment: **%s**\n", g.Tier)
		fmt.Fprintf(&b, "A %.1fx goal needs only about %s a year over %s.\n", g.Multiplier, pct(g.RequiredCAGR()), years(g.Years))
		b.WriteString("- Broad index funds and some bonds should get you there with low stress.\n")
	default:
		b.WriteString("Tell me the amount you want to reach (for example \"turn it into $1,000\") and I can check how realistic it is.\n")
		b.WriteString("- Start with a diversified ETF core.\n")
		b.WriteString("- Add satellite positions once the core is in place.\n")
	}
	return b.String()
}

// parseMultiplier finds a multiplier word or "Nx" and returns msg with the
// multiplier removed.
func parseMultiplier(msg string) (float64, string, bool) {
	if loc := multWordRe.FindStringSubmatchIndex(msg); loc != nil {
		word := strings.ToLower(msg[loc[2]:loc[3]])
		return multWords[word], blank(msg, loc[0], loc[1]), true
	}
	if loc := multNumRe.FindStringSubmatchIndex(msg); loc != nil {
		if v, err := utils.ParseNumber(msg[loc[2]:loc[3]]); err == nil && v > 0 {
			return v, blank(msg, loc[0], loc[1]), true
		}
	}
	return 0, msg, false
}

// numbers returns every amount in msg, in order.
func numbers(msg string) []float64 {
	var out []float64
	for _, m := range numberRe.FindAllStringSubmatch(msg, -1) {
		if v := amountOf(m[1], m[2]); v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// amountOf parses a number with an optional k/m suffix.
func amountOf(num, suffix string) float64 {
	v, err := utils.ParseNumber(strings.TrimRight(num, ","))
	if err != nil {
		return 0
	}
	switch strings.ToLower(suffix) {
	case "k", "thousand":
		v *= 1_000
	case "m", "million":
		v *= 1_000_000
	}
	return v
}

// amountAt is amountOf for the number and suffix groups starting at group
// of a submatch index.
func amountAt(text string, loc []int, group int) float64 {
	var suffix string
	if i := 2 * (group + 1); loc[i] >= 0 {
		suffix = text[loc[i]:loc[i+1]]
	}
	return amountOf(text[loc[2*group]:loc[2*group+1]], suffix)
}

func fallbackAmount(cc ConversationContext, d GoalDefaults) float64 {
	if cc.LastAmount > 0 {
		return cc.LastAmount
	}
	return d.Amount
}

func minMax(nums []float64) (float64, float64) {
	lo, hi := nums[0], nums[0]
	for _, v := range nums[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi
}

// cagr is the compound yearly growth rate from amount to target.
func cagr(amount, target, yrs float64) float64 {
	if amount <= 0 || target <= 0 || yrs <= 0 {
		return 0
	}
	return math.Pow(target/amount, 1/yrs) - 1
}

// blank replaces msg[start:end] with spaces so later patterns skip it.
func blank(msg string, start, end int) string {
	return msg[:start] + strings.Repeat(" ", end-start) + msg[end:]
}

func pct(frac float64) string { return fmt.Sprintf("%.1f%%", frac*100) }

func years(y float64) string {
	if y == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%g years", y)
}
