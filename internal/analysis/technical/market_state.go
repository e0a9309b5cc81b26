package technical

import "github.com/seenimoa/marketpulse/pkg/models"

// Sentiment is the overall market classification.
type Sentiment string

const (
	SentimentBullish         Sentiment = "bullish"
	SentimentSlightlyBullish Sentiment = "slightly bullish"
	SentimentMixed           Sentiment = "mixed"
	SentimentSlightlyBearish Sentiment = "slightly bearish"
	SentimentBearish         Sentiment = "bearish"
)

// MarketState is the market classification with its risk tier and the
// suggested action.
type MarketState struct {
	Sentiment Sentiment `json:"sentiment"`
	Risk      string    `json:"risk"`   // "low", "moderate", "elevated", "high"
	Action    string    `json:"action"` // e.g. "buy", "defensive"
	Bias      float64   `json:"bias"`   // fraction of tracked symbols up on the day
	FearIndex float64   `json:"fearIndex"`
}

// ClassifyMarket maps the positive-bias fraction and a VIX-like fear index
// onto fixed threshold bands. Bands are checked in order.
func ClassifyMarket(bias, vix float64) MarketState {
	st := MarketState{Bias: bias, FearIndex: vix}
	switch {
	case bias > 0.7 && vix < 18:
		st.Sentiment, st.Risk, st.Action = SentimentBullish, "low", "buy"
	case bias > 0.6 && vix < 22:
		st.Sentiment, st.Risk, st.Action = SentimentSlightlyBullish, "moderate", "accumulate selectively"
	case bias < 0.3 || vix > 30:
		st.Sentiment, st.Risk, st.Action = SentimentBearish, "high", "defensive"
	case bias < 0.4 || vix > 25:
		st.Sentiment, st.Risk, st.Action = SentimentSlightlyBearish, "elevated", "reduce exposure"
	default:
		st.Sentiment, st.Risk, st.Action = SentimentMixed, "moderate", "hold and wait"
	}
	return st
}

// PositiveBias returns the fraction of quotes that are up on the day,
// ignoring the symbols in exclude. With nothing to count it is 0.5.
func PositiveBias(quotes []models.Quote, exclude ...string) float64 {
	skip := make(map[string]bool, len(exclude))
	for _, s := range exclude {
		skip[s] = true
	}
	var up, total int
	for _, q := range quotes {
		if skip[q.Symbol] {
			continue
		}
		total++
		if q.IsPositive {
			up++
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(up) / float64(total)
}
