// Package sentiment scores market headlines with a weighted keyword
// dictionary and aggregates them into a time-decayed news mood.
package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// Label is the coarse classification of a mood score.
type Label string

const (
	LabelBullish         Label = "bullish"
	LabelSlightlyBullish Label = "slightly bullish"
	LabelNeutral         Label = "neutral"
	LabelSlightlyBearish Label = "slightly bearish"
	LabelBearish         Label = "bearish"
)

// HalfLife is the age at which a headline counts half as much.
const HalfLife = 24 * time.Hour

type keyword struct {
	word   string
	weight float64
}

// lowercase; phrases match as substrings
var bullish = []keyword{
	{"bullish", 0.7}, {"rally", 0.6}, {"rallies", 0.6}, {"surge", 0.7}, {"soar", 0.7},
	{"record high", 0.7}, {"all-time high", 0.7}, {"upgrade", 0.6}, {"outperform", 0.6},
	{"beats estimate", 0.6}, {"beat", 0.5}, {"breakout", 0.6}, {"recovery", 0.5},
	{"rebound", 0.5}, {"gain", 0.4}, {"jump", 0.5}, {"upbeat", 0.5}, {"strong", 0.4},
	{"growth", 0.4}, {"rate cut", 0.4}, {"dividend", 0.4}, {"profit", 0.3},
}

var bearish = []keyword{
	{"bearish", 0.7}, {"crash", 0.8}, {"plunge", 0.7}, {"tumble", 0.7}, {"slump", 0.6},
	{"selloff", 0.7}, {"sell-off", 0.7}, {"downgrade", 0.6}, {"underperform", 0.6},
	{"recession", 0.7}, {"fraud", 0.8}, {"default", 0.7}, {"layoff", 0.5},
	{"misses", 0.5}, {"warning", 0.5}, {"decline", 0.5}, {"drop", 0.4}, {"fall", 0.4},
	{"loss", 0.4}, {"weak", 0.4}, {"inflation", 0.3}, {"concern", 0.3}, {"fear", 0.4},
}

// Score is one headline's sentiment.
type Score struct {
	Value      float64 `json:"score"`      // -1 bearish .. +1 bullish
	Confidence float64 `json:"confidence"` // grows with keyword hits, capped at 0.85
	Matches    int     `json:"matches"`
}

// ScoreText scores free text. Without a keyword hit the score is 0 with
// confidence 0.1.
func ScoreText(text string) Score {
	lower := strings.ToLower(text)
	var bull, bear float64
	var hits int
	for _, k := range bullish {
		if strings.Contains(lower, k.word) {
			bull += k.weight
			hits++
		}
	}
	for _, k := range bearish {
		if strings.Contains(lower, k.word) {
			bear += k.weight
			hits++
		}
	}
	if hits == 0 {
		return Score{Confidence: 0.1}
	}
	return Score{
		Value:      (bull - bear) / (bull + bear),
		Confidence: math.Min(float64(hits)*0.15+0.2, 0.85),
		Matches:    hits,
	}
}

// ScoreItem scores a headline together with its summary.
func ScoreItem(n models.NewsItem) Score {
	text := n.Title
	if n.Summary != "" {
		text += " " + n.Summary
	}
	return ScoreText(text)
}

// Mood is the aggregate sentiment of a set of headlines.
type Mood struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Label      Label   `json:"label"`
	Articles   int     `json:"articles"`
	Bullish    int     `json:"bullish"` // headlines scoring above zero
	Bearish    int     `json:"bearish"` // headlines scoring below zero
}

// Aggregate weighs each headline by confidence and an exponential age
// decay with HalfLife, measured from now. Headlines dated in the future
// count as fresh.
func Aggregate(items []models.NewsItem, now time.Time) Mood {
	m := Mood{Label: LabelNeutral, Articles: len(items)}
	if len(items) == 0 {
		return m
	}

	var weighted, total, conf float64
	for _, n := range items {
		s := ScoreItem(n)
		age := max(now.Sub(n.PublishedAt), 0)
		w := math.Exp(-math.Ln2*age.Hours()/HalfLife.Hours()) * s.Confidence
		weighted += s.Value * w
		total += w
		conf += s.Confidence
		switch {
		case s.Value > 0:
			m.Bullish++
		case s.Value < 0:
			m.Bearish++
		}
	}
	if total > 0 {
		m.Score = weighted / total
	}
	m.Confidence = conf / float64(len(items))
	m.Label = LabelOf(m.Score)
	return m
}

// LabelOf buckets a score.
func LabelOf(score float64) Label {
	switch {
	case score > 0.3:
		return LabelBullish
	case score > 0.1:
		return LabelSlightlyBullish
	case score < -0.3:
		return LabelBearish
	case score < -0.1:
		return LabelSlightlyBearish
	default:
		return LabelNeutral
	}
}
