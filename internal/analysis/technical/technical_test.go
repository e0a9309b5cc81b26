package technical

import (
	"math"
	"testing"
	"time"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// makePrices generates a linear price series for testing.
func makePrices(n int, base, step float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = base + float64(i)*step
	}
	return prices
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ── Volatility ──

func TestVolatilityShortSeries(t *testing.T) {
	for _, prices := range [][]float64{nil, {}, {100}} {
		if got := Volatility(prices); got != 0 {
			t.Errorf("Volatility(%v): got %f, want 0", prices, got)
		}
	}
}

func TestVolatilityConstantReturns(t *testing.T) {
	// 100 → 110 → 121: both returns are exactly 10%.
	if got := Volatility([]float64{100, 110, 121}); !approx(got, 0) {
		t.Errorf("Volatility of constant returns: got %f, want 0", got)
	}
}

func TestVolatilityKnownValue(t *testing.T) {
	// Returns +10% and -10%: population stdev 0.1 → 10.
	got := Volatility([]float64{100, 110, 99})
	if !approx(got, 10) {
		t.Errorf("Volatility: got %f, want 10", got)
	}
}

// ── Trend ──

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   Trend
	}{
		{"insufficient", []float64{1, 2, 3, 4}, TrendInsufficient},
		{"strong up", makePrices(10, 172, 2), TrendStrongUp},
		{"mild up", []float64{100, 100, 100, 102, 102, 102}, TrendMildUp},
		{"sideways", []float64{100, 101, 100, 100, 100.5, 100}, TrendSideways},
		{"mild down", []float64{100, 100, 100, 98, 98, 98}, TrendMildDown},
		{"strong down", makePrices(10, 190, -2), TrendStrongDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := TrendOf(tt.prices)
			if got != tt.want {
				t.Errorf("TrendOf(%v): got %q, want %q", tt.prices, got, tt.want)
			}
		})
	}
}

func TestTrendDelta(t *testing.T) {
	_, delta := TrendOf([]float64{100, 100, 100, 0, 110, 110, 110})
	if !approx(delta, 10) {
		t.Errorf("delta: got %f, want 10", delta)
	}
}

func TestTrendHelpers(t *testing.T) {
	if !TrendMildUp.IsUp() || TrendMildUp.IsDown() {
		t.Error("mild uptrend should be up")
	}
	if !TrendStrongDown.IsDown() || TrendSideways.IsUp() || TrendSideways.IsDown() {
		t.Error("trend direction helpers disagree with labels")
	}
}

// ── Support / Resistance ──

func TestSupportResistanceShortSeries(t *testing.T) {
	for _, prices := range [][]float64{nil, {180}} {
		if got := SupportResistance(prices); got != (Levels{}) {
			t.Errorf("SupportResistance(%v): got %+v, want zero", prices, got)
		}
	}
}

func TestSupportResistanceNearestRank(t *testing.T) {
	prices := []float64{190, 172, 186, 174, 182, 176, 188, 178, 184, 180} // unsorted 172..190
	got := SupportResistance(prices)
	if got.Support != 174 || got.Resistance != 188 {
		t.Errorf("SupportResistance: got %+v, want {174 188}", got)
	}
	if prices[0] != 190 {
		t.Error("SupportResistance must not reorder its input")
	}
}

func TestSupportResistanceTwoPoints(t *testing.T) {
	got := SupportResistance([]float64{10, 20})
	if got.Support != 10 || got.Resistance != 20 {
		t.Errorf("SupportResistance: got %+v, want {10 20}", got)
	}
}

// ── Momentum ──

func TestMomentum(t *testing.T) {
	if got := Momentum(1.5, []float64{1, 2, 3}); got != 1.5 {
		t.Errorf("Momentum with short history: got %f, want daily 1.5", got)
	}

	// Window: 100 → 110 over the last 5 points = +10%.
	prices := []float64{90, 100, 102, 104, 106, 110}
	want := 0.4*2 + 0.6*10
	if got := Momentum(2, prices); !approx(got, want) {
		t.Errorf("Momentum: got %f, want %f", got, want)
	}
}

// ── SMA ──

func TestSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	vals := SMA(data, 3)
	if len(vals) != 5 {
		t.Fatalf("expected 5 values, got %d", len(vals))
	}
	if vals[2] != 2 || vals[4] != 4 {
		t.Errorf("SMA: got %v", vals)
	}
	if SMA(data, 6) != nil {
		t.Error("SMA should return nil for insufficient data")
	}
	if got := SMALatest(data, 5); got != 3 {
		t.Errorf("SMALatest: got %f, want 3", got)
	}
	if got := SMALatest(data, 10); got != 0 {
		t.Errorf("SMALatest insufficient: got %f, want 0", got)
	}
}

// ── Market state ──

func TestClassifyMarket(t *testing.T) {
	tests := []struct {
		bias, vix float64
		want      Sentiment
		risk      string
		action    string
	}{
		{0.8, 15, SentimentBullish, "low", "buy"},
		{0.8, 20, SentimentSlightlyBullish, "moderate", "accumulate selectively"},
		{0.65, 21, SentimentSlightlyBullish, "moderate", "accumulate selectively"},
		{0.2, 15, SentimentBearish, "high", "defensive"},
		{0.8, 35, SentimentBearish, "high", "defensive"},
		{0.35, 20, SentimentSlightlyBearish, "elevated", "reduce exposure"},
		{0.5, 26, SentimentSlightlyBearish, "elevated", "reduce exposure"},
		{0.5, 20, SentimentMixed, "moderate", "hold and wait"},
		{0.7, 17, SentimentSlightlyBullish, "moderate", "accumulate selectively"}, // bias must exceed 0.7
	}
	for _, tt := range tests {
		got := ClassifyMarket(tt.bias, tt.vix)
		if got.Sentiment != tt.want || got.Risk != tt.risk || got.Action != tt.action {
			t.Errorf("ClassifyMarket(%.2f, %.0f): got %+v, want %s/%s/%s",
				tt.bias, tt.vix, got, tt.want, tt.risk, tt.action)
		}
	}
}

func TestPositiveBias(t *testing.T) {
	now := time.Now()
	quotes := []models.Quote{
		models.NewQuote("AAPL", "", 180, 1, 0.5, now),
		models.NewQuote("MSFT", "", 400, -1, -0.2, now),
		models.NewQuote("NVDA", "", 900, 5, 0.6, now),
		models.NewQuote("VIX", "", 22, 2, 10, now),
	}
	if got := PositiveBias(quotes, "VIX"); !approx(got, 2.0/3.0) {
		t.Errorf("PositiveBias excluding VIX: got %f, want 0.667", got)
	}
	if got := PositiveBias(quotes); !approx(got, 0.75) {
		t.Errorf("PositiveBias: got %f, want 0.75", got)
	}
	if got := PositiveBias(nil); got != 0.5 {
		t.Errorf("PositiveBias(nil): got %f, want 0.5", got)
	}
}
