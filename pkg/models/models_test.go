package models

import (
	"testing"
	"time"
)

func TestNewQuotePositiveInvariant(t *testing.T) {
	tests := []struct {
		name     string
		change   float64
		positive bool
		abs      string
	}{
		{"gain", 2.7, true, "+2.70"},
		{"loss", -1.25, false, "-1.25"},
		{"flat", 0, true, "+0.00"},
		{"rounds to zero", -0.004, true, "+0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuote("AAPL", "Apple Inc.", 180, tt.change, tt.change/180*100, time.Now())
			if q.IsPositive != tt.positive {
				t.Errorf("IsPositive = %v, want %v", q.IsPositive, tt.positive)
			}
			if q.AbsoluteChange != tt.abs {
				t.Errorf("AbsoluteChange = %q, want %q", q.AbsoluteChange, tt.abs)
			}
			if q.IsPositive != (q.ChangeValue() >= 0) {
				t.Errorf("IsPositive disagrees with AbsoluteChange %q", q.AbsoluteChange)
			}
		})
	}
}

func TestQuoteNumericAccessors(t *testing.T) {
	q := NewQuote("SPX", "S&P 500", 5123.4, 12.3, 0.24, time.Now())
	if q.Price != "5,123.40" {
		t.Errorf("Price = %q", q.Price)
	}
	if q.PriceValue() != 5123.4 {
		t.Errorf("PriceValue = %f", q.PriceValue())
	}
	if q.PercentChange != "+0.24%" || q.PercentValue() != 0.24 {
		t.Errorf("PercentChange = %q / %f", q.PercentChange, q.PercentValue())
	}
	if got := q.PreviousClose(); got < 5111.09 || got > 5111.11 {
		t.Errorf("PreviousClose = %f, want 5111.10", got)
	}
}

func TestQuoteCacheEntryFresh(t *testing.T) {
	now := time.Now()
	e := QuoteCacheEntry{FetchedAt: now.Add(-5 * time.Second)}
	if !e.Fresh(now, 10*time.Second) {
		t.Error("expected entry to be fresh within TTL")
	}
	if e.Fresh(now, 5*time.Second) {
		t.Error("expected entry to be stale at exactly TTL")
	}
}

func TestParseRange(t *testing.T) {
	for _, r := range Ranges {
		got, err := ParseRange(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRange(%q) = %q, %v", r, got, err)
		}
	}
	if got, err := ParseRange("1m"); err != nil || got != Range1M {
		t.Errorf("ParseRange lower-case = %q, %v", got, err)
	}
	if _, err := ParseRange("3Q"); err == nil {
		t.Error("expected error for unknown range")
	}
}
