// Package utils provides common utility functions for MarketPulse.
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPrice renders a price with two decimals and thousands separators (12,345.67).
func FormatPrice(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	grouped := groupThousands(intPart)
	if neg {
		return "-" + grouped + "." + frac
	}
	return grouped + "." + frac
}

// FormatUSD renders an amount as dollars ($1,234.56).
func FormatUSD(v float64) string {
	s := FormatPrice(v)
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

// SignedDecimal rounds v to places and reports whether the rounded value is
// non-negative. The returned string always carries an explicit sign.
func SignedDecimal(v float64, places int32) (string, bool) {
	d := decimal.NewFromFloat(v).Round(places)
	nonNegative := !d.IsNegative()
	s := d.StringFixed(places)
	if nonNegative {
		return "+" + s, true
	}
	return s, false
}

// FormatSignedPercent renders a percent value with sign and suffix (+1.50%).
func FormatSignedPercent(v float64) string {
	s, _ := SignedDecimal(v, 2)
	return s + "%"
}

// ParseNumber parses a formatted number such as "+1.50%", "$1,234.56" or
// "-0.42" back into a float64.
func ParseNumber(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.NewReplacer(",", "", "%", "", "$", "", "€", "").Replace(clean)
	clean = strings.TrimPrefix(clean, "+")
	if clean == "" {
		return 0, fmt.Errorf("parse number %q: empty", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// MustNumber is ParseNumber that returns 0 on malformed input.
func MustNumber(s string) float64 {
	f, err := ParseNumber(s)
	if err != nil {
		return 0
	}
	return f
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
