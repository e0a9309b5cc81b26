package models

import (
	"fmt"
	"strings"
)

// HistoryPoint is one price point in a history series. Series are ordered
// oldest first.
type HistoryPoint struct {
	Label string  `json:"label"` // date or time of day depending on range
	Price float64 `json:"price"`
}

// Range is a requested history window.
type Range string

const (
	Range1D  Range = "1D"
	Range1W  Range = "1W"
	Range1M  Range = "1M"
	Range1Y  Range = "1Y"
	Range5Y  Range = "5Y"
	RangeMax Range = "MAX"
)

// Ranges lists every supported range in display order.
var Ranges = []Range{Range1D, Range1W, Range1M, Range1Y, Range5Y, RangeMax}

// ParseRange parses a range name case-insensitively.
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Ranges {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown history range %q", s)
}

// Prices extracts the price column of a series.
func Prices(points []HistoryPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
