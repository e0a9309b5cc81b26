package technical

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMetricProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	prices := gen.SliceOf(gen.Float64Range(1, 10000))

	properties.Property("volatility is never negative", prop.ForAll(
		func(p []float64) bool {
			return Volatility(p) >= 0
		},
		prices,
	))

	properties.Property("support never exceeds resistance and both lie within range", prop.ForAll(
		func(p []float64) bool {
			lv := SupportResistance(p)
			if len(p) < 2 {
				return lv == Levels{}
			}
			lo, hi := p[0], p[0]
			for _, v := range p {
				lo, hi = min(lo, v), max(hi, v)
			}
			return lv.Support <= lv.Resistance && lv.Support >= lo && lv.Resistance <= hi
		},
		prices,
	))

	properties.Property("trend needs five points", prop.ForAll(
		func(p []float64) bool {
			tr, _ := TrendOf(p)
			return (len(p) < 5) == (tr == TrendInsufficient)
		},
		prices,
	))

	properties.Property("momentum equals the daily change on short history", prop.ForAll(
		func(daily float64, p []float64) bool {
			if len(p) >= 5 {
				return true
			}
			return Momentum(daily, p) == daily
		},
		gen.Float64Range(-20, 20),
		prices,
	))

	properties.TestingRun(t)
}
