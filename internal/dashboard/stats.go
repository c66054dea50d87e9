// Package dashboard turns the raw stock catalog into the filtered, normalized
// view shown by the terminal dashboard and the CLI.
package dashboard

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Stats summarizes the points of one view.
type Stats struct {
	Count       int
	FirstClose  decimal.Decimal
	LastClose   decimal.Decimal
	Change      decimal.Decimal // LastClose - FirstClose
	ChangePct   decimal.Decimal // percent of FirstClose; zero when FirstClose is zero
	High        decimal.Decimal
	Low         decimal.Decimal
	AvgClose    decimal.Decimal
	TotalVolume int64
	MaxGain     decimal.Decimal // best close-to-later-close rise, percent
	MaxDrawdown decimal.Decimal // worst close-to-later-close fall, percent
}

// Summarize computes Stats over points, which must be in date order.
func Summarize(points []Point) Stats {
	var s Stats
	if len(points) == 0 {
		return s
	}

	s.Count = len(points)
	s.FirstClose = points[0].Close
	s.LastClose = points[len(points)-1].Close
	s.Change = s.LastClose.Sub(s.FirstClose)
	if !s.FirstClose.IsZero() {
		s.ChangePct = s.Change.Div(s.FirstClose).Mul(hundred)
	}

	s.High = points[0].High
	s.Low = points[0].Low
	sum := decimal.Zero
	minClose := points[0].Close
	maxClose := points[0].Close

	for _, p := range points {
		if p.High.GreaterThan(s.High) {
			s.High = p.High
		}
		if p.Low.LessThan(s.Low) {
			s.Low = p.Low
		}
		sum = sum.Add(p.Close)
		s.TotalVolume += p.Volume

		// Gain: bought at the lowest close so far, sold now.
		if p.Close.LessThan(minClose) {
			minClose = p.Close
		}
		if minClose.IsPositive() {
			if g := p.Close.Sub(minClose).Div(minClose).Mul(hundred); g.GreaterThan(s.MaxGain) {
				s.MaxGain = g
			}
		}
		// Drawdown: bought at the highest close so far, sold now.
		if p.Close.GreaterThan(maxClose) {
			maxClose = p.Close
		}
		if maxClose.IsPositive() {
			if d := maxClose.Sub(p.Close).Div(maxClose).Mul(hundred); d.GreaterThan(s.MaxDrawdown) {
				s.MaxDrawdown = d
			}
		}
	}

	s.AvgClose = sum.Div(decimal.NewFromInt(int64(len(points))))
	return s
}
