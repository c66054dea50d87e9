package api

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// PointDoc is one daily bar as served by /stocks. Prices marshal as JSON
// strings.
type PointDoc struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// SeriesDoc is one symbol's history as served by /stocks.
type SeriesDoc struct {
	Symbol string     `json:"symbol"`
	Data   []PointDoc `json:"data"`
}

// GenerateCatalog builds a random-walk daily series of days weekdays ending
// at end for each symbol. The same seed yields the same catalog.
func GenerateCatalog(symbols []string, days int, end time.Time, seed int64) []SeriesDoc {
	catalog := make([]SeriesDoc, 0, len(symbols))
	for _, sym := range symbols {
		h := fnv.New64a()
		h.Write([]byte(sym))
		rng := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
		catalog = append(catalog, SeriesDoc{Symbol: sym, Data: randomWalk(rng, days, end)})
	}
	return catalog
}

func randomWalk(rng *rand.Rand, days int, end time.Time) []PointDoc {
	const volatility = 0.02

	// Collect weekdays backwards, then emit oldest first.
	dates := make([]time.Time, 0, days)
	d := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for len(dates) < days {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, -1)
	}

	price := 20 + rng.Float64()*480
	points := make([]PointDoc, 0, days)
	for i := len(dates) - 1; i >= 0; i-- {
		o := price
		c := o * (1 + rng.NormFloat64()*volatility)
		if c < 1 {
			c = 1
		}
		high := max(o, c) * (1 + rng.Float64()*volatility/2)
		low := min(o, c) * (1 - rng.Float64()*volatility/2)
		points = append(points, PointDoc{
			Date:   dates[i].Format("2006-01-02"),
			Open:   decimal.NewFromFloat(o).Round(2),
			High:   decimal.NewFromFloat(high).Round(2),
			Low:    decimal.NewFromFloat(low).Round(2),
			Close:  decimal.NewFromFloat(c).Round(2),
			Volume: 1_000_000 + rng.Int63n(50_000_000),
		})
		price = c
	}
	return points
}
