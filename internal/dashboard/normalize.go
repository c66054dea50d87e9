package dashboard

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockboard/internal/stocks"
)

// Point is one normalized price point.
type Point struct {
	Date   string
	Time   time.Time // zero when Date could not be parsed
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Normalize coerces raw points into Points sorted by date. Malformed numbers
// become zero. Points sharing a date collapse to the last one in input
// order.
func Normalize(raw []stocks.RawPoint) []Point {
	points := make([]Point, 0, len(raw))
	for _, r := range raw {
		date, t := parseDate(r.Date)
		points = append(points, Point{
			Date:   date,
			Time:   t,
			Open:   toDecimal(r.Open),
			High:   toDecimal(r.High),
			Low:    toDecimal(r.Low),
			Close:  toDecimal(r.Close),
			Volume: toVolume(r.Volume),
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	out := points[:0]
	for i, p := range points {
		if i+1 < len(points) && points[i+1].Time.Equal(p.Time) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Raw converts p back to the wire shape. Normalize(Raw...) reproduces p.
func (p Point) Raw() stocks.RawPoint {
	date, _ := json.Marshal(p.Date)
	return stocks.RawPoint{
		Date:   date,
		Open:   json.RawMessage(p.Open.String()),
		High:   json.RawMessage(p.High.String()),
		Low:    json.RawMessage(p.Low.String()),
		Close:  json.RawMessage(p.Close.String()),
		Volume: json.RawMessage(strconv.FormatInt(p.Volume, 10)),
	}
}

// parseDate accepts a date string in one of dateLayouts or a number of Unix
// milliseconds.
func parseDate(raw json.RawMessage) (string, time.Time) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return "", time.Time{}
		}
		t := time.UnixMilli(ms).UTC()
		return t.Format(time.RFC3339Nano), t
	}

	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return s, t
		}
	}
	return s, time.Time{}
}

// maxExponent bounds the decimal exponent accepted from the wire. Larger
// magnitudes make arithmetic on the value arbitrarily slow.
const maxExponent = 30

var maxVolume = decimal.NewFromInt(math.MaxInt64)

// toDecimal accepts JSON numbers, numeric strings and booleans. Anything
// else, including values with an exponent beyond maxExponent, is zero.
func toDecimal(raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero
	}

	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero
		}
		s = strings.TrimSpace(s)
	case 't':
		if string(raw) == "true" {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	case 'f', 'n', '{', '[':
		return decimal.Zero
	default:
		s = string(raw)
	}

	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero
	}
	return d
}

// toVolume truncates to an integer and clamps it to [0, MaxInt64].
func toVolume(raw json.RawMessage) int64 {
	d := toDecimal(raw)
	if d.IsNegative() {
		return 0
	}
	if d.GreaterThan(maxVolume) {
		return math.MaxInt64
	}
	return d.IntPart()
}
