package dashboard

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockboard/internal/stocks"
)

func rawPoints(t *testing.T, js string) []stocks.RawPoint {
	t.Helper()
	var raw []stocks.RawPoint
	if err := json.Unmarshal([]byte(js), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return raw
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalizeScenario(t *testing.T) {
	pts := Normalize(rawPoints(t, `[{"date":"2024-01-01","open":"10","high":"12","low":"9","close":"11","volume":"1000"}]`))
	if len(pts) != 1 {
		t.Fatalf("got %d points, want 1", len(pts))
	}
	p := pts[0]
	if p.Date != "2024-01-01" {
		t.Errorf("Date = %q", p.Date)
	}
	if !p.Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v", p.Time)
	}
	for name, got := range map[string]decimal.Decimal{"open": p.Open, "high": p.High, "low": p.Low, "close": p.Close} {
		want := map[string]string{"open": "10", "high": "12", "low": "9", "close": "11"}[name]
		if !got.Equal(dec(want)) {
			t.Errorf("%s = %s, want %s", name, got, want)
		}
	}
	if p.Volume != 1000 {
		t.Errorf("Volume = %d", p.Volume)
	}
}

func TestNormalizeCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"numeric string", `"10.5"`, "10.5"},
		{"number", `10.5`, "10.5"},
		{"padded string", `"  7 "`, "7"},
		{"exponent", `1e3`, "1000"},
		{"bad string", `"bad"`, "0"},
		{"empty string", `""`, "0"},
		{"null", `null`, "0"},
		{"NaN string", `"NaN"`, "0"},
		{"Infinity string", `"Infinity"`, "0"},
		{"true", `true`, "1"},
		{"false", `false`, "0"},
		{"object", `{"v":1}`, "0"},
		{"array", `[1]`, "0"},
		{"huge exponent", `"1e999999999"`, "0"},
		{"tiny exponent", `1e-999999999`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := Normalize(rawPoints(t, `[{"date":"2024-01-01","open":`+tt.value+`}]`))
			if got := pts[0].Open; !got.Equal(dec(tt.want)) {
				t.Errorf("open = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizeMalformedOpenAndMissingFields(t *testing.T) {
	pts := Normalize(rawPoints(t, `[{"date":"2024-01-01","open":"bad","close":"11"}]`))
	if !pts[0].Open.IsZero() {
		t.Errorf("open = %s, want 0", pts[0].Open)
	}
	if !pts[0].High.IsZero() || pts[0].Volume != 0 {
		t.Errorf("missing fields should be zero: %+v", pts[0])
	}
	if !pts[0].Close.Equal(dec("11")) {
		t.Errorf("close = %s", pts[0].Close)
	}
}

func TestNormalizeVolume(t *testing.T) {
	tests := []struct {
		value string
		want  int64
	}{
		{`"1000"`, 1000},
		{`12.9`, 12},
		{`-5`, 0},
		{`"x"`, 0},
		{`"1e19"`, math.MaxInt64},
		{`"9223372036854775808"`, math.MaxInt64},
		{`"9223372036854775807"`, math.MaxInt64},
		{`"1e999999999"`, 0},
		{`1e-999999999`, 0},
	}
	for _, tt := range tests {
		pts := Normalize(rawPoints(t, `[{"date":"2024-01-01","volume":`+tt.value+`}]`))
		if pts[0].Volume != tt.want {
			t.Errorf("volume %s = %d, want %d", tt.value, pts[0].Volume, tt.want)
		}
	}
}

func TestNormalizeSortsAndDedupes(t *testing.T) {
	pts := Normalize(rawPoints(t, `[
		{"date":"2024-01-03","close":3},
		{"date":"2024-01-01","close":1},
		{"date":"2024-01-02","close":2},
		{"date":"2024-01-01T00:00:00Z","close":9}
	]`))
	if len(pts) != 3 {
		t.Fatalf("got %d points, want 3", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if !pts[i-1].Time.Before(pts[i].Time) {
			t.Errorf("points not strictly increasing at %d", i)
		}
	}
	if !pts[0].Close.Equal(dec("9")) {
		t.Errorf("duplicate date should keep last occurrence, close = %s", pts[0].Close)
	}
}

func TestNormalizeDates(t *testing.T) {
	pts := Normalize(rawPoints(t, `[
		{"date":"garbage","close":1},
		{"date":1704153600000,"close":2},
		{"date":"2024-01-01T10:30:00","close":3}
	]`))
	if len(pts) != 3 {
		t.Fatalf("got %d points", len(pts))
	}
	if !pts[0].Time.IsZero() || pts[0].Date != "garbage" {
		t.Errorf("unparseable date should sort first with zero time: %+v", pts[0])
	}
	if !pts[2].Time.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unix ms date = %v", pts[2].Time)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize(rawPoints(t, `[
		{"date":"2024-01-02","open":"1.50","high":true,"low":null,"close":"x","volume":"12.7"},
		{"date":"2024-01-01","open":2,"high":3,"low":1,"close":2.5,"volume":100},
		{"date":"2024-01-01","open":4,"high":5,"low":3,"close":4.5,"volume":200},
		{"date":1704240000000,"close":7}
	]`))

	raw := make([]stocks.RawPoint, len(first))
	for i, p := range first {
		raw[i] = p.Raw()
	}
	second := Normalize(raw)

	if len(first) != len(second) {
		t.Fatalf("len %d != %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Date != b.Date || !a.Time.Equal(b.Time) || !a.Open.Equal(b.Open) || !a.High.Equal(b.High) ||
			!a.Low.Equal(b.Low) || !a.Close.Equal(b.Close) || a.Volume != b.Volume {
			t.Errorf("point %d changed: %+v -> %+v", i, a, b)
		}
	}
}

func series(start time.Time, days int) []Point {
	pts := make([]Point, days)
	for i := range pts {
		t := start.AddDate(0, 0, i)
		pts[i] = Point{Date: t.Format("2006-01-02"), Time: t, Close: decimal.NewFromInt(int64(i + 1))}
	}
	return pts
}

func TestFilterByRangeSubsetAndBounds(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	pts := series(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 600)

	want := map[Range]int{
		Range1D: 1,   // 06-15
		Range1W: 7,   // 06-09 .. 06-15
		Range1M: 31,  // 05-16 .. 06-15
		Range3M: 92,  // 03-16 .. 06-15
		Range1Y: 366, // 2023-06-16 .. 2024-06-15
	}

	for _, rng := range Ranges {
		t.Run(string(rng), func(t *testing.T) {
			got := FilterByRange(pts, rng, now)
			cutoff, _ := Cutoff(rng, now)

			if len(got) != want[rng] {
				t.Errorf("len = %d, want %d", len(got), want[rng])
			}
			index := make(map[string]bool, len(pts))
			for _, p := range pts {
				index[p.Date] = true
			}
			for _, p := range got {
				if !index[p.Date] {
					t.Errorf("%s not in input", p.Date)
				}
				if p.Time.Before(cutoff) || p.Time.After(now) {
					t.Errorf("%s outside [%v, %v]", p.Date, cutoff, now)
				}
			}
		})
	}
}

func TestFilterByRangeUnknownIsIdentity(t *testing.T) {
	pts := series(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	got := FilterByRange(pts, Range("5Y"), time.Now())
	if len(got) != len(pts) {
		t.Fatalf("len = %d, want %d", len(got), len(pts))
	}
	for i := range pts {
		if got[i].Date != pts[i].Date {
			t.Errorf("point %d changed", i)
		}
	}
}

func TestFilterByRangeDoesNotMutateInput(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	pts := series(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	before := append([]Point(nil), pts...)

	FilterByRange(pts, Range1D, now)

	for i := range pts {
		if pts[i].Date != before[i].Date {
			t.Fatalf("input mutated at %d", i)
		}
	}
}

func TestParseRange(t *testing.T) {
	for _, s := range []string{"1d", " 1W ", "1M", "3m", "1y"} {
		if _, err := ParseRange(s); err != nil {
			t.Errorf("ParseRange(%q): %v", s, err)
		}
	}
	if _, err := ParseRange("2Y"); err == nil {
		t.Error("ParseRange(2Y) should fail")
	}
}

func TestSummarize(t *testing.T) {
	pts := []Point{
		{Open: dec("10"), High: dec("12"), Low: dec("9"), Close: dec("10"), Volume: 100},
		{Open: dec("10"), High: dec("15"), Low: dec("10"), Close: dec("14"), Volume: 200},
		{Open: dec("14"), High: dec("14"), Low: dec("6"), Close: dec("7"), Volume: 300},
		{Open: dec("7"), High: dec("13"), Low: dec("7"), Close: dec("12"), Volume: 400},
	}
	s := Summarize(pts)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"first", s.FirstClose, "10"},
		{"last", s.LastClose, "12"},
		{"change", s.Change, "2"},
		{"change pct", s.ChangePct, "20"},
		{"high", s.High, "15"},
		{"low", s.Low, "6"},
		{"avg", s.AvgClose, "10.75"},
		{"max gain", s.MaxGain, "71.4286"},
		{"max drawdown", s.MaxDrawdown, "50"},
	}
	for _, c := range checks {
		if !c.got.Round(4).Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if s.TotalVolume != 1000 || s.Count != 4 {
		t.Errorf("volume = %d, count = %d", s.TotalVolume, s.Count)
	}

	if empty := Summarize(nil); empty.Count != 0 || !empty.ChangePct.IsZero() {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatInt(1234567), "1,234,567"},
		{FormatInt(999), "999"},
		{FormatVolume(12_345_678), "12.35M"},
		{FormatVolume(2_500_000_000), "2.50B"},
		{FormatVolume(1_500), "1.50K"},
		{FormatVolume(42), "42"},
		{FormatPrice(dec("11")), "11.00"},
		{FormatPrice(decimal.Zero), "-"},
		{FormatChange(dec("1.234")), "+1.23%"},
		{FormatChange(dec("-4.5")), "-4.50%"},
		{FormatChange(decimal.Zero), "0.00%"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
