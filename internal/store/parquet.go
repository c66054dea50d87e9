package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"stockboard/internal/dashboard"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// PointRecord is the Parquet schema for one exported price point.
type PointRecord struct {
	Symbol    string  `parquet:"symbol"`
	Date      string  `parquet:"date"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// ExportPath returns the file path for an export of symbol over rng taken at
// the given time:
//
//	<dir>/<SYMBOL>/<SYMBOL>-<RANGE>-<YYYY-MM-DD>.<ext>
//
// Characters outside [A-Za-z0-9._-] in symbol become '_', so the result
// always stays inside dir.
func ExportPath(dir, symbol string, rng dashboard.Range, at time.Time, ext string) string {
	symbol = safeName(symbol)
	name := fmt.Sprintf("%s-%s-%s.%s", symbol, rng, at.Format("2006-01-02"), ext)
	return filepath.Join(dir, symbol, name)
}

func safeName(s string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if strings.Trim(name, ".") == "" {
		return "_"
	}
	return name
}

// WriteSeries writes the points of one symbol to a Parquet file at path,
// replacing any existing file.
func WriteSeries(path, symbol string, points []dashboard.Point) error {
	records := make([]PointRecord, 0, len(points))
	for _, p := range points {
		records = append(records, PointRecord{
			Symbol:    symbol,
			Date:      p.Date,
			Timestamp: p.Time.UnixMilli(),
			Open:      p.Open.InexactFloat64(),
			High:      p.High.InexactFloat64(),
			Low:       p.Low.InexactFloat64(),
			Close:     p.Close.InexactFloat64(),
			Volume:    p.Volume,
		})
	}
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("writing series for %s: %w", symbol, err)
	}
	return nil
}

// ReadSeries reads a file written by WriteSeries and returns its symbol and
// points sorted by time.
func ReadSeries(path string) (string, []dashboard.Point, error) {
	records, err := readParquetFile[PointRecord](path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	var symbol string
	points := make([]dashboard.Point, 0, len(records))
	for _, r := range records {
		symbol = r.Symbol
		points = append(points, dashboard.Point{
			Date:   r.Date,
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   decimal.NewFromFloat(r.Open),
			High:   decimal.NewFromFloat(r.High),
			Low:    decimal.NewFromFloat(r.Low),
			Close:  decimal.NewFromFloat(r.Close),
			Volume: r.Volume,
		})
	}
	return symbol, points, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
