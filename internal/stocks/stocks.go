// Package stocks fetches the backend's symbol catalog and keeps the most
// recent copy in memory.
package stocks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stockboard/pkg/stockboard"
)

// FetchFailedMessage is shown to the user when the catalog cannot be loaded.
const FetchFailedMessage = "Failed to load stock data"

// DataFetchError reports a failed catalog fetch.
type DataFetchError struct {
	Err error
}

func (e *DataFetchError) Error() string {
	return "fetching stock catalog: " + e.Err.Error()
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// RawPoint is one price point exactly as the backend sent it. Values stay
// undecoded so callers choose how to coerce malformed fields.
type RawPoint struct {
	Date   json.RawMessage `json:"date"`
	Open   json.RawMessage `json:"open"`
	High   json.RawMessage `json:"high"`
	Low    json.RawMessage `json:"low"`
	Close  json.RawMessage `json:"close"`
	Volume json.RawMessage `json:"volume"`
}

// Series is the full history of one symbol.
type Series struct {
	Symbol string     `json:"symbol"`
	Data   []RawPoint `json:"data"`
}

// Getter is the slice of the API client the service needs.
type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

var _ Getter = (*stockboard.Client)(nil)

// catalogCache holds at most one catalog. It never expires. epoch counts
// invalidations; a fetch started in an older epoch is not stored.
type catalogCache struct {
	mu        sync.RWMutex
	series    []Series
	present   bool
	fetchedAt time.Time
	epoch     uint64
}

func (c *catalogCache) get() ([]Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series, c.present
}

func (c *catalogCache) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// put stores series if no invalidation happened since epoch and reports
// whether it did.
func (c *catalogCache) put(series []Series, at time.Time, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	c.series = series
	c.present = true
	c.fetchedAt = at
	return true
}

func (c *catalogCache) invalidate() {
	c.mu.Lock()
	c.epoch++
	c.series = nil
	c.present = false
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Service loads the catalog through a pull-through cache.
type Service struct {
	api   Getter
	log   *slog.Logger
	cache catalogCache
	now   func() time.Time
}

// NewService creates a Service that fetches through api.
func NewService(api Getter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, log: log, now: time.Now}
}

// FetchCatalog returns the cached catalog unless it is empty or forceRefresh
// is set, in which case it fetches GET /stocks and replaces the cache. There
// is no retry here.
func (s *Service) FetchCatalog(ctx context.Context, forceRefresh bool) ([]Series, error) {
	if !forceRefresh {
		if series, ok := s.cache.get(); ok {
			return series, nil
		}
	}

	epoch := s.cache.currentEpoch()
	var series []Series
	if err := s.api.Get(ctx, "/stocks", &series); err != nil {
		s.log.Error("fetching stock catalog", "error", err)
		return nil, &DataFetchError{Err: err}
	}
	if series == nil {
		series = []Series{}
	}

	if !s.cache.put(series, s.now(), epoch) {
		s.log.Info("stock catalog invalidated during fetch, not cached", "symbols", len(series))
		return series, nil
	}
	s.log.Info("stock catalog loaded", "symbols", len(series), "forced", forceRefresh)
	return series, nil
}

// Invalidate drops the cached catalog so the next fetch goes to the network.
func (s *Service) Invalidate() {
	s.cache.invalidate()
}

// FetchedAt reports when the cached catalog was fetched; zero when empty.
func (s *Service) FetchedAt() time.Time {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	return s.cache.fetchedAt
}

// AvailableSymbols maps every catalog symbol to its display label.
func (s *Service) AvailableSymbols(ctx context.Context) (map[string]string, error) {
	series, err := s.FetchCatalog(ctx, false)
	if err != nil {
		return nil, err
	}
	return Labels(series), nil
}

// History returns the raw points for symbol, or an empty slice when the
// catalog has no such symbol.
func (s *Service) History(ctx context.Context, symbol string) ([]RawPoint, error) {
	series, err := s.FetchCatalog(ctx, false)
	if err != nil {
		return nil, err
	}
	if found, ok := Find(series, symbol); ok {
		return found.Data, nil
	}
	return []RawPoint{}, nil
}

// Labels builds the symbol -> label map for a catalog. The label is the
// symbol itself.
func Labels(series []Series) map[string]string {
	m := make(map[string]string, len(series))
	for _, s := range series {
		m[s.Symbol] = s.Symbol
	}
	return m
}

// Find returns the first series with the given symbol.
func Find(series []Series, symbol string) (Series, bool) {
	for _, s := range series {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return Series{}, false
}

// String implements fmt.Stringer for log output.
func (s Series) String() string {
	return fmt.Sprintf("%s(%d points)", s.Symbol, len(s.Data))
}
