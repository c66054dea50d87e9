package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockboard/internal/config"
	"stockboard/internal/dashboard"
	"stockboard/internal/store"
	"stockboard/pkg/stockboard"
)

const catalog = `[{"symbol":"AAPL","data":[
  {"date":"2024-01-01","open":"10","high":"12","low":"9","close":"11","volume":"1000"},
  {"date":"2024-01-02","open":"11","high":"13","low":"10","close":"12","volume":"1500"}
]}]`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backend accepts any credentials and serves catalog to bearer holders.
func backend(t *testing.T) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastAuth atomic.Value
	lastAuth.Store("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth.Store(r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/login", "/signup":
			w.Write([]byte(`{"token":"tok-1","user":{"id":"1","email":"a@b.c","name":"Ada"}}`))
		case "/stocks":
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message":"Unauthorized"}`))
				return
			}
			w.Write([]byte(catalog))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &lastAuth
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		API:       config.API{BaseURL: baseURL, Timeout: "5s"},
		Storage:   config.Storage{SQLitePath: filepath.Join(dir, "session.db"), ExportDir: filepath.Join(dir, "exports")},
		Dashboard: config.Dashboard{DefaultSymbol: "AAPL", DefaultRange: "1Y"},
	}
}

func TestSignInSignOutControlsBearer(t *testing.T) {
	srv, lastAuth := backend(t)
	ctx := context.Background()
	a := New(ctx, testConfig(t, srv.URL), store.NewMemoryKV(), quietLogger())

	_, err := a.Stocks.FetchCatalog(ctx, true)
	require.Error(t, err)
	assert.Empty(t, lastAuth.Load())

	user, err := a.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	_, err = a.Stocks.FetchCatalog(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", lastAuth.Load())

	require.NoError(t, a.SignOut(ctx))
	assert.False(t, a.Session.IsAuthenticated())

	_, err = a.Stocks.FetchCatalog(ctx, false)
	require.Error(t, err, "logout drops the cached catalog")
	assert.Empty(t, lastAuth.Load(), "request after logout carries no bearer")
}

func TestOpenPersistsSession(t *testing.T) {
	srv, _ := backend(t)
	ctx := context.Background()
	cfg := testConfig(t, srv.URL)

	a, err := Open(ctx, cfg, quietLogger())
	require.NoError(t, err)
	_, err = a.SignUp(ctx, "Ada", "a@b.c", "pw")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := Open(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer b.Close()
	assert.True(t, b.Session.IsAuthenticated())
	assert.Equal(t, "a@b.c", b.Session.Identity().Email)
}

func TestPipelineFromApp(t *testing.T) {
	srv, _ := backend(t)
	ctx := context.Background()
	a := New(ctx, testConfig(t, srv.URL), store.NewMemoryKV(), quietLogger())
	_, err := a.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	snap := a.NewPipeline(dashboard.WithClock(func() time.Time { return now })).Mount(ctx)
	assert.Equal(t, dashboard.Ready, snap.State)
	assert.Equal(t, dashboard.Selection{Symbol: "AAPL", Range: dashboard.Range1Y}, snap.Selection)
	assert.Len(t, snap.Points, 2)
}

func TestExportView(t *testing.T) {
	srv, _ := backend(t)
	ctx := context.Background()
	a := New(ctx, testConfig(t, srv.URL), store.NewMemoryKV(), quietLogger())
	_, err := a.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	points, err := a.ViewWithRetry(ctx, "AAPL", dashboard.Range1M, now, 3)
	require.NoError(t, err)
	require.Len(t, points, 2)

	exp, err := a.ExportView("AAPL", dashboard.Range1M, points, now)
	require.NoError(t, err)
	assert.Equal(t, 2, exp.Points)

	sym, back, err := store.ReadSeries(exp.ParquetPath)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sym)
	assert.Len(t, back, 2)

	info, err := os.Stat(exp.PNGPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestViewWithRetryStopsOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := New(context.Background(), testConfig(t, srv.URL), store.NewMemoryKV(), quietLogger())
	_, err := a.ViewWithRetry(context.Background(), "AAPL", dashboard.Range1M, time.Now(), 3)

	var se *stockboard.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int32(1), hits.Load())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&stockboard.StatusError{StatusCode: 503}))
	assert.False(t, isRetryable(&stockboard.StatusError{StatusCode: 404}))
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.False(t, isRetryable(context.Canceled))
}
