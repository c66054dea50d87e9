// Package app wires configuration, persistence, the API client and the
// services shared by the stockboard binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"stockboard/internal/auth"
	"stockboard/internal/chart"
	"stockboard/internal/config"
	"stockboard/internal/dashboard"
	"stockboard/internal/session"
	"stockboard/internal/stocks"
	"stockboard/internal/store"
	"stockboard/internal/util"
	"stockboard/pkg/stockboard"
)

// DefaultConfigPath is used when no -config flag is given.
const DefaultConfigPath = "config/stockboard.yaml"

// LoadConfig loads .env, then the YAML file at path, and validates the result.
func LoadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// App holds the long-lived objects of one process.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	KV      store.KV
	Session *session.Store
	Client  *stockboard.Client
	Auth    *auth.Service
	Stocks  *stocks.Service

	closer func() error
}

// Open opens the SQLite session store and builds the services.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	kv, err := store.NewSQLiteKV(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	a := New(ctx, cfg, kv, log)
	a.closer = kv.Close
	return a, nil
}

// New builds an App over an existing KV.
func New(ctx context.Context, cfg *config.Config, kv store.KV, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	sess := session.New(ctx, kv, log)
	client := stockboard.NewClient(cfg.API.BaseURL,
		stockboard.WithTimeout(cfg.RequestTimeout()),
		stockboard.WithTokenSource(sess),
		stockboard.WithLimiter(util.NewRateLimiter(cfg.API.RateLimitPerMin)),
	)
	log.Info("api client ready", "base_url", client.BaseURL(), "authenticated", sess.IsAuthenticated())

	return &App{
		Config:  cfg,
		Log:     log,
		KV:      kv,
		Session: sess,
		Client:  client,
		Auth:    auth.NewService(client, log),
		Stocks:  stocks.NewService(client, log),
	}
}

// Close releases the session store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// NewPipeline creates a dashboard pipeline over the stock service using the
// configured default selection.
func (a *App) NewPipeline(opts ...dashboard.Option) *dashboard.Pipeline {
	rng, err := dashboard.ParseRange(a.Config.Dashboard.DefaultRange)
	if err != nil {
		rng = dashboard.Range1M
	}
	opts = append([]dashboard.Option{dashboard.WithLogger(a.Log)}, opts...)
	return dashboard.NewPipeline(a.Stocks, a.Config.Dashboard.DefaultSymbol, rng, opts...)
}

// SignIn authenticates and records the session.
func (a *App) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	res, err := a.Auth.AuthenticateByLogin(ctx, email, password)
	if err != nil {
		return session.Identity{}, err
	}
	if err := a.Session.Login(ctx, res.Token, res.User); err != nil {
		return session.Identity{}, err
	}
	return res.User, nil
}

// SignUp registers and records the session.
func (a *App) SignUp(ctx context.Context, name, email, password string) (session.Identity, error) {
	res, err := a.Auth.AuthenticateByRegistration(ctx, name, email, password)
	if err != nil {
		return session.Identity{}, err
	}
	if err := a.Session.Login(ctx, res.Token, res.User); err != nil {
		return session.Identity{}, err
	}
	return res.User, nil
}

// SignOut clears the session and drops the cached catalog.
func (a *App) SignOut(ctx context.Context) error {
	a.Stocks.Invalidate()
	return a.Session.Logout(ctx)
}

// View returns the normalized points of symbol within rng as of now.
func (a *App) View(ctx context.Context, symbol string, rng dashboard.Range, now time.Time) ([]dashboard.Point, error) {
	raw, err := a.Stocks.History(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return dashboard.FilterByRange(dashboard.Normalize(raw), rng, now), nil
}

// ViewWithRetry is View with up to attempts fetches on fetch errors.
func (a *App) ViewWithRetry(ctx context.Context, symbol string, rng dashboard.Range, now time.Time, attempts int) ([]dashboard.Point, error) {
	var points []dashboard.Point
	err := util.RetryIf(ctx, attempts, 500*time.Millisecond, isRetryable, func() error {
		var err error
		points, err = a.View(ctx, symbol, rng, now)
		return err
	})
	return points, err
}

// isRetryable retries transport failures and 5xx responses only.
func isRetryable(err error) bool {
	var se *stockboard.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Export is the pair of files written by ExportView.
type Export struct {
	Points      int
	ParquetPath string
	PNGPath     string
}

// ExportView writes points as a Parquet series and a PNG chart under the
// configured export directory.
func (a *App) ExportView(symbol string, rng dashboard.Range, points []dashboard.Point, at time.Time) (Export, error) {
	dir := a.Config.Storage.ExportDir
	exp := Export{
		Points:      len(points),
		ParquetPath: store.ExportPath(dir, symbol, rng, at, "parquet"),
		PNGPath:     store.ExportPath(dir, symbol, rng, at, "png"),
	}

	var g errgroup.Group
	g.Go(func() error {
		return store.WriteSeries(exp.ParquetPath, symbol, points)
	})
	g.Go(func() error {
		img, err := chart.RenderPNG(symbol, rng, points, chart.ImageOptions{})
		if err != nil {
			return fmt.Errorf("rendering chart: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(exp.PNGPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(exp.PNGPath, img, 0o644)
	})
	if err := g.Wait(); err != nil {
		return Export{}, err
	}

	a.Log.Info("exported view", "symbol", symbol, "range", rng, "points", exp.Points,
		"parquet", exp.ParquetPath, "png", exp.PNGPath)
	return exp, nil
}
