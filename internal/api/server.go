// Package api is the development backend for stockboard: it serves the
// /login, /signup and /stocks endpoints the clients consume, backed by
// in-memory accounts and a generated price catalog.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"stockboard/internal/config"
)

const (
	ServiceName         = "stockboard-devapi"
	ServiceVersion      = "0.1.0"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	UserContextKey      = "user"

	shutdownTimeout = 5 * time.Second
)

// Server hosts the development API.
type Server struct {
	addr    string
	log     *slog.Logger
	users   *userStore
	catalog []SeriesDoc
	http    *http.Server
}

// NewServer creates a Server with a catalog generated from cfg.DevAPI. The
// series end at now.
func NewServer(cfg *config.Config, log *slog.Logger, now time.Time) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		addr:    cfg.DevAPI.Addr,
		log:     log,
		users:   newUserStore(),
		catalog: GenerateCatalog(cfg.DevAPI.Symbols, cfg.DevAPI.Days, now, now.UnixNano()),
	}
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(s.log))
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.POST("/login", s.handleLogin)
	router.POST("/signup", s.handleSignup)
	router.GET("/stocks", s.requireAuth(), s.handleStocks)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("dev api listening", "addr", s.addr, "symbols", len(s.catalog))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down dev api")
	return s.http.Shutdown(ctx)
}
