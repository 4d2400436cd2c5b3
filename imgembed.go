// Package imgembed turns a directory of images into a single JSON manifest of
// data URIs and serves lookups over it.
//
// Build scans a source tree and writes the manifest; Load/Parse return an
// Accessor for category and filename lookups; OptimizeDataURI and
// FileToDataURI are standalone conversions. App exposes all of it over HTTP.
package imgembed

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// App serves a manifest over HTTP. It wires together the manifest cache,
// the optional build history store, handlers and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Cache  *ManifestCache
	Store  *Store

	limiter *RateLimiter
}

// New creates an App with routes and middleware installed. The manifest at
// cfg.OutputPath is read lazily on the first request.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Cache:  NewManifestCache(cfg.OutputPath, cfg.ManifestTTL),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.limiter == nil {
		a.limiter = NewRateLimiter(30, time.Minute)
	}

	a.Echo.HideBanner = true
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("image server listening", "addr", a.Config.Addr, "manifest", a.Config.OutputPath)
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.Echo.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(embeddedFS)))))

	e.GET("/", a.handleGallery)
	e.GET("/healthcheck", handleHealthcheck)

	e.GET("/images", a.handleListAll)
	e.GET("/images/preload/:category", a.handlePreload)
	e.GET("/images/:category", a.handleListCategory)
	e.GET("/images/:category/:filename", a.handleImage)

	api := e.Group("/api")
	api.GET("/categories", a.handleCategories)
	api.GET("/images/find/:filename", a.handleFind)
	api.POST("/validate-image", a.handleValidate)
	api.POST("/optimize-image", a.handleOptimize)
	api.GET("/builds", a.handleBuilds)
	api.GET("/builds/:id", a.handleBuild)
}

// Close releases background resources. The store, if any, is owned by the caller.
func (a *App) Close() error {
	a.limiter.Stop()
	return nil
}
