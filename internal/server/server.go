package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/handler"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/middleware"
	"github.com/loftside/swingbridge/internal/schedule"
	"github.com/loftside/swingbridge/internal/svc"
)

// ServerOptions holds optional dependencies for the server.
type ServerOptions struct {
	SvcCtx  *svc.ServiceContext // Pre-initialized service context
	Quiet   bool                // Suppress startup messages for clean CLI output
	Version string              // Build version, reported by the health endpoint
}

// Run starts the swingbridge API server. It blocks until the context is
// cancelled or startup fails.
func Run(ctx context.Context, c config.Config, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return run(ctx, c, o)
}

func run(ctx context.Context, c config.Config, opts ServerOptions) error {
	if err := checkAddrAvailable(c.Server.Addr); err != nil {
		return fmt.Errorf("address %s is not available: %w", c.Server.Addr, err)
	}

	svcCtx := opts.SvcCtx
	if svcCtx == nil {
		version := opts.Version
		if version == "" {
			version = "dev"
		}
		var err error
		svcCtx, err = svc.NewServiceContext(c, version)
		if err != nil {
			return err
		}
		defer svcCtx.Close()
	}

	if !opts.Quiet {
		fmt.Printf("Starting swingbridge API on http://%s\n", c.Server.Addr)
	}

	r := NewRouter(svcCtx, opts.Quiet)

	if c.Schedule.Enabled {
		sched := schedule.New(c.Schedule, svcCtx.Store, svcCtx.Pipeline)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start report scheduler: %w", err)
		}
		defer sched.Stop()
		if !opts.Quiet {
			fmt.Println("Report pull scheduler started")
		}
	}

	// Automation runs hold the request open for minutes, so read/write
	// timeouts stay unset.
	httpServer := &http.Server{
		Addr:        c.Server.Addr,
		Handler:     r,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if !opts.Quiet {
		fmt.Println("\nShutting down server gracefully...")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the chi router with every API route mounted.
func NewRouter(svcCtx *svc.ServiceContext, quiet bool) chi.Router {
	r := chi.NewRouter()

	if !quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/healthz", handler.HealthCheckHandler(svcCtx))

	r.Route("/api/v1", func(r chi.Router) {
		if secret := svcCtx.Config.Server.AuthSecret; secret != "" {
			r.Use(middleware.Auth(secret))
		} else {
			logging.Warnf("API auth disabled: no auth secret configured")
		}

		r.Post("/automation", handler.AutomationHandler(svcCtx))
		r.Get("/activity", handler.ListActivityHandler(svcCtx))
		r.Get("/players", handler.ListPlayersHandler(svcCtx))
		r.Get("/players/{id}", handler.GetPlayerHandler(svcCtx))
	})

	return r
}

// checkAddrAvailable checks that the listen address can be bound.
func checkAddrAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
