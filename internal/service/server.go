// Package service exposes the automation HTTP surface consumed by the
// sandboxed client: agent invocation, the tab-request relay endpoints, and
// session/credential lifecycle.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/browserpilot/browserpilot/internal/agent"
	"github.com/browserpilot/browserpilot/internal/config"
	"github.com/browserpilot/browserpilot/internal/relay"
)

// Driver is the slice of the automation driver the HTTP layer needs.
type Driver interface {
	EnsureOpen(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Close()
	LoggedIn() bool
	ResetProfile() error
}

// AgentRunner runs one agent turn; satisfied by *agent.Loop.
type AgentRunner interface {
	Run(ctx context.Context, utterance string) (agent.Result, error)
}

// Server wires the router and owns the HTTP listener lifecycle.
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	driver   Driver
	queue    *relay.Queue
	runner   AgentRunner
	loginURL string
	router   chi.Router
}

func NewServer(cfg config.ServerConfig, loginURL string, driver Driver, queue *relay.Queue, runner AgentRunner, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.Named("service"),
		driver:   driver,
		queue:    queue,
		runner:   runner,
		loginURL: loginURL,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(corsMiddleware)

	r.Post("/invoke", s.handleInvoke)
	r.Get("/tab-requests", s.handleListTabRequests)
	r.Post("/tab-requests/{id}/complete", s.handleCompleteTabRequest)
	r.Post("/auth/google-login", s.handleGoogleLogin)
	r.Get("/auth/status", s.handleAuthStatus)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/browser/navigate", s.handleBrowserNavigate)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.RequestTimeout > 0 {
		return s.cfg.RequestTimeout
	}
	return 120 * time.Second
}

// Router exposes the handler tree, mainly for httptest.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until ctx is canceled, then drains in-flight requests before
// returning.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// corsMiddleware lets the sandboxed client, served from a different origin,
// reach the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
