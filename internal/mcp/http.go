package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"bizonboard/internal/logging"
	"bizonboard/internal/metrics"
	"bizonboard/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/netutil"
)

// HealthText is the body of GET /.
const HealthText = "MCP Server is running"

// Handler returns the HTTP surface: streamable MCP at the endpoint path, the
// legacy SSE pair beneath it, and the health and metrics routes.
func (s *Server) Handler() http.Handler {
	sc := s.cfg.Server

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   sc.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(HealthText))
	})
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	var limiter *ratelimit.Limiter
	if sc.RateLimit.Enabled {
		limiter = ratelimit.New(sc.RateLimit.RPS, sc.RateLimit.Burst, s.cfg.GetRateLimitIdleTTL())
	}
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Handle(sc.EndpointPath, s.streamable)
		r.Handle(sc.EndpointPath+"/sse", s.sse.SSEHandler())
		r.Handle(sc.EndpointPath+"/messages", s.sse.MessageHandler())
	})
	return r
}

type health struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Backend string `json:"backend"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health{
		Status:  "ok",
		Name:    s.cfg.Name,
		Version: s.cfg.Version,
		Backend: s.svc.Store().Backend(),
	})
}

// ListenAndServe serves HTTP on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln, capped at MaxConnections, and shuts down gracefully
// when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if limit := s.cfg.Server.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logging.Boot("MCP server listening on %s%s", ln.Addr(), s.cfg.Server.EndpointPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	logging.Boot("shutting down MCP server")

	if err := s.sse.Shutdown(shutdownCtx); err != nil {
		logging.BootWarn("SSE shutdown: %v", err)
	}
	if err := s.streamable.Shutdown(shutdownCtx); err != nil {
		logging.BootWarn("streamable HTTP shutdown: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if ww.Status() >= http.StatusBadRequest {
			logging.HTTP("%s %s -> %d in %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
			return
		}
		logging.Get(logging.CategoryHTTP).Debug("%s %s -> %d in %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
