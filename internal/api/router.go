// Package api serves recommendations over HTTP: an HTML form and a JSON endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"trueneutral/internal/bundle"
	"trueneutral/internal/domain"
	"trueneutral/internal/logging"
	"trueneutral/internal/metrics"
	"trueneutral/internal/service"
)

// Recommender is what the handlers need from the query service.
type Recommender interface {
	domain.Recommender
	Metadata() bundle.Metadata
}

// Config tunes the router. A zero RateLimitRequests disables rate limiting.
type Config struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// MaxNSim caps nsim at the request validation layer when positive.
	MaxNSim int
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	svc    Recommender
	cfg    Config
	logger zerolog.Logger
}

func NewHandler(svc Recommender, cfg Config, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, logger: logger}
}

// Router builds the chi router with every route and middleware mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestID)
	r.Use(h.observe)
	if h.cfg.RateLimitRequests > 0 {
		window := h.cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.Limit(h.cfg.RateLimitRequests, window, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	r.Get("/", h.Form)
	r.Post("/", h.FormSubmit)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations", h.Recommendations)
	})
	return r
}

// requestID attaches a request ID to the context, reusing X-Request-ID when the client sends one.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.ContextWithRequestID(r.Context(), id)
		ctx = service.WithSource(ctx, "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observe logs each request and records it under its route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, endpoint, status, elapsed)
		logging.Ctx(r.Context(), h.logger).Debug().
			Str("method", r.Method).
			Str("endpoint", endpoint).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("request served")
	})
}

// NewServer wraps the router in an http.Server with the given timeouts.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
