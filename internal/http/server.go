package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tradecal/internal/cache"
	"tradecal/internal/calendar"
	"tradecal/internal/format"
	"tradecal/internal/log"
	"tradecal/internal/middleware/ratelimit"
	"tradecal/internal/middleware/security"
	"tradecal/internal/middleware/trace"
)

// requestTimeout bounds the month read of a single request.
const requestTimeout = 7 * time.Second

// ReadinessCheck reports whether the data source can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	store      *cache.Store
	calendar   *calendar.Service
	formatter  *format.Formatter
	ready      ReadinessCheck
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware
	logger     *log.Logger
	structured *log.StructuredLogger
	proxies    proxyList
	now        func() time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(check ReadinessCheck) Option {
	return func(s *Server) {
		s.ready = check
	}
}

// WithClock sets the clock used for default year and month parameters.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRateLimit overrides the limiter configuration of the cache endpoints.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// WithTrustedProxies replaces the networks allowed to set forwarding
// headers. Invalid CIDRs are logged and the defaults are kept.
func WithTrustedProxies(cidrs []string) Option {
	return func(s *Server) {
		list, err := parseProxyList(cidrs)
		if err != nil {
			s.logger.Warn("Ignoring trusted proxies", log.FieldError, err)
			return
		}
		s.proxies = list
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *cache.Store, svc *calendar.Service, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:      store,
		calendar:   svc,
		formatter:  format.New(store),
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		proxies:    mustParseProxyList(DefaultTrustedProxies),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(logger, s.proxies.clientIP)

	limited := s.limiter.Middleware(s.proxies.clientIP, s.onRateLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/calendar/data", s.handleCalendarData)
	mux.HandleFunc("GET /api/calendar/latest", s.handleLatest)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.Handle("POST /api/cache/clear", limited(http.HandlerFunc(s.handleCacheClear)))
	mux.Handle("POST /api/cache/reset", limited(http.HandlerFunc(s.handleCacheReset)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(
		trace.LoggerMiddleware(logger)(
			headers.Middleware(mux)))

	return s
}

// Shutdown stops the rate limiter, logs request totals and gracefully shuts
// down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		requests, limits := s.tracer.GetMetrics(), s.limiter.GetMetrics()
		s.logger.Info("HTTP server stopping",
			"total_requests", requests.TotalRequests,
			"avg_response_us", requests.AverageResponseTime,
			"rate_limited", limits.TotalHits)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.proxies.clientIP(r))
	NewJSONResponse().
		Header("Cache-Control", "no-store").
		Error(http.StatusTooManyRequests, "rate limit exceeded").
		Write(r.Context(), w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
