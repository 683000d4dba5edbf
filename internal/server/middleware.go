package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/ponplan/internal/version"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ponplan_http_requests_total",
			Help: "HTTP requests by route, owning plugin and status.",
		},
		[]string{"method", "route", "plugin", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ponplan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	httpRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ponplan_http_rejected_total",
			Help: "Requests refused before reaching a handler, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpRejectedTotal)
}

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in order (first argument is outermost).
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Route labels for paths outside the plugin tree.
const (
	routeSwagger   = "/swagger"
	routeUnmatched = "unmatched"
)

// routeTable maps request paths to bounded labels. Plugin traffic is
// grouped as /api/v1/{plugin}, so device IDs in paths never become label
// values, and unknown plugin names collapse into "unmatched".
type routeTable struct {
	core    map[string]bool
	plugins map[string]bool
	ops     map[string]bool
}

func newRouteTable(plugins []string) routeTable {
	rt := routeTable{
		core:    map[string]bool{"/api/v1/health": true, "/api/v1/plugins": true},
		plugins: make(map[string]bool, len(plugins)),
		ops:     make(map[string]bool, len(opsPaths)),
	}
	for _, p := range opsPaths {
		rt.ops[p] = true
		rt.core[p] = true
	}
	for _, name := range plugins {
		rt.plugins[name] = true
	}
	return rt
}

// label returns the route label for path and the plugin serving it, if any.
func (rt routeTable) label(path string) (route, pluginName string) {
	if rt.core[path] {
		return path, ""
	}
	if path == routeSwagger || strings.HasPrefix(path, routeSwagger+"/") {
		return routeSwagger, ""
	}
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return routeUnmatched, ""
	}
	name, _, _ := strings.Cut(rest, "/")
	if !rt.plugins[name] {
		return routeUnmatched, ""
	}
	return "/api/v1/" + name, name
}

// isOps reports whether path is a liveness, readiness or scrape endpoint.
func (rt routeTable) isOps(path string) bool {
	return rt.ops[path]
}

type requestIDKey struct{}

// RequestID returns the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDMiddleware propagates X-Request-ID or assigns a UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// AccessLogMiddleware logs each request with its route label and records
// the HTTP metrics. Ops endpoint requests are counted but not logged.
func AccessLogMiddleware(logger *zap.Logger, routes routeTable) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			route, owner := routes.label(r.URL.Path)
			httpRequestsTotal.WithLabelValues(r.Method, route, owner, strconv.Itoa(sw.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			if routes.isOps(r.URL.Path) {
				return
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", sw.status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", RequestID(r.Context())),
			}
			if owner != "" {
				fields = append(fields, zap.String("plugin", owner))
			}
			if sw.status >= http.StatusInternalServerError {
				logger.Warn("http request", fields...)
				return
			}
			logger.Info("http request", fields...)
		})
	}
}

// SecurityHeadersMiddleware sets response hardening headers. The policy
// admits the inline styles and data: images of the Swagger UI.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Ponplan-Version", version.Short())
		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware turns a handler panic into a 500 problem.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestID(r.Context())),
					)
					InternalError(w, "an unexpected error occurred", r.URL.Path)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimitMiddleware refuses request bodies over limit bytes with a 413
// problem. A declared Content-Length is checked before the handler runs;
// bodies of unknown length are capped with http.MaxBytesReader, which makes
// the handler's decode fail once the cap is passed.
func BodyLimitMiddleware(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				httpRejectedTotal.WithLabelValues("body_too_large").Inc()
				PayloadTooLarge(w, fmt.Sprintf("request body of %d bytes exceeds the %d byte limit", r.ContentLength, limit), r.URL.Path)
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware applies a token bucket per client. Ops endpoints are exempt
// so a throttled client never fails health checks.
func RateLimitMiddleware(limits *clientLimiter, routes routeTable) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !routes.isOps(r.URL.Path) && !limits.allow(limits.key(r)) {
				httpRejectedTotal.WithLabelValues("rate_limited").Inc()
				RateLimited(w, "rate limit exceeded", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	maxTrackedClients = 10000
	clientIdleAfter   = 10 * time.Minute
)

// clientLimiter holds one rate.Limiter per client address.
type clientLimiter struct {
	limit rate.Limit
	burst int
	// trustProxy keys clients by the first X-Forwarded-For hop.
	trustProxy bool

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int, trustProxy bool) *clientLimiter {
	return &clientLimiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		trustProxy: trustProxy,
		clients:    make(map[string]*clientBucket),
	}
}

func (l *clientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.evictIdle(now)
		}
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictIdle drops clients not seen within clientIdleAfter. Caller holds mu.
func (l *clientLimiter) evictIdle(now time.Time) {
	for c, b := range l.clients {
		if now.Sub(b.lastSeen) > clientIdleAfter {
			delete(l.clients, c)
		}
	}
}

// key identifies the client behind r. X-Forwarded-For counts only when
// trustProxy is set.
func (l *clientLimiter) key(r *http.Request) string {
	if l.trustProxy {
		if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusWriter records the first status code written.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
