package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
)

// Middleware throttles requests per client IP in front of the flow endpoints.
// It is an edge guard only; per-account issuance limits live in the token
// store. If the limiter errors the request is let through.
type Middleware struct {
	limiter           KeyLimiter
	retryAfter        string
	trustProxyHeaders bool
}

// MiddlewareOption configures a Middleware
type MiddlewareOption func(*Middleware)

// WithTrustedProxyHeaders keys clients by X-Forwarded-For and X-Real-IP.
// Enable it only behind a proxy that overwrites those headers; otherwise any
// client can pick its own key.
func WithTrustedProxyHeaders() MiddlewareOption {
	return func(m *Middleware) {
		m.trustProxyHeaders = true
	}
}

// NewMiddleware wraps limiter; retryAfter is sent in the Retry-After header
func NewMiddleware(limiter KeyLimiter, retryAfter string, opts ...MiddlewareOption) *Middleware {
	if retryAfter == "" {
		retryAfter = "60"
	}
	m := &Middleware{limiter: limiter, retryAfter: retryAfter}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type limitResponse struct {
	OK         bool                `json:"ok"`
	Code       apperrors.ErrorCode `json:"code"`
	Message    string              `json:"message"`
	RetryAfter any                 `json:"retry_after,omitempty"`
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := m.limiter.Allow(r.Context(), ip)
		if err != nil {
			slog.Warn("Edge rate limiter unavailable, allowing request", "ip", ip, "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			slog.Warn("Rate limit exceeded",
				"ip", ip,
				"path", r.URL.Path,
				"method", r.Method,
			)
			limitErr := apperrors.RateLimitExceeded(m.retryAfter)
			w.Header().Set("Retry-After", m.retryAfter)
			render.Status(r, limitErr.HTTPStatusCode())
			render.JSON(w, r, limitResponse{
				Code:       limitErr.Code,
				Message:    limitErr.Message,
				RetryAfter: limitErr.Details["retry_after"],
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	if m.trustProxyHeaders {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	return remoteIP(r)
}

// forwardedIP reads the client address a trusted proxy put in the headers
func forwardedIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
