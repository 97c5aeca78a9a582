package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/pkg/logger"
	"github.com/okian/vendorhub/pkg/metrics"
)

// Header names understood by the API.
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusConflict        = 409
	statusTooManyRequests = 429
	statusInternalError   = 500

	// statusUnconfirmed answers a write that was queued but may still land.
	statusUnconfirmed = http.StatusServiceUnavailable
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= statusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(wrapped.statusCode))
		}
	}
}

// RequestIDMiddleware propagates the caller's X-Request-ID, or assigns one,
// and attaches it to the request context for logging.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// RateLimitMiddleware rejects requests beyond the limiter's rate with 429.
// A nil limiter lets everything through.
func RateLimitMiddleware(limiter *rate.Limiter, log logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			metrics.RecordRateLimited()
			log.Debug(r.Context(), "request throttled",
				logger.String("path", r.URL.Path),
				logger.Error(NewKind("api.rate_limit", ErrRateLimited)),
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, model.KindError, "Rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// IdempotencyMiddleware applies a create at most once per Idempotency-Key.
// A repeated key is rejected with 409; a key whose request failed is
// released so the client can retry it. An unconfirmed write keeps its key.
func IdempotencyMiddleware(deps IdempotencyDependencies, log logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderIdempotencyKey)
		if key == "" || deps == nil {
			next(w, r)
			return
		}
		ctx := r.Context()
		if !deps.ClaimIdempotencyKey(ctx, key) {
			log.Debug(ctx, "duplicate request",
				logger.String("key", key),
				logger.Error(NewKind("api.idempotency", ErrDuplicate)),
			)
			writeError(w, statusConflict, model.KindError, "Duplicate Idempotency-Key")
			return
		}
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)
		if wrapped.statusCode >= statusBadRequest && wrapped.statusCode != statusUnconfirmed {
			deps.ReleaseIdempotencyKey(ctx, key)
		}
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusConflict:
		return "conflict"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
