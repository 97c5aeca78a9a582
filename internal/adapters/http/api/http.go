// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/rating"
	"github.com/okian/vendorhub/internal/domain/types"
	"github.com/okian/vendorhub/pkg/logger"
)

// maxBodyBytes bounds request bodies. Records are far smaller.
const maxBodyBytes = 64 << 10

// VendorDependencies covers vendor reads and the per-vendor listings.
type VendorDependencies interface {
	CreateVendor(ctx context.Context, p model.CreateVendorPayload) (model.Vendor, error)
	GetVendorByID(ctx context.Context, id uint64) (model.Vendor, error)
	ListAllVendors(ctx context.Context) ([]model.Vendor, error)
	GetServicesByVendorID(ctx context.Context, vendorID uint64) ([]model.Service, error)
	GetContractsByVendorID(ctx context.Context, vendorID uint64) ([]model.Contract, error)
	GetFeedbackByVendorID(ctx context.Context, vendorID uint64) ([]model.Feedback, error)
	CalculateAverageRating(ctx context.Context, vendorID uint64) (float64, error)
	RatingSummary(ctx context.Context, vendorID uint64) (rating.Summary, error)
}

// RecordDependencies creates records that reference a vendor.
type RecordDependencies interface {
	CreateService(ctx context.Context, p model.CreateServicePayload) (model.Service, error)
	CreateContract(ctx context.Context, p model.CreateContractPayload) (model.Contract, error)
	CreateFeedback(ctx context.Context, p model.CreateFeedbackPayload) (model.Feedback, error)
}

// IdempotencyDependencies tracks Idempotency-Key headers.
type IdempotencyDependencies interface {
	// ClaimIdempotencyKey reports false when the key was already claimed.
	ClaimIdempotencyKey(ctx context.Context, key string) bool
	ReleaseIdempotencyKey(ctx context.Context, key string)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (types.Stats, error)
}

// BackupProvider streams a compressed store snapshot.
type BackupProvider interface {
	Backup(ctx context.Context, w io.Writer) (int64, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	VendorDependencies
	RecordDependencies
	IdempotencyDependencies
	StatsProvider
	BackupProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	backupHandler  *BackupHandler
	vendorsHandler *VendorsHandler
	recordsHandler *RecordsHandler
	idempotency    IdempotencyDependencies

	limiter *rate.Limiter
	logger  logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit throttles write requests to rps with the given burst. A
// non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithLogger sets the logger handlers report failures on.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{logger: logger.Nop(), idempotency: deps}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps, s.logger)
	s.backupHandler = NewBackupHandler(deps, s.logger)
	s.vendorsHandler = NewVendorsHandler(deps, s.logger)
	s.recordsHandler = NewRecordsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	write := func(h http.HandlerFunc) http.HandlerFunc {
		return RateLimitMiddleware(s.limiter, s.logger, IdempotencyMiddleware(s.idempotency, s.logger, h))
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /backup", MetricsMiddleware(s.backupHandler.HandleBackup, "backup"))

	mux.HandleFunc("POST /vendors", MetricsMiddleware(write(s.vendorsHandler.HandleCreate), "vendors"))
	mux.HandleFunc("GET /vendors", MetricsMiddleware(s.vendorsHandler.HandleList, "vendors"))
	mux.HandleFunc("GET /vendors/{id}", MetricsMiddleware(s.vendorsHandler.HandleGet, "vendor"))
	mux.HandleFunc("GET /vendors/{id}/services", MetricsMiddleware(s.vendorsHandler.HandleServices, "vendor_services"))
	mux.HandleFunc("GET /vendors/{id}/contracts", MetricsMiddleware(s.vendorsHandler.HandleContracts, "vendor_contracts"))
	mux.HandleFunc("GET /vendors/{id}/feedback", MetricsMiddleware(s.vendorsHandler.HandleFeedback, "vendor_feedback"))
	mux.HandleFunc("GET /vendors/{id}/rating", MetricsMiddleware(s.vendorsHandler.HandleRating, "vendor_rating"))
	mux.HandleFunc("GET /vendors/{id}/rating/summary", MetricsMiddleware(s.vendorsHandler.HandleRatingSummary, "vendor_rating_summary"))

	mux.HandleFunc("POST /services", MetricsMiddleware(write(s.recordsHandler.HandleCreateService), "services"))
	mux.HandleFunc("POST /contracts", MetricsMiddleware(write(s.recordsHandler.HandleCreateContract), "contracts"))
	mux.HandleFunc("POST /feedback", MetricsMiddleware(write(s.recordsHandler.HandleCreateFeedback), "feedback"))
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Kind    model.Kind `json:"kind"`
	Message string     `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind model.Kind, msg string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: msg})
}

// writeFailure renders an error returned by a dependency. Domain outcomes
// keep their kind and text; anything else is logged and hidden behind 500.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	var msg *model.Message
	switch {
	case errors.As(err, &msg):
		writeError(w, statusOf(msg.Kind), msg.Kind, msg.Text)
	case errors.Is(err, model.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, model.KindError, "Write queue is full, retry later")
	case errors.Is(err, model.ErrUnconfirmed):
		writeError(w, statusUnconfirmed, model.KindError, "Write was queued but not confirmed")
	default:
		log.Error(ctx, "request failed", logger.Error(WrapKind(op, ErrInternal, err)))
		writeError(w, http.StatusInternalServerError, model.KindError, http.StatusText(http.StatusInternalServerError))
	}
}

func statusOf(kind model.Kind) int {
	switch kind {
	case model.KindSuccess:
		return http.StatusOK
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
