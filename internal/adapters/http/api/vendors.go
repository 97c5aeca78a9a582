package api

import (
	"context"
	"net/http"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/pkg/logger"
)

// VendorsHandler serves vendor creation, lookups and per-vendor listings.
type VendorsHandler struct {
	deps   VendorDependencies
	logger logger.Logger
}

// NewVendorsHandler creates a new vendors handler.
func NewVendorsHandler(deps VendorDependencies, log logger.Logger) *VendorsHandler {
	return &VendorsHandler{deps: deps, logger: log}
}

// ratingResponse is the body of GET /vendors/{id}/rating.
type ratingResponse struct {
	VendorID uint64  `json:"vendor_id"`
	Average  float64 `json:"average"`
}

// HandleCreate handles POST /vendors requests.
func (h *VendorsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_vendor"
	var req model.CreateVendorPayload
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Debug(r.Context(), "bad request", logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeError(w, http.StatusBadRequest, model.KindInvalidPayload, "Invalid request body")
		return
	}
	v, err := h.deps.CreateVendor(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleList handles GET /vendors requests.
func (h *VendorsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	vs, err := h.deps.ListAllVendors(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, h.logger, "api.list_vendors", err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

// HandleGet handles GET /vendors/{id} requests.
func (h *VendorsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.byVendor(w, r, "api.get_vendor", func(ctx context.Context, id uint64) (any, error) {
		return h.deps.GetVendorByID(ctx, id)
	})
}

// HandleServices handles GET /vendors/{id}/services requests.
func (h *VendorsHandler) HandleServices(w http.ResponseWriter, r *http.Request) {
	h.byVendor(w, r, "api.vendor_services", func(ctx context.Context, id uint64) (any, error) {
		return h.deps.GetServicesByVendorID(ctx, id)
	})
}

// HandleContracts handles GET /vendors/{id}/contracts requests.
func (h *VendorsHandler) HandleContracts(w http.ResponseWriter, r *http.Request) {
	h.byVendor(w, r, "api.vendor_contracts", func(ctx context.Context, id uint64) (any, error) {
		return h.deps.GetContractsByVendorID(ctx, id)
	})
}

// HandleFeedback handles GET /vendors/{id}/feedback requests.
func (h *VendorsHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	h.byVendor(w, r, "api.vendor_feedback", func(ctx context.Context, id uint64) (any, error) {
		return h.deps.GetFeedbackByVendorID(ctx, id)
	})
}

// HandleRating handles GET /vendors/{id}/rating requests.
func (h *VendorsHandler) HandleRating(w http.ResponseWriter, r *http.Request) {
	h.byVendor(w, r, "api.vendor_rating", func(ctx context.Context, id uint64) (any, error) {
		avg, err := h.deps.CalculateAverageRating(ctx, id)
		if err != nil {
			return nil, err
		}
		return ratingResponse{VendorID: id, Average: avg}, nil
	})
}

// HandleRatingSummary handles GET /vendors/{id}/rating/summary requests.
func (h *VendorsHandler) HandleRatingSummary(w http.ResponseWriter, r *http.Request) {
	h.byVendor(w, r, "api.vendor_rating_summary", func(ctx context.Context, id uint64) (any, error) {
		return h.deps.RatingSummary(ctx, id)
	})
}

func (h *VendorsHandler) byVendor(w http.ResponseWriter, r *http.Request, op string, fetch func(context.Context, uint64) (any, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.KindInvalidPayload, err.Error())
		return
	}
	out, err := fetch(r.Context(), id)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
