package api

import (
	"context"
	"net/http"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/pkg/logger"
)

// RecordsHandler serves creation of services, contracts and feedback.
type RecordsHandler struct {
	deps   RecordDependencies
	logger logger.Logger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordDependencies, log logger.Logger) *RecordsHandler {
	return &RecordsHandler{deps: deps, logger: log}
}

// HandleCreateService handles POST /services requests.
func (h *RecordsHandler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	var req model.CreateServicePayload
	create(h, w, r, "api.create_service", &req, func(ctx context.Context) (model.Service, error) {
		return h.deps.CreateService(ctx, req)
	})
}

// HandleCreateContract handles POST /contracts requests.
func (h *RecordsHandler) HandleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req model.CreateContractPayload
	create(h, w, r, "api.create_contract", &req, func(ctx context.Context) (model.Contract, error) {
		return h.deps.CreateContract(ctx, req)
	})
}

// HandleCreateFeedback handles POST /feedback requests.
func (h *RecordsHandler) HandleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req model.CreateFeedbackPayload
	create(h, w, r, "api.create_feedback", &req, func(ctx context.Context) (model.Feedback, error) {
		return h.deps.CreateFeedback(ctx, req)
	})
}

// create decodes the body into req, runs fn and renders 201 with its result.
func create[T any](h *RecordsHandler, w http.ResponseWriter, r *http.Request, op string, req any, fn func(context.Context) (T, error)) {
	if err := decodeBody(w, r, req); err != nil {
		h.logger.Debug(r.Context(), "bad request", logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeError(w, http.StatusBadRequest, model.KindInvalidPayload, "Invalid request body")
		return
	}
	out, err := fn(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
