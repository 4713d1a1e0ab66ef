package periods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type periodService interface {
	ListPeriods(ctx context.Context, companyID int64) ([]FinancialPeriodState, error)
	OpenForPeriods(ctx context.Context, companyID int64, ledger Ledger, rng DateRange) error
}

// Enqueuer schedules a toggle on the background worker and returns its task id.
type Enqueuer interface {
	EnqueuePeriodOpen(ctx context.Context, companyID int64, ledger Ledger, rng DateRange) (string, error)
}

// Handler exposes period state endpoints.
type Handler struct {
	logger   *slog.Logger
	service  periodService
	enqueuer Enqueuer
}

// NewHandler constructs the handler. enqueuer may be nil, which disables
// asynchronous toggles.
func NewHandler(logger *slog.Logger, service periodService, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods", h.list)
	r.Post("/periods/gl/open", h.open(LedgerGL))
	r.Post("/periods/ap/open", h.open(LedgerAP))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.QueryInt64(r, "company_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if companyID == 0 {
		companyID, _ = shared.CompanyFromContext(r.Context())
	}
	if companyID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: company_id required", httpx.ErrValidation))
		return
	}
	states, err := h.service.ListPeriods(r.Context(), companyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if states == nil {
		states = []FinancialPeriodState{}
	}
	httpx.JSON(w, http.StatusOK, states)
}

type openRequest struct {
	CompanyID  int64  `json:"companyId"`
	PeriodFrom string `json:"periodFrom"`
	PeriodTo   string `json:"periodTo"`
}

func (h *Handler) open(ledger Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body openRequest
		if err := httpx.DecodeJSON(r, &body); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		if body.CompanyID == 0 {
			body.CompanyID, _ = shared.CompanyFromContext(r.Context())
		}
		rng, err := parseRange(body)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if r.URL.Query().Get("async") == "true" && h.enqueuer != nil {
			id, err := h.enqueuer.EnqueuePeriodOpen(r.Context(), body.CompanyID, ledger, rng)
			if err != nil {
				h.respondServiceError(w, err)
				return
			}
			httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": id})
			return
		}
		if err := h.service.OpenForPeriods(r.Context(), body.CompanyID, ledger, rng); err != nil {
			h.respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseRange(body openRequest) (DateRange, error) {
	from, err := time.Parse(time.DateOnly, body.PeriodFrom)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: periodFrom must be YYYY-MM-DD", httpx.ErrValidation)
	}
	to, err := time.Parse(time.DateOnly, body.PeriodTo)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: periodTo must be YYYY-MM-DD", httpx.ErrValidation)
	}
	return DateRange{PeriodFrom: from, PeriodTo: to}, nil
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrCompanyRequired), errors.Is(err, ErrUnknownLedger):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, ErrConcurrentUpdate):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	default:
		h.logger.Error("period toggle", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
