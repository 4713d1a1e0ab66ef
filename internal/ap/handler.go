package ap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type reportService interface {
	ExpenseRegister(ctx context.Context, req ReportRequest) (ExpenseRegister, error)
	VendorBalances(ctx context.Context, req ReportRequest) (VendorBalanceReport, error)
}

// Handler exposes AP reporting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   reportService
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service reportService) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers AP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/expense-register", h.expenseRegister)
	r.Get("/reports/vendor-balances", h.vendorBalances)
}

type reportQuery struct {
	CompanyID int64     `validate:"required,gt=0"`
	From      time.Time `validate:"required"`
	Thru      time.Time `validate:"required,gtefield=From"`
}

func (h *Handler) expenseRegister(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	register, err := h.service.ExpenseRegister(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, "expense register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, register)
}

func (h *Handler) vendorBalances(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.VendorBalances(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, "vendor balances", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) parseRequest(r *http.Request) (ReportRequest, error) {
	var q reportQuery
	var err error
	if q.CompanyID, err = httpx.QueryInt64(r, "company_id"); err != nil {
		return ReportRequest{}, err
	}
	if q.CompanyID == 0 {
		if id, ok := shared.CompanyFromContext(r.Context()); ok {
			q.CompanyID = id
		}
	}
	if q.From, err = httpx.QueryDate(r, "from"); err != nil {
		return ReportRequest{}, err
	}
	if q.Thru, err = httpx.QueryDate(r, "thru"); err != nil {
		return ReportRequest{}, err
	}
	if err := h.validator.Struct(q); err != nil {
		return ReportRequest{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return ReportRequest{CompanyID: q.CompanyID, Period: shared.NewReportingPeriod(q.From, q.Thru)}, nil
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrDataIntegrity):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err))
	case errors.Is(err, shared.ErrInvalidPeriod):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
