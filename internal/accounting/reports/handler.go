package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type trialBalanceService interface {
	TrialBalance(ctx context.Context, req TrialBalanceRequest) (TrialBalanceReport, error)
}

// Handler exposes trial balance endpoints.
type Handler struct {
	logger    *slog.Logger
	service   trialBalanceService
	validator *validator.Validate
	builds    singleflight.Group
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a trial balance Handler. Report generation is limited
// to perMinute requests per client address; zero disables the limit.
func NewHandler(logger *slog.Logger, service trialBalanceService, perMinute int) *Handler {
	h := &Handler{logger: logger, service: service, validator: validator.New()}
	if perMinute > 0 {
		h.rateLimit = httprate.Limit(perMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	}
	return h
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.rateLimit != nil {
			r.Use(h.rateLimit)
		}
		r.Get("/reports/trial-balance", h.trialBalance)
	})
}

type trialBalanceQuery struct {
	CompanyID    int64     `validate:"required,gt=0"`
	ProfitCenter string    `validate:"max=32"`
	AccountFrom  string    `validate:"required"`
	AccountThru  string    `validate:"required"`
	From         time.Time `validate:"required"`
	Thru         time.Time `validate:"required,gtefield=From"`
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req := TrialBalanceRequest{
		CompanyID:    q.CompanyID,
		ProfitCenter: q.ProfitCenter,
		AccountFrom:  q.AccountFrom,
		AccountThru:  q.AccountThru,
		Period:       shared.NewReportingPeriod(q.From, q.Thru),
	}
	res, err := h.buildShared(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// buildShared coalesces identical concurrent requests. The shared build runs
// detached from any single caller, and each caller stops waiting when its own
// context ends.
func (h *Handler) buildShared(ctx context.Context, req TrialBalanceRequest) (TrialBalanceReport, error) {
	key := strings.Join([]string{
		strconv.FormatInt(req.CompanyID, 10), req.ProfitCenter, req.AccountFrom, req.AccountThru,
		req.Period.Begin.Format(time.DateOnly), req.Period.End.Format(time.DateOnly),
	}, "|")
	resultChan := h.builds.DoChan(key, func() (any, error) {
		return h.service.TrialBalance(context.WithoutCancel(ctx), req)
	})
	select {
	case <-ctx.Done():
		return TrialBalanceReport{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return TrialBalanceReport{}, res.Err
		}
		return res.Val.(TrialBalanceReport), nil
	}
}

func (h *Handler) parseQuery(r *http.Request) (trialBalanceQuery, error) {
	var q trialBalanceQuery
	var err error
	if q.CompanyID, err = httpx.QueryInt64(r, "company_id"); err != nil {
		return q, err
	}
	if q.CompanyID == 0 {
		if id, ok := shared.CompanyFromContext(r.Context()); ok {
			q.CompanyID = id
		}
	}
	values := r.URL.Query()
	q.ProfitCenter = strings.TrimSpace(values.Get("profit_center"))
	q.AccountFrom = strings.TrimSpace(values.Get("account_from"))
	q.AccountThru = strings.TrimSpace(values.Get("account_thru"))
	if q.From, err = httpx.QueryDate(r, "from"); err != nil {
		return q, err
	}
	if q.Thru, err = httpx.QueryDate(r, "thru"); err != nil {
		return q, err
	}
	if err := h.validator.Struct(q); err != nil {
		return q, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if q.AccountThru < q.AccountFrom {
		return q, fmt.Errorf("%w: account_thru must not precede account_from", httpx.ErrValidation)
	}
	return q, nil
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrDataIntegrity):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err))
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, shared.ErrInvalidPeriod):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	default:
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
