package ap

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// ReportRequest scopes AP reports to a company and period.
type ReportRequest struct {
	CompanyID int64
	Period    shared.ReportingPeriod
}

// Service builds AP reports from repository data.
type Service struct {
	repo    Repository
	cache   *cache.Cache
	metrics *observability.ReportMetrics
	logger  *slog.Logger
}

// NewService constructs the AP report service. cache and metrics may be nil.
func NewService(repo Repository, c *cache.Cache, metrics *observability.ReportMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, metrics: metrics, logger: logger}
}

// ExpenseRegister returns the expense register for the request.
func (s *Service) ExpenseRegister(ctx context.Context, req ReportRequest) (ExpenseRegister, error) {
	if err := req.Period.Validate(); err != nil {
		return ExpenseRegister{}, err
	}
	var register ExpenseRegister
	err := s.cached(ctx, "expense_register", req, &register, func(ctx context.Context) (any, error) {
		rows, err := s.repo.ListDistributions(ctx, RegisterFilter{
			CompanyID: req.CompanyID,
			From:      req.Period.Begin,
			Thru:      req.Period.End,
		})
		if err != nil {
			return nil, err
		}
		records, err := ValidateDistributions(rows)
		if err != nil {
			s.logger.Error("expense register data integrity", slog.Int64("company_id", req.CompanyID), slog.Any("error", err))
			return nil, err
		}
		return BuildExpenseRegister(req.Period, records), nil
	})
	return register, err
}

// VendorBalances returns begin, new, paid and end balances per vendor.
func (s *Service) VendorBalances(ctx context.Context, req ReportRequest) (VendorBalanceReport, error) {
	if err := req.Period.Validate(); err != nil {
		return VendorBalanceReport{}, err
	}
	var report VendorBalanceReport
	err := s.cached(ctx, "vendor_balances", req, &report, func(ctx context.Context) (any, error) {
		invoices, err := s.repo.ListInvoicesThrough(ctx, req.CompanyID, req.Period.End)
		if err != nil {
			return nil, err
		}
		return BuildVendorBalances(req.Period, invoices), nil
	})
	return report, err
}

func (s *Service) cached(ctx context.Context, report string, req ReportRequest, dest any, build func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, "reports", report, strconv.FormatInt(req.CompanyID, 10),
		req.Period.Begin.Format(time.DateOnly), req.Period.End.Format(time.DateOnly))
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		tracker := s.metrics.Track(report)
		value, err := build(ctx)
		return value, tracker.End(err)
	})
}
