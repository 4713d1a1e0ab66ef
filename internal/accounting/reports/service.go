package reports

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// ErrInvalidFilter indicates the trial balance request lacks required scope.
var ErrInvalidFilter = errors.New("reports: company and account range required")

// TrialBalanceRequest describes a caller's trial balance query. The caller has
// already verified that the range lies inside one fiscal year.
type TrialBalanceRequest struct {
	CompanyID    int64
	ProfitCenter string
	AccountFrom  string
	AccountThru  string
	Period       shared.ReportingPeriod
}

// Service loads ledger data and builds trial balance reports.
type Service struct {
	repo    Repository
	cache   *cache.Cache
	metrics *observability.ReportMetrics
	logger  *slog.Logger
}

// NewService wires the report service. cache and metrics may be nil.
func NewService(repo Repository, c *cache.Cache, metrics *observability.ReportMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, metrics: metrics, logger: logger}
}

// TrialBalance returns the trial balance for the request, served from cache when possible.
func (s *Service) TrialBalance(ctx context.Context, req TrialBalanceRequest) (TrialBalanceReport, error) {
	if req.CompanyID <= 0 || req.AccountFrom == "" || req.AccountThru == "" {
		return TrialBalanceReport{}, ErrInvalidFilter
	}
	if err := req.Period.Validate(); err != nil {
		return TrialBalanceReport{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "tb",
		strconv.FormatInt(req.CompanyID, 10), req.ProfitCenter, req.AccountFrom, req.AccountThru,
		req.Period.Begin.Format(time.DateOnly), req.Period.End.Format(time.DateOnly))
	if err != nil {
		return TrialBalanceReport{}, err
	}
	var report TrialBalanceReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.buildTrialBalance(ctx, req)
	})
	if err != nil {
		return TrialBalanceReport{}, err
	}
	return report, nil
}

func (s *Service) buildTrialBalance(ctx context.Context, req TrialBalanceRequest) (TrialBalanceReport, error) {
	tracker := s.metrics.Track("trial_balance")

	fiscalStart, err := s.repo.FiscalYearStart(ctx, req.CompanyID, req.Period.Begin)
	if err != nil {
		return TrialBalanceReport{}, tracker.End(err)
	}
	filter := TrialBalanceFilter{
		CompanyID:    req.CompanyID,
		ProfitCenter: req.ProfitCenter,
		AccountFrom:  req.AccountFrom,
		AccountThru:  req.AccountThru,
		From:         req.Period.Begin,
		Thru:         req.Period.End,
		FiscalStart:  fiscalStart,
	}

	var (
		rows     []LedgerDetailRow
		accounts []Account
		centers  []ProfitCenter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.ListLedgerDetail(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.repo.ListAccounts(gctx, req.CompanyID, req.AccountFrom, req.AccountThru)
		return err
	})
	g.Go(func() error {
		var err error
		centers, err = s.repo.ListProfitCenters(gctx, req.CompanyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return TrialBalanceReport{}, tracker.End(err)
	}

	records, err := ValidateRows(rows, accounts, centers)
	if err != nil {
		s.logger.Error("trial balance data integrity", slog.Int64("company_id", req.CompanyID), slog.Any("error", err))
		return TrialBalanceReport{}, tracker.End(err)
	}
	report, err := BuildTrialBalance(req.Period, records)
	if err != nil {
		return TrialBalanceReport{}, tracker.End(err)
	}
	s.logger.Debug("trial balance built",
		slog.Int64("company_id", req.CompanyID),
		slog.Int("locations", len(report.Locations)),
		slog.Int("accounts", report.AccountCount()))
	if req.ProfitCenter == "" && !report.Balanced() {
		s.logger.Warn("trial balance out of balance",
			slog.Int64("company_id", req.CompanyID),
			slog.String("difference", report.Totals.Difference().String()))
	}
	return report, tracker.End(nil)
}
