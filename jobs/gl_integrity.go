package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-backoffice/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

const (
	// TaskGLIntegrity checks that each company's trial balance nets to zero.
	TaskGLIntegrity = "gl:integrity"

	integrityAccountFrom = "0"
	integrityAccountThru = "99999999"
	integrityConcurrency = 4
)

// GLIntegrityPayload scopes an integrity run. Empty CompanyIDs means every
// company with financial periods; a zero AsOf means today.
type GLIntegrityPayload struct {
	CompanyIDs []int64   `json:"company_ids,omitempty"`
	AsOf       time.Time `json:"as_of,omitempty"`
}

// NewGLIntegrityTask constructs the integrity check task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data, asynq.Queue(QueueDefault)), nil
}

type trialBalancer interface {
	TrialBalance(ctx context.Context, req reports.TrialBalanceRequest) (reports.TrialBalanceReport, error)
}

// CompanyLister returns the companies the integrity check covers.
type CompanyLister interface {
	ListCompanies(ctx context.Context) ([]int64, error)
}

// GLIntegrityResult summarises one run.
type GLIntegrityResult struct {
	Checked    int
	Unbalanced []int64
}

// GLIntegrityJob builds month-to-date trial balances and flags any that do not
// net to zero.
type GLIntegrityJob struct {
	Reports   trialBalancer
	Companies CompanyLister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewGLIntegrityJob initialises the integrity check handler.
func NewGLIntegrityJob(reports trialBalancer, companies CompanyLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{
		Reports:   reports,
		Companies: companies,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity check.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run checks every company in payload. Data integrity failures are logged and
// counted as unbalanced; other failures abort the run.
func (j *GLIntegrityJob) Run(ctx context.Context, payload GLIntegrityPayload) (result GLIntegrityResult, err error) {
	if j == nil || j.Reports == nil {
		return result, errors.New("gl integrity: handler not configured")
	}
	tracker := j.metrics().Track(TaskGLIntegrity)
	defer func() {
		err = tracker.End(err)
	}()

	companies := payload.CompanyIDs
	if len(companies) == 0 {
		if j.Companies == nil {
			return result, errors.New("gl integrity: company lister not configured")
		}
		if companies, err = j.Companies.ListCompanies(ctx); err != nil {
			return result, fmt.Errorf("gl integrity: list companies: %w", err)
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}
	asOf = shared.Day(asOf)
	period := shared.NewReportingPeriod(time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC), asOf)
	logger := j.logger().With(slog.String("period_begin", period.Begin.Format(time.DateOnly)),
		slog.String("period_end", period.End.Format(time.DateOnly)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(integrityConcurrency)
	for _, companyID := range companies {
		companyID := companyID
		g.Go(func() error {
			balanced, err := j.check(gctx, companyID, period, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			result.Checked++
			if !balanced {
				result.Unbalanced = append(result.Unbalanced, companyID)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		logger.Error("gl integrity check failed", slog.Any("error", err))
		return result, err
	}
	logger.Info("gl integrity check executed",
		slog.Int("companies", result.Checked),
		slog.Int("unbalanced", len(result.Unbalanced)))
	return result, nil
}

func (j *GLIntegrityJob) check(ctx context.Context, companyID int64, period shared.ReportingPeriod, logger *slog.Logger) (bool, error) {
	report, err := j.Reports.TrialBalance(ctx, reports.TrialBalanceRequest{
		CompanyID:   companyID,
		AccountFrom: integrityAccountFrom,
		AccountThru: integrityAccountThru,
		Period:      period,
	})
	var integrity *shared.DataIntegrityError
	switch {
	case errors.As(err, &integrity):
		logger.Warn("ledger data integrity", slog.Int64("company_id", companyID),
			slog.String("record_id", integrity.RecordID), slog.String("reason", integrity.Reason))
		j.metrics().AddUnbalanced(companyID)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("gl integrity: company %d: %w", companyID, err)
	}
	if report.Balanced() {
		return true, nil
	}
	logger.Warn("trial balance out of balance", slog.Int64("company_id", companyID),
		slog.String("difference", report.Totals.Difference().String()),
		slog.String("ytd_difference", report.Totals.YTDDifference().String()))
	j.metrics().AddUnbalanced(companyID)
	return false, nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGLIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskGLIntegrity))
}

func (j *GLIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GLIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// PGCompanyLister lists companies that have financial periods.
type PGCompanyLister struct {
	Pool *pgxpool.Pool
}

// ListCompanies implements CompanyLister.
func (l PGCompanyLister) ListCompanies(ctx context.Context) ([]int64, error) {
	rows, err := l.Pool.Query(ctx, `SELECT DISTINCT company_id FROM financial_periods ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
