package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-backoffice/internal/accounting/periods"
	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries user-initiated period toggles.
	QueueCritical = "critical"
	// TaskPeriodOpen reopens a period range for posting.
	TaskPeriodOpen = "periods:open"
)

var (
	defaultJobMetrics = jobmetrics.NewMetrics(nil)
	queues            = []string{QueueCritical, QueueDefault}
)

// PeriodOpenPayload describes an asynchronous period toggle.
type PeriodOpenPayload struct {
	CompanyID  int64          `json:"company_id"`
	Ledger     periods.Ledger `json:"ledger"`
	PeriodFrom time.Time      `json:"period_from"`
	PeriodTo   time.Time      `json:"period_to"`
}

// NewPeriodOpenTask constructs an Asynq task with a unique task id.
func NewPeriodOpenTask(payload PeriodOpenPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodOpen, data,
		asynq.Queue(QueueCritical),
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(3)), nil
}

type periodOpener interface {
	OpenForPeriods(ctx context.Context, companyID int64, ledger periods.Ledger, rng periods.DateRange) error
}

// PeriodOpenJob applies queued period toggles.
type PeriodOpenJob struct {
	Service periodOpener
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskPeriodOpen tasks. Validation failures are not retried.
func (j *PeriodOpenJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("period open: handler not configured")
	}
	var payload PeriodOpenPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskPeriodOpen)
	rng := periods.DateRange{PeriodFrom: payload.PeriodFrom, PeriodTo: payload.PeriodTo}
	err := j.Service.OpenForPeriods(ctx, payload.CompanyID, payload.Ledger, rng)
	if err != nil {
		logger := j.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("period open task", slog.String("job", TaskPeriodOpen),
			slog.Int64("company_id", payload.CompanyID), slog.Any("error", err))
		if errors.Is(err, periods.ErrInvalidRange) || errors.Is(err, periods.ErrCompanyRequired) ||
			errors.Is(err, periods.ErrUnknownLedger) {
			return tracker.End(errors.Join(err, asynq.SkipRetry))
		}
	}
	return tracker.End(err)
}
