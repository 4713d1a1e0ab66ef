package periods

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Tx exposes the bulk flag updates available inside a unit of work.
type Tx interface {
	CloseAll(ctx context.Context, companyID int64, overallPeriod string, ledger Ledger) (int64, error)
	OpenRange(ctx context.Context, companyID int64, overallPeriod string, ledger Ledger, rng DateRange) (int64, error)
}

// Store persists financial period state.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	ListPeriods(ctx context.Context, companyID int64) ([]FinancialPeriodState, error)
}

// Repository is the PostgreSQL Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("periods: repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, pgTx{tx: tx})
	})
	return translate(err)
}

// ListPeriods returns every period of the company ordered by start date.
func (r *Repository) ListPeriods(ctx context.Context, companyID int64) ([]FinancialPeriodState, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, period, overall_period, period_from, period_to,
       general_ledger_open, account_payable_open
FROM financial_periods WHERE company_id = $1 ORDER BY period_from, period`, companyID)
	if err != nil {
		return nil, fmt.Errorf("periods: list: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[FinancialPeriodState])
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) CloseAll(ctx context.Context, companyID int64, overallPeriod string, ledger Ledger) (int64, error) {
	col, err := ledger.column()
	if err != nil {
		return 0, err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE financial_periods SET `+col+` = FALSE
WHERE company_id = $1 AND overall_period = $2`, companyID, overallPeriod)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func (t pgTx) OpenRange(ctx context.Context, companyID int64, overallPeriod string, ledger Ledger, rng DateRange) (int64, error) {
	col, err := ledger.column()
	if err != nil {
		return 0, err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE financial_periods SET `+col+` = TRUE
WHERE company_id = $1 AND overall_period = $2 AND period_from BETWEEN $3 AND $4`,
		companyID, overallPeriod, shared.Day(rng.PeriodFrom), shared.Day(rng.PeriodTo))
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// translate maps serialization failures onto ErrConcurrentUpdate.
func translate(err error) error {
	if db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}
