package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TrialBalanceFilter narrows the ledger lines a trial balance is built from.
type TrialBalanceFilter struct {
	CompanyID    int64
	ProfitCenter string
	AccountFrom  string
	AccountThru  string
	From         time.Time
	Thru         time.Time
	FiscalStart  time.Time
}

// Repository supplies ledger detail rows and the reference data they point at.
type Repository interface {
	ListLedgerDetail(ctx context.Context, filter TrialBalanceFilter) ([]LedgerDetailRow, error)
	ListAccounts(ctx context.Context, companyID int64, from, thru string) ([]Account, error)
	ListProfitCenters(ctx context.Context, companyID int64) ([]ProfitCenter, error)
	FiscalYearStart(ctx context.Context, companyID int64, date time.Time) (time.Time, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// ledgerDetailQuery returns in-period lines plus brought-forward lines per
// account and profit center carrying fiscal-year activity before the period.
// Debits and credits are brought forward on separate lines so year-to-date
// columns stay gross. Brought-forward lines have a zero id, zero amount and
// sort first.
const ledgerDetailQuery = `
WITH scoped AS (
	SELECT d.id, d.account_id, d.profit_center_id, d.entry_date, d.source_code,
	       d.journal_entry_number, d.message, d.amount
	FROM gl_detail d
	JOIN gl_accounts a ON a.id = d.account_id
	JOIN profit_centers pc ON pc.id = d.profit_center_id
	WHERE d.company_id = $1
	  AND a.number BETWEEN $2 AND $3
	  AND ($4 = '' OR pc.number = $4)
	  AND d.entry_date BETWEEN $5 AND $7
)
SELECT 0 AS id, account_id, profit_center_id, $6::date AS entry_date, 'BF' AS source_code,
       '' AS journal_entry_number, 'Debits brought forward' AS message, 0::numeric AS amount,
       SUM(amount) AS ytd_amount, 0 AS sort_bucket
FROM scoped
WHERE entry_date < $6 AND amount > 0
GROUP BY account_id, profit_center_id
UNION ALL
SELECT 0 AS id, account_id, profit_center_id, $6::date AS entry_date, 'BF' AS source_code,
       '' AS journal_entry_number, 'Credits brought forward' AS message, 0::numeric AS amount,
       SUM(amount) AS ytd_amount, 1 AS sort_bucket
FROM scoped
WHERE entry_date < $6 AND amount < 0
GROUP BY account_id, profit_center_id
UNION ALL
SELECT id, account_id, profit_center_id, entry_date, source_code, journal_entry_number,
       message, amount, amount AS ytd_amount, 2 AS sort_bucket
FROM scoped
WHERE entry_date >= $6
ORDER BY profit_center_id, account_id, sort_bucket, entry_date, journal_entry_number, id`

func (r *pgRepository) ListLedgerDetail(ctx context.Context, filter TrialBalanceFilter) ([]LedgerDetailRow, error) {
	rows, err := r.pool.Query(ctx, ledgerDetailQuery,
		filter.CompanyID, filter.AccountFrom, filter.AccountThru, filter.ProfitCenter,
		filter.FiscalStart, filter.From, filter.Thru)
	if err != nil {
		return nil, fmt.Errorf("reports: query ledger detail: %w", err)
	}
	defer rows.Close()

	var out []LedgerDetailRow
	for rows.Next() {
		var (
			row        LedgerDetailRow
			amount     decimal.NullDecimal
			ytd        decimal.NullDecimal
			sortBucket int
		)
		if err := rows.Scan(&row.ID, &row.AccountID, &row.ProfitCenterID, &row.Date, &row.SourceCode,
			&row.JournalEntryNumber, &row.Message, &amount, &ytd, &sortBucket); err != nil {
			return nil, err
		}
		if amount.Valid {
			row.Amount = &amount.Decimal
		}
		if ytd.Valid {
			row.YTDAmount = &ytd.Decimal
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListAccounts(ctx context.Context, companyID int64, from, thru string) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, name, COALESCE(category, '')
FROM gl_accounts WHERE company_id = $1 AND number BETWEEN $2 AND $3 ORDER BY number`, companyID, from, thru)
	if err != nil {
		return nil, fmt.Errorf("reports: query accounts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Account, error) {
		var (
			acc Account
			raw string
		)
		if err := row.Scan(&acc.ID, &acc.Number, &acc.Name, &raw); err != nil {
			return Account{}, err
		}
		// Unknown categories stay empty so validation reports the account.
		acc.Category, _ = ParseAccountCategory(raw)
		return acc, nil
	})
}

func (r *pgRepository) ListProfitCenters(ctx context.Context, companyID int64) ([]ProfitCenter, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, name FROM profit_centers WHERE company_id = $1 ORDER BY number`, companyID)
	if err != nil {
		return nil, fmt.Errorf("reports: query profit centers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ProfitCenter])
}

func (r *pgRepository) FiscalYearStart(ctx context.Context, companyID int64, date time.Time) (time.Time, error) {
	var start *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MIN(period_from) FROM financial_periods
WHERE company_id = $1 AND fiscal_year = (
	SELECT fiscal_year FROM financial_periods WHERE company_id = $1 AND $2 BETWEEN period_from AND period_to LIMIT 1)`,
		companyID, date).Scan(&start)
	if err != nil {
		return time.Time{}, fmt.Errorf("reports: fiscal year start: %w", err)
	}
	if start == nil {
		// No fiscal calendar configured; fall back to the calendar year.
		return time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return *start, nil
}
