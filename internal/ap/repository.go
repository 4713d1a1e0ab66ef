package ap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RegisterFilter scopes the distributions printed on an expense register.
type RegisterFilter struct {
	CompanyID int64
	From      time.Time
	Thru      time.Time
}

// Repository defines AP data access for reporting.
type Repository interface {
	ListDistributions(ctx context.Context, filter RegisterFilter) ([]InvoiceDistributionRow, error)
	ListInvoicesThrough(ctx context.Context, companyID int64, thru time.Time) ([]InvoiceRecord, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const distributionQuery = `
SELECT i.id, i.invoice_number, v.number, v.name, a.number, a.name, d.distribution_center,
       p.payment_number, p.payment_date, i.expense_date, d.amount, d.gl_amount,
       COALESCE(a.is_inventory, false)
FROM ap_invoices i
JOIN ap_invoice_distributions d ON d.invoice_id = i.id
LEFT JOIN vendors v ON v.id = i.vendor_id
LEFT JOIN gl_accounts a ON a.id = d.account_id
LEFT JOIN ap_payments p ON p.id = i.payment_id
WHERE i.company_id = $1
  AND i.status <> 'DELETED'
  AND i.expense_date BETWEEN $2 AND $3
ORDER BY v.number, a.number, d.distribution_center, i.expense_date, i.id`

func (r *pgRepository) ListDistributions(ctx context.Context, filter RegisterFilter) ([]InvoiceDistributionRow, error) {
	rows, err := r.pool.Query(ctx, distributionQuery, filter.CompanyID, filter.From, filter.Thru)
	if err != nil {
		return nil, fmt.Errorf("ap: query distributions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvoiceDistributionRow, error) {
		var (
			out       InvoiceDistributionRow
			amount    decimal.NullDecimal
			glAmount  decimal.NullDecimal
			inventory bool
		)
		if err := row.Scan(&out.InvoiceID, &out.InvoiceNumber, &out.VendorNumber, &out.VendorName,
			&out.AccountNumber, &out.AccountName, &out.DistributionCenter, &out.PaymentNumber,
			&out.PaymentDate, &out.ExpenseDate, &amount, &glAmount, &inventory); err != nil {
			return InvoiceDistributionRow{}, err
		}
		if amount.Valid {
			out.DistributionAmount = &amount.Decimal
		}
		if glAmount.Valid {
			out.GLAmount = &glAmount.Decimal
		}
		out.IsAccountForInventory = inventory
		return out, nil
	})
}

func (r *pgRepository) ListInvoicesThrough(ctx context.Context, companyID int64, thru time.Time) ([]InvoiceRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.invoice_number, v.number, v.name, i.invoice_amount,
       COALESCE(i.paid_amount, 0), i.expense_date, p.payment_date, i.status
FROM ap_invoices i
JOIN vendors v ON v.id = i.vendor_id
LEFT JOIN ap_payments p ON p.id = i.payment_id
WHERE i.company_id = $1 AND i.expense_date <= $2 AND i.status <> 'DELETED'
ORDER BY v.number, i.expense_date, i.id`, companyID, thru)
	if err != nil {
		return nil, fmt.Errorf("ap: query invoices: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvoiceRecord, error) {
		var (
			inv    InvoiceRecord
			status string
		)
		if err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.VendorNumber, &inv.VendorName,
			&inv.InvoiceAmount, &inv.PaidAmount, &inv.ExpenseDate, &inv.PaymentDate, &status); err != nil {
			return InvoiceRecord{}, err
		}
		inv.Status = InvoiceStatus(status)
		return inv, nil
	})
}
