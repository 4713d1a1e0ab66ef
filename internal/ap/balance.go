package ap

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// PeriodBalance is an invoice's movement across a reporting period.
type PeriodBalance struct {
	BeginBalance      decimal.Decimal `json:"beginBalance"`
	NewInvoiceAmount  decimal.Decimal `json:"newInvoiceAmount"`
	PaidInvoiceAmount decimal.Decimal `json:"paidInvoiceAmount"`
	EndBalance        decimal.Decimal `json:"endBalance"`
}

// Add returns the field-wise sum of b and o.
func (b PeriodBalance) Add(o PeriodBalance) PeriodBalance {
	return PeriodBalance{
		BeginBalance:      b.BeginBalance.Add(o.BeginBalance),
		NewInvoiceAmount:  b.NewInvoiceAmount.Add(o.NewInvoiceAmount),
		PaidInvoiceAmount: b.PaidInvoiceAmount.Add(o.PaidInvoiceAmount),
		EndBalance:        b.EndBalance.Add(o.EndBalance),
	}
}

// ComputePeriodBalance derives begin, new, paid and end balances for one invoice.
//
// The opening balance is the invoice amount when it was expensed before the
// period, less the paid amount when payment also happened before the period.
// Because of that, the end balance of [a, b] always equals the begin balance
// of [b+1, c].
func ComputePeriodBalance(inv InvoiceRecord, period shared.ReportingPeriod) PeriodBalance {
	begin := shared.Day(period.Begin)

	opening := decimal.Zero
	if shared.Day(inv.ExpenseDate).Before(begin) {
		opening = inv.InvoiceAmount
		if paidBefore(inv.PaymentDate, begin) {
			opening = opening.Sub(inv.PaidAmount)
		}
	}
	added := decimal.Zero
	if period.Contains(inv.ExpenseDate) {
		added = inv.InvoiceAmount
	}
	paid := decimal.Zero
	if inv.PaymentDate != nil && period.Contains(*inv.PaymentDate) {
		paid = inv.PaidAmount
	}
	return PeriodBalance{
		BeginBalance:      opening,
		NewInvoiceAmount:  added,
		PaidInvoiceAmount: paid,
		EndBalance:        opening.Add(added).Sub(paid),
	}
}

func paidBefore(paymentDate *time.Time, day time.Time) bool {
	return paymentDate != nil && shared.Day(*paymentDate).Before(day)
}

// VendorBalance totals period balances for one vendor.
type VendorBalance struct {
	VendorNumber string          `json:"vendorNumber"`
	VendorName   string          `json:"vendorName"`
	Invoices     []InvoiceLine   `json:"invoices"`
	Totals       PeriodBalance   `json:"totals"`
	InvoiceCount int             `json:"invoiceCount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// InvoiceLine pairs an invoice with its computed period balance.
type InvoiceLine struct {
	Invoice InvoiceRecord `json:"invoice"`
	Balance PeriodBalance `json:"balance"`
}

// VendorBalanceReport is the AP balance report for a period.
type VendorBalanceReport struct {
	Period  shared.ReportingPeriod `json:"period"`
	Vendors []VendorBalance        `json:"vendors"`
	Totals  PeriodBalance          `json:"totals"`
}

// BuildVendorBalances groups invoices by vendor in first-seen order. Deleted
// invoices and invoices with no activity and no balance in the period are left out.
func BuildVendorBalances(period shared.ReportingPeriod, invoices []InvoiceRecord) VendorBalanceReport {
	groups := make(map[string]*VendorBalance)
	keys := make([]string, 0)
	report := VendorBalanceReport{Period: period, Vendors: []VendorBalance{}}
	for _, inv := range invoices {
		if inv.Status == InvoiceStatusDeleted {
			continue
		}
		bal := ComputePeriodBalance(inv, period)
		if bal.BeginBalance.IsZero() && bal.NewInvoiceAmount.IsZero() && bal.PaidInvoiceAmount.IsZero() {
			continue
		}
		grp, ok := groups[inv.VendorNumber]
		if !ok {
			grp = &VendorBalance{VendorNumber: inv.VendorNumber, VendorName: inv.VendorName}
			groups[inv.VendorNumber] = grp
			keys = append(keys, inv.VendorNumber)
		}
		grp.Invoices = append(grp.Invoices, InvoiceLine{Invoice: inv, Balance: bal})
		grp.Totals = grp.Totals.Add(bal)
		grp.InvoiceCount++
	}
	for _, key := range keys {
		grp := groups[key]
		grp.Outstanding = grp.Totals.EndBalance
		report.Vendors = append(report.Vendors, *grp)
		report.Totals = report.Totals.Add(grp.Totals)
	}
	return report
}
