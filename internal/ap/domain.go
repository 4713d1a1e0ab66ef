package ap

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// InvoiceStatus enumerates AP invoice statuses.
type InvoiceStatus string

const (
	InvoiceStatusHold    InvoiceStatus = "HOLD"
	InvoiceStatusOpen    InvoiceStatus = "OPEN"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusDeleted InvoiceStatus = "DELETED"
)

// InvoiceRecord is the invoice view used for period balances.
type InvoiceRecord struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	VendorNumber  string          `json:"vendorNumber"`
	VendorName    string          `json:"vendorName"`
	InvoiceAmount decimal.Decimal `json:"invoiceAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	ExpenseDate   time.Time       `json:"expenseDate"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	Status        InvoiceStatus   `json:"status"`
}

// InvoiceDistributionRow is a distribution line as the query layer returns it.
type InvoiceDistributionRow struct {
	InvoiceID             int64
	InvoiceNumber         string
	VendorNumber          *string
	VendorName            *string
	AccountNumber         *string
	AccountName           *string
	DistributionCenter    *string
	PaymentNumber         *string
	PaymentDate           *time.Time
	ExpenseDate           *time.Time
	DistributionAmount    *decimal.Decimal
	GLAmount              *decimal.Decimal
	IsAccountForInventory bool
}

// InvoiceDistributionRecord is a validated distribution line. PaymentNumber and
// PaymentDate stay optional because unpaid invoices have neither.
type InvoiceDistributionRecord struct {
	InvoiceID             int64
	InvoiceNumber         string
	VendorNumber          string
	VendorName            string
	AccountNumber         string
	AccountName           string
	DistributionCenter    string
	PaymentNumber         *string
	PaymentDate           *time.Time
	ExpenseDate           time.Time
	DistributionAmount    decimal.Decimal
	GLAmount              decimal.Decimal
	IsAccountForInventory bool
}

// ValidateDistributions converts query rows into records, rejecting rows whose
// grouping keys or amounts are missing. A missing GL amount defaults to the
// distribution amount.
func ValidateDistributions(rows []InvoiceDistributionRow) ([]InvoiceDistributionRecord, error) {
	records := make([]InvoiceDistributionRecord, 0, len(rows))
	for _, row := range rows {
		id := strconv.FormatInt(row.InvoiceID, 10)
		switch {
		case row.VendorNumber == nil || *row.VendorNumber == "":
			return nil, shared.NewDataIntegrityError(id, "vendor missing")
		case row.AccountNumber == nil || *row.AccountNumber == "":
			return nil, shared.NewDataIntegrityError(id, "distribution account missing")
		case row.DistributionCenter == nil:
			return nil, shared.NewDataIntegrityError(id, "distribution center missing")
		case row.ExpenseDate == nil:
			return nil, shared.NewDataIntegrityError(id, "expense date missing")
		case row.DistributionAmount == nil:
			return nil, shared.NewDataIntegrityError(id, "distribution amount missing")
		}
		rec := InvoiceDistributionRecord{
			InvoiceID:             row.InvoiceID,
			InvoiceNumber:         row.InvoiceNumber,
			VendorNumber:          *row.VendorNumber,
			VendorName:            deref(row.VendorName),
			AccountNumber:         *row.AccountNumber,
			AccountName:           deref(row.AccountName),
			DistributionCenter:    *row.DistributionCenter,
			ExpenseDate:           shared.Day(*row.ExpenseDate),
			DistributionAmount:    *row.DistributionAmount,
			GLAmount:              *row.DistributionAmount,
			IsAccountForInventory: row.IsAccountForInventory,
		}
		if row.GLAmount != nil {
			rec.GLAmount = *row.GLAmount
		}
		if row.PaymentNumber != nil && *row.PaymentNumber != "" {
			pmt := *row.PaymentNumber
			rec.PaymentNumber = &pmt
		}
		if row.PaymentDate != nil {
			d := shared.Day(*row.PaymentDate)
			rec.PaymentDate = &d
		}
		records = append(records, rec)
	}
	return records, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
