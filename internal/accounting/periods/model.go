package periods

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var (
	// ErrInvalidRange indicates a malformed period range.
	ErrInvalidRange = errors.New("periods: invalid date range")
	// ErrConcurrentUpdate indicates the toggle lost a serialization race.
	ErrConcurrentUpdate = errors.New("periods: concurrent update, retry")
	// ErrCompanyRequired indicates a toggle without company scope.
	ErrCompanyRequired = errors.New("periods: company required")
	// ErrUnknownLedger indicates an unsupported ledger flag.
	ErrUnknownLedger = errors.New("periods: unknown ledger")
)

// Ledger names which open flag a toggle affects.
type Ledger string

const (
	LedgerGL Ledger = "GL"
	LedgerAP Ledger = "AP"
)

// column maps the ledger onto its financial_periods flag column.
func (l Ledger) column() (string, error) {
	switch l {
	case LedgerGL:
		return "general_ledger_open", nil
	case LedgerAP:
		return "account_payable_open", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLedger, string(l))
}

// FinancialPeriodState holds the posting flags of one fiscal period.
type FinancialPeriodState struct {
	ID                 int64     `json:"id"`
	CompanyID          int64     `json:"companyId"`
	Period             int       `json:"period"`
	OverallPeriod      string    `json:"overallPeriod"`
	PeriodFrom         time.Time `json:"periodFrom"`
	PeriodTo           time.Time `json:"periodTo"`
	GeneralLedgerOpen  bool      `json:"generalLedgerOpen"`
	AccountPayableOpen bool      `json:"accountPayableOpen"`
}

// DateRange selects periods by their start date, both bounds inclusive.
type DateRange struct {
	PeriodFrom time.Time `json:"periodFrom" validate:"required"`
	PeriodTo   time.Time `json:"periodTo" validate:"required,gtefield=PeriodFrom"`
}

var validate = validator.New()

// Validate checks both bounds are set and ordered.
func (r DateRange) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return nil
}

// Days truncates both bounds to their calendar day so SQL BETWEEN matches
// whole days.
func (r DateRange) Days() DateRange {
	return DateRange{PeriodFrom: shared.Day(r.PeriodFrom), PeriodTo: shared.Day(r.PeriodTo)}
}

// TransactionFailure reports which step of a toggle failed. The surrounding
// transaction has been rolled back when it is returned.
type TransactionFailure struct {
	Step string
	Err  error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("periods: %s failed: %v", e.Step, e.Err)
}

func (e *TransactionFailure) Unwrap() error { return e.Err }
