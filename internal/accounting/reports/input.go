package reports

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// LedgerDetailRow is a ledger detail line as the query layer returns it, before
// reference data has been resolved.
type LedgerDetailRow struct {
	ID                 int64
	AccountID          int64
	ProfitCenterID     int64
	Date               time.Time
	SourceCode         string
	JournalEntryNumber string
	Message            string
	Amount             *decimal.Decimal
	YTDAmount          *decimal.Decimal
}

// LedgerDetailRecord is a validated ledger line ready for aggregation.
type LedgerDetailRecord struct {
	ID                 int64
	Account            Account
	ProfitCenter       ProfitCenter
	Date               time.Time
	SourceCode         string
	JournalEntryNumber string
	Message            string
	Amount             decimal.Decimal
	YTDAmount          decimal.Decimal
}

// ValidateRows resolves account and profit center references for every row.
// The first row that cannot be resolved aborts the conversion.
func ValidateRows(rows []LedgerDetailRow, accounts []Account, centers []ProfitCenter) ([]LedgerDetailRecord, error) {
	accountByID := make(map[int64]Account, len(accounts))
	for _, acc := range accounts {
		accountByID[acc.ID] = acc
	}
	centerByID := make(map[int64]ProfitCenter, len(centers))
	for _, pc := range centers {
		centerByID[pc.ID] = pc
	}

	records := make([]LedgerDetailRecord, 0, len(rows))
	for _, row := range rows {
		id := strconv.FormatInt(row.ID, 10)
		acc, ok := accountByID[row.AccountID]
		if !ok {
			return nil, shared.NewDataIntegrityError(id, "unknown account %d", row.AccountID)
		}
		if !acc.Category.Valid() {
			return nil, shared.NewDataIntegrityError(id, "account %s has no category", acc.Number)
		}
		pc, ok := centerByID[row.ProfitCenterID]
		if !ok {
			return nil, shared.NewDataIntegrityError(id, "unknown profit center %d", row.ProfitCenterID)
		}
		if row.Amount == nil {
			return nil, shared.NewDataIntegrityError(id, "amount missing")
		}
		ytd := decimal.Zero
		if row.YTDAmount != nil {
			ytd = *row.YTDAmount
		}
		records = append(records, LedgerDetailRecord{
			ID:                 row.ID,
			Account:            acc,
			ProfitCenter:       pc,
			Date:               shared.Day(row.Date),
			SourceCode:         row.SourceCode,
			JournalEntryNumber: row.JournalEntryNumber,
			Message:            row.Message,
			Amount:             *row.Amount,
			YTDAmount:          ytd,
		})
	}
	return records, nil
}
