package reports

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// DetailLine is a single ledger line printed under its account.
type DetailLine struct {
	ID                 int64           `json:"id"`
	Date               time.Time       `json:"date"`
	SourceCode         string          `json:"sourceCode"`
	JournalEntryNumber string          `json:"journalEntryNumber"`
	Message            string          `json:"message"`
	Amount             decimal.Decimal `json:"amount"`
}

// AccountDetail holds one account's lines and net change within a location.
type AccountDetail struct {
	Account       Account         `json:"account"`
	CategoryLabel string          `json:"categoryLabel"`
	Lines         []DetailLine    `json:"lines"`
	Totals        NetChangeTotals `json:"totals"`
}

// LocationDetail groups account details under a profit center.
type LocationDetail struct {
	ProfitCenter ProfitCenter    `json:"profitCenter"`
	Accounts     []AccountDetail `json:"accounts"`
	Totals       NetChangeTotals `json:"totals"`
}

// BucketAmounts is a debit/credit pair with its net difference.
type BucketAmounts struct {
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Difference decimal.Decimal `json:"difference"`
}

// BucketSummary carries month-to-date and year-to-date figures for a bucket.
type BucketSummary struct {
	MTD BucketAmounts `json:"mtd"`
	YTD BucketAmounts `json:"ytd"`
}

// EndOfReport splits totals into income statement and balance sheet buckets.
type EndOfReport struct {
	IncomeExpense BucketSummary `json:"incomeExpense"`
	BalanceSheet  BucketSummary `json:"balanceSheet"`
}

// TrialBalanceReport is the final structure serialised to API consumers.
type TrialBalanceReport struct {
	Period      shared.ReportingPeriod `json:"period"`
	Locations   []LocationDetail       `json:"locations"`
	Totals      NetChangeTotals        `json:"totals"`
	EndOfReport EndOfReport            `json:"endOfReport"`
}

// Balanced reports whether month-to-date debits and credits net to zero.
func (r TrialBalanceReport) Balanced() bool {
	return r.Totals.Difference().IsZero()
}

// AccountCount returns the number of account details across all locations.
func (r TrialBalanceReport) AccountCount() int {
	n := 0
	for _, loc := range r.Locations {
		n += len(loc.Accounts)
	}
	return n
}

type accountGroup struct {
	account Account
	lines   []DetailLine
	totals  NetChangeTotals
}

type locationGroup struct {
	center   ProfitCenter
	accounts map[int64]*accountGroup
	order    []int64
}

// BuildTrialBalance groups validated ledger lines by profit center and account
// and rolls totals up to the report level. Records are expected in the order
// they should print; first-seen order is kept at every grouping level.
func BuildTrialBalance(period shared.ReportingPeriod, records []LedgerDetailRecord) (TrialBalanceReport, error) {
	locations := make(map[int64]*locationGroup)
	keys := make([]int64, 0)
	for _, rec := range records {
		if !rec.Account.Category.Valid() {
			return TrialBalanceReport{}, shared.NewDataIntegrityError(
				strconv.FormatInt(rec.ID, 10), "account %s has no category", rec.Account.Number)
		}
		loc, ok := locations[rec.ProfitCenter.ID]
		if !ok {
			loc = &locationGroup{center: rec.ProfitCenter, accounts: make(map[int64]*accountGroup)}
			locations[rec.ProfitCenter.ID] = loc
			keys = append(keys, rec.ProfitCenter.ID)
		}
		grp, ok := loc.accounts[rec.Account.ID]
		if !ok {
			grp = &accountGroup{account: rec.Account}
			loc.accounts[rec.Account.ID] = grp
			loc.order = append(loc.order, rec.Account.ID)
		}
		grp.lines = append(grp.lines, DetailLine{
			ID:                 rec.ID,
			Date:               rec.Date,
			SourceCode:         rec.SourceCode,
			JournalEntryNumber: rec.JournalEntryNumber,
			Message:            rec.Message,
			Amount:             rec.Amount,
		})
		grp.totals = grp.totals.Post(rec.Amount, rec.YTDAmount)
	}

	report := TrialBalanceReport{Period: period, Locations: make([]LocationDetail, 0, len(keys))}
	var incomeExpense, balanceSheet []NetChangeTotals
	locationTotals := make([]NetChangeTotals, 0, len(keys))
	for _, key := range keys {
		loc := locations[key]
		detail := LocationDetail{ProfitCenter: loc.center, Accounts: make([]AccountDetail, 0, len(loc.order))}
		accountTotals := make([]NetChangeTotals, 0, len(loc.order))
		for _, id := range loc.order {
			grp := loc.accounts[id]
			detail.Accounts = append(detail.Accounts, AccountDetail{
				Account:       grp.account,
				CategoryLabel: grp.account.Category.Label(),
				Lines:         grp.lines,
				Totals:        grp.totals,
			})
			accountTotals = append(accountTotals, grp.totals)
			if grp.account.Category.IsIncomeStatement() {
				incomeExpense = append(incomeExpense, grp.totals)
			} else {
				balanceSheet = append(balanceSheet, grp.totals)
			}
		}
		detail.Totals = Reduce(accountTotals)
		locationTotals = append(locationTotals, detail.Totals)
		report.Locations = append(report.Locations, detail)
	}
	report.Totals = Reduce(locationTotals)
	report.EndOfReport = EndOfReport{
		IncomeExpense: summarise(Reduce(incomeExpense)),
		BalanceSheet:  summarise(Reduce(balanceSheet)),
	}
	return report, nil
}

func summarise(t NetChangeTotals) BucketSummary {
	return BucketSummary{
		MTD: BucketAmounts{Debit: t.Debit, Credit: t.Credit, Difference: t.Difference()},
		YTD: BucketAmounts{Debit: t.YTDDebit, Credit: t.YTDCredit, Difference: t.YTDDifference()},
	}
}
