package reports

import "github.com/shopspring/decimal"

// NetChangeTotals is the aggregation unit for trial balance rollups. Credits are
// carried as negative amounts so a balanced set of accounts nets to zero.
type NetChangeTotals struct {
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	YTDDebit  decimal.Decimal `json:"ytdDebit"`
	YTDCredit decimal.Decimal `json:"ytdCredit"`
}

// Add returns the component-wise sum of t and o.
func (t NetChangeTotals) Add(o NetChangeTotals) NetChangeTotals {
	return NetChangeTotals{
		Debit:     t.Debit.Add(o.Debit),
		Credit:    t.Credit.Add(o.Credit),
		YTDDebit:  t.YTDDebit.Add(o.YTDDebit),
		YTDCredit: t.YTDCredit.Add(o.YTDCredit),
	}
}

// Difference is the month-to-date net change.
func (t NetChangeTotals) Difference() decimal.Decimal {
	return t.Debit.Add(t.Credit)
}

// YTDDifference is the year-to-date net change.
func (t NetChangeTotals) YTDDifference() decimal.Decimal {
	return t.YTDDebit.Add(t.YTDCredit)
}

// Equal compares every component by value, ignoring decimal scale.
func (t NetChangeTotals) Equal(o NetChangeTotals) bool {
	return t.Debit.Equal(o.Debit) &&
		t.Credit.Equal(o.Credit) &&
		t.YTDDebit.Equal(o.YTDDebit) &&
		t.YTDCredit.Equal(o.YTDCredit)
}

// Post books a signed amount: positive into debit, negative into credit.
func (t NetChangeTotals) Post(amount, ytdAmount decimal.Decimal) NetChangeTotals {
	if amount.IsPositive() {
		t.Debit = t.Debit.Add(amount)
	} else if amount.IsNegative() {
		t.Credit = t.Credit.Add(amount)
	}
	if ytdAmount.IsPositive() {
		t.YTDDebit = t.YTDDebit.Add(ytdAmount)
	} else if ytdAmount.IsNegative() {
		t.YTDCredit = t.YTDCredit.Add(ytdAmount)
	}
	return t
}

// Reduce sums totals component-wise. An empty or nil slice yields zero totals.
func Reduce(totals []NetChangeTotals) NetChangeTotals {
	var out NetChangeTotals
	for _, t := range totals {
		out = out.Add(t)
	}
	return out
}
