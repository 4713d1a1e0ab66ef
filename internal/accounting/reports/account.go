package reports

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AccountCategory classifies a general ledger account.
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "ASSET"
	CategoryLiability AccountCategory = "LIABILITY"
	CategoryCapital   AccountCategory = "CAPITAL"
	CategoryIncome    AccountCategory = "INCOME"
	CategoryExpense   AccountCategory = "EXPENSE"
)

var categoryTitle = cases.Title(language.English)

// ParseAccountCategory maps a stored category code onto AccountCategory. The
// second result is false for empty or unknown codes.
func ParseAccountCategory(raw string) (AccountCategory, bool) {
	switch c := AccountCategory(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CategoryAsset, CategoryLiability, CategoryCapital, CategoryIncome, CategoryExpense:
		return c, true
	case "EQUITY":
		return CategoryCapital, true
	case "REVENUE":
		return CategoryIncome, true
	default:
		return "", false
	}
}

// Valid reports whether c is one of the five known categories.
func (c AccountCategory) Valid() bool {
	switch c {
	case CategoryAsset, CategoryLiability, CategoryCapital, CategoryIncome, CategoryExpense:
		return true
	}
	return false
}

// IsIncomeStatement reports whether the category belongs to the income/expense bucket.
func (c AccountCategory) IsIncomeStatement() bool {
	return c == CategoryIncome || c == CategoryExpense
}

// Label is the display name of the category.
func (c AccountCategory) Label() string {
	return categoryTitle.String(strings.ToLower(string(c)))
}

// Account is general ledger reference data.
type Account struct {
	ID       int64           `json:"id"`
	Number   string          `json:"number"`
	Name     string          `json:"name"`
	Category AccountCategory `json:"category"`
}

// ProfitCenter is the location dimension a trial balance is split by.
type ProfitCenter struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
}
