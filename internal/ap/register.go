package ap

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// RegisterLine is one distribution line printed on the expense register.
type RegisterLine struct {
	InvoiceID             int64           `json:"invoiceId"`
	InvoiceNumber         string          `json:"invoiceNumber"`
	VendorNumber          string          `json:"vendorNumber"`
	PaymentNumber         *string         `json:"paymentNumber,omitempty"`
	PaymentDate           *time.Time      `json:"paymentDate,omitempty"`
	ExpenseDate           time.Time       `json:"expenseDate"`
	DistributionAmount    decimal.Decimal `json:"distributionAmount"`
	GLAmount              decimal.Decimal `json:"glAmount"`
	IsAccountForInventory bool            `json:"isAccountForInventory"`
}

// PaymentSubtotal is the GL amount printed under a payment shared by several lines.
type PaymentSubtotal struct {
	PaymentNumber string          `json:"paymentNumber"`
	Total         decimal.Decimal `json:"total"`
}

// DistributionCenterGroup is the innermost register grouping.
type DistributionCenterGroup struct {
	DistributionCenter      string            `json:"distributionCenter"`
	Invoices                []RegisterLine    `json:"invoices"`
	GLAmountTotalPerPayment []PaymentSubtotal `json:"glAmountTotalPerPayment"`
	AccountTotal            decimal.Decimal   `json:"accountTotal"`
}

// AccountGroup collects distribution centers posted to one GL account.
type AccountGroup struct {
	AccountNumber           string                    `json:"accountNumber"`
	AccountName             string                    `json:"accountName"`
	DistributionCenters     []DistributionCenterGroup `json:"distributionCenters"`
	GLAmountTotalPerPayment []PaymentSubtotal         `json:"glAmountTotalPerPayment"`
	AccountTotal            decimal.Decimal           `json:"accountTotal"`
}

// VendorGroup is the outermost register grouping.
type VendorGroup struct {
	VendorNumber            string            `json:"vendorNumber"`
	VendorName              string            `json:"vendorName"`
	Accounts                []AccountGroup    `json:"accounts"`
	GLAmountTotalPerPayment []PaymentSubtotal `json:"glAmountTotalPerPayment"`
	AccountTotal            decimal.Decimal   `json:"accountTotal"`
}

// ExpenseRegister is the AP expense register for a period.
type ExpenseRegister struct {
	Period            shared.ReportingPeriod `json:"period"`
	Vendors           []VendorGroup          `json:"vendors"`
	AccountTotal      decimal.Decimal        `json:"accountTotal"`
	DistributionTotal decimal.Decimal        `json:"distributionTotal"`
}

// BuildExpenseRegister groups distribution records by vendor, account and
// distribution center, keeping first-seen order at each level. Totals at every
// level are computed from the level's own rows.
func BuildExpenseRegister(period shared.ReportingPeriod, records []InvoiceDistributionRecord) ExpenseRegister {
	register := ExpenseRegister{
		Period:            period,
		Vendors:           []VendorGroup{},
		AccountTotal:      inventoryTotal(records),
		DistributionTotal: distributionTotal(records),
	}
	vendorKeys, byVendor := groupBy(records, func(r InvoiceDistributionRecord) string { return r.VendorNumber })
	for _, vendor := range vendorKeys {
		vendorRows := byVendor[vendor]
		vg := VendorGroup{
			VendorNumber:            vendor,
			VendorName:              vendorRows[0].VendorName,
			GLAmountTotalPerPayment: glAmountTotalPerPayment(vendorRows),
			AccountTotal:            inventoryTotal(vendorRows),
		}
		accountKeys, byAccount := groupBy(vendorRows, func(r InvoiceDistributionRecord) string { return r.AccountNumber })
		for _, account := range accountKeys {
			accountRows := byAccount[account]
			ag := AccountGroup{
				AccountNumber:           account,
				AccountName:             accountRows[0].AccountName,
				GLAmountTotalPerPayment: glAmountTotalPerPayment(accountRows),
				AccountTotal:            inventoryTotal(accountRows),
			}
			centerKeys, byCenter := groupBy(accountRows, func(r InvoiceDistributionRecord) string { return r.DistributionCenter })
			for _, center := range centerKeys {
				ag.DistributionCenters = append(ag.DistributionCenters, buildCenterGroup(center, byCenter[center]))
			}
			vg.Accounts = append(vg.Accounts, ag)
		}
		register.Vendors = append(register.Vendors, vg)
	}
	return register
}

func buildCenterGroup(center string, rows []InvoiceDistributionRecord) DistributionCenterGroup {
	sorted := make([]InvoiceDistributionRecord, len(rows))
	copy(sorted, rows)
	sortDistributions(sorted)

	lines := make([]RegisterLine, 0, len(sorted))
	for _, r := range sorted {
		lines = append(lines, RegisterLine{
			InvoiceID:             r.InvoiceID,
			InvoiceNumber:         r.InvoiceNumber,
			VendorNumber:          r.VendorNumber,
			PaymentNumber:         r.PaymentNumber,
			PaymentDate:           r.PaymentDate,
			ExpenseDate:           r.ExpenseDate,
			DistributionAmount:    r.DistributionAmount,
			GLAmount:              r.GLAmount,
			IsAccountForInventory: r.IsAccountForInventory,
		})
	}
	return DistributionCenterGroup{
		DistributionCenter:      center,
		Invoices:                lines,
		GLAmountTotalPerPayment: glAmountTotalPerPayment(sorted),
		AccountTotal:            inventoryTotal(sorted),
	}
}

// sortDistributions orders payment-batched rows next to each other. When any
// payment number is shared the rows sort by payment then vendor, otherwise by
// expense date then vendor. Rows without a payment number sort last.
func sortDistributions(rows []InvoiceDistributionRecord) {
	if hasSharedPayment(rows) {
		sort.SliceStable(rows, func(i, j int) bool {
			pi, pj := rows[i].PaymentNumber, rows[j].PaymentNumber
			switch {
			case pi == nil && pj == nil:
			case pi == nil:
				return false
			case pj == nil:
				return true
			case *pi != *pj:
				return *pi < *pj
			}
			return rows[i].VendorNumber < rows[j].VendorNumber
		})
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].ExpenseDate.Equal(rows[j].ExpenseDate) {
			return rows[i].ExpenseDate.Before(rows[j].ExpenseDate)
		}
		return rows[i].VendorNumber < rows[j].VendorNumber
	})
}

func hasSharedPayment(rows []InvoiceDistributionRecord) bool {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.PaymentNumber == nil {
			continue
		}
		if _, ok := seen[*r.PaymentNumber]; ok {
			return true
		}
		seen[*r.PaymentNumber] = struct{}{}
	}
	return false
}

// glAmountTotalPerPayment sums GL amounts for payments covering more than one
// row, sorted by payment number. Single-row payments get no subtotal.
func glAmountTotalPerPayment(rows []InvoiceDistributionRecord) []PaymentSubtotal {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, r := range rows {
		if r.PaymentNumber == nil {
			continue
		}
		key := *r.PaymentNumber
		totals[key] = totals[key].Add(r.GLAmount)
		counts[key]++
	}
	out := make([]PaymentSubtotal, 0)
	for key, n := range counts {
		if n > 1 {
			out = append(out, PaymentSubtotal{PaymentNumber: key, Total: totals[key]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentNumber < out[j].PaymentNumber })
	return out
}

// inventoryTotal sums distribution amounts of inventory-flagged rows only.
func inventoryTotal(rows []InvoiceDistributionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.IsAccountForInventory {
			total = total.Add(r.DistributionAmount)
		}
	}
	return total
}

func distributionTotal(rows []InvoiceDistributionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.DistributionAmount)
	}
	return total
}

func groupBy(rows []InvoiceDistributionRecord, key func(InvoiceDistributionRecord) string) ([]string, map[string][]InvoiceDistributionRecord) {
	groups := make(map[string][]InvoiceDistributionRecord)
	keys := make([]string, 0)
	for _, r := range rows {
		k := key(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	return keys, groups
}
