package ap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var march = shared.NewReportingPeriod(day(2024, 3, 1), day(2024, 3, 31))

func pmt(n string) *string { return &n }

func dist(invoiceID int64, vendor, account, center string, payment *string, expense time.Time, amount, gl string, inventory bool) InvoiceDistributionRecord {
	return InvoiceDistributionRecord{
		InvoiceID:             invoiceID,
		InvoiceNumber:         "INV-" + vendor,
		VendorNumber:          vendor,
		VendorName:            "Vendor " + vendor,
		AccountNumber:         account,
		AccountName:           "Account " + account,
		DistributionCenter:    center,
		PaymentNumber:         payment,
		ExpenseDate:           expense,
		DistributionAmount:    amt(amount),
		GLAmount:              amt(gl),
		IsAccountForInventory: inventory,
	}
}

func invoiceIDs(lines []RegisterLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.InvoiceID)
	}
	return ids
}

func TestSortDistributionsByPaymentWhenShared(t *testing.T) {
	rows := []InvoiceDistributionRecord{
		dist(1, "V9", "5000", "DC1", pmt("P200"), day(2024, 3, 1), "10", "10", true),
		dist(2, "V3", "5000", "DC1", pmt("P100"), day(2024, 3, 9), "20", "20", true),
		dist(3, "V1", "5000", "DC1", pmt("P200"), day(2024, 3, 5), "30", "30", true),
		dist(4, "V2", "5000", "DC1", nil, day(2024, 3, 2), "40", "40", true),
	}
	group := buildCenterGroup("DC1", rows)
	require.Equal(t, []int64{2, 3, 1, 4}, invoiceIDs(group.Invoices))
	require.Equal(t, int64(1), rows[0].InvoiceID, "input must not be reordered")
}

func TestSortDistributionsByExpenseDateWithoutSharedPayment(t *testing.T) {
	rows := []InvoiceDistributionRecord{
		dist(1, "V2", "5000", "DC1", pmt("P300"), day(2024, 3, 9), "10", "10", true),
		dist(2, "V1", "5000", "DC1", nil, day(2024, 3, 9), "20", "20", true),
		dist(3, "V3", "5000", "DC1", pmt("P100"), day(2024, 3, 1), "30", "30", true),
	}
	group := buildCenterGroup("DC1", rows)
	require.Equal(t, []int64{3, 2, 1}, invoiceIDs(group.Invoices))
	require.Empty(t, group.GLAmountTotalPerPayment)
}

func TestGLAmountTotalPerPaymentSuppressesSingleRowPayments(t *testing.T) {
	rows := []InvoiceDistributionRecord{
		dist(1, "V1", "5000", "DC1", pmt("P2"), day(2024, 3, 1), "10", "11.50", true),
		dist(2, "V1", "5000", "DC1", pmt("P1"), day(2024, 3, 2), "20", "20.25", true),
		dist(3, "V1", "5000", "DC1", pmt("P2"), day(2024, 3, 3), "30", "30.50", false),
		dist(4, "V1", "5000", "DC1", pmt("P3"), day(2024, 3, 4), "40", "40", true),
		dist(5, "V1", "5000", "DC1", pmt("P1"), day(2024, 3, 5), "50", "0.75", true),
		dist(6, "V1", "5000", "DC1", nil, day(2024, 3, 6), "60", "60", true),
		dist(7, "V1", "5000", "DC1", nil, day(2024, 3, 7), "70", "70", true),
	}
	subtotals := glAmountTotalPerPayment(rows)
	require.Len(t, subtotals, 2)
	require.Equal(t, "P1", subtotals[0].PaymentNumber)
	require.True(t, subtotals[0].Total.Equal(amt("21")))
	require.Equal(t, "P2", subtotals[1].PaymentNumber)
	require.True(t, subtotals[1].Total.Equal(amt("42")))
	for _, s := range subtotals {
		require.NotEqual(t, "P3", s.PaymentNumber)
	}
}

func TestBuildExpenseRegisterNestsAndTotals(t *testing.T) {
	records := []InvoiceDistributionRecord{
		dist(1, "V1", "1400", "DC1", pmt("P1"), day(2024, 3, 2), "100", "100", true),
		dist(2, "V1", "6100", "DC1", pmt("P1"), day(2024, 3, 2), "40", "40", false),
		dist(3, "V1", "1400", "DC2", pmt("P1"), day(2024, 3, 2), "60", "60", true),
		dist(4, "V2", "1400", "DC1", nil, day(2024, 3, 8), "25.50", "25.50", true),
		dist(5, "V1", "1400", "DC1", pmt("P7"), day(2024, 3, 4), "15", "15", false),
	}
	register := BuildExpenseRegister(march, records)

	require.Len(t, register.Vendors, 2)
	v1 := register.Vendors[0]
	require.Equal(t, "V1", v1.VendorNumber)
	require.Equal(t, "Vendor V1", v1.VendorName)
	require.True(t, v1.AccountTotal.Equal(amt("160")))
	require.Len(t, v1.GLAmountTotalPerPayment, 1)
	require.True(t, v1.GLAmountTotalPerPayment[0].Total.Equal(amt("200")))

	require.Len(t, v1.Accounts, 2)
	inventory := v1.Accounts[0]
	require.Equal(t, "1400", inventory.AccountNumber)
	require.True(t, inventory.AccountTotal.Equal(amt("160")))
	require.Len(t, inventory.GLAmountTotalPerPayment, 1)
	require.True(t, inventory.GLAmountTotalPerPayment[0].Total.Equal(amt("160")))
	require.Len(t, inventory.DistributionCenters, 2)
	require.Equal(t, "DC1", inventory.DistributionCenters[0].DistributionCenter)
	require.Equal(t, []int64{1, 5}, invoiceIDs(inventory.DistributionCenters[0].Invoices))
	require.True(t, inventory.DistributionCenters[0].AccountTotal.Equal(amt("100")))
	require.Empty(t, inventory.DistributionCenters[0].GLAmountTotalPerPayment)

	expense := v1.Accounts[1]
	require.Equal(t, "6100", expense.AccountNumber)
	require.True(t, expense.AccountTotal.IsZero())

	require.True(t, register.AccountTotal.Equal(amt("185.50")))
	require.True(t, register.DistributionTotal.Equal(amt("240.50")))
}

func TestBuildExpenseRegisterEmpty(t *testing.T) {
	register := BuildExpenseRegister(march, nil)
	require.Empty(t, register.Vendors)
	require.True(t, register.AccountTotal.IsZero())
}

func TestValidateDistributions(t *testing.T) {
	vendor, account, center, payment := "V1", "1400", "DC1", "P1"
	expense := time.Date(2024, 3, 2, 13, 0, 0, 0, time.UTC)
	amount := amt("12.34")
	row := InvoiceDistributionRow{
		InvoiceID:          7,
		VendorNumber:       &vendor,
		AccountNumber:      &account,
		DistributionCenter: &center,
		PaymentNumber:      &payment,
		ExpenseDate:        &expense,
		DistributionAmount: &amount,
	}
	records, err := ValidateDistributions([]InvoiceDistributionRow{row})
	require.NoError(t, err)
	require.Equal(t, day(2024, 3, 2), records[0].ExpenseDate)
	require.True(t, records[0].GLAmount.Equal(amount))
	require.Equal(t, "P1", *records[0].PaymentNumber)

	missing := row
	missing.DistributionCenter = nil
	_, err = ValidateDistributions([]InvoiceDistributionRow{missing})
	require.ErrorIs(t, err, shared.ErrDataIntegrity)
	require.Contains(t, err.Error(), "record 7")

	blank := ""
	noPayment := row
	noPayment.PaymentNumber = &blank
	records, err = ValidateDistributions([]InvoiceDistributionRow{noPayment})
	require.NoError(t, err)
	require.Nil(t, records[0].PaymentNumber)
}
