package reports

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerDetailQueryBringsDebitsAndCreditsForwardSeparately(t *testing.T) {
	require.Contains(t, ledgerDetailQuery, "WHERE entry_date < $6 AND amount > 0")
	require.Contains(t, ledgerDetailQuery, "WHERE entry_date < $6 AND amount < 0")
	require.Equal(t, 2, strings.Count(ledgerDetailQuery, "'BF' AS source_code"))
}

func TestBroughtForwardLinesKeepYTDColumnsGross(t *testing.T) {
	records := []LedgerDetailRecord{
		{ID: 0, Account: cash, ProfitCenter: store, Date: january.Begin, SourceCode: "BF", Amount: dec("0"), YTDAmount: dec("100")},
		{ID: 0, Account: cash, ProfitCenter: store, Date: january.Begin, SourceCode: "BF", Amount: dec("0"), YTDAmount: dec("-80")},
		line(1, cash, store, "15", "15"),
		line(2, cash, store, "-5", "-5"),
	}
	report, err := BuildTrialBalance(january, records)
	require.NoError(t, err)

	totals := report.Locations[0].Accounts[0].Totals
	require.True(t, totals.Debit.Equal(dec("15")))
	require.True(t, totals.Credit.Equal(dec("-5")))
	require.True(t, totals.YTDDebit.Equal(dec("115")))
	require.True(t, totals.YTDCredit.Equal(dec("-85")))
	require.True(t, totals.YTDDifference().Equal(dec("30")))

	bs := report.EndOfReport.BalanceSheet.YTD
	require.True(t, bs.Debit.Equal(dec("115")))
	require.True(t, bs.Credit.Equal(dec("-85")))
}
