package reports

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type memoryRepo struct {
	rows        []LedgerDetailRow
	accounts    []Account
	centers     []ProfitCenter
	fiscalStart time.Time
	detailCalls atomic.Int32
	lastFilter  TrialBalanceFilter
	detailErr   error
}

func (m *memoryRepo) ListLedgerDetail(ctx context.Context, filter TrialBalanceFilter) ([]LedgerDetailRow, error) {
	m.detailCalls.Add(1)
	m.lastFilter = filter
	return m.rows, m.detailErr
}

func (m *memoryRepo) ListAccounts(ctx context.Context, companyID int64, from, thru string) ([]Account, error) {
	return m.accounts, nil
}

func (m *memoryRepo) ListProfitCenters(ctx context.Context, companyID int64) ([]ProfitCenter, error) {
	return m.centers, nil
}

func (m *memoryRepo) FiscalYearStart(ctx context.Context, companyID int64, date time.Time) (time.Time, error) {
	return m.fiscalStart, nil
}

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows: []LedgerDetailRow{
			{ID: 1, AccountID: cash.ID, ProfitCenterID: store.ID, Date: date(2024, 1, 3), Amount: amountPtr("75.50"), YTDAmount: amountPtr("75.50")},
			{ID: 2, AccountID: sales.ID, ProfitCenterID: store.ID, Date: date(2024, 1, 3), Amount: amountPtr("-75.50"), YTDAmount: amountPtr("-75.50")},
		},
		accounts:    []Account{cash, sales},
		centers:     []ProfitCenter{store},
		fiscalStart: date(2024, 1, 1),
	}
}

func validRequest() TrialBalanceRequest {
	return TrialBalanceRequest{CompanyID: 1, AccountFrom: "1000", AccountThru: "9999", Period: january}
}

func TestServiceTrialBalanceBuildsAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	svc := NewService(repo, cache.NewCache(client, time.Minute), nil, nil)

	report, err := svc.TrialBalance(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, report.Locations, 1)
	require.True(t, report.Totals.Debit.Equal(decimal.RequireFromString("75.50")))
	require.Equal(t, date(2024, 1, 1), repo.lastFilter.FiscalStart)
	require.Equal(t, january.End, repo.lastFilter.Thru)

	cached, err := svc.TrialBalance(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, int32(1), repo.detailCalls.Load())
	require.True(t, cached.Totals.Equal(report.Totals))
	require.Equal(t, report.Locations[0].Accounts[1].Account, cached.Locations[0].Accounts[1].Account)
}

func TestServiceTrialBalanceWithoutCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.TrialBalance(context.Background(), validRequest())
	require.NoError(t, err)
	_, err = svc.TrialBalance(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, int32(2), repo.detailCalls.Load())
}

func TestServiceTrialBalanceSurfacesIntegrityErrors(t *testing.T) {
	repo := newMemoryRepo()
	repo.accounts = []Account{cash}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.TrialBalance(context.Background(), validRequest())
	require.ErrorIs(t, err, shared.ErrDataIntegrity)
	var integrity *shared.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	require.Equal(t, "2", integrity.RecordID)
}

func TestServiceTrialBalanceValidatesRequest(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	req := validRequest()
	req.AccountFrom = ""
	_, err := svc.TrialBalance(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidFilter)

	req = validRequest()
	req.Period = shared.ReportingPeriod{Begin: date(2024, 2, 1), End: date(2024, 1, 1)}
	_, err = svc.TrialBalance(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)
}

func TestServiceTrialBalancePropagatesRepositoryErrors(t *testing.T) {
	repo := newMemoryRepo()
	boom := errors.New("connection reset")
	repo.detailErr = boom
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.TrialBalance(context.Background(), validRequest())
	require.ErrorIs(t, err, boom)
}
