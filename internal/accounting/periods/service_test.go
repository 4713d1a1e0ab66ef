package periods

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// memoryStore applies updates to a working copy and publishes it on commit.
type memoryStore struct {
	mu        sync.Mutex
	states    []FinancialPeriodState
	failOpen  error
	failClose error
	txCount   int
	lastRange DateRange
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	work := &memoryTx{store: m, states: append([]FinancialPeriodState(nil), m.states...)}
	if err := fn(ctx, work); err != nil {
		return err
	}
	m.states = work.states
	return nil
}

func (m *memoryStore) ListPeriods(ctx context.Context, companyID int64) ([]FinancialPeriodState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FinancialPeriodState
	for _, s := range m.states {
		if s.CompanyID == companyID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) snapshot() []FinancialPeriodState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FinancialPeriodState(nil), m.states...)
}

type memoryTx struct {
	store  *memoryStore
	states []FinancialPeriodState
}

func (t *memoryTx) CloseAll(ctx context.Context, companyID int64, overallPeriod string, ledger Ledger) (int64, error) {
	if t.store.failClose != nil {
		return 0, t.store.failClose
	}
	var n int64
	for i := range t.states {
		s := &t.states[i]
		if s.CompanyID != companyID || s.OverallPeriod != overallPeriod {
			continue
		}
		setFlag(s, ledger, false)
		n++
	}
	return n, nil
}

func (t *memoryTx) OpenRange(ctx context.Context, companyID int64, overallPeriod string, ledger Ledger, rng DateRange) (int64, error) {
	if t.store.failOpen != nil {
		return 0, t.store.failOpen
	}
	t.store.lastRange = rng
	var n int64
	for i := range t.states {
		s := &t.states[i]
		if s.CompanyID != companyID || s.OverallPeriod != overallPeriod || !between(s.PeriodFrom, rng) {
			continue
		}
		setFlag(s, ledger, true)
		n++
	}
	return n, nil
}

// between mirrors SQL BETWEEN on the raw bounds handed to the store.
func between(from time.Time, rng DateRange) bool {
	return !from.Before(rng.PeriodFrom) && !from.After(rng.PeriodTo)
}

func setFlag(s *FinancialPeriodState, ledger Ledger, open bool) {
	if ledger == LedgerAP {
		s.AccountPayableOpen = open
		return
	}
	s.GeneralLedgerOpen = open
}

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

// fiscal2024 has twelve current periods for company 1, all GL and AP open, a
// year-end adjustment period and one period of another company.
func fiscal2024() []FinancialPeriodState {
	var states []FinancialPeriodState
	for m := time.January; m <= time.December; m++ {
		from := date(m, 1)
		states = append(states, FinancialPeriodState{
			ID: int64(m), CompanyID: 1, Period: int(m), OverallPeriod: shared.OverallPeriodCurrent,
			PeriodFrom: from, PeriodTo: from.AddDate(0, 1, -1),
			GeneralLedgerOpen: true, AccountPayableOpen: true,
		})
	}
	states = append(states,
		FinancialPeriodState{ID: 13, CompanyID: 1, Period: 13, OverallPeriod: "A",
			PeriodFrom: date(time.December, 31), PeriodTo: date(time.December, 31), GeneralLedgerOpen: true},
		FinancialPeriodState{ID: 14, CompanyID: 2, Period: 1, OverallPeriod: shared.OverallPeriodCurrent,
			PeriodFrom: date(time.January, 1), PeriodTo: date(time.January, 31), GeneralLedgerOpen: true},
	)
	return states
}

func TestOpenGLAccountsForPeriods(t *testing.T) {
	store := &memoryStore{states: fiscal2024()}
	svc := NewService(store, nil, nil)

	err := svc.OpenGLAccountsForPeriods(context.Background(), 1, DateRange{PeriodFrom: date(time.March, 1), PeriodTo: date(time.April, 15)})
	require.NoError(t, err)

	for _, s := range store.snapshot() {
		switch {
		case s.CompanyID != 1 || s.OverallPeriod != shared.OverallPeriodCurrent:
			require.True(t, s.GeneralLedgerOpen, "period %d untouched", s.ID)
		case s.Period == 3 || s.Period == 4:
			require.True(t, s.GeneralLedgerOpen, "period %d open", s.ID)
		default:
			require.False(t, s.GeneralLedgerOpen, "period %d closed", s.ID)
		}
		require.Equal(t, s.CompanyID == 1 && s.OverallPeriod == shared.OverallPeriodCurrent, s.AccountPayableOpen, "ap flag of %d", s.ID)
	}
}

func TestOpenAPAccountsForPeriodsLeavesGLAlone(t *testing.T) {
	store := &memoryStore{states: fiscal2024()}
	svc := NewService(store, nil, nil)

	require.NoError(t, svc.OpenAPAccountsForPeriods(context.Background(), 1, DateRange{PeriodFrom: date(time.June, 1), PeriodTo: date(time.June, 1)}))

	var open []int
	for _, s := range store.snapshot() {
		if s.CompanyID == 1 && s.AccountPayableOpen {
			open = append(open, s.Period)
		}
		require.True(t, s.GeneralLedgerOpen)
	}
	require.Equal(t, []int{6}, open)
}

func TestOpenForPeriodsTruncatesRangeToDays(t *testing.T) {
	store := &memoryStore{states: fiscal2024()}
	svc := NewService(store, nil, nil)

	rng := DateRange{
		PeriodFrom: time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC),
		PeriodTo:   time.Date(2024, time.April, 1, 18, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.OpenGLAccountsForPeriods(context.Background(), 1, rng))
	require.Equal(t, DateRange{PeriodFrom: date(time.March, 1), PeriodTo: date(time.April, 1)}, store.lastRange)

	var open []int
	for _, s := range store.snapshot() {
		if s.CompanyID == 1 && s.OverallPeriod == shared.OverallPeriodCurrent && s.GeneralLedgerOpen {
			open = append(open, s.Period)
		}
	}
	require.Equal(t, []int{3, 4}, open)
}

func TestOpenForPeriodsRollsBackOnFailure(t *testing.T) {
	for _, tc := range []struct {
		name string
		step string
		set  func(*memoryStore, error)
	}{
		{"close", "close_all", func(m *memoryStore, err error) { m.failClose = err }},
		{"open", "open_range", func(m *memoryStore, err error) { m.failOpen = err }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := &memoryStore{states: fiscal2024()}
			cause := errors.New("connection reset")
			tc.set(store, cause)
			before := store.snapshot()

			err := NewService(store, nil, nil).OpenGLAccountsForPeriods(context.Background(), 1,
				DateRange{PeriodFrom: date(time.March, 1), PeriodTo: date(time.March, 31)})

			var failure *TransactionFailure
			require.ErrorAs(t, err, &failure)
			require.Equal(t, tc.step, failure.Step)
			require.ErrorIs(t, err, cause)
			require.Equal(t, before, store.snapshot())
		})
	}
}

func TestOpenForPeriodsValidatesBeforeTouchingStore(t *testing.T) {
	store := &memoryStore{states: fiscal2024()}
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	err := svc.OpenGLAccountsForPeriods(ctx, 1, DateRange{PeriodFrom: date(time.May, 1), PeriodTo: date(time.April, 1)})
	require.ErrorIs(t, err, ErrInvalidRange)
	err = svc.OpenGLAccountsForPeriods(ctx, 1, DateRange{PeriodTo: date(time.April, 1)})
	require.ErrorIs(t, err, ErrInvalidRange)
	err = svc.OpenAPAccountsForPeriods(ctx, 0, DateRange{PeriodFrom: date(time.April, 1), PeriodTo: date(time.April, 1)})
	require.ErrorIs(t, err, ErrCompanyRequired)
	err = svc.OpenForPeriods(ctx, 1, Ledger("AR"), DateRange{PeriodFrom: date(time.April, 1), PeriodTo: date(time.April, 1)})
	require.ErrorIs(t, err, ErrUnknownLedger)
	require.Zero(t, store.txCount)
}

func TestOpenForPeriodsBumpsReportCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewCache(client, time.Minute)
	ctx := context.Background()
	before, err := c.Version(ctx)
	require.NoError(t, err)

	svc := NewService(&memoryStore{states: fiscal2024()}, c, nil)
	require.NoError(t, svc.OpenGLAccountsForPeriods(ctx, 1, DateRange{PeriodFrom: date(time.May, 1), PeriodTo: date(time.May, 31)}))

	after, err := c.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, after)
}

func TestListPeriods(t *testing.T) {
	svc := NewService(&memoryStore{states: fiscal2024()}, nil, nil)
	states, err := svc.ListPeriods(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.True(t, states[0].GeneralLedgerOpen)
	require.False(t, states[0].AccountPayableOpen)
}

func TestTranslateSerializationFailure(t *testing.T) {
	require.ErrorIs(t, translate(&pgconnError), ErrConcurrentUpdate)
	plain := errors.New("boom")
	require.Equal(t, plain, translate(plain))
	require.NoError(t, translate(nil))
}

var pgconnError = pgconn.PgError{Code: "40001", Message: "could not serialize access"}
