package periods

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Service toggles posting flags of current fiscal periods.
type Service struct {
	store  Store
	cache  *cache.Cache
	logger *slog.Logger
}

// NewService constructs the service. cache may be nil.
func NewService(store Store, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: c, logger: logger}
}

// ListPeriods returns the period states of a company.
func (s *Service) ListPeriods(ctx context.Context, companyID int64) ([]FinancialPeriodState, error) {
	return s.store.ListPeriods(ctx, companyID)
}

// OpenGLAccountsForPeriods closes general ledger posting for every current
// period and reopens the ones starting inside rng, as one unit of work.
func (s *Service) OpenGLAccountsForPeriods(ctx context.Context, companyID int64, rng DateRange) error {
	return s.OpenForPeriods(ctx, companyID, LedgerGL, rng)
}

// OpenAPAccountsForPeriods is OpenGLAccountsForPeriods for accounts payable.
func (s *Service) OpenAPAccountsForPeriods(ctx context.Context, companyID int64, rng DateRange) error {
	return s.OpenForPeriods(ctx, companyID, LedgerAP, rng)
}

// OpenForPeriods runs the close-all then open-range pair for ledger.
func (s *Service) OpenForPeriods(ctx context.Context, companyID int64, ledger Ledger, rng DateRange) error {
	if companyID <= 0 {
		return ErrCompanyRequired
	}
	if _, err := ledger.column(); err != nil {
		return err
	}
	if err := rng.Validate(); err != nil {
		return err
	}
	rng = rng.Days()
	var closed, opened int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if closed, err = tx.CloseAll(ctx, companyID, shared.OverallPeriodCurrent, ledger); err != nil {
			return &TransactionFailure{Step: "close_all", Err: err}
		}
		if opened, err = tx.OpenRange(ctx, companyID, shared.OverallPeriodCurrent, ledger, rng); err != nil {
			return &TransactionFailure{Step: "open_range", Err: err}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("period toggle rolled back",
			slog.Int64("company_id", companyID),
			slog.String("ledger", string(ledger)),
			slog.Any("error", err))
		return err
	}
	s.logger.Info("periods opened",
		slog.Int64("company_id", companyID),
		slog.String("ledger", string(ledger)),
		slog.Int64("closed", closed),
		slog.Int64("opened", opened))
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump", slog.Any("error", err))
	}
	return nil
}
