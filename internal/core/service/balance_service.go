package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// DefaultReserveRatio is the share of a client's exposure that must stay in
// its balance and that bounds a single deposit.
var DefaultReserveRatio = decimal.New(25, -2)

// BalanceService implements ports.BalanceService.
type BalanceService struct {
	store        ports.LedgerStore
	executor     *TransferExecutor
	exposure     *ExposureCalculator
	locker       ports.AccountLocker
	replay       ports.ReplayCache
	reserveRatio decimal.Decimal
	now          func() time.Time
	logger       zerolog.Logger
}

// BalanceOption customises a BalanceService.
type BalanceOption func(*BalanceService)

// WithLocker serialises operations per source account with l.
func WithLocker(l ports.AccountLocker) BalanceOption {
	return func(s *BalanceService) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithReplayCache enables Idempotency-Key replays for deposits.
func WithReplayCache(c ports.ReplayCache) BalanceOption {
	return func(s *BalanceService) { s.replay = c }
}

// WithReserveRatio overrides DefaultReserveRatio.
func WithReserveRatio(r decimal.Decimal) BalanceOption {
	return func(s *BalanceService) {
		if !r.IsNegative() && !r.IsZero() {
			s.reserveRatio = r
		}
	}
}

// WithClock overrides time.Now, used to stamp paid jobs.
func WithClock(now func() time.Time) BalanceOption {
	return func(s *BalanceService) { s.now = now }
}

func NewBalanceService(
	store ports.LedgerStore,
	executor *TransferExecutor,
	exposure *ExposureCalculator,
	logger zerolog.Logger,
	opts ...BalanceOption,
) *BalanceService {
	s := &BalanceService{
		store:        store,
		executor:     executor,
		exposure:     exposure,
		locker:       nopLocker{},
		reserveRatio: DefaultReserveRatio,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withAccountLock runs fn under the lock of profileID. Errors from fn are
// returned as-is; failing to take the lock is a transaction failure.
func (s *BalanceService) withAccountLock(ctx context.Context, profileID string, fn func(ctx context.Context) error) error {
	var (
		ran   bool
		fnErr error
	)
	err := s.locker.WithLock(ctx, accountLockKey(profileID), func(ctx context.Context) error {
		ran = true
		fnErr = fn(ctx)
		return fnErr
	})
	if ran {
		if err != nil && fnErr == nil {
			s.logger.Warn().Err(err).Str("profile_id", profileID).Msg("account lock release failed")
		}
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("%w: acquire account lock: %w", domain.ErrTransactionFailure, err)
	}
	return nil
}

func accountLockKey(profileID string) string {
	return "lock:profile:" + profileID
}

type nopLocker struct{}

func (nopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
