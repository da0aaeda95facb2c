package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

const defaultTxTimeout = 5 * time.Second

// StatusUpdate is an extra mutation applied in the same transaction as a transfer.
type StatusUpdate func(ctx context.Context, tx ports.LedgerTx) error

// MarkJobPaid returns the status update that flips a job to paid.
func MarkJobPaid(jobID string, at time.Time) StatusUpdate {
	return func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.MarkJobPaid(ctx, jobID, at)
	}
}

// Transfer moves Amount from SourceID to TargetID. The source balance must
// remain >= Floor after the debit.
type Transfer struct {
	SourceID string
	TargetID string
	Amount   decimal.Decimal
	Floor    decimal.Decimal
	Status   StatusUpdate // optional
}

func (t Transfer) validate() error {
	if t.SourceID == "" || t.TargetID == "" {
		return fmt.Errorf("%w: transfer requires source and target", domain.ErrValidation)
	}
	if t.SourceID == t.TargetID {
		return fmt.Errorf("%w: transfer source and target must differ", domain.ErrValidation)
	}
	if err := domain.ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Floor.IsNegative() {
		return fmt.Errorf("%w: transfer floor cannot be negative", domain.ErrValidation)
	}
	return nil
}

// Plan reads state inside the transaction, applies business rules and
// returns the transfer to perform. An error aborts the transaction untouched.
type Plan func(ctx context.Context, r ports.LedgerReader) (Transfer, error)

// Receipt holds both profiles as committed by the transfer.
type Receipt struct {
	Source domain.Profile
	Target domain.Profile
}

// TransferExecutor applies balance moves and their status updates as one
// indivisible unit against the ledger store.
type TransferExecutor struct {
	store   ports.LedgerStore
	timeout time.Duration
	log     zerolog.Logger
}

// NewTransferExecutor returns an executor whose transactions must commit
// within timeout. If timeout <= 0, defaultTxTimeout is used.
func NewTransferExecutor(store ports.LedgerStore, timeout time.Duration, log zerolog.Logger) *TransferExecutor {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &TransferExecutor{store: store, timeout: timeout, log: log}
}

// AtomicTransfer performs t in a single transaction.
func (e *TransferExecutor) AtomicTransfer(ctx context.Context, t Transfer) (*Receipt, error) {
	return e.Execute(ctx, func(context.Context, ports.LedgerReader) (Transfer, error) {
		return t, nil
	})
}

// Execute runs plan and the resulting transfer in one transaction.
//
// Business rule violations produced by plan are returned unchanged. Any other
// failure, including store errors while planning, mutating or committing, is
// returned as domain.ErrTransactionFailure wrapping the cause. Nothing is
// persisted in either case.
func (e *TransferExecutor) Execute(ctx context.Context, plan Plan) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		planErr error
		t       Transfer
		receipt Receipt
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		t, planErr = plan(ctx, tx)
		if planErr != nil {
			return planErr
		}
		if planErr = t.validate(); planErr != nil {
			return planErr
		}

		if err := tx.DebitBalance(ctx, t.SourceID, t.Amount, t.Floor); err != nil {
			return fmt.Errorf("debit %s: %w", t.SourceID, err)
		}
		if err := tx.CreditBalance(ctx, t.TargetID, t.Amount); err != nil {
			return fmt.Errorf("credit %s: %w", t.TargetID, err)
		}
		if t.Status != nil {
			if err := t.Status(ctx, tx); err != nil {
				return fmt.Errorf("status update: %w", err)
			}
		}

		src, err := tx.GetProfile(ctx, t.SourceID)
		if err != nil {
			return fmt.Errorf("reload source: %w", err)
		}
		dst, err := tx.GetProfile(ctx, t.TargetID)
		if err != nil {
			return fmt.Errorf("reload target: %w", err)
		}
		if src.Balance.IsNegative() {
			return fmt.Errorf("source %s: %w", src.ID, domain.ErrBalanceConflict)
		}
		receipt = Receipt{Source: *src, Target: *dst}
		return nil
	})
	if err != nil {
		if planErr != nil && isRuleViolation(planErr) && errors.Is(err, planErr) {
			return nil, planErr
		}
		msg := "transfer rolled back"
		if errors.Is(err, domain.ErrCommitUnknown) {
			msg = "transfer commit outcome unknown"
		}
		e.log.Error().Err(err).
			Str("source", t.SourceID).
			Str("target", t.TargetID).
			Str("amount", t.Amount.String()).
			Msg(msg)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransactionFailure, err)
	}

	e.log.Info().
		Str("source", t.SourceID).
		Str("target", t.TargetID).
		Str("amount", t.Amount.String()).
		Msg("transfer committed")
	return &receipt, nil
}

// isRuleViolation reports whether err is a business outcome rather than a
// storage failure.
func isRuleViolation(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrValidation,
		domain.ErrInsufficientFunds,
		domain.ErrInsufficientReserve,
		domain.ErrJobAlreadyPaid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
