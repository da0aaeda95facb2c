package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// Deposit moves funds from the calling client to another client, provided the
// caller keeps a reserve of ReserveRatio × its unpaid exposure and the amount
// does not exceed that reserve.
func (s *BalanceService) Deposit(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
	caller := in.Caller
	if err := authorizeDepositor(caller); err != nil {
		return nil, err
	}

	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	target, err := s.store.GetProfile(ctx, in.TargetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile %s does not exist", domain.ErrTargetNotClient, in.TargetID)
		}
		return nil, fmt.Errorf("deposit: load target: %w", err)
	}
	if target.Role != domain.RoleClient {
		return nil, fmt.Errorf("%w: profile %s has role %s", domain.ErrTargetNotClient, target.ID, target.Role)
	}

	if target.ID == caller.ID {
		return nil, domain.ErrSelfDeposit
	}

	var result *ports.DepositResult
	err = s.withAccountLock(ctx, caller.ID, func(ctx context.Context) error {
		cached, ok, err := s.loadReplay(ctx, caller.ID, in)
		if err != nil {
			return err
		}
		if ok {
			result = cached
			return nil
		}

		var due decimal.Decimal
		receipt, err := s.executor.Execute(ctx, func(ctx context.Context, r ports.LedgerReader) (Transfer, error) {
			var err error
			due, err = s.exposure.Exposure(ctx, r, caller.ID)
			if err != nil {
				return Transfer{}, err
			}
			source, err := r.GetProfile(ctx, caller.ID)
			if err != nil {
				return Transfer{}, err
			}
			reserve := due.Mul(s.reserveRatio)
			if err := checkReserve(source.Balance, in.Amount, reserve); err != nil {
				return Transfer{}, err
			}
			return Transfer{
				SourceID: caller.ID,
				TargetID: target.ID,
				Amount:   in.Amount,
				Floor:    reserve,
			}, nil
		})
		if err != nil {
			return err
		}

		result = &ports.DepositResult{Due: due, Source: receipt.Source, Target: receipt.Target}
		s.saveReplay(ctx, caller.ID, in, result)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("source", caller.ID).
		Str("target", target.ID).
		Str("amount", in.Amount.String()).
		Str("due", result.Due.String()).
		Bool("replayed", result.Replayed).
		Msg("deposit completed")
	return result, nil
}

// checkReserve enforces amount <= reserve and balance - amount >= reserve.
func checkReserve(balance, amount, reserve decimal.Decimal) error {
	if amount.GreaterThan(reserve) {
		return fmt.Errorf("%w: amount %s exceeds reserve cap %s", domain.ErrInsufficientReserve, amount, reserve)
	}
	if balance.Sub(amount).LessThan(reserve) {
		return fmt.Errorf("%w: remaining balance %s below reserve %s", domain.ErrInsufficientReserve, balance.Sub(amount), reserve)
	}
	return nil
}

func authorizeDepositor(caller *domain.Profile) error {
	if caller == nil {
		return domain.ErrForbidden
	}
	switch caller.Role {
	case domain.RoleClient:
		return nil
	case domain.RoleContractor:
		return fmt.Errorf("%w: contractors cannot deposit", domain.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, caller.Role)
	}
}

func replayKey(callerID, key string) string {
	return "deposit:" + callerID + ":" + key
}

// replayEntry is the cached form of a deposit. Target and Amount pin the key
// to the request that first used it.
type replayEntry struct {
	Target string              `json:"target_id"`
	Amount decimal.Decimal     `json:"amount"`
	Result ports.DepositResult `json:"result"`
}

func (e replayEntry) matches(in ports.DepositInput) bool {
	return e.Target == in.TargetID && e.Amount.Equal(in.Amount)
}

func (s *BalanceService) loadReplay(ctx context.Context, callerID string, in ports.DepositInput) (*ports.DepositResult, bool, error) {
	key := in.IdempotencyKey
	if s.replay == nil || key == "" {
		return nil, false, nil
	}
	payload, ok, err := s.replay.Load(ctx, replayKey(callerID, key))
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("replay lookup failed, processing anyway")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	var entry replayEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("discarding unreadable replay entry")
		return nil, false, nil
	}
	if !entry.matches(in) {
		return nil, false, fmt.Errorf("%w: key %q was used for %s to %s", domain.ErrReplayMismatch, key, entry.Amount, entry.Target)
	}
	res := entry.Result
	res.Replayed = true
	s.logger.Info().Str("idempotency_key", key).Str("source", callerID).Msg("idempotent replay")
	return &res, true, nil
}

func (s *BalanceService) saveReplay(ctx context.Context, callerID string, in ports.DepositInput, res *ports.DepositResult) {
	key := in.IdempotencyKey
	if s.replay == nil || key == "" {
		return
	}
	payload, err := json.Marshal(replayEntry{Target: in.TargetID, Amount: in.Amount, Result: *res})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode replay entry")
		return
	}
	if err := s.replay.Save(ctx, replayKey(callerID, key), payload); err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("failed to store replay entry")
	}
}
