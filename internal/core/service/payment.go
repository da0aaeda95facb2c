package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// PayJob pays a job from the calling client to the contract's contractor and
// marks it paid. Paying an already paid job returns it without side effects.
func (s *BalanceService) PayJob(ctx context.Context, caller *domain.Profile, jobID string) (*domain.Job, error) {
	detail, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("pay job: %w", err)
	}

	if err := authorizePayer(caller, &detail.Contract); err != nil {
		return nil, err
	}

	if detail.Job.Paid {
		s.logger.Info().Str("job_id", jobID).Msg("job already paid, returning current state")
		return &detail.Job, nil
	}

	if caller.Balance.LessThan(detail.Job.Price) {
		return nil, fmt.Errorf("%w: balance %s below price %s", domain.ErrInsufficientFunds, caller.Balance, detail.Job.Price)
	}

	paidAt := s.now().UTC()
	var paid *domain.Job
	err = s.withAccountLock(ctx, caller.ID, func(ctx context.Context) error {
		_, err := s.executor.Execute(ctx, func(ctx context.Context, r ports.LedgerReader) (Transfer, error) {
			current, err := r.GetJob(ctx, jobID)
			if err != nil {
				return Transfer{}, err
			}
			if current.Job.Paid {
				return Transfer{}, domain.ErrJobAlreadyPaid
			}
			if current.Client.Balance.LessThan(current.Job.Price) {
				return Transfer{}, fmt.Errorf("%w: balance %s below price %s",
					domain.ErrInsufficientFunds, current.Client.Balance, current.Job.Price)
			}
			markPaid := func(ctx context.Context, tx ports.LedgerTx) error {
				if err := MarkJobPaid(jobID, paidAt)(ctx, tx); err != nil {
					return err
				}
				committed, err := tx.GetJob(ctx, jobID)
				if err != nil {
					return err
				}
				paid = &committed.Job
				return nil
			}
			return Transfer{
				SourceID: current.Contract.ClientID,
				TargetID: current.Contract.ContractorID,
				Amount:   current.Job.Price,
				Floor:    decimal.Zero,
				Status:   markPaid,
			}, nil
		})
		return err
	})
	if errors.Is(err, domain.ErrJobAlreadyPaid) {
		// Paid by a concurrent request; report the committed state.
		current, getErr := s.store.GetJob(ctx, jobID)
		if getErr != nil {
			return nil, fmt.Errorf("pay job: reload: %w", getErr)
		}
		return &current.Job, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("client_id", detail.Contract.ClientID).
		Str("contractor_id", detail.Contract.ContractorID).
		Str("price", paid.Price.String()).
		Msg("job paid")
	return paid, nil
}

// authorizePayer allows only the contract's own client to pay its jobs.
func authorizePayer(caller *domain.Profile, c *domain.Contract) error {
	if caller == nil {
		return domain.ErrForbidden
	}
	switch caller.Role {
	case domain.RoleClient:
		if c.ClientID != caller.ID {
			return fmt.Errorf("%w: job belongs to another client", domain.ErrForbidden)
		}
		return nil
	case domain.RoleContractor:
		return fmt.Errorf("%w: contractors cannot pay jobs", domain.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, caller.Role)
	}
}
