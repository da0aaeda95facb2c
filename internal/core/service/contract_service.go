package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// ContractService implements ports.ContractService.
type ContractService struct {
	store  ports.LedgerReader
	logger zerolog.Logger
}

func NewContractService(store ports.LedgerReader, logger zerolog.Logger) *ContractService {
	return &ContractService{store: store, logger: logger}
}

// GetContract returns the contract when the caller is one of its parties.
// Contracts of other profiles are reported as not found.
func (s *ContractService) GetContract(ctx context.Context, caller *domain.Profile, id string) (*domain.Contract, error) {
	if _, err := partyFilter(caller); err != nil {
		return nil, err
	}

	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	if !c.HasParty(caller.ID) {
		return nil, domain.ErrContractNotFound
	}
	return c, nil
}

// ListContracts returns every contract the caller is a party to.
func (s *ContractService) ListContracts(ctx context.Context, caller *domain.Profile) ([]*domain.Contract, error) {
	filter, err := partyFilter(caller)
	if err != nil {
		return nil, err
	}

	contracts, err := s.store.ListContracts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return contracts, nil
}

// ListUnpaidJobs returns the unpaid jobs of the caller's active contracts.
func (s *ContractService) ListUnpaidJobs(ctx context.Context, caller *domain.Profile) ([]*domain.Job, error) {
	filter, err := partyFilter(caller)
	if err != nil {
		return nil, err
	}
	filter.Statuses = domain.ActiveContractStatuses()

	jobs, err := s.store.ListUnpaidJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list unpaid jobs: %w", err)
	}
	s.logger.Debug().Str("profile_id", caller.ID).Int("count", len(jobs)).Msg("unpaid jobs listed")
	return jobs, nil
}

// ListContractsWithUnpaidJobs groups the caller's unpaid jobs under their
// contracts. Contracts without unpaid jobs are left out.
func (s *ContractService) ListContractsWithUnpaidJobs(ctx context.Context, caller *domain.Profile) ([]ports.ContractJobs, error) {
	filter, err := partyFilter(caller)
	if err != nil {
		return nil, err
	}

	jobs, err := s.store.ListUnpaidJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list unpaid jobs: %w", err)
	}
	byContract := make(map[string][]*domain.Job)
	for _, j := range jobs {
		byContract[j.ContractID] = append(byContract[j.ContractID], j)
	}
	if len(byContract) == 0 {
		return []ports.ContractJobs{}, nil
	}

	contracts, err := s.store.ListContracts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	out := make([]ports.ContractJobs, 0, len(byContract))
	for _, c := range contracts {
		if pending, ok := byContract[c.ID]; ok {
			out = append(out, ports.ContractJobs{Contract: c, Jobs: pending})
		}
	}
	s.logger.Debug().Str("profile_id", caller.ID).Int("contracts", len(out)).Msg("contracts with unpaid jobs listed")
	return out, nil
}

// partyFilter scopes queries to the side of the contract the caller is on.
func partyFilter(caller *domain.Profile) (ports.ContractFilter, error) {
	if caller == nil {
		return ports.ContractFilter{}, domain.ErrForbidden
	}
	switch caller.Role {
	case domain.RoleClient:
		return ports.ContractFilter{ClientID: caller.ID}, nil
	case domain.RoleContractor:
		return ports.ContractFilter{ContractorID: caller.ID}, nil
	default:
		return ports.ContractFilter{}, fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, caller.Role)
	}
}
