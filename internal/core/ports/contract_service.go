package ports

import (
	"context"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

// ContractJobs pairs a contract with its unpaid jobs.
type ContractJobs struct {
	Contract *domain.Contract
	Jobs     []*domain.Job
}

// ContractService defines the read-only queries over contracts and jobs.
// Every query is scoped to contracts the caller is a party to.
type ContractService interface {
	GetContract(ctx context.Context, caller *domain.Profile, id string) (*domain.Contract, error)
	ListContracts(ctx context.Context, caller *domain.Profile) ([]*domain.Contract, error)
	ListUnpaidJobs(ctx context.Context, caller *domain.Profile) ([]*domain.Job, error)
	// ListContractsWithUnpaidJobs returns the caller's contracts, in any
	// status, that still have at least one unpaid job.
	ListContractsWithUnpaidJobs(ctx context.Context, caller *domain.Profile) ([]ContractJobs, error)
}
