package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

// ContractFilter scopes contract and job queries.
// Empty fields do not filter; empty Statuses means every status.
type ContractFilter struct {
	ClientID     string
	ContractorID string
	Statuses     []domain.ContractStatus
}

// LedgerReader is the read side shared by the store and an open transaction.
type LedgerReader interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	// GetJob returns the job joined with its contract and both contract parties.
	GetJob(ctx context.Context, id string) (*domain.JobDetail, error)
	GetContract(ctx context.Context, id string) (*domain.Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]*domain.Contract, error)
	// ListUnpaidJobs returns unpaid jobs whose contract matches filter.
	ListUnpaidJobs(ctx context.Context, filter ContractFilter) ([]*domain.Job, error)
	// SumUnpaidJobPrices aggregates the price of unpaid jobs whose contract matches filter.
	SumUnpaidJobPrices(ctx context.Context, filter ContractFilter) (decimal.Decimal, error)
}

// LedgerTx is a single store transaction. Writes are conditional so that a
// stale read can never drive a balance negative or pay a job twice.
type LedgerTx interface {
	LedgerReader
	// DebitBalance subtracts amount from the profile balance only if the
	// remaining balance stays >= floor. Returns domain.ErrBalanceConflict otherwise.
	DebitBalance(ctx context.Context, profileID string, amount, floor decimal.Decimal) error
	CreditBalance(ctx context.Context, profileID string, amount decimal.Decimal) error
	// MarkJobPaid flips an unpaid job to paid. Returns domain.ErrJobAlreadyPaid
	// when the job is already paid.
	MarkJobPaid(ctx context.Context, jobID string, paidAt time.Time) error
}

// LedgerStore is the durable storage of profiles, contracts and jobs.
type LedgerStore interface {
	LedgerReader
	// WithinTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on context expiry.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	Ping(ctx context.Context) error
}

// LedgerSeeder creates fixture records. Record management is owned outside
// the ledger core; the seeder exists for bootstrap and tests.
type LedgerSeeder interface {
	CreateProfile(ctx context.Context, p *domain.Profile) error
	CreateContract(ctx context.Context, c *domain.Contract) error
	CreateJob(ctx context.Context, j *domain.Job) error
}
