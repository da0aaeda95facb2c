package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

// DepositInput carries a client-to-client transfer request.
type DepositInput struct {
	Caller   *domain.Profile
	TargetID string
	Amount   decimal.Decimal
	// IdempotencyKey is optional. A repeated key returns the first result.
	IdempotencyKey string
}

// DepositResult is returned by a successful deposit.
type DepositResult struct {
	Due    decimal.Decimal `json:"due"`
	Source domain.Profile  `json:"source"`
	Target domain.Profile  `json:"target"`
	// Replayed is true when the result came from the idempotency cache.
	Replayed bool `json:"-"`
}

// BalanceService defines the money-moving use cases.
type BalanceService interface {
	PayJob(ctx context.Context, caller *domain.Profile, jobID string) (*domain.Job, error)
	Deposit(ctx context.Context, input DepositInput) (*DepositResult, error)
}
