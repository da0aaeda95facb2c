package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// ExposurePolicy selects which contracts count toward a client's exposure.
type ExposurePolicy string

const (
	// ExposureAllContracts counts unpaid jobs on contracts of every status.
	ExposureAllContracts ExposurePolicy = "all_contracts"
	// ExposureActiveContracts ignores unpaid jobs on terminated contracts.
	ExposureActiveContracts ExposurePolicy = "active_contracts"
)

// ParseExposurePolicy converts a configuration value into an ExposurePolicy.
// An empty value selects ExposureAllContracts.
func ParseExposurePolicy(s string) (ExposurePolicy, error) {
	switch ExposurePolicy(s) {
	case "", ExposureAllContracts:
		return ExposureAllContracts, nil
	case ExposureActiveContracts:
		return ExposureActiveContracts, nil
	default:
		return "", fmt.Errorf("unknown exposure policy %q", s)
	}
}

// ExposureCalculator computes how much a client owes on unpaid jobs.
type ExposureCalculator struct {
	policy ExposurePolicy
}

func NewExposureCalculator(policy ExposurePolicy) *ExposureCalculator {
	if policy == "" {
		policy = ExposureAllContracts
	}
	return &ExposureCalculator{policy: policy}
}

// Policy returns the configured policy.
func (c *ExposureCalculator) Policy() ExposurePolicy {
	return c.policy
}

// Exposure sums the price of every unpaid job on the client's contracts.
// Pass the open transaction as r when the result guards a mutation.
func (c *ExposureCalculator) Exposure(ctx context.Context, r ports.LedgerReader, clientID string) (decimal.Decimal, error) {
	filter := ports.ContractFilter{ClientID: clientID}
	if c.policy == ExposureActiveContracts {
		filter.Statuses = domain.ActiveContractStatuses()
	}

	due, err := r.SumUnpaidJobPrices(ctx, filter)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exposure: %w", err)
	}
	if due.IsNegative() {
		return decimal.Zero, fmt.Errorf("exposure: negative unpaid total %s for client %s", due, clientID)
	}
	return due, nil
}
