package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job is a billable unit of work under a contract.
type Job struct {
	ID          string          `json:"id"`
	ContractID  string          `json:"contract_id"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Paid        bool            `json:"paid"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarkPaid moves the job from unpaid to paid. Paid is terminal.
func (j *Job) MarkPaid(at time.Time) error {
	if j.Paid {
		return ErrJobAlreadyPaid
	}
	at = at.UTC()
	j.Paid = true
	j.PaidAt = &at
	return nil
}

// JobDetail is a job joined with its contract and both contract parties.
type JobDetail struct {
	Job        Job
	Contract   Contract
	Client     Profile
	Contractor Profile
}
