package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// Money fields are rendered as JSON strings to keep exact decimals.

type depositRequest struct {
	Amount json.RawMessage `json:"amount" validate:"required" swaggertype:"number" example:"12.50"`
}

// amount decodes the raw amount, accepting a JSON number or a numeric string.
func (r depositRequest) amount() (decimal.Decimal, error) {
	if string(r.Amount) == "null" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(r.Amount); err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount must be a number", domain.ErrInvalidAmount)
	}
	return d, nil
}

type profileResponse struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Profession string `json:"profession"`
	Type       string `json:"type"`
	Balance    string `json:"balance" example:"87.50"`
}

type depositResponse struct {
	Due    string          `json:"due" example:"50.00"`
	Source profileResponse `json:"source"`
	Target profileResponse `json:"target"`
}

type jobResponse struct {
	ID          string     `json:"id"`
	ContractID  string     `json:"contract_id"`
	Description string     `json:"description"`
	Price       string     `json:"price" example:"40.10"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type contractResponse struct {
	ID           string    `json:"id"`
	Terms        string    `json:"terms"`
	ClientID     string    `json:"client_id"`
	ContractorID string    `json:"contractor_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type contractJobsResponse struct {
	contractResponse
	Jobs []jobResponse `json:"jobs"`
}

func toProfileResponse(p domain.Profile) profileResponse {
	return profileResponse{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Profession: p.Profession,
		Type:       string(p.Role),
		Balance:    p.Balance.StringFixed(domain.MoneyScale),
	}
}

func toDepositResponse(r *ports.DepositResult) depositResponse {
	return depositResponse{
		Due:    r.Due.StringFixed(domain.MoneyScale),
		Source: toProfileResponse(r.Source),
		Target: toProfileResponse(r.Target),
	}
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:          j.ID,
		ContractID:  j.ContractID,
		Description: j.Description,
		Price:       j.Price.StringFixed(domain.MoneyScale),
		Paid:        j.Paid,
		PaidAt:      j.PaidAt,
		CreatedAt:   j.CreatedAt,
	}
}

func toJobResponses(jobs []*domain.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	return out
}

func toContractResponse(c *domain.Contract) contractResponse {
	return contractResponse{
		ID:           c.ID,
		Terms:        c.Terms,
		ClientID:     c.ClientID,
		ContractorID: c.ContractorID,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toContractResponses(contracts []*domain.Contract) []contractResponse {
	out := make([]contractResponse, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, toContractResponse(c))
	}
	return out
}

func toContractJobsResponses(items []ports.ContractJobs) []contractJobsResponse {
	out := make([]contractJobsResponse, 0, len(items))
	for _, it := range items {
		out = append(out, contractJobsResponse{
			contractResponse: toContractResponse(it.Contract),
			Jobs:             toJobResponses(it.Jobs),
		})
	}
	return out
}
