package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the kind of account a profile represents.
type Role string

const (
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
)

// ParseRole converts a raw role string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleContractor:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// Profile is an account holding a balance. Balance is only mutated inside a
// ledger transaction.
type Profile struct {
	ID         string          `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Profession string          `json:"profession"`
	Role       Role            `json:"type"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsClient reports whether the profile has the client role.
func (p *Profile) IsClient() bool {
	return p != nil && p.Role == RoleClient
}
