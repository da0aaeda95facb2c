package domain

import "time"

// ContractStatus represents the lifecycle state of a contract.
type ContractStatus string

const (
	ContractNew        ContractStatus = "new"
	ContractInProgress ContractStatus = "in_progress"
	ContractTerminated ContractStatus = "terminated"
)

// ActiveContractStatuses lists the statuses of contracts still being worked on.
func ActiveContractStatuses() []ContractStatus {
	return []ContractStatus{ContractNew, ContractInProgress}
}

// Valid reports whether s is a known contract status.
func (s ContractStatus) Valid() bool {
	switch s {
	case ContractNew, ContractInProgress, ContractTerminated:
		return true
	}
	return false
}

// Contract links one client and one contractor. It is read-only for the ledger.
type Contract struct {
	ID           string         `json:"id"`
	Terms        string         `json:"terms"`
	ClientID     string         `json:"client_id"`
	ContractorID string         `json:"contractor_id"`
	Status       ContractStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// HasParty reports whether the profile is the client or the contractor of c.
func (c *Contract) HasParty(profileID string) bool {
	return c.ClientID == profileID || c.ContractorID == profileID
}
