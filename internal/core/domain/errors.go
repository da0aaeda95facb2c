package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced by the balance operations.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("access forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientFunds   = errors.New("insufficient funds: balance")
	ErrInsufficientReserve = errors.New("insufficient funds: due")
	ErrTransactionFailure  = errors.New("transaction failed")
	// ErrCommitUnknown means the store could not confirm whether a commit applied.
	ErrCommitUnknown = errors.New("transaction commit outcome unknown")
)

var (
	ErrProfileNotFound  = fmt.Errorf("profile %w", ErrNotFound)
	ErrJobNotFound      = fmt.Errorf("job %w", ErrNotFound)
	ErrContractNotFound = fmt.Errorf("contract %w", ErrNotFound)

	ErrSelfDeposit     = fmt.Errorf("%w: cannot deposit to own profile", ErrForbidden)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrTargetNotClient = fmt.Errorf("%w: target profile is not a client", ErrValidation)
	ErrReplayMismatch  = fmt.Errorf("%w: idempotency key reused with a different request", ErrValidation)
)

// Conflicts reported by conditional store updates.
var (
	ErrJobAlreadyPaid  = errors.New("job already paid")
	ErrBalanceConflict = errors.New("balance guard not satisfied")
)
