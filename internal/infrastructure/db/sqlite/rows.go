package sqlite

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

type profileRow struct {
	id, firstName, lastName, profession, role string
	balance, createdAt, updatedAt             int64
}

func (r *profileRow) dest() []any {
	return []any{&r.id, &r.firstName, &r.lastName, &r.profession, &r.role, &r.balance, &r.createdAt, &r.updatedAt}
}

func (r *profileRow) toDomain() domain.Profile {
	return domain.Profile{
		ID:         r.id,
		FirstName:  r.firstName,
		LastName:   r.lastName,
		Profession: r.profession,
		Role:       domain.Role(r.role),
		Balance:    fromCents(r.balance),
		CreatedAt:  fromMillis(r.createdAt),
		UpdatedAt:  fromMillis(r.updatedAt),
	}
}

func scanProfile(s scanner) (*domain.Profile, error) {
	var r profileRow
	if err := s.Scan(r.dest()...); err != nil {
		return nil, err
	}
	p := r.toDomain()
	return &p, nil
}

type contractRow struct {
	id, terms, clientID, contractorID, status string
	createdAt, updatedAt                      int64
}

func (r *contractRow) dest() []any {
	return []any{&r.id, &r.terms, &r.clientID, &r.contractorID, &r.status, &r.createdAt, &r.updatedAt}
}

func (r *contractRow) toDomain() domain.Contract {
	return domain.Contract{
		ID:           r.id,
		Terms:        r.terms,
		ClientID:     r.clientID,
		ContractorID: r.contractorID,
		Status:       domain.ContractStatus(r.status),
		CreatedAt:    fromMillis(r.createdAt),
		UpdatedAt:    fromMillis(r.updatedAt),
	}
}

func scanContract(s scanner) (*domain.Contract, error) {
	var r contractRow
	if err := s.Scan(r.dest()...); err != nil {
		return nil, err
	}
	c := r.toDomain()
	return &c, nil
}

type jobRow struct {
	id, contractID, description string
	price                       int64
	paid                        bool
	paidAt                      sql.NullInt64
	createdAt                   int64
}

func (r *jobRow) dest() []any {
	return []any{&r.id, &r.contractID, &r.description, &r.price, &r.paid, &r.paidAt, &r.createdAt}
}

func (r *jobRow) toDomain() domain.Job {
	j := domain.Job{
		ID:          r.id,
		ContractID:  r.contractID,
		Description: r.description,
		Price:       fromCents(r.price),
		Paid:        r.paid,
		CreatedAt:   fromMillis(r.createdAt),
	}
	if r.paidAt.Valid {
		at := fromMillis(r.paidAt.Int64)
		j.PaidAt = &at
	}
	return j
}

// toCents converts an amount with at most domain.MoneyScale decimals.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(domain.MoneyScale).Round(0).IntPart()
}

// floorCents rounds up so a floor between cents is never undercut.
func floorCents(d decimal.Decimal) int64 {
	return d.Shift(domain.MoneyScale).Ceil().IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -domain.MoneyScale)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func stamps(created, updated time.Time) (int64, int64) {
	if created.IsZero() {
		created = time.Now()
	}
	if updated.IsZero() {
		updated = created
	}
	return toMillis(created), toMillis(updated)
}
