package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

// Money is persisted as Decimal128 so $inc, $gte and $sum stay exact.

type profileDoc struct {
	ID         string               `bson:"_id"`
	FirstName  string               `bson:"first_name"`
	LastName   string               `bson:"last_name"`
	Profession string               `bson:"profession"`
	Role       domain.Role          `bson:"type"`
	Balance    primitive.Decimal128 `bson:"balance"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

type contractDoc struct {
	ID           string                `bson:"_id"`
	Terms        string                `bson:"terms"`
	ClientID     string                `bson:"client_id"`
	ContractorID string                `bson:"contractor_id"`
	Status       domain.ContractStatus `bson:"status"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

type jobDoc struct {
	ID          string               `bson:"_id"`
	ContractID  string               `bson:"contract_id"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Paid        bool                 `bson:"paid"`
	PaidAt      *time.Time           `bson:"paid_at,omitempty"`
	CreatedAt   time.Time            `bson:"created_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func newProfileDoc(p *domain.Profile) (profileDoc, error) {
	bal, err := toDecimal128(p.Balance)
	if err != nil {
		return profileDoc{}, err
	}
	return profileDoc{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Profession: p.Profession,
		Role:       p.Role,
		Balance:    bal,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}, nil
}

func (d profileDoc) toDomain() (*domain.Profile, error) {
	bal, err := fromDecimal128(d.Balance)
	if err != nil {
		return nil, err
	}
	return &domain.Profile{
		ID:         d.ID,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Profession: d.Profession,
		Role:       d.Role,
		Balance:    bal,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func newContractDoc(c *domain.Contract) contractDoc {
	return contractDoc{
		ID:           c.ID,
		Terms:        c.Terms,
		ClientID:     c.ClientID,
		ContractorID: c.ContractorID,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (d contractDoc) toDomain() *domain.Contract {
	return &domain.Contract{
		ID:           d.ID,
		Terms:        d.Terms,
		ClientID:     d.ClientID,
		ContractorID: d.ContractorID,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func newJobDoc(j *domain.Job) (jobDoc, error) {
	price, err := toDecimal128(j.Price)
	if err != nil {
		return jobDoc{}, err
	}
	return jobDoc{
		ID:          j.ID,
		ContractID:  j.ContractID,
		Description: j.Description,
		Price:       price,
		Paid:        j.Paid,
		PaidAt:      j.PaidAt,
		CreatedAt:   j.CreatedAt,
	}, nil
}

func (d jobDoc) toDomain() (*domain.Job, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Job{
		ID:          d.ID,
		ContractID:  d.ContractID,
		Description: d.Description,
		Price:       price,
		Paid:        d.Paid,
		PaidAt:      d.PaidAt,
		CreatedAt:   d.CreatedAt,
	}, nil
}
