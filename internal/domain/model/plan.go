package model

import (
	"strings"
	"time"

	"credits-engine/internal/domain"

	"github.com/google/uuid"
)

// Plan is a catalog entry defining a price and a credit grant.
// Price is expressed in the smallest unit of Currency.
type Plan struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	CreditGrant int64     `json:"credits"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	Features    []string  `json:"features,omitempty"`
	Highlight   bool      `json:"highlight"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Matches reports whether nameOrID refers to this plan: exact id, or name
// compared case-insensitively.
func (p *Plan) Matches(nameOrID string) bool {
	if p == nil {
		return false
	}
	key := strings.TrimSpace(nameOrID)
	return p.ID == key || strings.EqualFold(p.Name, key)
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, price, creditGrant int64, currency string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "required")
	}
	if price < 0 {
		return nil, domain.NewValidationError("price", "must not be negative")
	}
	if creditGrant < 0 {
		return nil, domain.NewValidationError("credits", "must not be negative")
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Plan{
		ID:          id,
		Name:        name,
		Price:       price,
		CreditGrant: creditGrant,
		Currency:    strings.ToUpper(strings.TrimSpace(currency)),
		CreatedAt:   time.Now(),
	}, nil
}
