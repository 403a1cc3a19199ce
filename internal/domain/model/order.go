package model

import (
	"net/mail"
	"strings"
	"time"

	"credits-engine/internal/domain"

	"github.com/oklog/ulid/v2"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderValidated OrderStatus = "validated"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsTerminal() bool { return s == OrderValidated || s == OrderCancelled }

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderValidated, OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is an edge of the order state machine.
// Only pending has outgoing edges.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return s == OrderPending && to.IsTerminal()
}

// Customer is the contact snapshot captured when an order is placed.
type Customer struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Country     string `json:"country"`
}

// Normalize trims every field.
func (c Customer) Normalize() Customer {
	return Customer{
		FirstName:   strings.TrimSpace(c.FirstName),
		LastName:    strings.TrimSpace(c.LastName),
		Email:       strings.TrimSpace(c.Email),
		PhoneNumber: strings.TrimSpace(c.PhoneNumber),
		Country:     strings.TrimSpace(c.Country),
	}
}

// Validate returns a ValidationError naming the first missing or malformed field.
func (c Customer) Validate() error {
	switch {
	case c.FirstName == "":
		return domain.NewValidationError("firstName", "required")
	case c.LastName == "":
		return domain.NewValidationError("lastName", "required")
	case c.Email == "":
		return domain.NewValidationError("email", "required")
	case c.PhoneNumber == "":
		return domain.NewValidationError("phoneNumber", "required")
	case c.Country == "":
		return domain.NewValidationError("country", "required")
	}
	// The email is the identity key: anything but a bare addr-spec is rejected.
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return domain.NewValidationError("email", "malformed address")
	}
	return nil
}

// Order is a customer's request to purchase a plan. Credits, Amount, Currency,
// ValidatedAt and UserID stay nil until the order is validated.
type Order struct {
	ID string `json:"id"`
	Customer
	PlanName    string      `json:"planName"`
	Status      OrderStatus `json:"status"`
	Credits     *int64      `json:"credits,omitempty"`
	Amount      *int64      `json:"amount,omitempty"`
	Currency    *string     `json:"currency,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	ValidatedAt *time.Time  `json:"validatedAt,omitempty"`
	UserID      *string     `json:"userRef,omitempty"`
}

// NewOrder builds a pending order with a time-sortable id.
func NewOrder(c Customer, planName string, now time.Time) (*Order, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	planName = strings.TrimSpace(planName)
	if planName == "" {
		return nil, domain.NewValidationError("planName", "required")
	}
	return &Order{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Customer:  c,
		PlanName:  planName,
		Status:    OrderPending,
		CreatedAt: now.UTC(),
	}, nil
}

func (o *Order) IsPending() bool { return o != nil && o.Status == OrderPending }

// ExpiredAt reports whether a pending order has reached ttl at now.
func (o *Order) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return o.IsPending() && !o.CreatedAt.After(now.Add(-ttl))
}

// Freeze records the economic terms taken from plan at validation time.
func (o *Order) Freeze(p *Plan, currency string, at time.Time) {
	credits, amount := p.CreditGrant, p.Price
	cur := currency
	if p.Currency != "" {
		cur = p.Currency
	}
	t := at.UTC()
	o.Credits = &credits
	o.Amount = &amount
	o.Currency = &cur
	o.ValidatedAt = &t
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Credits != nil {
		v := *o.Credits
		c.Credits = &v
	}
	if o.Amount != nil {
		v := *o.Amount
		c.Amount = &v
	}
	if o.Currency != nil {
		v := *o.Currency
		c.Currency = &v
	}
	if o.ValidatedAt != nil {
		v := *o.ValidatedAt
		c.ValidatedAt = &v
	}
	if o.UserID != nil {
		v := *o.UserID
		c.UserID = &v
	}
	return &c
}
