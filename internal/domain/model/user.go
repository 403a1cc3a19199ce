package model

import (
	"net/mail"
	"strings"
	"time"

	"credits-engine/internal/domain"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an account holding a credit balance. Email is stored canonicalized
// and is the identity key used to merge orders.
type User struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	PhoneNumber      string     `json:"phoneNumber"`
	Country          string     `json:"country"`
	Status           UserStatus `json:"status"`
	ActivePlanID     *string    `json:"activePlanId,omitempty"`
	CreditsRemaining int64      `json:"creditsRemaining"`
	ActivationCode   *string    `json:"activationCode,omitempty"`
	OrderIDs         []string   `json:"orders"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// CanonicalEmail is the single normalization used for identity matching:
// surrounding whitespace removed, whole address lower-cased. A display-name
// form such as "Ada <ada@x.com>" collapses to its bare address.
func CanonicalEmail(email string) string {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err == nil {
		email = addr.Address
	}
	return strings.ToLower(email)
}

// NewUserFromOrder seeds an active user from a validated order's snapshot.
func NewUserFromOrder(o *Order, planID string, credits int64, now time.Time) *User {
	pid := planID
	return &User{
		ID:               uuid.NewString(),
		FirstName:        o.FirstName,
		LastName:         o.LastName,
		Email:            CanonicalEmail(o.Email),
		PhoneNumber:      o.PhoneNumber,
		Country:          o.Country,
		Status:           UserActive,
		ActivePlanID:     &pid,
		CreditsRemaining: credits,
		OrderIDs:         []string{o.ID},
		CreatedAt:        now.UTC(),
	}
}

// NewPendingUser builds a pre-registered account with no plan and no credits.
func NewPendingUser(c Customer, now time.Time) (*User, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &User{
		ID:          uuid.NewString(),
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       CanonicalEmail(c.Email),
		PhoneNumber: c.PhoneNumber,
		Country:     c.Country,
		Status:      UserPending,
		OrderIDs:    []string{},
		CreatedAt:   now.UTC(),
	}, nil
}

// CheckCost validates a consumption cost.
func CheckCost(cost int64) error {
	if cost <= 0 {
		return domain.NewValidationError("cost", "must be positive")
	}
	return nil
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ActivePlanID != nil {
		v := *u.ActivePlanID
		c.ActivePlanID = &v
	}
	if u.ActivationCode != nil {
		v := *u.ActivationCode
		c.ActivationCode = &v
	}
	c.OrderIDs = append([]string{}, u.OrderIDs...)
	return &c
}
