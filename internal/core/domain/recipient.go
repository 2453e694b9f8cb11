package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Recipient is a party who must act on an instance
type Recipient struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`

	// Role is a free-form label shown to the owner (e.g. "Buyer")
	Role string `json:"role,omitempty"`

	// Rank is the 1-based signing position. Nil means the recipient is unordered.
	Rank *int `json:"rank,omitempty"`
}

// HasRank reports whether the recipient carries a signing position
func (r *Recipient) HasRank() bool {
	return r.Rank != nil
}

// RankValue returns the rank, or 0 when the recipient is unordered
func (r *Recipient) RankValue() int {
	if r.Rank == nil {
		return 0
	}
	return *r.Rank
}

// Validate checks the recipient's own fields
func (r *Recipient) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: recipient id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: recipient %s name is required", ErrInvalidInput, r.ID)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: recipient %s email %q is invalid", ErrInvalidInput, r.ID, r.Email)
	}
	if r.Rank != nil && *r.Rank < 1 {
		return fmt.Errorf("%w: recipient %s rank must be >= 1", ErrConfiguration, r.ID)
	}
	return nil
}

// Clone returns a deep copy of the recipient
func (r *Recipient) Clone() *Recipient {
	c := *r
	if r.Rank != nil {
		rank := *r.Rank
		c.Rank = &rank
	}
	return &c
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
