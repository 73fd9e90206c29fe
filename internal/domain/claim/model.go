// Package claim implements the payout claim state machine. A claim is
// filed by a policyholder against one of their policy registrations,
// evidenced by a credential issued to their DID, and moves
// pending -> approved | rejected under admin control. Terminal states
// are immutable.
package claim

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Claim maps to the claims table. UserDID is denormalized at filing
// time for DID-indexed lookup.
type Claim struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	UserDID        string    `db:"user_did" json:"user_did"`
	RegistrationID uuid.UUID `db:"registration_id" json:"registration_id"`
	CredentialID   uuid.UUID `db:"credential_id" json:"credential_id"`
	Amount         float64   `db:"amount" json:"amount"`
	Description    string    `db:"description" json:"description"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the claim has reached a final status.
func (c *Claim) Terminal() bool {
	return c.Status == StatusApproved || c.Status == StatusRejected
}

// TerminalStatus reports whether s is a valid adjudication outcome.
func TerminalStatus(s string) bool {
	return s == StatusApproved || s == StatusRejected
}

// AdminView is a claim joined with filer and policy display fields for
// the admin review list. A read-side convenience, not a model change.
type AdminView struct {
	Claim
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	PolicyName string `json:"policy_name"`
}
