// Package registration is the ledger binding users to the policies
// they purchased. A registration carries the validity window used by
// the claim engine; registering also promotes the buyer to the
// policyholder role in the same transaction.
package registration

import (
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/policy"
)

const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// renewalWindow is how close to expiry a registration must be before
// the renewal suggestion fires.
const renewalWindow = 30 * 24 * time.Hour

// Registration maps to the policy_registrations table.
type Registration struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	PolicyID     uuid.UUID `db:"policy_id" json:"policy_id"`
	Status       string    `db:"status" json:"status"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the validity window has passed at t.
func (r *Registration) Expired(t time.Time) bool {
	return !r.ExpiresAt.After(t)
}

// RenewalDue reports whether the registration expires within the
// renewal window at t and has not yet expired. Derived at read time,
// never stored.
func (r *Registration) RenewalDue(t time.Time) bool {
	return !r.Expired(t) && r.ExpiresAt.Sub(t) <= renewalWindow
}

// View is a registration decorated with read-time display state.
type View struct {
	Registration
	DisplayStatus string         `json:"display_status"`
	RenewalDue    bool           `json:"renewal_due"`
	Policy        *policy.Policy `json:"policy,omitempty"`
}

// NewView computes the derived display fields as of t.
func NewView(r *Registration, p *policy.Policy, t time.Time) *View {
	v := &View{Registration: *r, Policy: p}
	switch {
	case r.Status == StatusCancelled:
		v.DisplayStatus = StatusCancelled
	case r.Expired(t):
		v.DisplayStatus = StatusExpired
	default:
		v.DisplayStatus = StatusActive
		v.RenewalDue = r.RenewalDue(t)
	}
	return v
}
