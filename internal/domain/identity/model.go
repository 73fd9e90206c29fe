// Package identity manages user and hospital accounts: signup, login
// (password and DID based), admin approval, and profile lookup. Every
// actor in the system is an identity row; hospitals are identities
// with role=hospital provisioned out of band.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles an identity can hold. A role only ever moves away from
// pending; it never reverts.
const (
	RolePending      = "pending"
	RolePolicyholder = "policyholder"
	RoleHospital     = "hospital"
	RoleAdmin        = "admin"
)

// Account statuses. Both "approved" and "active" permit login; the
// dual value is carried over from upstream data and both must be
// honored on the read path.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusActive   = "active"
	StatusRejected = "rejected"
)

// User maps to the users table.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	DID          *string    `db:"did" json:"did,omitempty"`
	Role         string     `db:"role" json:"role"`
	Status       string     `db:"status" json:"status"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Email        string     `db:"email" json:"email"`
	Username     *string    `db:"username" json:"username,omitempty"`
	NationalID   *string    `db:"national_id" json:"national_id,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approved_at,omitempty"`
}

// CanLogIn reports whether the account status permits authentication.
func (u *User) CanLogIn() bool {
	return u.Status == StatusApproved || u.Status == StatusActive
}

// DIDValue returns the identity's DID or "" when none is assigned.
func (u *User) DIDValue() string {
	if u.DID == nil {
		return ""
	}
	return *u.DID
}

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RolePending, RolePolicyholder, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive, StatusRejected:
		return true
	}
	return false
}

// ValidDID checks the did:<method>:<identifier> shape. DIDs are
// otherwise opaque; the ledger is the authority on their content.
func ValidDID(did string) bool {
	parts := strings.SplitN(did, ":", 3)
	return len(parts) == 3 && parts[0] == "did" && parts[1] != "" && parts[2] != ""
}
