package registration

import (
	"context"

	"github.com/google/uuid"
)

// Filter selects registrations by their derived validity state.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterActive  Filter = "active"
	FilterExpired Filter = "expired"
)

type Repository interface {
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)
	// ActiveExists reports whether the user already holds an
	// unexpired registration for the policy.
	ActiveExists(ctx context.Context, userID, policyID uuid.UUID) (bool, error)
	// ExpireStale flips the user's lapsed registrations for the
	// policy to expired so a renewal can take the active slot.
	ExpireStale(ctx context.Context, userID, policyID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Registration, int, error)
}
