package claim

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	ListAll(ctx context.Context, limit, offset int) ([]*AdminView, int, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Claim, error)
	ListByDID(ctx context.Context, did string) ([]*Claim, error)
	// UpdateStatusIfPending applies the transition only while the
	// stored status is still pending; it returns false when the row
	// was not updated (missing or already terminal).
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status string) (bool, error)
}
