package inbox

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists contact messages.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListAll(ctx context.Context) ([]*Message, error)
	ListByEmail(ctx context.Context, email string) ([]*Message, error)
	// SetResponse records an admin response on a message that has not
	// been answered yet. It reports whether a row was updated.
	SetResponse(ctx context.Context, id uuid.UUID, response string) (bool, error)
}
