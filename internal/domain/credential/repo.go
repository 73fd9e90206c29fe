package credential

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*Credential, error)
	// FindBySubject returns the subject's credentials ordered by
	// issuance date descending. DID comparison is case-insensitive.
	FindBySubject(ctx context.Context, subjectDID string) ([]*Credential, error)
}
