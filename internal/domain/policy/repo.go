package policy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	List(ctx context.Context, limit, offset int) ([]*Policy, int, error)
}
