package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByDID(ctx context.Context, did string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	UpdateRoleStatus(ctx context.Context, id uuid.UUID, role, status string) error
	SetDID(ctx context.Context, id uuid.UUID, did string) error
}
