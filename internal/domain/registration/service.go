package registration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/policy"
	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/db"
)

// Promoter elevates a user to the policyholder role. Implemented by
// the identity service.
type Promoter interface {
	PromoteToPolicyholder(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	registrations Repository
	catalog       policy.Repository
	promoter      Promoter
	tx            db.TxRunner
	now           func() time.Time
}

func NewService(registrations Repository, catalog policy.Repository, promoter Promoter, tx db.TxRunner) *Service {
	return &Service{
		registrations: registrations,
		catalog:       catalog,
		promoter:      promoter,
		tx:            tx,
		now:           time.Now,
	}
}

// Register enrolls the user in a policy. The expiry window uses the
// 30-day-month convention: durationMonths * 30 days from now. The
// registration insert and the role promotion commit atomically.
func (s *Service) Register(ctx context.Context, userID, policyID uuid.UUID) (*View, error) {
	p, err := s.catalog.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	exists, err := s.registrations.ActiveExists(ctx, userID, policyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.AlreadyRegistered("already registered for policy %q", p.Name)
	}

	now := s.now()
	reg := &Registration{
		UserID:       userID,
		PolicyID:     policyID,
		Status:       StatusActive,
		RegisteredAt: now,
		ExpiresAt:    now.Add(time.Duration(p.DurationMonths) * 30 * 24 * time.Hour),
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.registrations.ExpireStale(ctx, userID, policyID); err != nil {
			return err
		}
		if err := s.registrations.Create(ctx, reg); err != nil {
			return err
		}
		return s.promoter.PromoteToPolicyholder(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return NewView(reg, p, now), nil
}

// FindByID returns the registration together with its catalog policy.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*View, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.catalog.GetByID(ctx, reg.PolicyID)
	if err != nil {
		return nil, err
	}
	return NewView(reg, p, s.now()), nil
}

// Get returns the bare registration row, used by the claim engine for
// ownership and expiry checks.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return s.registrations.GetByID(ctx, id)
}

// ListForUser returns the user's registrations newest first, filtered
// by derived validity state, each with its catalog policy and renewal
// flag.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*View, int, error) {
	switch f {
	case FilterAll, FilterActive, FilterExpired, "":
	default:
		return nil, 0, apperr.InvalidInput("status filter must be active, expired or all")
	}
	if f == "" {
		f = FilterAll
	}

	regs, total, err := s.registrations.ListForUser(ctx, userID, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	views := make([]*View, 0, len(regs))
	for _, reg := range regs {
		p, err := s.catalog.GetByID(ctx, reg.PolicyID)
		if err != nil && apperr.CodeOf(err) != apperr.CodeNotFound {
			return nil, 0, err
		}
		views = append(views, NewView(reg, p, now))
	}
	return views, total, nil
}
