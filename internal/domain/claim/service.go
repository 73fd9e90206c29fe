package claim

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/credential"
	"github.com/verimed/insure/internal/domain/registration"
	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
)

// RegistrationStore resolves registrations for ownership and expiry
// checks. Implemented by the registration service.
type RegistrationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*registration.Registration, error)
}

// CredentialStore resolves the evidence a claim references.
// Implemented by the credential service.
type CredentialStore interface {
	Get(ctx context.Context, id uuid.UUID) (*credential.Credential, error)
}

type Service struct {
	claims        Repository
	registrations RegistrationStore
	credentials   CredentialStore
	now           func() time.Time
}

func NewService(claims Repository, registrations RegistrationStore, credentials CredentialStore) *Service {
	return &Service{
		claims:        claims,
		registrations: registrations,
		credentials:   credentials,
		now:           time.Now,
	}
}

// FileInput is the claim filing payload.
type FileInput struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	CredentialID   uuid.UUID `json:"credential_id"`
	Amount         float64   `json:"amount"`
	Description    string    `json:"description"`
}

// File validates and persists a new pending claim. The registration
// must belong to the filer and still be within its validity window,
// and the referenced credential must have been issued to the filer's
// DID; evidence issued to anyone else is rejected outright.
func (s *Service) File(ctx context.Context, actor auth.Actor, in FileInput) (*Claim, error) {
	if in.Amount <= 0 {
		return nil, apperr.InvalidInput("amount must be positive")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperr.InvalidInput("description is required")
	}
	if in.RegistrationID == uuid.Nil {
		return nil, apperr.InvalidInput("registration_id is required")
	}
	if in.CredentialID == uuid.Nil {
		return nil, apperr.InvalidInput("credential_id is required")
	}
	if actor.DID == "" {
		return nil, apperr.Forbidden("filer has no registered DID")
	}

	reg, err := s.registrations.Get(ctx, in.RegistrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != actor.ID {
		return nil, apperr.Forbidden("registration does not belong to you")
	}
	if reg.Expired(s.now()) {
		return nil, apperr.PolicyExpired("policy registration expired on %s", reg.ExpiresAt.Format("2006-01-02"))
	}

	cred, err := s.credentials.Get(ctx, in.CredentialID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(cred.SubjectDID, actor.DID) {
		return nil, apperr.Forbidden("credential was not issued to your DID")
	}

	c := &Claim{
		UserID:         actor.ID,
		UserDID:        actor.DID,
		RegistrationID: in.RegistrationID,
		CredentialID:   in.CredentialID,
		Amount:         in.Amount,
		Description:    strings.TrimSpace(in.Description),
		Status:         StatusPending,
	}
	if err := s.claims.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListAll returns every claim with display fields, for admin review.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*AdminView, int, error) {
	return s.claims.ListAll(ctx, limit, offset)
}

// ListForUser returns the user's claims, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Claim, error) {
	return s.claims.ListForUser(ctx, userID)
}

// ListByDID looks up claims by the denormalized filer DID,
// case-insensitively. Zero claims is a normal state: an empty slice,
// never an error.
func (s *Service) ListByDID(ctx context.Context, did string) ([]*Claim, error) {
	if strings.TrimSpace(did) == "" {
		return nil, apperr.InvalidInput("did is required")
	}
	return s.claims.ListByDID(ctx, did)
}

// UpdateStatus adjudicates a pending claim. Only admins may call it;
// the conditional write guarantees a claim that already reached a
// terminal state is never overwritten, whichever admin commits first
// wins and the loser gets InvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status string) (*Claim, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, apperr.Forbidden("only admins can adjudicate claims")
	}
	if !TerminalStatus(status) {
		return nil, apperr.InvalidInput("status must be approved or rejected")
	}

	updated, err := s.claims.UpdateStatusIfPending(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		c, err := s.claims.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidTransition("claim is already %s", c.Status)
	}
	return s.claims.GetByID(ctx, id)
}
