package credential

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/identity"
	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
)

type Service struct {
	credentials Repository
	now         func() time.Time
}

func NewService(credentials Repository) *Service {
	return &Service{credentials: credentials, now: time.Now}
}

// IssueInput is the record-procedure payload.
type IssueInput struct {
	SubjectDID         string `json:"subject_did"`
	ProcedureName      string `json:"procedure_name"`
	ProcedureTimestamp int64  `json:"procedure_timestamp"`
}

// Issue creates an immutable credential attesting to a procedure.
// Only hospital identities may issue; the issuer DID is taken from the
// authenticated actor, never from the payload.
func (s *Service) Issue(ctx context.Context, actor auth.Actor, in IssueInput) (*Credential, error) {
	if actor.Role != auth.RoleHospital {
		return nil, apperr.Forbidden("only hospitals can issue credentials")
	}
	if actor.DID == "" {
		return nil, apperr.Forbidden("issuing hospital has no registered DID")
	}
	if !identity.ValidDID(in.SubjectDID) {
		return nil, apperr.InvalidInput("subject_did must look like did:<method>:<identifier>")
	}
	if strings.TrimSpace(in.ProcedureName) == "" {
		return nil, apperr.InvalidInput("procedure_name is required")
	}
	if in.ProcedureTimestamp <= 0 {
		return nil, apperr.InvalidInput("procedure_timestamp must be a positive unix timestamp")
	}

	c := &Credential{
		Contexts:   DefaultContexts,
		Types:      DefaultTypes,
		IssuerDID:  actor.DID,
		SubjectDID: in.SubjectDID,
		Procedure: Procedure{
			Name:      strings.TrimSpace(in.ProcedureName),
			Timestamp: in.ProcedureTimestamp,
		},
		IssuanceDate: s.now(),
	}
	if err := s.credentials.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// FindBySubject lists a subject's credentials, newest first. An
// unknown DID yields an empty list, not an error.
func (s *Service) FindBySubject(ctx context.Context, subjectDID string) ([]*Credential, error) {
	if !identity.ValidDID(subjectDID) {
		return nil, apperr.InvalidInput("did must look like did:<method>:<identifier>")
	}
	return s.credentials.FindBySubject(ctx, subjectDID)
}

// Get resolves one credential by id; used by the claim engine to
// verify the evidence a claim references.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Credential, error) {
	return s.credentials.GetByID(ctx, id)
}
