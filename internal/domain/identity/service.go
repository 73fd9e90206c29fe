package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
)

type Service struct {
	users  UserRepository
	issuer *auth.Issuer
}

func NewService(users UserRepository, issuer *auth.Issuer) *Service {
	return &Service{users: users, issuer: issuer}
}

// SignupInput is the self-service registration payload.
type SignupInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	NationalID string `json:"national_id"`
	DID        string `json:"did"`
}

// LoginResult carries the issued token with the authenticated user.
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Signup creates a pending identity. The account cannot log in until
// an admin approves it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, apperr.InvalidInput("first_name and last_name are required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, apperr.InvalidInput("email is required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.InvalidInput("password must be at least 8 characters")
	}
	if in.DID != "" && !ValidDID(in.DID) {
		return nil, apperr.InvalidInput("did must look like did:<method>:<identifier>")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	u := &User{
		Role:         RolePending,
		Status:       StatusPending,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
	}
	if in.DID != "" {
		u.DID = &in.DID
	}
	if in.NationalID != "" {
		nid := strings.TrimSpace(in.NationalID)
		u.NationalID = &nid
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates by email and password. Accounts whose status is
// neither approved nor active are refused even with a correct
// password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperr.InvalidInput("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(u)
}

// LoginDID authenticates by DID alone, the wallet flow: possession of
// the DID's wallet was already proven to the ledger at provisioning
// time, so the server only resolves the identity and checks status.
func (s *Service) LoginDID(ctx context.Context, did string) (*LoginResult, error) {
	if !ValidDID(did) {
		return nil, apperr.InvalidInput("did must look like did:<method>:<identifier>")
	}
	u, err := s.users.GetByDID(ctx, did)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	return s.issue(u)
}

// LoginHospital authenticates a hospital account by username and
// password.
func (s *Service) LoginHospital(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperr.InvalidInput("username and password are required")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if u.Role != RoleHospital {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(u)
}

func (s *Service) issue(u *User) (*LoginResult, error) {
	if !u.CanLogIn() {
		return nil, apperr.Forbidden("account is not approved")
	}
	token, err := s.issuer.Token(auth.Actor{ID: u.ID, DID: u.DIDValue(), Role: u.Role})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &LoginResult{Token: token, User: u}, nil
}

// Profile returns the identity for the given id.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns a page of identities, newest first.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// Approve applies an admin approval decision: assigns the role and
// status, and optionally binds a DID for accounts that signed up
// without one. An elevated role never reverts and never changes to a
// different elevated role; a bound DID never changes either.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, role, status, did string) (*User, error) {
	if !ValidRole(role) {
		return nil, apperr.InvalidInput("unknown role %q", role)
	}
	if !ValidStatus(status) {
		return nil, apperr.InvalidInput("unknown status %q", status)
	}
	if did != "" && !ValidDID(did) {
		return nil, apperr.InvalidInput("malformed DID %q", did)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RolePending && role != u.Role {
		return nil, apperr.InvalidInput("role %q is already assigned and cannot change", u.Role)
	}
	if did != "" && u.DIDValue() != "" && !strings.EqualFold(u.DIDValue(), did) {
		return nil, apperr.InvalidInput("a DID is already bound to this account")
	}

	if err := s.users.UpdateRoleStatus(ctx, id, role, status); err != nil {
		return nil, err
	}
	if did != "" && u.DIDValue() == "" {
		if err := s.users.SetDID(ctx, id, did); err != nil {
			return nil, err
		}
	}
	return s.users.GetByID(ctx, id)
}

// PromoteToPolicyholder elevates a pending identity upon its first
// policy registration. Already-elevated roles are left untouched.
func (s *Service) PromoteToPolicyholder(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role != RolePending {
		return nil
	}
	status := u.Status
	if status == StatusPending {
		status = StatusActive
	}
	return s.users.UpdateRoleStatus(ctx, id, RolePolicyholder, status)
}

// CreateHospital provisions a hospital identity with an
// already-registered DID. Used by the provisioning CLI, not exposed
// over HTTP.
func (s *Service) CreateHospital(ctx context.Context, name, username, email, password, did string) (*User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(username) == "" {
		return nil, apperr.InvalidInput("name and username are required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, apperr.InvalidInput("email is required")
	}
	if len(password) < 8 {
		return nil, apperr.InvalidInput("password must be at least 8 characters")
	}
	if !ValidDID(did) {
		return nil, apperr.InvalidInput("did must look like did:<method>:<identifier>")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	uname := strings.TrimSpace(username)
	u := &User{
		DID:          &did,
		Role:         RoleHospital,
		Status:       StatusApproved,
		FirstName:    strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     &uname,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
