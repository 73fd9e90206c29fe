package inbox

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/identity"
	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
)

// Directory resolves a sender's profile from their account id.
type Directory interface {
	Profile(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	messages Repository
	users    Directory
}

func NewService(messages Repository, users Directory) *Service {
	return &Service{messages: messages, users: users}
}

// Send records a contact message. The sender's name and email come
// from the authenticated account, not the request.
func (s *Service) Send(ctx context.Context, actor auth.Actor, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "message content is required")
	}

	u, err := s.users.Profile(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	m := &Message{
		SenderName:  strings.TrimSpace(u.FirstName + " " + u.LastName),
		SenderEmail: u.Email,
		Content:     content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMine returns the caller's own messages; admins see every message.
func (s *Service) ListMine(ctx context.Context, actor auth.Actor) ([]*Message, error) {
	if actor.Role == auth.RoleAdmin {
		return s.messages.ListAll(ctx)
	}
	u, err := s.users.Profile(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.messages.ListByEmail(ctx, u.Email)
}

// Respond records an admin response. A message can be answered once.
func (s *Service) Respond(ctx context.Context, actor auth.Actor, id uuid.UUID, response string) (*Message, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, apperr.New(apperr.CodeForbidden, "only admins may respond to messages")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "response is required")
	}

	updated, err := s.messages.SetResponse(ctx, id, response)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Either the message does not exist or it was already answered.
		if _, err := s.messages.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperr.New(apperr.CodeInvalidTransition, "message has already been answered")
	}
	return s.messages.GetByID(ctx, id)
}
