package inbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/identity"
	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/auth"
)

type mockMessageRepo struct {
	items map[uuid.UUID]*Message
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{items: make(map[uuid.UUID]*Message)}
}

func (m *mockMessageRepo) Create(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	stored := *msg
	m.items[msg.ID] = &stored
	return nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*Message, error) {
	msg, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("message not found")
	}
	copied := *msg
	return &copied, nil
}

func (m *mockMessageRepo) ListAll(_ context.Context) ([]*Message, error) {
	result := make([]*Message, 0)
	for _, msg := range m.items {
		copied := *msg
		result = append(result, &copied)
	}
	return result, nil
}

func (m *mockMessageRepo) ListByEmail(_ context.Context, email string) ([]*Message, error) {
	result := make([]*Message, 0)
	for _, msg := range m.items {
		if strings.EqualFold(msg.SenderEmail, email) {
			copied := *msg
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockMessageRepo) SetResponse(_ context.Context, id uuid.UUID, response string) (bool, error) {
	msg, ok := m.items[id]
	if !ok || msg.Response != nil {
		return false, nil
	}
	now := time.Now()
	msg.Response = &response
	msg.RespondedAt = &now
	return true, nil
}

type mockDirectory struct {
	users map[uuid.UUID]*identity.User
}

func (m *mockDirectory) Profile(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func newInboxFixture() (*Service, *mockMessageRepo, auth.Actor) {
	repo := newMockMessageRepo()
	sender := auth.Actor{ID: uuid.New(), Role: auth.RolePolicyholder}
	dir := &mockDirectory{users: map[uuid.UUID]*identity.User{
		sender.ID: {ID: sender.ID, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
	}}
	return NewService(repo, dir), repo, sender
}

func TestSend_ResolvesSenderFromAccount(t *testing.T) {
	svc, _, sender := newInboxFixture()

	m, err := svc.Send(context.Background(), sender, "Is dental covered?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.SenderName != "Ada Lovelace" {
		t.Errorf("expected resolved sender name, got %q", m.SenderName)
	}
	if m.SenderEmail != "ada@example.com" {
		t.Errorf("expected resolved sender email, got %q", m.SenderEmail)
	}
	if m.Answered() {
		t.Error("new message should not be answered")
	}
}

func TestSend_EmptyContent(t *testing.T) {
	svc, _, sender := newInboxFixture()

	_, err := svc.Send(context.Background(), sender, "   ")
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestListMine_OwnMessagesOnly(t *testing.T) {
	svc, repo, sender := newInboxFixture()
	if _, err := svc.Send(context.Background(), sender, "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	repo.items[uuid.New()] = &Message{SenderEmail: "other@example.com", Content: "not yours"}

	msgs, err := svc.ListMine(context.Background(), sender)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].SenderEmail != "ada@example.com" {
		t.Errorf("got someone else's message: %s", msgs[0].SenderEmail)
	}
}

func TestListMine_AdminSeesAll(t *testing.T) {
	svc, repo, sender := newInboxFixture()
	if _, err := svc.Send(context.Background(), sender, "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	repo.items[uuid.New()] = &Message{SenderEmail: "other@example.com", Content: "second"}

	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	msgs, err := svc.ListMine(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %d", len(msgs))
	}
}

func TestRespond_AdminOnly(t *testing.T) {
	svc, _, sender := newInboxFixture()
	m, err := svc.Send(context.Background(), sender, "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	_, err = svc.Respond(context.Background(), sender, m.ID, "ok")
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestRespond_AnswersOnce(t *testing.T) {
	svc, _, sender := newInboxFixture()
	m, err := svc.Send(context.Background(), sender, "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	answered, err := svc.Respond(context.Background(), admin, m.ID, "dental is covered on the plus plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !answered.Answered() || answered.RespondedAt == nil {
		t.Error("expected response and timestamp recorded")
	}

	_, err = svc.Respond(context.Background(), admin, m.ID, "second answer")
	if apperr.CodeOf(err) != apperr.CodeInvalidTransition {
		t.Errorf("expected invalid transition, got %v", err)
	}
}

func TestRespond_UnknownMessage(t *testing.T) {
	svc, _, _ := newInboxFixture()

	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	_, err := svc.Respond(context.Background(), admin, uuid.New(), "ok")
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRespond_EmptyResponse(t *testing.T) {
	svc, _, sender := newInboxFixture()
	m, err := svc.Send(context.Background(), sender, "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	_, err = svc.Respond(context.Background(), admin, m.ID, "")
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}
