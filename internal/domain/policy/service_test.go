package policy

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/platform/apperr"
)

type mockRepo struct {
	items map[uuid.UUID]*Policy
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Policy)}
}

func (m *mockRepo) Create(_ context.Context, p *Policy) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Policy, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("policy not found")
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Policy, int, error) {
	var result []*Policy
	for _, p := range m.items {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, len(result), nil
}

func validCreate() CreateInput {
	return CreateInput{
		Name:             "Family Health Plus",
		Description:      "Covers the whole family",
		Price:            4500,
		DurationMonths:   12,
		InsuranceCompany: "VeriMed Mutual",
		CoveredHospital:  "City General",
	}
}

func TestCreate_Success(t *testing.T) {
	svc := NewService(newMockRepo())

	p, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusActive {
		t.Errorf("expected active status, got %s", p.Status)
	}
	if p.DurationMonths != 12 {
		t.Errorf("expected 12 months, got %d", p.DurationMonths)
	}
}

func TestCreate_RequiresName(t *testing.T) {
	svc := NewService(newMockRepo())

	in := validCreate()
	in.Name = "  "
	_, err := svc.Create(context.Background(), in)
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestCreate_RejectsNonPositivePrice(t *testing.T) {
	svc := NewService(newMockRepo())

	in := validCreate()
	in.Price = 0
	_, err := svc.Create(context.Background(), in)
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestCreate_RejectsZeroDuration(t *testing.T) {
	svc := NewService(newMockRepo())

	in := validCreate()
	in.DurationMonths = 0
	_, err := svc.Create(context.Background(), in)
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Get(context.Background(), uuid.New())
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestList_ReturnsCreated(t *testing.T) {
	svc := NewService(newMockRepo())

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), validCreate()); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	items, total, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Errorf("expected 3 policies, got total=%d len=%d", total, len(items))
	}
}
