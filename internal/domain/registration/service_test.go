package registration

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verimed/insure/internal/domain/policy"
	"github.com/verimed/insure/internal/platform/apperr"
)

// -- Mocks --

type mockRegRepo struct {
	items map[uuid.UUID]*Registration
	now   func() time.Time
}

func newMockRegRepo(now func() time.Time) *mockRegRepo {
	return &mockRegRepo{items: make(map[uuid.UUID]*Registration), now: now}
}

func (m *mockRegRepo) Create(_ context.Context, r *Registration) error {
	// Mirrors the partial unique index: only one row per (user, policy)
	// may hold status 'active', no matter how far past expiry it is.
	for _, existing := range m.items {
		if existing.UserID == r.UserID && existing.PolicyID == r.PolicyID && existing.Status == StatusActive {
			return apperr.AlreadyRegistered("already registered for this policy")
		}
	}
	r.ID = uuid.New()
	m.items[r.ID] = r
	return nil
}

func (m *mockRegRepo) GetByID(_ context.Context, id uuid.UUID) (*Registration, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("registration not found")
	}
	return r, nil
}

func (m *mockRegRepo) ActiveExists(_ context.Context, userID, policyID uuid.UUID) (bool, error) {
	now := m.now()
	for _, r := range m.items {
		if r.UserID == userID && r.PolicyID == policyID && r.Status == StatusActive && r.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRegRepo) ExpireStale(_ context.Context, userID, policyID uuid.UUID) error {
	now := m.now()
	for _, r := range m.items {
		if r.UserID == userID && r.PolicyID == policyID && r.Status == StatusActive && !r.ExpiresAt.After(now) {
			r.Status = StatusExpired
		}
	}
	return nil
}

func (m *mockRegRepo) ListForUser(_ context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Registration, int, error) {
	now := m.now()
	var result []*Registration
	for _, r := range m.items {
		if r.UserID != userID {
			continue
		}
		switch f {
		case FilterActive:
			if r.Status != StatusActive || !r.ExpiresAt.After(now) {
				continue
			}
		case FilterExpired:
			if r.ExpiresAt.After(now) {
				continue
			}
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RegisteredAt.After(result[j].RegisteredAt)
	})
	return result, len(result), nil
}

type mockCatalog struct {
	items map[uuid.UUID]*policy.Policy
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{items: make(map[uuid.UUID]*policy.Policy)}
}

func (m *mockCatalog) Create(_ context.Context, p *policy.Policy) error {
	p.ID = uuid.New()
	m.items[p.ID] = p
	return nil
}

func (m *mockCatalog) GetByID(_ context.Context, id uuid.UUID) (*policy.Policy, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("policy not found")
	}
	return p, nil
}

func (m *mockCatalog) List(_ context.Context, limit, offset int) ([]*policy.Policy, int, error) {
	var result []*policy.Policy
	for _, p := range m.items {
		result = append(result, p)
	}
	return result, len(result), nil
}

type mockPromoter struct {
	promoted []uuid.UUID
	fail     error
}

func (m *mockPromoter) PromoteToPolicyholder(_ context.Context, id uuid.UUID) error {
	if m.fail != nil {
		return m.fail
	}
	m.promoted = append(m.promoted, id)
	return nil
}

// passthroughRunner executes the transactional function directly.
type passthroughRunner struct{}

func (passthroughRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	regs     *mockRegRepo
	catalog  *mockCatalog
	promoter *mockPromoter
	now      time.Time
}

func newFixture() *fixture {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		regs:     nil,
		catalog:  newMockCatalog(),
		promoter: &mockPromoter{},
		now:      now,
	}
	f.regs = newMockRegRepo(func() time.Time { return f.now })
	f.svc = NewService(f.regs, f.catalog, f.promoter, passthroughRunner{})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) policyWithDuration(months int) *policy.Policy {
	p := &policy.Policy{Name: "Family Health Plus", Price: 4500, DurationMonths: months, Status: policy.StatusActive}
	f.catalog.Create(context.Background(), p)
	return p
}

// -- Register --

func TestRegister_ExpiryUsesThirtyDayMonths(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(6)
	userID := uuid.New()

	v, err := f.svc.Register(context.Background(), userID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := f.now.Add(180 * 24 * time.Hour)
	if !v.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, v.ExpiresAt)
	}
	if v.Status != StatusActive {
		t.Errorf("expected active, got %s", v.Status)
	}
}

func TestRegister_DuplicateRejected(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(12)
	userID := uuid.New()

	if _, err := f.svc.Register(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	_, err := f.svc.Register(context.Background(), userID, p.ID)
	if apperr.CodeOf(err) != apperr.CodeAlreadyRegistered {
		t.Errorf("expected already registered, got %v", err)
	}
}

func TestRegister_RenewalAfterExpiry(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(1)
	userID := uuid.New()

	first, err := f.svc.Register(context.Background(), userID, p.ID)
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	f.now = f.now.Add(31 * 24 * time.Hour)

	renewed, err := f.svc.Register(context.Background(), userID, p.ID)
	if err != nil {
		t.Fatalf("renewal after expiry failed: %v", err)
	}
	if renewed.ID == first.ID {
		t.Fatal("renewal should create a new registration row")
	}
	if renewed.Status != StatusActive {
		t.Errorf("expected renewed registration active, got %s", renewed.Status)
	}

	old, err := f.regs.GetByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("lapsed registration disappeared: %v", err)
	}
	if old.Status != StatusExpired {
		t.Errorf("lapsed registration should vacate the active slot, status is %s", old.Status)
	}
}

func TestRegister_SameUserDifferentPolicy(t *testing.T) {
	f := newFixture()
	p1 := f.policyWithDuration(12)
	p2 := f.policyWithDuration(6)
	userID := uuid.New()

	if _, err := f.svc.Register(context.Background(), userID, p1.ID); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := f.svc.Register(context.Background(), userID, p2.ID); err != nil {
		t.Fatalf("second policy registration failed: %v", err)
	}
}

func TestRegister_UnknownPolicy(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Register(context.Background(), uuid.New(), uuid.New())
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRegister_PromotesUser(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(12)
	userID := uuid.New()

	if _, err := f.svc.Register(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if len(f.promoter.promoted) != 1 || f.promoter.promoted[0] != userID {
		t.Errorf("expected promotion of %s, got %v", userID, f.promoter.promoted)
	}
}

func TestRegister_PromotionFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.promoter.fail = apperr.Storage(context.DeadlineExceeded)
	p := f.policyWithDuration(12)

	_, err := f.svc.Register(context.Background(), uuid.New(), p.ID)
	if apperr.CodeOf(err) != apperr.CodeStorage {
		t.Errorf("expected storage error, got %v", err)
	}
}

// -- Listing and views --

func TestListForUser_FilterActive(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(12)
	userID := uuid.New()

	if _, err := f.svc.Register(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	// A second registration that expired long ago.
	f.regs.Create(context.Background(), &Registration{
		UserID:       userID,
		PolicyID:     p.ID,
		Status:       StatusActive,
		RegisteredAt: f.now.Add(-500 * 24 * time.Hour),
		ExpiresAt:    f.now.Add(-140 * 24 * time.Hour),
	})

	active, total, err := f.svc.ListForUser(context.Background(), userID, FilterActive, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(active) != 1 {
		t.Fatalf("expected 1 active registration, got total=%d len=%d", total, len(active))
	}
	if active[0].DisplayStatus != "active" {
		t.Errorf("expected display status active, got %s", active[0].DisplayStatus)
	}

	expired, _, err := f.svc.ListForUser(context.Background(), userID, FilterExpired, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired registration, got %d", len(expired))
	}
	if expired[0].DisplayStatus != "expired" {
		t.Errorf("expected display status expired, got %s", expired[0].DisplayStatus)
	}

	all, _, err := f.svc.ListForUser(context.Background(), userID, FilterAll, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 registrations, got %d", len(all))
	}
}

func TestListForUser_InvalidFilter(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.ListForUser(context.Background(), uuid.New(), Filter("bogus"), 10, 0)
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestListForUser_RenewalDueFlag(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(12)
	userID := uuid.New()

	// Expires in 10 days: inside the renewal window.
	f.regs.Create(context.Background(), &Registration{
		UserID:       userID,
		PolicyID:     p.ID,
		Status:       StatusActive,
		RegisteredAt: f.now.Add(-350 * 24 * time.Hour),
		ExpiresAt:    f.now.Add(10 * 24 * time.Hour),
	})
	// Expires in 200 days: not due.
	f.regs.Create(context.Background(), &Registration{
		UserID:       userID,
		PolicyID:     p.ID,
		Status:       StatusActive,
		RegisteredAt: f.now,
		ExpiresAt:    f.now.Add(200 * 24 * time.Hour),
	})

	views, _, err := f.svc.ListForUser(context.Background(), userID, FilterActive, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}

	var due, notDue int
	for _, v := range views {
		if v.RenewalDue {
			due++
		} else {
			notDue++
		}
	}
	if due != 1 || notDue != 1 {
		t.Errorf("expected exactly one renewal-due registration, got due=%d notDue=%d", due, notDue)
	}
}

func TestFindByID_IncludesPolicy(t *testing.T) {
	f := newFixture()
	p := f.policyWithDuration(12)
	userID := uuid.New()

	created, err := f.svc.Register(context.Background(), userID, p.ID)
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	v, err := f.svc.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Policy == nil || v.Policy.ID != p.ID {
		t.Error("expected the catalog policy on the view")
	}
}

func TestFindByID_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.FindByID(context.Background(), uuid.New())
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}
