package medicines

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"vida-melhor/internal/domain/viewer"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu     sync.Mutex
	byID   map[int64]Medicine
	nextID int64

	confirmErr  error
	confirmHook func()
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[int64]Medicine{}}
}

func (r *testRepo) ListByOwners(ctx context.Context, ownerIDs []string) ([]Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := map[string]bool{}
	for _, id := range ownerIDs {
		set[id] = true
	}
	out := make([]Medicine, 0)
	for _, m := range r.byID {
		if set[m.UserID] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *testRepo) GetByID(ctx context.Context, id int64) (Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Medicine{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) Create(ctx context.Context, m Medicine) (Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	r.byID[m.ID] = m
	return m, nil
}

func (r *testRepo) Update(ctx context.Context, m Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID]; !ok {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) ConfirmDose(ctx context.Context, id int64, at time.Time) (Medicine, error) {
	if r.confirmHook != nil {
		r.confirmHook()
	}
	if r.confirmErr != nil {
		return Medicine{}, r.confirmErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Medicine{}, ErrNotFound
	}
	t := at
	m.UltimaDose = &t
	if m.Estoque > 0 {
		m.Estoque--
	}
	r.byID[id] = m
	return m, nil
}

func (r *testRepo) ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Medicine, 0)
	for _, m := range r.byID {
		if m.ID > afterID && m.IsDue(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) put(m Medicine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	if m.ID > r.nextID {
		r.nextID = m.ID
	}
}

type fakeLookup struct {
	carers map[string]bool
	elders map[string][]string
}

func (f fakeLookup) IsCarer(ctx context.Context, userID string) (bool, error) {
	return f.carers[userID], nil
}

func (f fakeLookup) EldersOf(ctx context.Context, carerID string) ([]string, error) {
	return f.elders[carerID], nil
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

// -------------------------
// Tests
// -------------------------

func TestMedicine_IsDue(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		m    Medicine
		want bool
	}{
		{"never taken", Medicine{}, true},
		{"no frequency", Medicine{UltimaDose: timePtr(now.Add(-100 * time.Hour))}, false},
		{"zero frequency", Medicine{UltimaDose: timePtr(now.Add(-100 * time.Hour)), FrequenciaHoras: intPtr(0)}, false},
		{"before window", Medicine{UltimaDose: timePtr(now.Add(-7 * time.Hour)), FrequenciaHoras: intPtr(8)}, false},
		{"exactly at window", Medicine{UltimaDose: timePtr(now.Add(-8 * time.Hour)), FrequenciaHoras: intPtr(8)}, true},
		{"after window", Medicine{UltimaDose: timePtr(now.Add(-9 * time.Hour)), FrequenciaHoras: intPtr(8)}, true},
	}

	for _, tc := range cases {
		if got := tc.m.IsDue(now); got != tc.want {
			t.Fatalf("%s: IsDue=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestSelectPending_FirstDueInLoadOrder(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	items := []Medicine{
		{ID: 1, UltimaDose: timePtr(now), FrequenciaHoras: intPtr(8)},
		{ID: 2},
		{ID: 3},
	}

	m, ok := SelectPending(items, now)
	if !ok || m.ID != 2 {
		t.Fatalf("expected id 2 pending, got %+v ok=%v", m, ok)
	}

	items[1].UltimaDose = timePtr(now)
	items[2].UltimaDose = timePtr(now)
	if _, ok := SelectPending(items, now); ok {
		t.Fatalf("expected nothing pending")
	}
}

func TestService_ListForViewer_CaretakerUnion(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A"})
	repo.put(Medicine{ID: 2, UserID: "e-2", Nome: "B"})
	repo.put(Medicine{ID: 3, UserID: "e-3", Nome: "C"})
	svc := NewService(repo)

	lookup := fakeLookup{
		carers: map[string]bool{"c-1": true, "c-2": true},
		elders: map[string][]string{"c-1": {"e-1", "e-2"}},
	}

	v := viewer.Caretaker("c-1", lookup)
	items, err := svc.ListForViewer(context.Background(), v)
	if err != nil {
		t.Fatalf("ListForViewer error: %v", err)
	}
	if len(items) != 2 || items[0].ID != 2 || items[1].ID != 1 {
		t.Fatalf("expected meds of e-1 and e-2, got %+v", items)
	}

	// Cuidador sin idosos => vacío, sin error.
	empty, err := svc.ListForViewer(context.Background(), viewer.Caretaker("c-2", lookup))
	if err != nil {
		t.Fatalf("expected no error for caretaker without elders, got %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %#v", empty)
	}
}

func TestService_Create_ValidatesAndNormalizes(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	v := viewer.Elder("e-1")

	if _, err := svc.Create(context.Background(), v, CreateInput{Nome: "Losartana"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without dose, got %v", err)
	}

	m, err := svc.Create(context.Background(), v, CreateInput{
		Nome:            " Losartana ",
		Dose:            "50mg",
		Estoque:         -3,
		FrequenciaHoras: intPtr(0),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if m.ID == 0 || m.UserID != "e-1" || m.Nome != "Losartana" {
		t.Fatalf("unexpected medicine: %+v", m)
	}
	if m.Estoque != 0 {
		t.Fatalf("expected stock floored at 0, got %d", m.Estoque)
	}
	if m.FrequenciaHoras != nil {
		t.Fatalf("expected frequency 0 stored as nil")
	}

	if _, err := svc.Create(context.Background(), v, CreateInput{OwnerUserID: "e-2", Nome: "X", Dose: "1"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden creating for another elder, got %v", err)
	}
}

func TestService_UpdateDelete_CaretakerManagesElder(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A", Dose: "1", FrequenciaHoras: intPtr(8)})
	svc := NewService(repo)

	lookup := fakeLookup{
		carers: map[string]bool{"c-1": true},
		elders: map[string][]string{"c-1": {"e-1"}},
	}
	v := viewer.Caretaker("c-1", lookup)

	m, err := svc.Update(context.Background(), v, 1, UpdateInput{Estoque: intPtr(10), ClearFrequencia: true})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if m.Estoque != 10 || m.FrequenciaHoras != nil {
		t.Fatalf("unexpected update: %+v", m)
	}

	if err := svc.Delete(context.Background(), viewer.Elder("e-2"), 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if err := svc.Delete(context.Background(), v, 1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
}
