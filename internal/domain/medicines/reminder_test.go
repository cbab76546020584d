package medicines

import (
	"context"
	"errors"
	"testing"
	"time"

	"vida-melhor/internal/domain/viewer"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestReminders(repo *testRepo, c *clock) *Reminders {
	svc := NewService(repo)
	svc.now = c.Now
	r := NewReminders(svc, nil)
	r.now = c.Now
	return r
}

func TestReminders_EightHourCycle(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "Losartana", Dose: "50mg", Estoque: 5, FrequenciaHoras: intPtr(8)})

	c := &clock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	rem := newTestReminders(repo, c)
	v := viewer.Elder("e-1")
	ctx := context.Background()

	cur, err := rem.Current(ctx, v)
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if cur.State != StateDue || cur.Pending == nil || cur.Pending.ID != 1 {
		t.Fatalf("expected id 1 due, got %+v", cur)
	}

	invokedAt := c.t
	next, m, err := rem.Confirm(ctx, v, 1)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if m.Estoque != 4 {
		t.Fatalf("expected stock 4, got %d", m.Estoque)
	}
	if m.UltimaDose == nil || m.UltimaDose.Before(invokedAt) {
		t.Fatalf("expected ultima_dose >= invocation, got %v", m.UltimaDose)
	}
	if next.State != StateIdle || next.Pending != nil {
		t.Fatalf("expected idle after confirm, got %+v", next)
	}

	// Casi 8h después: todavía no.
	c.t = invokedAt.Add(8*time.Hour - time.Second)
	if cur, _ := rem.Current(ctx, v); cur.State != StateIdle {
		t.Fatalf("expected idle before 8h, got %+v", cur)
	}

	// A las 8h vuelve a estar pendiente, sin ningún timer.
	c.t = invokedAt.Add(8 * time.Hour)
	cur, _ = rem.Current(ctx, v)
	if cur.State != StateDue || cur.Pending == nil || cur.Pending.ID != 1 {
		t.Fatalf("expected id 1 due again at +8h, got %+v", cur)
	}
}

func TestReminders_PendingIsNewestDue(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "Antigo", Dose: "1", Estoque: 3})
	repo.put(Medicine{ID: 2, UserID: "e-1", Nome: "Novo", Dose: "1", Estoque: 3})

	rem := newTestReminders(repo, &clock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)})
	v := viewer.Elder("e-1")

	cur, err := rem.Current(context.Background(), v)
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if cur.Pending == nil || cur.Pending.ID != 2 {
		t.Fatalf("expected the most recent medicine first, got %+v", cur.Pending)
	}

	// Confirmado el más reciente, aparece el siguiente.
	next, _, err := rem.Confirm(context.Background(), v, 2)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if next.State != StateDue || next.Pending == nil || next.Pending.ID != 1 {
		t.Fatalf("expected id 1 next, got %+v", next)
	}
}

func TestReminders_Confirm_StockFlooredAtZero(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A", Dose: "1", Estoque: 0})

	c := &clock{t: time.Now()}
	rem := newTestReminders(repo, c)

	_, m, err := rem.Confirm(context.Background(), viewer.Elder("e-1"), 1)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if m.Estoque != 0 {
		t.Fatalf("expected stock to stay 0, got %d", m.Estoque)
	}
}

func TestReminders_Confirm_FailureReturnsToDue(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A", Dose: "1", Estoque: 3})
	repo.confirmErr = errors.New("network down")

	c := &clock{t: time.Now()}
	rem := newTestReminders(repo, c)
	v := viewer.Elder("e-1")

	cur, _, err := rem.Confirm(context.Background(), v, 1)
	if err == nil {
		t.Fatalf("expected error")
	}
	if cur.State != StateDue {
		t.Fatalf("expected due after failure, got %s", cur.State)
	}

	// Reintento funciona.
	repo.confirmErr = nil
	if _, m, err := rem.Confirm(context.Background(), v, 1); err != nil || m.Estoque != 2 {
		t.Fatalf("expected retry to succeed, got m=%+v err=%v", m, err)
	}
}

func TestReminders_Confirm_RejectsConcurrent(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A", Dose: "1", Estoque: 3})
	repo.put(Medicine{ID: 2, UserID: "e-1", Nome: "B", Dose: "1", Estoque: 3})

	c := &clock{t: time.Now()}
	rem := newTestReminders(repo, c)
	v := viewer.Elder("e-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.confirmHook = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := rem.Confirm(context.Background(), v, 1)
		done <- err
	}()

	<-entered
	repo.confirmHook = nil

	if cur, _ := rem.Current(context.Background(), v); cur.State != StateConfirming {
		t.Fatalf("expected confirming while in flight, got %s", cur.State)
	}
	if _, _, err := rem.Confirm(context.Background(), v, 2); !errors.Is(err, ErrConfirmInFlight) {
		t.Fatalf("expected ErrConfirmInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
}

func TestReminders_Confirm_ReplayIsNotDue(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A", Dose: "1", Estoque: 5, FrequenciaHoras: intPtr(8)})

	c := &clock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	rem := newTestReminders(repo, c)
	v := viewer.Elder("e-1")
	ctx := context.Background()

	_, m, err := rem.Confirm(ctx, v, 1)
	if err != nil || m.Estoque != 4 {
		t.Fatalf("first confirm: m=%+v err=%v", m, err)
	}
	takenAt := *m.UltimaDose

	cur, _, err := rem.Confirm(ctx, v, 1)
	if !errors.Is(err, ErrNotDue) {
		t.Fatalf("expected ErrNotDue on replay, got %v", err)
	}
	if cur.State != StateIdle {
		t.Fatalf("expected idle after rejected replay, got %s", cur.State)
	}
	stored, _ := repo.GetByID(ctx, 1)
	if stored.Estoque != 4 || !stored.UltimaDose.Equal(takenAt) {
		t.Fatalf("replay must not write, got %+v", stored)
	}

	// El rechazo no deja el slot tomado: a las 8h se confirma normal.
	c.t = c.t.Add(8 * time.Hour)
	if _, m, err := rem.Confirm(ctx, v, 1); err != nil || m.Estoque != 3 {
		t.Fatalf("expected confirm at +8h, got m=%+v err=%v", m, err)
	}
}

func TestReminders_Confirm_ForbiddenForStranger(t *testing.T) {
	repo := newTestRepo()
	repo.put(Medicine{ID: 1, UserID: "e-1", Nome: "A", Dose: "1", Estoque: 3})

	rem := newTestReminders(repo, &clock{t: time.Now()})

	if _, _, err := rem.Confirm(context.Background(), viewer.Elder("e-2"), 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	m, _ := repo.GetByID(context.Background(), 1)
	if m.Estoque != 3 || m.UltimaDose != nil {
		t.Fatalf("expected no write, got %+v", m)
	}
}
