package viewer

import (
	"context"
	"errors"
	"testing"
)

type fakeLookup struct {
	carers map[string]bool
	elders map[string][]string
	err    error
}

func (f fakeLookup) IsCarer(ctx context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.carers[userID], nil
}

func (f fakeLookup) EldersOf(ctx context.Context, carerID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.elders[carerID], nil
}

func TestResolve_ElderSeesOnlySelf(t *testing.T) {
	v, err := Resolve(context.Background(), fakeLookup{}, "e-1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if v.IsCaretaker() {
		t.Fatalf("expected elder view")
	}

	ids, err := v.Subjects(context.Background())
	if err != nil {
		t.Fatalf("Subjects error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "e-1" {
		t.Fatalf("expected [e-1], got %v", ids)
	}

	ok, _ := v.CanAccess(context.Background(), "e-2")
	if ok {
		t.Fatalf("elder must not access other owners")
	}
}

func TestResolve_CaretakerSeesLinkedElders(t *testing.T) {
	lookup := fakeLookup{
		carers: map[string]bool{"c-1": true},
		elders: map[string][]string{"c-1": {"e-1", "e-2"}},
	}

	v, err := Resolve(context.Background(), lookup, "c-1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !v.IsCaretaker() {
		t.Fatalf("expected caretaker view")
	}

	ids, err := v.Subjects(context.Background())
	if err != nil {
		t.Fatalf("Subjects error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 elders, got %v", ids)
	}

	if ok, _ := v.CanAccess(context.Background(), "e-2"); !ok {
		t.Fatalf("expected caretaker to access linked elder")
	}
	if ok, _ := v.CanAccess(context.Background(), "c-1"); ok {
		t.Fatalf("caretaker data is not part of its subjects")
	}
}

func TestCaretaker_NoEldersIsEmptyNotNil(t *testing.T) {
	v := Caretaker("c-1", fakeLookup{})

	ids, err := v.Subjects(context.Background())
	if err != nil {
		t.Fatalf("Subjects error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", ids)
	}
}

func TestResolve_Errors(t *testing.T) {
	if _, err := Resolve(context.Background(), fakeLookup{}, " "); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := Resolve(context.Background(), fakeLookup{err: boom}, "u"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}
