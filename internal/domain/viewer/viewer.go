package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoUser = errors.New("viewer: user id required")

// ElderLookup resuelve el rol y los idosos vinculados de un usuario.
// profiles.Service lo implementa.
type ElderLookup interface {
	IsCarer(ctx context.Context, userID string) (bool, error)
	EldersOf(ctx context.Context, carerID string) ([]string, error)
}

// Viewer es quien mira los datos. Los servicios preguntan Subjects() y filtran
// por esos dueños, sin saber si el viewer es idoso o cuidador.
type Viewer interface {
	UserID() string
	IsCaretaker() bool
	// Subjects devuelve los user_id cuyos datos ve este viewer.
	// Un cuidador sin idosos devuelve un slice vacío.
	Subjects(ctx context.Context) ([]string, error)
	// CanAccess indica si ownerID está entre los Subjects.
	CanAccess(ctx context.Context, ownerID string) (bool, error)
}

type elderView struct {
	userID string
}

func (v elderView) UserID() string    { return v.userID }
func (v elderView) IsCaretaker() bool { return false }

func (v elderView) Subjects(ctx context.Context) ([]string, error) {
	return []string{v.userID}, nil
}

func (v elderView) CanAccess(ctx context.Context, ownerID string) (bool, error) {
	return ownerID == v.userID, nil
}

type caretakerView struct {
	userID string
	lookup ElderLookup
}

func (v caretakerView) UserID() string    { return v.userID }
func (v caretakerView) IsCaretaker() bool { return true }

// Subjects se consulta en cada llamada: los vínculos pueden cambiar durante la sesión.
func (v caretakerView) Subjects(ctx context.Context) ([]string, error) {
	ids, err := v.lookup.EldersOf(ctx, v.userID)
	if err != nil {
		return nil, fmt.Errorf("resolve elders: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (v caretakerView) CanAccess(ctx context.Context, ownerID string) (bool, error) {
	ids, err := v.Subjects(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == ownerID {
			return true, nil
		}
	}
	return false, nil
}

// Elder construye un viewer de idoso sin consultar el rol.
func Elder(userID string) Viewer {
	return elderView{userID: userID}
}

// Caretaker construye un viewer de cuidador.
func Caretaker(userID string, lookup ElderLookup) Viewer {
	return caretakerView{userID: userID, lookup: lookup}
}

// Resolve decide la variante una sola vez (por request o por sesión).
func Resolve(ctx context.Context, lookup ElderLookup, userID string) (Viewer, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNoUser
	}
	isCarer, err := lookup.IsCarer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	if isCarer {
		return Caretaker(userID, lookup), nil
	}
	return Elder(userID), nil
}
