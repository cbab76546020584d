package medicines

import (
	"context"
	"errors"
	"sync"
	"time"

	"vida-melhor/internal/domain/viewer"
	"vida-melhor/internal/platform/logger"
)

var (
	ErrConfirmInFlight = errors.New("dose confirmation already in progress")
	ErrNotDue          = errors.New("dose is not due yet")
)

type ReminderState string

const (
	StateIdle       ReminderState = "idle"
	StateDue        ReminderState = "due"
	StateConfirming ReminderState = "confirming"
)

// Reminder es lo que ve el usuario: como máximo un medicamento pendiente.
type Reminder struct {
	State   ReminderState
	Pending *Medicine
}

// SelectPending devuelve el primer medicamento pendiente en orden de carga.
func SelectPending(items []Medicine, now time.Time) (Medicine, bool) {
	for _, m := range items {
		if m.IsDue(now) {
			return m, true
		}
	}
	return Medicine{}, false
}

// Reminders lleva la máquina de estados idle/due/confirming por usuario.
// Seguro para uso concurrente.
type Reminders struct {
	svc *Service
	log logger.Logger
	now func() time.Time

	mu     sync.Mutex
	states map[string]ReminderState
}

func NewReminders(svc *Service, log logger.Logger) *Reminders {
	if log == nil {
		log = logger.Nop()
	}
	return &Reminders{
		svc:    svc,
		log:    log,
		now:    time.Now,
		states: map[string]ReminderState{},
	}
}

// Current recalcula el recordatorio a partir de la lista actual.
// Mientras hay una confirmación en curso devuelve confirming sin recargar.
func (r *Reminders) Current(ctx context.Context, v viewer.Viewer) (Reminder, error) {
	r.mu.Lock()
	st := r.states[v.UserID()]
	r.mu.Unlock()
	if st == StateConfirming {
		return Reminder{State: StateConfirming}, nil
	}

	return r.evaluate(ctx, v, false)
}

// Confirm registra la dosis (ultima_dose=now, estoque-1 con piso 0) y devuelve
// el siguiente recordatorio. Solo confirma un medicamento pendiente: repetir el
// pedido devuelve ErrNotDue sin tocar el stock. Si falla, el estado vuelve a
// due para reintentar.
func (r *Reminders) Confirm(ctx context.Context, v viewer.Viewer, id int64) (Reminder, Medicine, error) {
	key := v.UserID()
	r.mu.Lock()
	prev, ok := r.states[key]
	if !ok {
		prev = StateIdle
	}
	if prev == StateConfirming {
		r.mu.Unlock()
		return Reminder{State: StateConfirming}, Medicine{}, ErrConfirmInFlight
	}
	r.states[key] = StateConfirming
	r.mu.Unlock()

	// Se lee con el slot tomado para que dos confirmaciones seguidas no vean
	// ambas la misma dosis pendiente.
	m, err := r.svc.getAccessible(ctx, v, id)
	if err == nil && !m.IsDue(r.now()) {
		err = ErrNotDue
	}
	if err != nil {
		r.setState(key, prev)
		return Reminder{State: prev}, Medicine{}, err
	}

	updated, err := r.svc.repo.ConfirmDose(ctx, id, r.now())
	if err != nil {
		r.log.Error("confirm dose failed", map[string]any{
			"user_id":     key,
			"medicine_id": id,
			"err":         err,
		})
		r.setState(key, StateDue)
		return Reminder{State: StateDue}, Medicine{}, err
	}

	r.log.Info("dose confirmed", map[string]any{
		"user_id":     key,
		"medicine_id": id,
		"estoque":     updated.Estoque,
	})

	next, err := r.evaluate(ctx, v, true)
	if err != nil {
		// La dosis ya quedó registrada; solo falló la recarga.
		r.setState(key, StateIdle)
		return Reminder{State: StateIdle}, updated, nil
	}
	return next, updated, nil
}

// evaluate no pisa un confirming ajeno salvo que owner=true (lo llama quien confirmó).
func (r *Reminders) evaluate(ctx context.Context, v viewer.Viewer, owner bool) (Reminder, error) {
	items, err := r.svc.ListForViewer(ctx, v)
	if err != nil {
		return Reminder{}, err
	}

	rem := Reminder{State: StateIdle}
	if m, ok := SelectPending(items, r.now()); ok {
		rem = Reminder{State: StateDue, Pending: &m}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !owner && r.states[v.UserID()] == StateConfirming {
		return Reminder{State: StateConfirming}, nil
	}
	if rem.State == StateIdle {
		delete(r.states, v.UserID())
	} else {
		r.states[v.UserID()] = rem.State
	}
	return rem, nil
}

func (r *Reminders) setState(userID string, st ReminderState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st == StateIdle {
		delete(r.states, userID)
		return
	}
	r.states[userID] = st
}
