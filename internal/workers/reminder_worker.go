package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vida-melhor/internal/domain/medicines"
	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/notify"
)

const dueBatch = 500

// DueLister es lo que el worker necesita de medicines.Repository.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]medicines.Medicine, error)
}

// ProfileGetter resuelve dueño y cuidador para saber a quién avisar.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (profiles.Profile, error)
}

// ReminderWorker avisa una sola vez por cada dose pendiente al idoso y a su cuidador.
type ReminderWorker struct {
	meds     DueLister
	profiles ProfileGetter
	notifier notify.Notifier
	interval time.Duration
	log      logger.Logger
	now      func() time.Time
	batch    int

	mu   sync.Mutex
	sent map[string]struct{}
}

func NewReminderWorker(meds DueLister, profs ProfileGetter, n notify.Notifier, interval time.Duration, log logger.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReminderWorker{
		meds:     meds,
		profiles: profs,
		notifier: n,
		interval: interval,
		log:      log,
		now:      time.Now,
		batch:    dueBatch,
		sent:     map[string]struct{}{},
	}
}

func (w *ReminderWorker) Name() string            { return "dose-reminders" }
func (w *ReminderWorker) Interval() time.Duration { return w.interval }

// Run recorre todos los pendientes por páginas de id (keyset) para que los
// que siguen pendientes al principio no tapen al resto.
func (w *ReminderWorker) Run(ctx context.Context) error {
	now := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]struct{})
	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := w.meds.ListDue(ctx, now, after, w.batch)
		if err != nil {
			return fmt.Errorf("list due medicines after id %d: %w", after, err)
		}
		for _, m := range page {
			key := episodeKey(m)
			current[key] = struct{}{}
			w.deliver(ctx, m, key, now)
		}
		if len(page) < w.batch {
			break
		}
		after = page[len(page)-1].ID
	}

	// Se olvidan las claves que ya no están pendientes (dose confirmada).
	for k := range w.sent {
		if _, ok := current[k]; !ok {
			delete(w.sent, k)
		}
	}
	return nil
}

func (w *ReminderWorker) deliver(ctx context.Context, m medicines.Medicine, key string, now time.Time) {
	if _, done := w.sent[key]; done {
		return
	}
	if err := w.notify(ctx, m, now); err != nil {
		w.log.Warn("dose reminder not delivered", map[string]any{
			"medicine_id": m.ID,
			"user_id":     m.UserID,
			"err":         err,
		})
		return
	}
	w.sent[key] = struct{}{}
}

func (w *ReminderWorker) notify(ctx context.Context, m medicines.Medicine, now time.Time) error {
	owner, err := w.profiles.GetByID(ctx, m.UserID)
	if err != nil && !errors.Is(err, profiles.ErrNotFound) {
		return fmt.Errorf("load owner: %w", err)
	}

	dueSince := now
	if at, ok := m.NextDueAt(); ok && !at.IsZero() {
		dueSince = at
	}
	base := notify.DoseReminder{
		MedicineID:   m.ID,
		MedicineName: m.Nome,
		Dose:         m.Dose,
		OwnerUserID:  m.UserID,
		DueSince:     dueSince,
	}

	r := base
	r.RecipientID = m.UserID
	r.DeviceToken = owner.DeviceToken
	if err := w.notifier.NotifyDose(ctx, r); err != nil {
		return err
	}

	if !owner.Linked() {
		return nil
	}
	carer, err := w.profiles.GetByID(ctx, *owner.CarerID)
	if err != nil {
		// el idoso ya fue avisado; no reintentar por el cuidador
		w.log.Warn("load carer failed", map[string]any{"carer_id": *owner.CarerID, "err": err})
		return nil
	}
	r = base
	r.RecipientID = carer.ID
	r.DeviceToken = carer.DeviceToken
	if err := w.notifier.NotifyDose(ctx, r); err != nil {
		w.log.Warn("carer reminder failed", map[string]any{"carer_id": carer.ID, "err": err})
	}
	return nil
}

// episodeKey identifica una dose pendiente: cambia cuando se confirma.
func episodeKey(m medicines.Medicine) string {
	if m.UltimaDose == nil {
		return fmt.Sprintf("%d:never", m.ID)
	}
	return fmt.Sprintf("%d:%d", m.ID, m.UltimaDose.Unix())
}
