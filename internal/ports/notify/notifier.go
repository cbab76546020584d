package notify

import (
	"context"
	"time"
)

// DoseReminder es el aviso que se envía cuando un medicamento queda "due".
type DoseReminder struct {
	MedicineID   int64
	MedicineName string
	Dose         string

	OwnerUserID string // idoso dueño del medicamento
	RecipientID string // usuario que recibe el aviso (idoso o cuidador)
	DeviceToken string // opcional (push)

	DueSince time.Time
}

// Notifier entrega recordatorios por algún canal (push, websocket, log).
type Notifier interface {
	NotifyDose(ctx context.Context, r DoseReminder) error
}

// Multi reparte el aviso a varios notifiers. Devuelve el primer error pero intenta todos.
type Multi []Notifier

func (m Multi) NotifyDose(ctx context.Context, r DoseReminder) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyDose(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
