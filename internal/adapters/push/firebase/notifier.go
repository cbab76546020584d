// Package firebase envía los recordatorios de dose por FCM.
package firebase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/notify"
)

const channelID = "vida_melhor_medicamentos"

// sender es el subconjunto de *messaging.Client que se usa (permite fakes en tests).
type sender interface {
	Send(ctx context.Context, m *messaging.Message) (string, error)
}

type Notifier struct {
	client sender
	log    logger.Logger
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier inicializa la app de Firebase con el archivo de credenciales.
func NewNotifier(ctx context.Context, credentialsPath string, log logger.Logger) (*Notifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}
	return newNotifier(client, log), nil
}

func newNotifier(c sender, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{client: c, log: log}
}

// NotifyDose no hace nada si el destinatario no registró device token.
func (n *Notifier) NotifyDose(ctx context.Context, r notify.DoseReminder) error {
	if r.DeviceToken == "" {
		return nil
	}

	body := fmt.Sprintf("Hora de tomar %s (%s)", r.MedicineName, r.Dose)
	if r.RecipientID != r.OwnerUserID {
		body = fmt.Sprintf("Dose pendente: %s (%s)", r.MedicineName, r.Dose)
	}

	msg := &messaging.Message{
		Token: r.DeviceToken,
		Notification: &messaging.Notification{
			Title: "Lembrete de medicamento",
			Body:  body,
		},
		Data: map[string]string{
			"type":        "dose_due",
			"medicine_id": strconv.FormatInt(r.MedicineID, 10),
			"owner_id":    r.OwnerUserID,
			"due_since":   r.DueSince.UTC().Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    channelID,
				Priority:     messaging.PriorityHigh,
				DefaultSound: true,
			},
		},
	}

	id, err := n.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send dose push: %w", err)
	}
	n.log.Debug("dose push sent", map[string]any{
		"message_id":   id,
		"medicine_id":  r.MedicineID,
		"recipient_id": r.RecipientID,
	})
	return nil
}
