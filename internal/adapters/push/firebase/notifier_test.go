package firebase

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vida-melhor/internal/ports/notify"
)

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, m *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "msg-1", nil
}

func TestNotifyDose(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(fs, nil)

	r := notify.DoseReminder{
		MedicineID:   7,
		MedicineName: "Losartana",
		Dose:         "50mg",
		OwnerUserID:  "e-1",
		RecipientID:  "e-1",
		DeviceToken:  "device-abc",
		DueSince:     time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.NotifyDose(context.Background(), r))
	require.Len(t, fs.sent, 1)

	msg := fs.sent[0]
	assert.Equal(t, "device-abc", msg.Token)
	assert.Equal(t, "7", msg.Data["medicine_id"])
	assert.Equal(t, "2025-01-01T08:00:00Z", msg.Data["due_since"])
	assert.Contains(t, msg.Notification.Body, "Hora de tomar Losartana")

	r.RecipientID = "c-1"
	require.NoError(t, n.NotifyDose(context.Background(), r))
	assert.Contains(t, fs.sent[1].Notification.Body, "Dose pendente")
}

func TestNotifyDose_SkipsWithoutToken(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(fs, nil)

	require.NoError(t, n.NotifyDose(context.Background(), notify.DoseReminder{MedicineID: 1}))
	assert.Empty(t, fs.sent)
}

func TestNotifyDose_WrapsSendError(t *testing.T) {
	boom := errors.New("unavailable")
	n := newNotifier(&fakeSender{err: boom}, nil)

	err := n.NotifyDose(context.Background(), notify.DoseReminder{DeviceToken: "x"})
	assert.ErrorIs(t, err, boom)
}
