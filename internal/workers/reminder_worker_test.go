package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vida-melhor/internal/adapters/storage/memory"
	"vida-melhor/internal/domain/medicines"
	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/ports/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []notify.DoseReminder
	fail map[string]error
}

func (n *recordingNotifier) NotifyDose(ctx context.Context, r notify.DoseReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[r.RecipientID]; err != nil {
		return err
	}
	n.got = append(n.got, r)
	return nil
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.got))
	for _, r := range n.got {
		out = append(out, r.RecipientID)
	}
	return out
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func setup(t *testing.T) (medicines.Repository, profiles.Repository, *recordingNotifier, *ReminderWorker, *time.Time) {
	t.Helper()
	ctx := context.Background()

	meds := memory.NewMedicineRepo()
	profs := memory.NewProfileRepo()
	require.NoError(t, profs.Upsert(ctx, profiles.Profile{ID: "c-1", Carer: true, DeviceToken: "tok-carer"}))
	require.NoError(t, profs.Upsert(ctx, profiles.Profile{ID: "e-1", CarerID: strPtr("c-1"), DeviceToken: "tok-elder"}))

	n := &recordingNotifier{fail: map[string]error{}}
	w := NewReminderWorker(meds, profs, n, time.Minute, nil)

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	return meds, profs, n, w, &now
}

func TestReminderWorker_NotifiesOwnerAndCarerOnce(t *testing.T) {
	ctx := context.Background()
	meds, _, n, w, now := setup(t)

	m, err := meds.Create(ctx, medicines.Medicine{UserID: "e-1", Nome: "Losartana", Dose: "50mg", Estoque: 10, FrequenciaHoras: intPtr(8)})
	require.NoError(t, err)

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{"e-1", "c-1"}, n.recipients())
	assert.Equal(t, "tok-elder", n.got[0].DeviceToken)
	assert.Equal(t, "tok-carer", n.got[1].DeviceToken)

	// sigue pendiente: no se repite
	require.NoError(t, w.Run(ctx))
	assert.Len(t, n.got, 2)

	// confirmada y vencida de nuevo 8h después: nuevo aviso
	_, err = meds.ConfirmDose(ctx, m.ID, *now)
	require.NoError(t, err)
	require.NoError(t, w.Run(ctx))
	assert.Len(t, n.got, 2)

	*now = now.Add(8 * time.Hour)
	require.NoError(t, w.Run(ctx))
	assert.Len(t, n.got, 4)
	assert.Equal(t, time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC), n.got[2].DueSince)
}

func TestReminderWorker_RetriesWhenOwnerDeliveryFails(t *testing.T) {
	ctx := context.Background()
	meds, _, n, w, _ := setup(t)

	_, err := meds.Create(ctx, medicines.Medicine{UserID: "e-1", Nome: "Dipirona", Dose: "500mg"})
	require.NoError(t, err)

	n.fail["e-1"] = errors.New("push down")
	require.NoError(t, w.Run(ctx))
	assert.Empty(t, n.got)

	delete(n.fail, "e-1")
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{"e-1", "c-1"}, n.recipients())
}

func TestReminderWorker_UnknownOwnerStillNotified(t *testing.T) {
	ctx := context.Background()
	meds, _, n, w, _ := setup(t)

	_, err := meds.Create(ctx, medicines.Medicine{UserID: "ghost", Nome: "X", Dose: "1"})
	require.NoError(t, err)

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{"ghost"}, n.recipients())
}

func TestReminderWorker_ReachesEveryPage(t *testing.T) {
	ctx := context.Background()
	meds, _, n, w, _ := setup(t)

	// Una página completa más uno; todos siguen pendientes entre corridas.
	total := dueBatch + 1
	for i := 0; i < total; i++ {
		_, err := meds.Create(ctx, medicines.Medicine{UserID: "ghost", Nome: "X", Dose: "1"})
		require.NoError(t, err)
	}

	require.NoError(t, w.Run(ctx))
	require.Len(t, n.got, total)

	seen := make(map[int64]bool, total)
	for _, r := range n.got {
		seen[r.MedicineID] = true
	}
	assert.Len(t, seen, total)

	// y no se repiten en la próxima pasada
	require.NoError(t, w.Run(ctx))
	assert.Len(t, n.got, total)
}

func TestReminderWorker_SmallBatchKeepsDedup(t *testing.T) {
	ctx := context.Background()
	meds, _, n, w, now := setup(t)
	w.batch = 2

	var ids []int64
	for i := 0; i < 5; i++ {
		m, err := meds.Create(ctx, medicines.Medicine{UserID: "ghost", Nome: "X", Dose: "1", FrequenciaHoras: intPtr(8)})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	require.NoError(t, w.Run(ctx))
	require.Len(t, n.got, 5)

	// Confirmar el primero: su clave vieja se poda y no hay aviso nuevo hasta +8h
	_, err := meds.ConfirmDose(ctx, ids[0], *now)
	require.NoError(t, err)
	require.NoError(t, w.Run(ctx))
	assert.Len(t, n.got, 5)

	*now = now.Add(8 * time.Hour)
	require.NoError(t, w.Run(ctx))
	require.Len(t, n.got, 6)
	assert.Equal(t, ids[0], n.got[5].MedicineID)
}

type countingWorker struct {
	mu   sync.Mutex
	runs int
}

func (c *countingWorker) Name() string            { return "counter" }
func (c *countingWorker) Interval() time.Duration { return 10 * time.Millisecond }
func (c *countingWorker) Run(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	return nil
}

func (c *countingWorker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(nil)
	cw := &countingWorker{}
	m.Register(cw)
	assert.Equal(t, []string{"counter"}, m.Names())

	m.Start(context.Background())
	require.Eventually(t, func() bool { return cw.count() >= 2 }, time.Second, 5*time.Millisecond)
	m.Stop()

	after := cw.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, cw.count())
}
