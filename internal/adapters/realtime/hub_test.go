package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vida-melhor/internal/middleware"
	"vida-melhor/internal/ports/notify"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	r := chi.NewRouter()
	r.Use(middleware.AuthContext(nil))
	RegisterRoutes(r, hub)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	h := http.Header{}
	h.Set("X-Debug-User-ID", userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_DeliversOnlyToRecipient(t *testing.T) {
	hub, srv := newTestServer(t)

	elder := dial(t, srv, "e-1")
	other := dial(t, srv, "x-9")

	require.Eventually(t, func() bool {
		return hub.Connections("e-1") == 1 && hub.Connections("x-9") == 1
	}, time.Second, 10*time.Millisecond)

	err := hub.NotifyDose(context.Background(), notify.DoseReminder{
		MedicineID:   3,
		MedicineName: "Losartana",
		Dose:         "50mg",
		OwnerUserID:  "e-1",
		RecipientID:  "e-1",
		DueSince:     time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_ = elder.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := elder.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "dose_due", ev.Type)
	assert.Equal(t, int64(3), ev.MedicineID)

	_ = other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other users get nothing")
}

func TestHub_RequiresUser(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, srv := newTestServer(t)

	conn := dial(t, srv, "e-1")
	require.Eventually(t, func() bool { return hub.Connections("e-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections("e-1") == 0 }, time.Second, 10*time.Millisecond)
}
