// Package realtime reparte los recordatorios por websocket a los usuarios conectados.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vida-melhor/internal/middleware"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/notify"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Event es lo que recibe el cliente.
type Event struct {
	Type         string    `json:"type"`
	MedicineID   int64     `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Dose         string    `json:"dose"`
	OwnerUserID  string    `json:"owner_user_id"`
	DueSince     time.Time `json:"due_since"`
}

type client struct {
	id     string
	userID string
	send   chan []byte
}

// Hub indexa las conexiones por usuario.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*client]struct{}
	log   logger.Logger
}

var _ notify.Notifier = (*Hub)(nil)

func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{users: map[string]map[*client]struct{}{}, log: log}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = map[*client]struct{}{}
	}
	h.users[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	close(c.send)
}

// NotifyDose manda el evento a todas las conexiones del destinatario.
// Un cliente con el buffer lleno pierde el evento.
func (h *Hub) NotifyDose(ctx context.Context, r notify.DoseReminder) error {
	data, err := json.Marshal(Event{
		Type:         "dose_due",
		MedicineID:   r.MedicineID,
		MedicineName: r.MedicineName,
		Dose:         r.Dose,
		OwnerUserID:  r.OwnerUserID,
		DueSince:     r.DueSince.UTC(),
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[r.RecipientID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("realtime client buffer full", map[string]any{"client_id": c.id, "user_id": c.userID})
		}
	}
	return nil
}

// Connections cuenta las conexiones abiertas de un usuario.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func RegisterRoutes(r chi.Router, h *Hub) {
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		claims, ok := middleware.GetClaims(req.Context())
		if !ok || claims.UserID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", map[string]any{"err": err})
			return
		}

		c := &client{id: uuid.NewString(), userID: claims.UserID, send: make(chan []byte, sendBuffer)}
		h.register(c)
		h.log.Debug("realtime client connected", map[string]any{"client_id": c.id, "user_id": c.userID})

		go h.writePump(c, conn)
		go h.readPump(c, conn)
	})
}

// readPump solo atiende pongs y detecta el cierre; el cliente no manda mensajes.
func (h *Hub) readPump(c *client, conn *websocket.Conn) {
	defer func() {
		h.unregister(c)
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
