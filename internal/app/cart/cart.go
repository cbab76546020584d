package cart

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"vida-melhor/internal/app/devicestore"
	"vida-melhor/internal/platform/logger"
)

// Item es una línea del carrito. El formato JSON es el que queda guardado en cart_v1.
type Item struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PriceInCents int64  `json:"price_in_cents"`
	Quantity     int    `json:"quantity"`
}

// Cart es el carrito local del dispositivo. Se persiste después de cada cambio.
// Seguro para uso concurrente.
type Cart struct {
	store devicestore.Store
	log   logger.Logger

	mu    sync.RWMutex
	items []Item
}

func New(store devicestore.Store, log logger.Logger) *Cart {
	if log == nil {
		log = logger.Nop()
	}
	return &Cart{store: store, log: log, items: []Item{}}
}

// Load rehidrata desde el store. Datos faltantes o corruptos => carrito vacío.
func (c *Cart) Load(ctx context.Context) {
	items := []Item{}

	raw, err := c.store.Get(ctx, devicestore.KeyCart)
	if err == nil && len(raw) > 0 {
		var decoded []Item
		if err := json.Unmarshal(raw, &decoded); err != nil {
			c.log.Warn("cart data corrupt, starting empty", map[string]any{"err": err})
		} else {
			for _, it := range decoded {
				if strings.TrimSpace(it.ID) == "" || it.Quantity < 1 {
					continue
				}
				items = append(items, it)
			}
		}
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// AddItem suma quantity si el id ya existe; si no, agrega la línea.
// quantity < 1 se toma como 1.
func (c *Cart) AddItem(ctx context.Context, id, name string, priceInCents int64, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		c.items = append(c.items, Item{ID: id, Name: name, PriceInCents: priceInCents, Quantity: quantity})
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
}

// RemoveItem no hace nada si el id no está.
func (c *Cart) RemoveItem(ctx context.Context, id string) {
	c.mu.Lock()
	idx := -1
	for i := range c.items {
		if c.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
}

func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	c.items = []Item{}
	c.mu.Unlock()

	c.persist(ctx, []Item{})
}

func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Count es la suma de cantidades.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Total es la suma de precio x cantidad, en centavos.
func (c *Cart) Total() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, it := range c.items {
		total += it.PriceInCents * int64(it.Quantity)
	}
	return total
}

func (c *Cart) snapshotLocked() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// persist no devuelve error: un fallo de escritura no rompe el carrito en memoria.
func (c *Cart) persist(ctx context.Context, items []Item) {
	raw, err := json.Marshal(items)
	if err != nil {
		c.log.Error("cart encode failed", map[string]any{"err": err})
		return
	}
	if err := c.store.Set(ctx, devicestore.KeyCart, raw); err != nil {
		c.log.Warn("cart persist failed", map[string]any{"err": err})
	}
}
