package navigation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vida-melhor/internal/app/devicestore"
	"vida-melhor/internal/platform/logger"
)

type Screen string

const (
	ScreenLogin         Screen = "login"
	ScreenRegister      Screen = "register"
	ScreenHome          Screen = "home"
	ScreenProfile       Screen = "profile"
	ScreenCaretaker     Screen = "caretaker"
	ScreenPharmacies    Screen = "pharmacies"
	ScreenStore         Screen = "store"
	ScreenConsultations Screen = "consultations"
	ScreenMedications   Screen = "medications"
)

var ErrUnknownScreen = errors.New("unknown screen")

var screens = map[Screen]bool{
	ScreenLogin:         true,
	ScreenRegister:      true,
	ScreenHome:          true,
	ScreenProfile:       true,
	ScreenCaretaker:     true,
	ScreenPharmacies:    true,
	ScreenStore:         true,
	ScreenConsultations: true,
	ScreenMedications:   true,
}

// aliases que aparecen en datos viejos de last_page.
var aliases = map[string]Screen{
	"cuidador":  ScreenCaretaker,
	"consultas": ScreenConsultations,
}

// Parse valida un nombre de pantalla.
func Parse(s string) (Screen, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if sc, ok := aliases[s]; ok {
		return sc, nil
	}
	sc := Screen(s)
	if !screens[sc] {
		return "", ErrUnknownScreen
	}
	return sc, nil
}

// Controller es el único dueño de la pantalla actual, la pila de "volver"
// y el last_page persistido. Cada transición escribe last_page.
type Controller struct {
	store devicestore.Store
	log   logger.Logger

	mu      sync.Mutex
	current Screen
	stack   []Screen
	subs    []func(Screen)
}

func New(store devicestore.Store, log logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{store: store, log: log, current: ScreenLogin}
}

func (c *Controller) Current() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Stack devuelve una copia de la pila (el tope es el último).
func (c *Controller) Stack() []Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Screen, len(c.stack))
	copy(out, c.stack)
	return out
}

// Navigate apila la pantalla actual y cambia. Navegar a la misma pantalla no apila.
func (c *Controller) Navigate(ctx context.Context, to Screen) error {
	if !screens[to] {
		return ErrUnknownScreen
	}

	c.mu.Lock()
	if c.current == to {
		c.mu.Unlock()
		return nil
	}
	c.stack = append(c.stack, c.current)
	c.current = to
	subs := c.subsLocked()
	c.mu.Unlock()

	c.persist(ctx, to)
	notify(subs, to)
	return nil
}

// Back desapila; con la pila vacía vuelve a home.
func (c *Controller) Back(ctx context.Context) Screen {
	c.mu.Lock()
	to := ScreenHome
	if n := len(c.stack); n > 0 {
		to = c.stack[n-1]
		c.stack = c.stack[:n-1]
	}
	c.current = to
	subs := c.subsLocked()
	c.mu.Unlock()

	c.persist(ctx, to)
	notify(subs, to)
	return to
}

// Reset limpia la pila (login/logout) y cambia a la pantalla dada.
func (c *Controller) Reset(ctx context.Context, to Screen) error {
	if !screens[to] {
		return ErrUnknownScreen
	}

	c.mu.Lock()
	c.stack = nil
	changed := c.current != to
	c.current = to
	subs := c.subsLocked()
	c.mu.Unlock()

	c.persist(ctx, to)
	if changed {
		notify(subs, to)
	}
	return nil
}

// Restore lee last_page. Un valor desconocido o ausente se ignora.
func (c *Controller) Restore(ctx context.Context) (Screen, bool) {
	raw, err := c.store.Get(ctx, devicestore.KeyLastPage)
	if err != nil {
		return "", false
	}
	sc, err := Parse(string(raw))
	if err != nil {
		c.log.Debug("ignoring unknown last_page", map[string]any{"value": string(raw)})
		return "", false
	}

	c.mu.Lock()
	c.current = sc
	c.stack = nil
	c.mu.Unlock()
	return sc, true
}

// OnChange registra un callback que recibe cada cambio de pantalla.
func (c *Controller) OnChange(fn func(Screen)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Controller) subsLocked() []func(Screen) {
	out := make([]func(Screen), len(c.subs))
	copy(out, c.subs)
	return out
}

func (c *Controller) persist(ctx context.Context, sc Screen) {
	if err := c.store.Set(ctx, devicestore.KeyLastPage, []byte(sc)); err != nil {
		c.log.Warn("persist last_page failed", map[string]any{"err": err})
	}
}

func notify(subs []func(Screen), sc Screen) {
	for _, fn := range subs {
		fn(sc)
	}
}
