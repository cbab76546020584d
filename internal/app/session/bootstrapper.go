package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vida-melhor/internal/app/navigation"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/backend"
)

// EnsureFunc completa el perfil del usuario con sesión. Se llama sin bloquear la navegación.
type EnsureFunc func(ctx context.Context, s backend.Session) error

const ensureTimeout = 15 * time.Second

// Bootstrapper decide la primera pantalla según haya sesión o no, y vuelve a
// decidir en cada evento de autenticación mientras está vivo.
type Bootstrapper struct {
	auth   backend.AuthGateway
	nav    *navigation.Controller
	ensure EnsureFunc
	log    logger.Logger

	loading atomic.Bool
	decided chan struct{}
	once    sync.Once

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

func New(auth backend.AuthGateway, nav *navigation.Controller, ensure EnsureFunc, log logger.Logger) *Bootstrapper {
	if log == nil {
		log = logger.Nop()
	}
	b := &Bootstrapper{
		auth:    auth,
		nav:     nav,
		ensure:  ensure,
		log:     log,
		decided: make(chan struct{}),
	}
	b.loading.Store(true)
	return b
}

// Start hace el chequeo inicial y se suscribe a los cambios de auth.
// Devuelve la pantalla elegida.
func (b *Bootstrapper) Start(ctx context.Context) navigation.Screen {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	sc := b.decide(ctx, true, true)

	unsub := b.auth.OnAuthStateChange(func(event backend.AuthEvent, s *backend.Session) {
		b.handleEvent(event)
	})
	b.mu.Lock()
	b.unsubscribe = unsub
	b.mu.Unlock()

	return sc
}

// Loading es true solo hasta la primera decisión.
func (b *Bootstrapper) Loading() bool {
	return b.loading.Load()
}

// Ready se cierra después de la primera decisión.
func (b *Bootstrapper) Ready() <-chan struct{} {
	return b.decided
}

// Close se desuscribe y espera los ensure en curso.
func (b *Bootstrapper) Close() {
	b.mu.Lock()
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	b.wg.Wait()
}

func (b *Bootstrapper) handleEvent(event backend.AuthEvent) {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	b.log.Debug("auth state changed", map[string]any{"event": string(event)})
	b.decide(ctx, event == backend.EventSignedIn, false)
}

// decide: sin sesión o con error => login. Con sesión, el arranque siempre va a
// home (aunque last_page diga otra cosa); en eventos posteriores se mantiene la
// pantalla actual salvo que sea login/register.
func (b *Bootstrapper) decide(ctx context.Context, runEnsure, initial bool) navigation.Screen {
	defer b.once.Do(func() {
		b.loading.Store(false)
		close(b.decided)
	})

	s, err := b.auth.GetSession(ctx)
	if err != nil {
		b.log.Warn("session check failed, treating as signed out", map[string]any{"err": err})
		s = nil
	}

	if s == nil {
		if err := b.nav.Reset(ctx, navigation.ScreenLogin); err != nil {
			b.log.Error("navigate to login failed", map[string]any{"err": err})
		}
		return navigation.ScreenLogin
	}

	if runEnsure && b.ensure != nil {
		b.fireEnsure(*s)
	}

	switch cur := b.nav.Current(); {
	case initial, cur == navigation.ScreenLogin, cur == navigation.ScreenRegister:
		if err := b.nav.Reset(ctx, navigation.ScreenHome); err != nil {
			b.log.Error("navigate to home failed", map[string]any{"err": err})
		}
		return navigation.ScreenHome
	default:
		return cur
	}
}

func (b *Bootstrapper) fireEnsure(s backend.Session) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), ensureTimeout)
		defer cancel()

		if err := b.ensure(ctx, s); err != nil {
			b.log.Warn("ensure profile failed", map[string]any{
				"user_id": s.User.ID,
				"err":     err,
			})
		}
	}()
}
