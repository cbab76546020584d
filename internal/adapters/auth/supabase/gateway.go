// Package supabase implementa la autenticación contra GoTrue (/auth/v1).
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vida-melhor/internal/app/devicestore"
	"vida-melhor/internal/platform/httpclient"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/backend"
)

// Margen para refrescar antes de que expire el access token.
const refreshSkew = 30 * time.Second

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// Gateway implementa backend.AuthGateway. La sesión vive en memoria y se
// persiste en el devicestore para sobrevivir reinicios.
type Gateway struct {
	http  *httpclient.Client
	store devicestore.Store
	log   logger.Logger
	now   func() time.Time

	mu        sync.Mutex
	session   *backend.Session
	loaded    bool
	listeners map[int]backend.AuthListener
	nextID    int
}

var _ backend.AuthGateway = (*Gateway)(nil)

func NewGateway(cfg Config, store devicestore.Store, log logger.Logger) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" || strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("supabase: url and anon key are required")
	}
	hc, err := httpclient.New(base+"/auth/v1", cfg.Timeout)
	if err != nil {
		return nil, err
	}
	hc.Header["apikey"] = cfg.AnonKey
	if store == nil {
		store = devicestore.NewMemory()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		http:      hc,
		store:     store,
		log:       log,
		now:       time.Now,
		listeners: map[int]backend.AuthListener{},
	}, nil
}

type userDTO struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userDTO) toUser() backend.User {
	return backend.User{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

type sessionDTO struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	User         userDTO `json:"user"`
}

func (s sessionDTO) toSession(now time.Time) backend.Session {
	exp := time.Time{}
	switch {
	case s.ExpiresAt > 0:
		exp = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		exp = now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return backend.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    exp,
		User:         s.User.toUser(),
	}
}

// storedSession es el formato en disco de la sesión.
type storedSession struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	UserID       string         `json:"user_id"`
	Email        string         `json:"email"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// GetSession devuelve la sesión vigente (refrescándola si hace falta) o nil.
func (g *Gateway) GetSession(ctx context.Context) (*backend.Session, error) {
	s, err := g.current(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	if s.ExpiresAt.IsZero() || g.now().Add(refreshSkew).Before(s.ExpiresAt) {
		return s, nil
	}
	if s.RefreshToken == "" {
		g.clear(ctx)
		return nil, nil
	}

	fresh, err := g.refresh(ctx, s.RefreshToken)
	if err != nil {
		// refresh token rechazado: la sesión ya no sirve
		if st := httpclient.StatusOf(err); st == http.StatusBadRequest || st == http.StatusUnauthorized {
			g.clear(ctx)
			g.emit(backend.EventSignedOut, nil)
			return nil, nil
		}
		return nil, err
	}
	g.set(ctx, &fresh)
	g.emit(backend.EventTokenRefreshed, &fresh)
	return &fresh, nil
}

// AccessToken sirve como TokenSource para el cliente de tablas.
func (g *Gateway) AccessToken(ctx context.Context) string {
	s, err := g.GetSession(ctx)
	if err != nil || s == nil {
		return ""
	}
	return s.AccessToken
}

func (g *Gateway) GetUser(ctx context.Context) (backend.User, error) {
	s, err := g.GetSession(ctx)
	if err != nil {
		return backend.User{}, err
	}
	if s == nil {
		return backend.User{}, backend.ErrNoSession
	}
	return g.fetchUser(ctx, s.AccessToken)
}

func (g *Gateway) SignInWithPassword(ctx context.Context, email, password string) (backend.Session, error) {
	var out sessionDTO
	_, err := g.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/token",
		Query:  url.Values{"grant_type": {"password"}},
		Body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		if st := httpclient.StatusOf(err); st == http.StatusBadRequest || st == http.StatusUnauthorized {
			return backend.Session{}, fmt.Errorf("%w: %v", backend.ErrInvalidCredentials, err)
		}
		return backend.Session{}, fmt.Errorf("sign in: %w", err)
	}

	s := out.toSession(g.now())
	g.set(ctx, &s)
	g.emit(backend.EventSignedIn, &s)
	return s, nil
}

// SignUp crea la cuenta. Si el proyecto exige confirmar email no hay sesión.
func (g *Gateway) SignUp(ctx context.Context, in backend.SignUpInput) (backend.User, *backend.Session, error) {
	var raw json.RawMessage
	err := g.http.DoJSON(ctx, http.MethodPost, "/signup", nil, map[string]any{
		"email":    in.Email,
		"password": in.Password,
		"data":     in.Metadata,
	}, &raw)
	if err != nil {
		return backend.User{}, nil, fmt.Errorf("sign up: %w", err)
	}

	var sess sessionDTO
	if err := json.Unmarshal(raw, &sess); err == nil && sess.AccessToken != "" {
		s := sess.toSession(g.now())
		g.set(ctx, &s)
		g.emit(backend.EventSignedIn, &s)
		return s.User, &s, nil
	}

	var u userDTO
	if err := json.Unmarshal(raw, &u); err != nil {
		return backend.User{}, nil, fmt.Errorf("sign up: decode user: %w", err)
	}
	return u.toUser(), nil, nil
}

// SignOut invalida el token en el servidor (best effort) y borra la sesión local.
func (g *Gateway) SignOut(ctx context.Context) error {
	s, _ := g.current(ctx)
	if s != nil && s.AccessToken != "" {
		err := g.http.DoJSON(ctx, http.MethodPost, "/logout", map[string]string{
			"Authorization": "Bearer " + s.AccessToken,
		}, nil, nil)
		if err != nil {
			g.log.Warn("remote sign out failed", map[string]any{"err": err})
		}
	}
	g.clear(ctx)
	g.emit(backend.EventSignedOut, nil)
	return nil
}

func (g *Gateway) OnAuthStateChange(fn backend.AuthListener) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

func (g *Gateway) fetchUser(ctx context.Context, token string) (backend.User, error) {
	var u userDTO
	err := g.http.DoJSON(ctx, http.MethodGet, "/user", map[string]string{
		"Authorization": "Bearer " + token,
	}, nil, &u)
	if err != nil {
		if httpclient.StatusOf(err) == http.StatusUnauthorized {
			return backend.User{}, backend.ErrNoSession
		}
		return backend.User{}, fmt.Errorf("get user: %w", err)
	}
	return u.toUser(), nil
}

func (g *Gateway) refresh(ctx context.Context, refreshToken string) (backend.Session, error) {
	var out sessionDTO
	_, err := g.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/token",
		Query:  url.Values{"grant_type": {"refresh_token"}},
		Body:   map[string]string{"refresh_token": refreshToken},
	}, &out)
	if err != nil {
		return backend.Session{}, fmt.Errorf("refresh session: %w", err)
	}
	return out.toSession(g.now()), nil
}

// current devuelve la sesión en memoria, cargándola del store la primera vez.
func (g *Gateway) current(ctx context.Context) (*backend.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.loaded {
		return copySession(g.session), nil
	}
	g.loaded = true

	raw, err := g.store.Get(ctx, devicestore.KeySession)
	if errors.Is(err, devicestore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var st storedSession
	if err := json.Unmarshal(raw, &st); err != nil || st.AccessToken == "" {
		g.log.Warn("discarding unreadable stored session", map[string]any{"err": err})
		_ = g.store.Delete(ctx, devicestore.KeySession)
		return nil, nil
	}
	g.session = &backend.Session{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		ExpiresAt:    st.ExpiresAt,
		User:         backend.User{ID: st.UserID, Email: st.Email, Metadata: st.Metadata},
	}
	return copySession(g.session), nil
}

func (g *Gateway) set(ctx context.Context, s *backend.Session) {
	g.mu.Lock()
	g.session = copySession(s)
	g.loaded = true
	g.mu.Unlock()

	raw, err := json.Marshal(storedSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.User.ID,
		Email:        s.User.Email,
		Metadata:     s.User.Metadata,
	})
	if err == nil {
		err = g.store.Set(ctx, devicestore.KeySession, raw)
	}
	if err != nil {
		g.log.Warn("persist session failed", map[string]any{"err": err})
	}
}

func (g *Gateway) clear(ctx context.Context) {
	g.mu.Lock()
	g.session = nil
	g.loaded = true
	g.mu.Unlock()

	if err := g.store.Delete(ctx, devicestore.KeySession); err != nil {
		g.log.Warn("delete session failed", map[string]any{"err": err})
	}
}

// emit llama a los listeners fuera del lock: pueden volver a pedir la sesión.
func (g *Gateway) emit(event backend.AuthEvent, s *backend.Session) {
	g.mu.Lock()
	fns := make([]backend.AuthListener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(event, copySession(s))
	}
}

func copySession(s *backend.Session) *backend.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
