package backend

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no session")
)

// AuthEvent replica los eventos que emite el backend hospedado.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

type User struct {
	ID       string
	Email    string
	Metadata map[string]any
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type SignUpInput struct {
	Email    string
	Password string
	Metadata map[string]any
}

// AuthListener recibe cada cambio de estado de autenticación.
// session es nil en EventSignedOut.
type AuthListener func(event AuthEvent, session *Session)

// AuthGateway es el colaborador externo de autenticación.
// La implementación real habla con GoTrue; los tests usan un fake.
type AuthGateway interface {
	GetSession(ctx context.Context) (*Session, error)
	GetUser(ctx context.Context) (User, error)
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, in SignUpInput) (User, *Session, error)
	SignOut(ctx context.Context) error

	// OnAuthStateChange registra un listener. Devuelve la función para desuscribirse.
	OnAuthStateChange(fn AuthListener) (unsubscribe func())
}
