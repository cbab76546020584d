package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"vida-melhor/internal/app/devicestore"
	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/backend"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrWeakPassword = errors.New("password must have at least 6 characters")
)

// ProfileEnsurer es lo que account necesita de profiles.Service.
type ProfileEnsurer interface {
	Ensure(ctx context.Context, in profiles.EnsureInput) (profiles.Profile, error)
}

type Service struct {
	auth     backend.AuthGateway
	profiles ProfileEnsurer
	store    devicestore.Store
	log      logger.Logger
}

func NewService(auth backend.AuthGateway, p ProfileEnsurer, store devicestore.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{auth: auth, profiles: p, store: store, log: log}
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	CPF      string
	Phone    string
	Carer    bool
}

type SignUpResult struct {
	User backend.User
	// ProfileSaved=false significa que el perfil quedó pendiente en el dispositivo.
	ProfileSaved bool
	// NeedsConfirmation: el backend no devolvió sesión (confirmación por email).
	NeedsConfirmation bool
}

// SignUp crea la cuenta con metadata limpia. Si el perfil no se puede guardar
// en el momento, queda pendiente en el dispositivo y se consume en EnsureProfile.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (SignUpResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	cpf := profiles.OnlyDigits(in.CPF)
	phone := profiles.OnlyDigits(in.Phone)

	if name == "" || email == "" {
		return SignUpResult{}, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return SignUpResult{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(in.Password) < 6 {
		return SignUpResult{}, ErrWeakPassword
	}

	user, sess, err := s.auth.SignUp(ctx, backend.SignUpInput{
		Email:    email,
		Password: in.Password,
		Metadata: map[string]any{
			"name":  name,
			"cpf":   cpf,
			"phone": phone,
			"carer": in.Carer,
		},
	})
	if err != nil {
		return SignUpResult{}, err
	}

	carer := in.Carer
	pending := profiles.PendingProfile{
		ID:    user.ID,
		Name:  name,
		Email: email,
		CPF:   cpf,
		Phone: phone,
		Carer: &carer,
	}

	res := SignUpResult{User: user, NeedsConfirmation: sess == nil}

	if user.ID != "" && sess != nil {
		_, err := s.profiles.Ensure(ctx, profiles.EnsureInput{
			UserID:   user.ID,
			Email:    email,
			Metadata: user.Metadata,
			Pending:  &pending,
		})
		if err == nil {
			res.ProfileSaved = true
		} else {
			s.log.Warn("profile upsert after sign-up failed, saving pending", map[string]any{
				"user_id": user.ID,
				"err":     err,
			})
		}
	}

	if res.ProfileSaved {
		_ = s.store.Delete(ctx, devicestore.KeyPendingProfile)
		return res, nil
	}

	if err := s.savePending(ctx, pending); err != nil {
		s.log.Warn("save pending profile failed", map[string]any{"err": err})
	}
	return res, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return backend.Session{}, ErrInvalidInput
	}
	return s.auth.SignInWithPassword(ctx, email, password)
}

func (s *Service) SignOut(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

// EnsureProfile es el EnsureFunc del bootstrapper: completa el perfil con la
// metadata de auth y, si hay, el perfil pendiente del dispositivo.
func (s *Service) EnsureProfile(ctx context.Context, sess backend.Session) error {
	pending, ok := s.loadPending(ctx)
	if ok && pending.ID != "" && pending.ID != sess.User.ID {
		// Pendiente de otra cuenta: no se mezcla.
		ok = false
	}

	in := profiles.EnsureInput{
		UserID:   sess.User.ID,
		Email:    sess.User.Email,
		Metadata: sess.User.Metadata,
	}
	if ok {
		in.Pending = &pending
	}

	if _, err := s.profiles.Ensure(ctx, in); err != nil {
		return err
	}
	if ok {
		_ = s.store.Delete(ctx, devicestore.KeyPendingProfile)
	}
	return nil
}

func (s *Service) savePending(ctx context.Context, p profiles.PendingProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, devicestore.KeyPendingProfile, raw)
}

func (s *Service) loadPending(ctx context.Context) (profiles.PendingProfile, bool) {
	raw, err := s.store.Get(ctx, devicestore.KeyPendingProfile)
	if err != nil || len(raw) == 0 {
		return profiles.PendingProfile{}, false
	}
	var p profiles.PendingProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("pending profile corrupt, dropping", map[string]any{"err": err})
		_ = s.store.Delete(ctx, devicestore.KeyPendingProfile)
		return profiles.PendingProfile{}, false
	}
	return p, true
}
