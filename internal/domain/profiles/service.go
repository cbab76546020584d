package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("profile not found")

	// Los adapters de storage traducen a estos errores los fallos de esquema
	// (columna inexistente) y de política de acceso (RLS).
	ErrSchemaMismatch   = errors.New("profiles: schema mismatch")
	ErrPermissionDenied = errors.New("profiles: permission denied")

	// ErrCarerChanged: SetCarer encontró la fila pero carer_id ya no era el esperado.
	ErrCarerChanged = errors.New("profiles: carer_id changed concurrently")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// PendingProfile es lo que el cliente guarda en el dispositivo cuando el alta
// del perfil falla justo después del sign-up. Se consume en el próximo Ensure.
type PendingProfile struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
	Phone string `json:"phone"`
	Carer *bool  `json:"carer,omitempty"`
}

type EnsureInput struct {
	UserID   string
	Email    string
	Metadata map[string]any
	Pending  *PendingProfile
}

// Ensure crea o completa el perfil del usuario autenticado.
// Prioridad por campo: pendiente > metadata de auth > existente.
func (s *Service) Ensure(ctx context.Context, in EnsureInput) (Profile, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return Profile{}, ErrInvalidInput
	}

	existing, err := s.repo.GetByID(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		existing = Profile{ID: userID}
	default:
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}

	pending := PendingProfile{}
	if in.Pending != nil {
		pending = *in.Pending
	}
	meta := in.Metadata

	p := existing
	p.ID = userID
	p.Name = firstNonEmpty(strings.TrimSpace(pending.Name), metaString(meta, "name"), existing.Name)
	p.Email = firstNonEmpty(strings.TrimSpace(in.Email), existing.Email)
	p.CPF = firstNonEmpty(OnlyDigits(pending.CPF), OnlyDigits(metaString(meta, "cpf")), existing.CPF)
	p.Phone = firstNonEmpty(OnlyDigits(pending.Phone), OnlyDigits(metaString(meta, "phone")), existing.Phone)

	switch {
	case pending.Carer != nil:
		p.Carer = *pending.Carer
	case metaBoolOK(meta, "carer"):
		p.Carer, _ = metaBool(meta, "carer")
	}

	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.repo.Upsert(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name        *string
	Phone       *string
	CPF         *string
	Address     *string
	SpecialCare *string
}

func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (Profile, error) {
	p, err := s.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Profile{}, ErrInvalidInput
		}
		p.Name = name
	}
	if in.Phone != nil {
		p.Phone = OnlyDigits(*in.Phone)
	}
	if in.CPF != nil {
		cpf := OnlyDigits(*in.CPF)
		if cpf != "" && len(cpf) != 11 {
			return Profile{}, ErrInvalidInput
		}
		p.CPF = cpf
	}
	if in.Address != nil {
		p.Address = strings.TrimSpace(*in.Address)
	}
	if in.SpecialCare != nil {
		p.SpecialCare = strings.TrimSpace(*in.SpecialCare)
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) SetDeviceToken(ctx context.Context, userID, token string) error {
	p, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	p.DeviceToken = strings.TrimSpace(token)
	p.UpdatedAt = s.now()
	return s.repo.Upsert(ctx, p)
}

// EldersOf devuelve los ids de los idosos vinculados al cuidador.
// Implementa viewer.ElderLookup.
func (s *Service) EldersOf(ctx context.Context, carerID string) ([]string, error) {
	items, err := s.repo.ListByCarer(ctx, carerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// IsCarer implementa viewer.ElderLookup. Un perfil que todavía no existe no es cuidador.
func (s *Service) IsCarer(ctx context.Context, userID string) (bool, error) {
	p, err := s.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Carer, nil
}

// OnlyDigits limpia máscaras de CPF/telefone ("123.456.789-09" -> "12345678909").
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	switch v := meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func metaBoolOK(meta map[string]any, key string) bool {
	_, ok := metaBool(meta, key)
	return ok
}

func metaBool(meta map[string]any, key string) (bool, bool) {
	if meta == nil {
		return false, false
	}
	switch v := meta[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "cuidador":
			return true, true
		case "false", "0", "idoso":
			return false, true
		}
	}
	return false, false
}
