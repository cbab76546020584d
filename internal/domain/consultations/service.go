package consultations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vida-melhor/internal/domain/viewer"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidTipo  = errors.New("tipo must be presencial or telemedicina")
	ErrForbidden    = errors.New("forbidden")
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

type CreateInput struct {
	// OwnerUserID vacío = el propio viewer. Un cuidador puede agendar para sus idosos.
	OwnerUserID   string
	Nome          string
	DataHora      time.Time
	Tipo          Tipo
	Medico        string
	Especialidade string
}

func (s *Service) Create(ctx context.Context, v viewer.Viewer, in CreateInput) (Consultation, error) {
	owner := strings.TrimSpace(in.OwnerUserID)
	if owner == "" {
		owner = v.UserID()
	}

	ok, err := v.CanAccess(ctx, owner)
	if err != nil {
		return Consultation{}, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return Consultation{}, ErrForbidden
	}

	nome := strings.TrimSpace(in.Nome)
	if nome == "" || in.DataHora.IsZero() {
		return Consultation{}, ErrInvalidInput
	}
	tipo := Tipo(strings.ToLower(strings.TrimSpace(string(in.Tipo))))
	if !tipo.Valid() {
		return Consultation{}, ErrInvalidTipo
	}

	c := Consultation{
		UserID:        owner,
		Nome:          nome,
		DataHora:      in.DataHora.UTC(),
		Tipo:          tipo,
		Medico:        strings.TrimSpace(in.Medico),
		Especialidade: strings.TrimSpace(in.Especialidade),
		CreatedAt:     s.now(),
	}
	return s.repo.Create(ctx, c)
}

// ListForViewer: propias, o de todos los idosos vinculados si es cuidador.
func (s *Service) ListForViewer(ctx context.Context, v viewer.Viewer, rng Range) ([]Consultation, error) {
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return nil, ErrInvalidInput
	}

	owners, err := v.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return []Consultation{}, nil
	}
	return s.repo.ListByOwners(ctx, owners, rng)
}

// Upcoming devuelve las próximas consultas desde ahora.
func (s *Service) Upcoming(ctx context.Context, v viewer.Viewer) ([]Consultation, error) {
	now := s.now()
	return s.ListForViewer(ctx, v, Range{From: &now})
}
