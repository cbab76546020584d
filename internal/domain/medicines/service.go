package medicines

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
	ErrNotFound     = errors.New("medicine not found")
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

// ListForViewer devuelve los medicamentos del propio idoso, o la unión de los
// de todos los idosos vinculados si el viewer es cuidador.
func (s *Service) ListForViewer(ctx context.Context, v viewer.Viewer) ([]Medicine, error) {
	owners, err := v.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return []Medicine{}, nil
	}
	return s.repo.ListByOwners(ctx, owners)
}

type CreateInput struct {
	// OwnerUserID vacío = el propio viewer.
	OwnerUserID     string
	Nome            string
	Dose            string
	Estoque         int
	FrequenciaHoras *int
}

func (s *Service) Create(ctx context.Context, v viewer.Viewer, in CreateInput) (Medicine, error) {
	owner := strings.TrimSpace(in.OwnerUserID)
	if owner == "" {
		owner = v.UserID()
	}
	if err := s.checkAccess(ctx, v, owner); err != nil {
		return Medicine{}, err
	}

	nome := strings.TrimSpace(in.Nome)
	dose := strings.TrimSpace(in.Dose)
	if nome == "" || dose == "" {
		return Medicine{}, ErrInvalidInput
	}

	m := Medicine{
		UserID:          owner,
		Nome:            nome,
		Dose:            dose,
		Estoque:         clampStock(in.Estoque),
		FrequenciaHoras: normalizeFreq(in.FrequenciaHoras),
		CreatedAt:       s.now(),
	}
	return s.repo.Create(ctx, m)
}

type UpdateInput struct {
	Nome            *string
	Dose            *string
	Estoque         *int
	FrequenciaHoras *int
	// ClearFrequencia quita el recordatorio (frequencia_horas = null).
	ClearFrequencia bool
}

func (s *Service) Update(ctx context.Context, v viewer.Viewer, id int64, in UpdateInput) (Medicine, error) {
	m, err := s.getAccessible(ctx, v, id)
	if err != nil {
		return Medicine{}, err
	}

	if in.Nome != nil {
		nome := strings.TrimSpace(*in.Nome)
		if nome == "" {
			return Medicine{}, ErrInvalidInput
		}
		m.Nome = nome
	}
	if in.Dose != nil {
		dose := strings.TrimSpace(*in.Dose)
		if dose == "" {
			return Medicine{}, ErrInvalidInput
		}
		m.Dose = dose
	}
	if in.Estoque != nil {
		m.Estoque = clampStock(*in.Estoque)
	}
	switch {
	case in.ClearFrequencia:
		m.FrequenciaHoras = nil
	case in.FrequenciaHoras != nil:
		m.FrequenciaHoras = normalizeFreq(in.FrequenciaHoras)
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return Medicine{}, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, v viewer.Viewer, id int64) error {
	if _, err := s.getAccessible(ctx, v, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetForViewer(ctx context.Context, v viewer.Viewer, id int64) (Medicine, error) {
	return s.getAccessible(ctx, v, id)
}

func (s *Service) getAccessible(ctx context.Context, v viewer.Viewer, id int64) (Medicine, error) {
	if id <= 0 {
		return Medicine{}, ErrInvalidInput
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medicine{}, err
	}
	if err := s.checkAccess(ctx, v, m.UserID); err != nil {
		return Medicine{}, err
	}
	return m, nil
}

func (s *Service) checkAccess(ctx context.Context, v viewer.Viewer, ownerID string) error {
	ok, err := v.CanAccess(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func clampStock(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// normalizeFreq: <= 0 se guarda como null.
func normalizeFreq(f *int) *int {
	if f == nil || *f <= 0 {
		return nil
	}
	v := *f
	return &v
}
