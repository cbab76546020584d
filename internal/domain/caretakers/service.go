package caretakers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/platform/logger"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("profile not found")
	ErrNotCarer      = errors.New("only caretaker accounts can link elders")
	ErrInvalidTarget = errors.New("target is a caretaker account")
	ErrAlreadyLinked = errors.New("elder is already linked to another caretaker")
	ErrForbidden     = errors.New("elder is not linked to you")

	ErrSchemaMismatch   = errors.New("column carer_id is missing in profiles: add it (uuid, nullable, references profiles.id)")
	ErrPermissionDenied = errors.New("permission denied by access policy: check the row level security policy on profiles")
	ErrBackend          = errors.New("could not update the link, try again")
)

type Service struct {
	repo Repository
	log  logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// ListLinkable devuelve los perfiles no cuidadores con su estado de vínculo.
func (s *Service) ListLinkable(ctx context.Context, actorID string) ([]LinkableElder, error) {
	if _, err := s.requireCarer(ctx, actorID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListNonCarers(ctx)
	if err != nil {
		return nil, s.classify("list linkable", actorID, "", err)
	}

	out := make([]LinkableElder, 0, len(items))
	for _, p := range items {
		if p.ID == actorID {
			continue
		}
		out = append(out, LinkableElder{Profile: p, Status: statusFor(p, actorID)})
	}
	return out, nil
}

// Link vincula el idoso al cuidador. El chequeo de "ya vinculado a otro" se hace
// acá y otra vez en la escritura: SetCarer solo pisa un carer_id todavía vacío.
func (s *Service) Link(ctx context.Context, actorID, elderID string) (LinkableElder, error) {
	target, err := s.loadTarget(ctx, actorID, elderID)
	if err != nil {
		return LinkableElder{}, err
	}

	switch statusFor(target, actorID) {
	case StatusLinkedToMe:
		return LinkableElder{Profile: target, Status: StatusLinkedToMe}, nil
	case StatusLinkedToOther:
		return LinkableElder{}, ErrAlreadyLinked
	}

	carer := actorID
	if err := s.repo.SetCarer(ctx, target.ID, nil, &carer); err != nil {
		if errors.Is(err, profiles.ErrCarerChanged) {
			return s.afterRace(ctx, actorID, target.ID, StatusLinkedToMe, ErrAlreadyLinked)
		}
		return LinkableElder{}, s.classify("link", actorID, elderID, err)
	}
	target.CarerID = &carer

	s.log.Info("elder linked", map[string]any{"carer_id": actorID, "elder_id": elderID})
	return LinkableElder{Profile: target, Status: StatusLinkedToMe}, nil
}

// Unlink solo procede si el vínculo actual apunta al cuidador que actúa.
func (s *Service) Unlink(ctx context.Context, actorID, elderID string) (LinkableElder, error) {
	target, err := s.loadTarget(ctx, actorID, elderID)
	if err != nil {
		return LinkableElder{}, err
	}
	if !target.LinkedTo(actorID) {
		return LinkableElder{}, ErrForbidden
	}

	if err := s.repo.SetCarer(ctx, target.ID, target.CarerID, nil); err != nil {
		if errors.Is(err, profiles.ErrCarerChanged) {
			return s.afterRace(ctx, actorID, target.ID, StatusUnlinked, ErrForbidden)
		}
		return LinkableElder{}, s.classify("unlink", actorID, elderID, err)
	}
	target.CarerID = nil

	s.log.Info("elder unlinked", map[string]any{"carer_id": actorID, "elder_id": elderID})
	return LinkableElder{Profile: target, Status: StatusUnlinked}, nil
}

// Toggle: vincula si está libre, desvincula si es mío, rechaza si es de otro.
func (s *Service) Toggle(ctx context.Context, actorID, elderID string) (LinkableElder, error) {
	target, err := s.loadTarget(ctx, actorID, elderID)
	if err != nil {
		return LinkableElder{}, err
	}
	if target.LinkedTo(actorID) {
		return s.Unlink(ctx, actorID, elderID)
	}
	return s.Link(ctx, actorID, elderID)
}

// afterRace relee el idoso cuando otro escribió carer_id entre la lectura y la
// escritura. Si el estado ya es el buscado no es error; si no, conflict.
func (s *Service) afterRace(ctx context.Context, actorID, elderID string, want LinkStatus, conflict error) (LinkableElder, error) {
	cur, err := s.repo.GetByID(ctx, elderID)
	if err != nil {
		return LinkableElder{}, s.classify("reload elder", actorID, elderID, err)
	}
	got := statusFor(cur, actorID)
	s.log.Warn("caretaker link changed concurrently", map[string]any{
		"carer_id": actorID,
		"elder_id": elderID,
		"status":   string(got),
	})
	if got != want {
		return LinkableElder{}, conflict
	}
	return LinkableElder{Profile: cur, Status: got}, nil
}

func (s *Service) loadTarget(ctx context.Context, actorID, elderID string) (profiles.Profile, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || elderID == strings.TrimSpace(actorID) {
		return profiles.Profile{}, ErrInvalidInput
	}
	if _, err := s.requireCarer(ctx, actorID); err != nil {
		return profiles.Profile{}, err
	}

	target, err := s.repo.GetByID(ctx, elderID)
	if err != nil {
		return profiles.Profile{}, s.classify("load elder", actorID, elderID, err)
	}
	if target.Carer {
		return profiles.Profile{}, ErrInvalidTarget
	}
	return target, nil
}

func (s *Service) requireCarer(ctx context.Context, actorID string) (profiles.Profile, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return profiles.Profile{}, ErrInvalidInput
	}
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			return profiles.Profile{}, ErrNotCarer
		}
		return profiles.Profile{}, s.classify("load actor", actorID, "", err)
	}
	if !actor.Carer {
		return profiles.Profile{}, ErrNotCarer
	}
	return actor, nil
}

// classify traduce errores de storage a la taxonomía que ve el cuidador.
func (s *Service) classify(op, actorID, elderID string, err error) error {
	var out error
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, profiles.ErrSchemaMismatch):
		out = ErrSchemaMismatch
	case errors.Is(err, profiles.ErrPermissionDenied):
		out = ErrPermissionDenied
	default:
		out = ErrBackend
	}

	s.log.Error("caretaker "+op+" failed", map[string]any{
		"carer_id": actorID,
		"elder_id": elderID,
		"err":      err,
	})
	return fmt.Errorf("%w: %v", out, err)
}
