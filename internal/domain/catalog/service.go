package catalog

import (
	"context"
	"errors"
	"strings"
)

const (
	DefaultStoreLimit = 50
	MaxStoreLimit     = 200
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("catalog item not found")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListPharmacies(ctx context.Context, q string) ([]Pharmacy, error) {
	return s.repo.ListPharmacies(ctx, normalizeSearch(q))
}

func (s *Service) SearchStore(ctx context.Context, q StoreQuery) ([]StoreItem, error) {
	q.Q = normalizeSearch(q.Q)
	q.PharmacyID = strings.TrimSpace(q.PharmacyID)
	switch {
	case q.Limit < 0:
		return nil, ErrInvalidInput
	case q.Limit == 0:
		q.Limit = DefaultStoreLimit
	case q.Limit > MaxStoreLimit:
		q.Limit = MaxStoreLimit
	}
	return s.repo.ListStore(ctx, q)
}

func (s *Service) GetStoreItem(ctx context.Context, id string) (StoreItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return StoreItem{}, ErrInvalidInput
	}
	return s.repo.GetStoreItem(ctx, id)
}

// normalizeSearch quita espacios y los comodines de ilike que manda el usuario.
func normalizeSearch(q string) string {
	q = strings.TrimSpace(q)
	return strings.NewReplacer("%", "", "*", "", ",", " ").Replace(q)
}

// MatchesSearch es el equivalente en memoria de name ilike '%q%'.
func MatchesSearch(name, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(q))
}
