package consultations

import (
	"context"
	"time"
)

// Range filtra por data_hora (ambos extremos inclusivos, nil = abierto).
type Range struct {
	From *time.Time
	To   *time.Time
}

func (r Range) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

type Repository interface {
	// Create asigna el ID.
	Create(ctx context.Context, c Consultation) (Consultation, error)
	// ListByOwners ordena por data_hora ascendente.
	ListByOwners(ctx context.Context, ownerIDs []string, rng Range) ([]Consultation, error)
}
