package memory

import (
	"context"
	"sort"
	"sync"

	"vida-melhor/internal/domain/consultations"
)

type consultationRepo struct {
	mu     sync.RWMutex
	items  []consultations.Consultation
	nextID int64
}

func NewConsultationRepo() consultations.Repository {
	return &consultationRepo{}
}

func (r *consultationRepo) Create(ctx context.Context, c consultations.Consultation) (consultations.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c.ID = r.nextID
	r.items = append(r.items, c)
	return c, nil
}

func (r *consultationRepo) ListByOwners(ctx context.Context, ownerIDs []string, rng consultations.Range) ([]consultations.Consultation, error) {
	out := make([]consultations.Consultation, 0)
	if len(ownerIDs) == 0 {
		return out, nil
	}

	owners := make(map[string]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if owners[c.UserID] && rng.Contains(c.DataHora) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DataHora.Before(out[j].DataHora)
	})
	return out, nil
}
