package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vida-melhor/internal/domain/medicines"
)

type medicineRepo struct {
	mu     sync.RWMutex
	byID   map[int64]medicines.Medicine
	nextID int64
}

func NewMedicineRepo() medicines.Repository {
	return &medicineRepo{
		byID: make(map[int64]medicines.Medicine),
	}
}

func (r *medicineRepo) ListByOwners(ctx context.Context, ownerIDs []string) ([]medicines.Medicine, error) {
	out := make([]medicines.Medicine, 0)
	if len(ownerIDs) == 0 {
		return out, nil
	}

	owners := make(map[string]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if owners[m.UserID] {
			out = append(out, cloneMedicine(m))
		}
	}

	// Orden de carga = id desc (más reciente primero), igual que en Postgres.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *medicineRepo) GetByID(ctx context.Context, id int64) (medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return cloneMedicine(m), nil
}

func (r *medicineRepo) Create(ctx context.Context, m medicines.Medicine) (medicines.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	m.ID = r.nextID
	r.byID[m.ID] = cloneMedicine(m)
	return m, nil
}

func (r *medicineRepo) Update(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; !ok {
		return medicines.ErrNotFound
	}
	r.byID[m.ID] = cloneMedicine(m)
	return nil
}

func (r *medicineRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return medicines.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *medicineRepo) ConfirmDose(ctx context.Context, id int64, at time.Time) (medicines.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	t := at
	m.UltimaDose = &t
	if m.Estoque > 0 {
		m.Estoque--
	}
	r.byID[id] = m
	return cloneMedicine(m), nil
}

func (r *medicineRepo) ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, m := range r.byID {
		if m.ID > afterID && m.IsDue(now) {
			out = append(out, cloneMedicine(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneMedicine(m medicines.Medicine) medicines.Medicine {
	if m.FrequenciaHoras != nil {
		v := *m.FrequenciaHoras
		m.FrequenciaHoras = &v
	}
	if m.UltimaDose != nil {
		v := *m.UltimaDose
		m.UltimaDose = &v
	}
	return m
}
