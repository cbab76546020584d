package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"vida-melhor/internal/domain/profiles"
)

type profileRepo struct {
	mu   sync.RWMutex
	byID map[string]profiles.Profile
}

func NewProfileRepo() profiles.Repository {
	return &profileRepo{
		byID: make(map[string]profiles.Profile),
	}
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *profileRepo) Upsert(ctx context.Context, p profiles.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id required")
	}
	r.byID[p.ID] = cloneProfile(p)
	return nil
}

func (r *profileRepo) ListNonCarers(ctx context.Context) ([]profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profiles.Profile, 0)
	for _, p := range r.byID {
		if !p.Carer {
			out = append(out, cloneProfile(p))
		}
	}
	sortProfiles(out)
	return out, nil
}

func (r *profileRepo) ListByCarer(ctx context.Context, carerID string) ([]profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profiles.Profile, 0)
	for _, p := range r.byID {
		if p.LinkedTo(carerID) {
			out = append(out, cloneProfile(p))
		}
	}
	sortProfiles(out)
	return out, nil
}

// SetCarer compara y escribe bajo el mismo lock.
func (r *profileRepo) SetCarer(ctx context.Context, profileID string, expected, carerID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[profileID]
	if !ok {
		return profiles.ErrNotFound
	}
	if !sameCarer(p.CarerID, expected) {
		return profiles.ErrCarerChanged
	}
	if carerID != nil {
		v := *carerID
		p.CarerID = &v
	} else {
		p.CarerID = nil
	}
	r.byID[profileID] = p
	return nil
}

// Orden estable por nombre (solo para consistencia en dev)
func sortProfiles(out []profiles.Profile) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
}

func sameCarer(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneProfile(p profiles.Profile) profiles.Profile {
	if p.CarerID != nil {
		v := *p.CarerID
		p.CarerID = &v
	}
	return p
}
