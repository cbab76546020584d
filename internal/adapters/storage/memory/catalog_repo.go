package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vida-melhor/internal/domain/catalog"
)

type catalogRepo struct {
	mu         sync.RWMutex
	pharmacies []catalog.Pharmacy
	items      []catalog.StoreItem
}

// NewCatalogRepo arma un catálogo de solo lectura con los datos dados.
func NewCatalogRepo(pharmacies []catalog.Pharmacy, items []catalog.StoreItem) catalog.Repository {
	r := &catalogRepo{
		pharmacies: append([]catalog.Pharmacy(nil), pharmacies...),
		items:      append([]catalog.StoreItem(nil), items...),
	}
	sort.Slice(r.pharmacies, func(i, j int) bool { return r.pharmacies[i].Name < r.pharmacies[j].Name })
	sort.Slice(r.items, func(i, j int) bool { return r.items[i].Name < r.items[j].Name })
	return r
}

func (r *catalogRepo) ListPharmacies(ctx context.Context, q string) ([]catalog.Pharmacy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]catalog.Pharmacy, 0, len(r.pharmacies))
	for _, p := range r.pharmacies {
		if catalog.MatchesSearch(p.Name, q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *catalogRepo) ListStore(ctx context.Context, q catalog.StoreQuery) ([]catalog.StoreItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]catalog.StoreItem, 0)
	for _, it := range r.items {
		if q.PharmacyID != "" && it.PharmacyID != q.PharmacyID {
			continue
		}
		if !catalog.MatchesSearch(it.Name, q.Q) {
			continue
		}
		out = append(out, it)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (r *catalogRepo) GetStoreItem(ctx context.Context, id string) (catalog.StoreItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return catalog.StoreItem{}, catalog.ErrNotFound
}

// DemoCatalog son datos de ejemplo para correr el API en memoria.
func DemoCatalog() ([]catalog.Pharmacy, []catalog.StoreItem) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pharmacies := []catalog.Pharmacy{
		{ID: "ph-1", Name: "Drogaria Central", Address: "Rua das Flores, 100", Contact: "(11) 3333-1000", Email: "contato@central.example", EmailVerified: true, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "ph-2", Name: "Farmácia Bem Estar", Address: "Av. Brasil, 2500", Contact: "(11) 3333-2000", Email: "ola@bemestar.example", Active: true, CreatedAt: now, UpdatedAt: now},
	}
	items := []catalog.StoreItem{
		{ID: "m1", Name: "Losartana 50mg", Slug: "losartana-50mg", IsGeneric: true, PharmacyID: "ph-1", Stock: 40, PriceInCents: 1000, CreatedAt: now},
		{ID: "m2", Name: "Dipirona 500mg", Slug: "dipirona-500mg", IsGeneric: true, PharmacyID: "ph-1", Stock: 120, PriceInCents: 650, CreatedAt: now},
		{ID: "m3", Name: "Sinvastatina 20mg", Slug: "sinvastatina-20mg", IsGeneric: true, PharmacyID: "ph-2", Stock: 0, PriceInCents: 1890, CreatedAt: now},
	}
	return pharmacies, items
}
