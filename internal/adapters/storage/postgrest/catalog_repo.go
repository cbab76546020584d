package postgrest

import (
	"context"
	"time"

	"vida-melhor/internal/domain/catalog"
)

type pharmacyRow struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       *string   `json:"address"`
	Contact       *string   `json:"contact"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type storeRow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description"`
	CategoryID   *string   `json:"category_id"`
	IsGeneric    bool      `json:"is_generic"`
	PharmacyID   string    `json:"pharmacy_id"`
	Stock        int       `json:"stock"`
	PriceInCents int64     `json:"price_in_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r storeRow) toDomain() catalog.StoreItem {
	return catalog.StoreItem{
		ID:           r.ID,
		Name:         r.Name,
		Slug:         r.Slug,
		Description:  deref(r.Description),
		CategoryID:   deref(r.CategoryID),
		IsGeneric:    r.IsGeneric,
		PharmacyID:   r.PharmacyID,
		Stock:        r.Stock,
		PriceInCents: r.PriceInCents,
		CreatedAt:    r.CreatedAt,
	}
}

type CatalogRepo struct {
	c *Client
}

func NewCatalogRepo(c *Client) *CatalogRepo {
	return &CatalogRepo{c: c}
}

func (r *CatalogRepo) ListPharmacies(ctx context.Context, q string) ([]catalog.Pharmacy, error) {
	query := r.c.From("pharmacies").Select("*")
	if q != "" {
		query = query.ILike("name", q)
	}
	var rows []pharmacyRow
	if err := query.Order("name", true).Get(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]catalog.Pharmacy, 0, len(rows))
	for _, p := range rows {
		out = append(out, catalog.Pharmacy{
			ID:            p.ID,
			Name:          p.Name,
			Address:       deref(p.Address),
			Contact:       deref(p.Contact),
			Email:         p.Email,
			EmailVerified: p.EmailVerified,
			Active:        p.Active,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	return out, nil
}

func (r *CatalogRepo) ListStore(ctx context.Context, q catalog.StoreQuery) ([]catalog.StoreItem, error) {
	query := r.c.From("medications").Select("*")
	if q.Q != "" {
		query = query.ILike("name", q.Q)
	}
	if q.PharmacyID != "" {
		query = query.Eq("pharmacy_id", q.PharmacyID)
	}
	var rows []storeRow
	if err := query.Order("name", true).Limit(q.Limit).Get(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]catalog.StoreItem, 0, len(rows))
	for _, it := range rows {
		out = append(out, it.toDomain())
	}
	return out, nil
}

func (r *CatalogRepo) GetStoreItem(ctx context.Context, id string) (catalog.StoreItem, error) {
	var rows []storeRow
	if err := r.c.From("medications").Select("*").Eq("id", id).Limit(1).Get(ctx, &rows); err != nil {
		return catalog.StoreItem{}, err
	}
	if len(rows) == 0 {
		return catalog.StoreItem{}, catalog.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
