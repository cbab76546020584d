package catalog

import "context"

// StoreQuery filtra la tienda. Q es búsqueda por nombre (ilike), vacío = todo.
type StoreQuery struct {
	Q          string
	PharmacyID string
	Limit      int
}

type Repository interface {
	// ListPharmacies ordena por nombre. q vacío = todas.
	ListPharmacies(ctx context.Context, q string) ([]Pharmacy, error)
	// ListStore ordena por nombre.
	ListStore(ctx context.Context, q StoreQuery) ([]StoreItem, error)
	GetStoreItem(ctx context.Context, id string) (StoreItem, error)
}
