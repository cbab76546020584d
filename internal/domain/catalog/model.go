package catalog

import "time"

// Pharmacy es una farmacia asociada (tabla pharmacies). Solo lectura.
type Pharmacy struct {
	ID            string
	Name          string
	Address       string
	Contact       string
	Email         string
	EmailVerified bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StoreItem es un medicamento a la venta (tabla medications). Solo lectura.
type StoreItem struct {
	ID           string
	Name         string
	Slug         string
	Description  string
	CategoryID   string
	IsGeneric    bool
	PharmacyID   string
	Stock        int
	PriceInCents int64
	CreatedAt    time.Time
}

func (s StoreItem) InStock() bool { return s.Stock > 0 }
