package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vida-melhor/internal/domain/catalog"
)

type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) ListPharmacies(ctx context.Context, q string) ([]catalog.Pharmacy, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), COALESCE(contact, ''), email, email_verified, active, created_at, updated_at
		FROM pharmacies`
	args := []any{}
	if q = strings.TrimSpace(q); q != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.Pharmacy, 0)
	for rows.Next() {
		var p catalog.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Contact, &p.Email, &p.EmailVerified, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const storeColumns = `id, name, slug, COALESCE(description, ''), COALESCE(category_id, ''),
	is_generic, pharmacy_id, stock, price_in_cents, created_at`

func (r *CatalogRepo) ListStore(ctx context.Context, q catalog.StoreQuery) ([]catalog.StoreItem, error) {
	where := []string{}
	args := []any{}
	if s := strings.TrimSpace(q.Q); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if q.PharmacyID != "" {
		args = append(args, q.PharmacyID)
		where = append(where, fmt.Sprintf("pharmacy_id = $%d", len(args)))
	}

	query := `SELECT ` + storeColumns + ` FROM medications`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name ASC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.StoreItem, 0)
	for rows.Next() {
		it, err := scanStoreItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetStoreItem(ctx context.Context, id string) (catalog.StoreItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM medications WHERE id = $1`, id)
	it, err := scanStoreItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.StoreItem{}, catalog.ErrNotFound
		}
		return catalog.StoreItem{}, err
	}
	return it, nil
}

func scanStoreItem(s scanner) (catalog.StoreItem, error) {
	var it catalog.StoreItem
	err := s.Scan(
		&it.ID,
		&it.Name,
		&it.Slug,
		&it.Description,
		&it.CategoryID,
		&it.IsGeneric,
		&it.PharmacyID,
		&it.Stock,
		&it.PriceInCents,
		&it.CreatedAt,
	)
	return it, err
}
