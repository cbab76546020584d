package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"vida-melhor/internal/domain/profiles"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

const profileColumns = `
	id, name, email, phone, cpf, address, special_care,
	carer, carer_id, device_token,
	created_at, updated_at`

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return profiles.Profile{}, profiles.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Profile{}, profiles.ErrNotFound
		}
		return profiles.Profile{}, r.translate(err)
	}
	return p, nil
}

func (r *ProfilesRepo) Upsert(ctx context.Context, p profiles.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (
			id, name, email, phone, cpf, address, special_care,
			carer, carer_id, device_token,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			cpf = EXCLUDED.cpf,
			address = EXCLUDED.address,
			special_care = EXCLUDED.special_care,
			carer = EXCLUDED.carer,
			carer_id = EXCLUDED.carer_id,
			device_token = EXCLUDED.device_token,
			updated_at = EXCLUDED.updated_at
	`,
		p.ID,
		p.Name,
		p.Email,
		p.Phone,
		p.CPF,
		p.Address,
		p.SpecialCare,
		p.Carer,
		toNullString(p.CarerID),
		nullIfEmpty(p.DeviceToken),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return r.translate(err)
}

func (r *ProfilesRepo) ListNonCarers(ctx context.Context) ([]profiles.Profile, error) {
	return r.list(ctx, `SELECT `+profileColumns+` FROM profiles WHERE carer IS NOT TRUE ORDER BY name ASC, id ASC`)
}

func (r *ProfilesRepo) ListByCarer(ctx context.Context, carerID string) ([]profiles.Profile, error) {
	carerID = strings.TrimSpace(carerID)
	if carerID == "" {
		return []profiles.Profile{}, nil
	}
	return r.list(ctx, `SELECT `+profileColumns+` FROM profiles WHERE carer_id = $1 ORDER BY name ASC, id ASC`, carerID)
}

func (r *ProfilesRepo) SetCarer(ctx context.Context, profileID string, expected, carerID *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET carer_id = $2, updated_at = NOW()
		WHERE id = $1 AND carer_id IS NOT DISTINCT FROM $3
	`, profileID, toNullString(carerID), toNullString(expected))
	if err != nil {
		return r.translate(err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, profileID).Scan(&exists)
	if err != nil {
		return r.translate(err)
	}
	if exists {
		return profiles.ErrCarerChanged
	}
	return profiles.ErrNotFound
}

func (r *ProfilesRepo) list(ctx context.Context, query string, args ...any) ([]profiles.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.translate(err)
	}
	defer rows.Close()

	out := make([]profiles.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProfilesRepo) translate(err error) error {
	return translate(err, profiles.ErrSchemaMismatch, profiles.ErrPermissionDenied)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (profiles.Profile, error) {
	var p profiles.Profile
	var carerID, deviceToken sql.NullString
	if err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.CPF,
		&p.Address,
		&p.SpecialCare,
		&p.Carer,
		&carerID,
		&deviceToken,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return profiles.Profile{}, err
	}
	if carerID.Valid && carerID.String != "" {
		v := carerID.String
		p.CarerID = &v
	}
	p.DeviceToken = deviceToken.String
	return p, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
