package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vida-melhor/internal/domain/medicines"
)

type MedicinesRepo struct {
	db *sql.DB
}

func NewMedicinesRepo(db *sql.DB) *MedicinesRepo {
	return &MedicinesRepo{db: db}
}

const medicineColumns = `id, user_id, nome, dose, estoque, frequencia_horas, ultima_dose, created_at`

func (r *MedicinesRepo) ListByOwners(ctx context.Context, ownerIDs []string) ([]medicines.Medicine, error) {
	if len(ownerIDs) == 0 {
		return []medicines.Medicine{}, nil
	}
	return r.list(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE user_id = ANY($1) ORDER BY id DESC`, ownerIDs)
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id int64) (medicines.Medicine, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medicines.Medicine{}, medicines.ErrNotFound
		}
		return medicines.Medicine{}, err
	}
	return m, nil
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) (medicines.Medicine, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO medicines (user_id, nome, dose, estoque, frequencia_horas, ultima_dose, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+medicineColumns,
		m.UserID,
		m.Nome,
		m.Dose,
		m.Estoque,
		toNullInt(m.FrequenciaHoras),
		toNullTime(m.UltimaDose),
		m.CreatedAt,
	)
	return scanMedicine(row)
}

func (r *MedicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medicines
		SET nome = $2, dose = $3, estoque = $4, frequencia_horas = $5, ultima_dose = $6
		WHERE id = $1
	`,
		m.ID,
		m.Nome,
		m.Dose,
		m.Estoque,
		toNullInt(m.FrequenciaHoras),
		toNullTime(m.UltimaDose),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

func (r *MedicinesRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

// ConfirmDose descuenta stock y registra la toma en la misma sentencia.
func (r *MedicinesRepo) ConfirmDose(ctx context.Context, id int64, at time.Time) (medicines.Medicine, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE medicines
		SET ultima_dose = $2, estoque = GREATEST(estoque - 1, 0)
		WHERE id = $1
		RETURNING `+medicineColumns,
		id, at.UTC(),
	)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medicines.Medicine{}, medicines.ErrNotFound
		}
		return medicines.Medicine{}, err
	}
	return m, nil
}

func (r *MedicinesRepo) ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]medicines.Medicine, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE id > $2
		  AND (ultima_dose IS NULL
		   OR (frequencia_horas > 0 AND ultima_dose + make_interval(hours => frequencia_horas) <= $1))
		ORDER BY id ASC
		LIMIT $3
	`, now.UTC(), afterID, limit)
}

func (r *MedicinesRepo) list(ctx context.Context, query string, args ...any) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMedicine(s scanner) (medicines.Medicine, error) {
	var m medicines.Medicine
	var freq sql.NullInt64
	var last sql.NullTime
	if err := s.Scan(
		&m.ID,
		&m.UserID,
		&m.Nome,
		&m.Dose,
		&m.Estoque,
		&freq,
		&last,
		&m.CreatedAt,
	); err != nil {
		return medicines.Medicine{}, err
	}
	if freq.Valid {
		v := int(freq.Int64)
		m.FrequenciaHoras = &v
	}
	if last.Valid {
		t := last.Time.UTC()
		m.UltimaDose = &t
	}
	return m, nil
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
