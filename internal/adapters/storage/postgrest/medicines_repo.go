package postgrest

import (
	"context"
	"errors"
	"time"

	"vida-melhor/internal/domain/medicines"
)

// Reintentos del descuento de stock cuando otra escritura gana la carrera.
const confirmAttempts = 3

var errStockRace = errors.New("postgrest: stock changed concurrently")

type medicineRow struct {
	ID              int64      `json:"id,omitempty"`
	UserID          string     `json:"user_id"`
	Nome            string     `json:"nome"`
	Dose            string     `json:"dose"`
	Estoque         int        `json:"estoque"`
	FrequenciaHoras *int       `json:"frequencia_horas"`
	UltimaDose      *time.Time `json:"ultima_dose"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

func (r medicineRow) toDomain() medicines.Medicine {
	m := medicines.Medicine{
		ID:              r.ID,
		UserID:          r.UserID,
		Nome:            r.Nome,
		Dose:            r.Dose,
		Estoque:         r.Estoque,
		FrequenciaHoras: r.FrequenciaHoras,
	}
	if r.UltimaDose != nil {
		t := r.UltimaDose.UTC()
		m.UltimaDose = &t
	}
	if r.CreatedAt != nil {
		m.CreatedAt = r.CreatedAt.UTC()
	}
	return m
}

type MedicinesRepo struct {
	c *Client
}

func NewMedicinesRepo(c *Client) *MedicinesRepo {
	return &MedicinesRepo{c: c}
}

func (r *MedicinesRepo) ListByOwners(ctx context.Context, ownerIDs []string) ([]medicines.Medicine, error) {
	if len(ownerIDs) == 0 {
		return []medicines.Medicine{}, nil
	}
	var rows []medicineRow
	if err := r.c.From("medicines").Select("*").In("user_id", ownerIDs).Order("id", false).Get(ctx, &rows); err != nil {
		return nil, err
	}
	return toMedicines(rows), nil
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id int64) (medicines.Medicine, error) {
	var rows []medicineRow
	if err := r.c.From("medicines").Select("*").Eq("id", id).Limit(1).Get(ctx, &rows); err != nil {
		return medicines.Medicine{}, err
	}
	if len(rows) == 0 {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) (medicines.Medicine, error) {
	in := medicineRow{
		UserID:          m.UserID,
		Nome:            m.Nome,
		Dose:            m.Dose,
		Estoque:         m.Estoque,
		FrequenciaHoras: m.FrequenciaHoras,
		UltimaDose:      m.UltimaDose,
	}
	var rows []medicineRow
	if err := r.c.From("medicines").Insert(ctx, in, &rows); err != nil {
		return medicines.Medicine{}, err
	}
	if len(rows) == 0 {
		return medicines.Medicine{}, errors.New("postgrest: insert returned no rows")
	}
	return rows[0].toDomain(), nil
}

func (r *MedicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	patch := map[string]any{
		"nome":             m.Nome,
		"dose":             m.Dose,
		"estoque":          m.Estoque,
		"frequencia_horas": m.FrequenciaHoras,
		"ultima_dose":      m.UltimaDose,
	}
	var rows []medicineRow
	if err := r.c.From("medicines").Eq("id", m.ID).Update(ctx, patch, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

func (r *MedicinesRepo) Delete(ctx context.Context, id int64) error {
	var rows []medicineRow
	if err := r.c.From("medicines").Eq("id", id).Delete(ctx, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

// ConfirmDose lee el stock y escribe condicionado a que no haya cambiado
// (la API REST no tiene decremento atómico).
func (r *MedicinesRepo) ConfirmDose(ctx context.Context, id int64, at time.Time) (medicines.Medicine, error) {
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		cur, err := r.GetByID(ctx, id)
		if err != nil {
			return medicines.Medicine{}, err
		}

		next := cur.Estoque - 1
		if next < 0 {
			next = 0
		}
		patch := map[string]any{"ultima_dose": at.UTC(), "estoque": next}

		var rows []medicineRow
		err = r.c.From("medicines").
			Eq("id", id).
			Eq("estoque", cur.Estoque).
			Update(ctx, patch, &rows)
		if err != nil {
			return medicines.Medicine{}, err
		}
		if len(rows) > 0 {
			return rows[0].toDomain(), nil
		}
	}
	return medicines.Medicine{}, errStockRace
}

// ListDue filtra en el cliente: la regla depende de ultima_dose + frecuencia.
func (r *MedicinesRepo) ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]medicines.Medicine, error) {
	var rows []medicineRow
	if err := r.c.From("medicines").Select("*").Gt("id", afterID).Order("id", true).Get(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]medicines.Medicine, 0)
	for _, row := range rows {
		m := row.toDomain()
		if !m.IsDue(now) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func toMedicines(rows []medicineRow) []medicines.Medicine {
	out := make([]medicines.Medicine, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
