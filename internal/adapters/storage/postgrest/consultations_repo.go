package postgrest

import (
	"context"
	"errors"
	"time"

	"vida-melhor/internal/domain/consultations"
)

type consultationRow struct {
	ID            int64      `json:"id,omitempty"`
	UserID        string     `json:"user_id"`
	Nome          string     `json:"nome"`
	DataHora      time.Time  `json:"data_hora"`
	Tipo          string     `json:"tipo"`
	Medico        string     `json:"medico"`
	Especialidade string     `json:"especialidade"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

func (r consultationRow) toDomain() consultations.Consultation {
	c := consultations.Consultation{
		ID:            r.ID,
		UserID:        r.UserID,
		Nome:          r.Nome,
		DataHora:      r.DataHora.UTC(),
		Tipo:          consultations.Tipo(r.Tipo),
		Medico:        r.Medico,
		Especialidade: r.Especialidade,
	}
	if r.CreatedAt != nil {
		c.CreatedAt = r.CreatedAt.UTC()
	}
	return c
}

type ConsultationsRepo struct {
	c *Client
}

func NewConsultationsRepo(c *Client) *ConsultationsRepo {
	return &ConsultationsRepo{c: c}
}

func (r *ConsultationsRepo) Create(ctx context.Context, c consultations.Consultation) (consultations.Consultation, error) {
	in := consultationRow{
		UserID:        c.UserID,
		Nome:          c.Nome,
		DataHora:      c.DataHora.UTC(),
		Tipo:          string(c.Tipo),
		Medico:        c.Medico,
		Especialidade: c.Especialidade,
	}
	var rows []consultationRow
	if err := r.c.From("consultation").Insert(ctx, in, &rows); err != nil {
		return consultations.Consultation{}, err
	}
	if len(rows) == 0 {
		return consultations.Consultation{}, errors.New("postgrest: insert returned no rows")
	}
	return rows[0].toDomain(), nil
}

func (r *ConsultationsRepo) ListByOwners(ctx context.Context, ownerIDs []string, rng consultations.Range) ([]consultations.Consultation, error) {
	if len(ownerIDs) == 0 {
		return []consultations.Consultation{}, nil
	}
	q := r.c.From("consultation").Select("*").In("user_id", ownerIDs)
	if rng.From != nil {
		q = q.Gte("data_hora", *rng.From)
	}
	if rng.To != nil {
		q = q.Lte("data_hora", *rng.To)
	}

	var rows []consultationRow
	if err := q.Order("data_hora", true).Order("id", true).Get(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]consultations.Consultation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
