package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"vida-melhor/internal/domain/consultations"
)

type ConsultationsRepo struct {
	db *sql.DB
}

func NewConsultationsRepo(db *sql.DB) *ConsultationsRepo {
	return &ConsultationsRepo{db: db}
}

func (r *ConsultationsRepo) Create(ctx context.Context, c consultations.Consultation) (consultations.Consultation, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO consultation (user_id, nome, data_hora, tipo, medico, especialidade, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`,
		c.UserID,
		c.Nome,
		c.DataHora.UTC(),
		string(c.Tipo),
		c.Medico,
		c.Especialidade,
		c.CreatedAt,
	)
	if err := row.Scan(&c.ID); err != nil {
		return consultations.Consultation{}, err
	}
	return c, nil
}

func (r *ConsultationsRepo) ListByOwners(ctx context.Context, ownerIDs []string, rng consultations.Range) ([]consultations.Consultation, error) {
	if len(ownerIDs) == 0 {
		return []consultations.Consultation{}, nil
	}

	where := []string{"user_id = ANY($1)"}
	args := []any{ownerIDs}
	if rng.From != nil {
		args = append(args, rng.From.UTC())
		where = append(where, fmt.Sprintf("data_hora >= $%d", len(args)))
	}
	if rng.To != nil {
		args = append(args, rng.To.UTC())
		where = append(where, fmt.Sprintf("data_hora <= $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, nome, data_hora, tipo, medico, especialidade, created_at
		FROM consultation
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY data_hora ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]consultations.Consultation, 0)
	for rows.Next() {
		var c consultations.Consultation
		var tipo string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Nome, &c.DataHora, &tipo, &c.Medico, &c.Especialidade, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Tipo = consultations.Tipo(tipo)
		c.DataHora = c.DataHora.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}
