package postgrest

import (
	"context"
	"time"

	"vida-melhor/internal/domain/profiles"
)

type profileRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CPF         string    `json:"cpf"`
	Address     string    `json:"address"`
	SpecialCare string    `json:"special_care"`
	Carer       bool      `json:"carer"`
	CarerID     *string   `json:"carer_id"`
	DeviceToken *string   `json:"device_token"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r profileRow) toDomain() profiles.Profile {
	p := profiles.Profile{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		CPF:         r.CPF,
		Address:     r.Address,
		SpecialCare: r.SpecialCare,
		Carer:       r.Carer,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.CarerID != nil && *r.CarerID != "" {
		v := *r.CarerID
		p.CarerID = &v
	}
	if r.DeviceToken != nil {
		p.DeviceToken = *r.DeviceToken
	}
	return p
}

func fromProfile(p profiles.Profile) profileRow {
	r := profileRow{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		CPF:         p.CPF,
		Address:     p.Address,
		SpecialCare: p.SpecialCare,
		Carer:       p.Carer,
		CarerID:     p.CarerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.DeviceToken != "" {
		tok := p.DeviceToken
		r.DeviceToken = &tok
	}
	return r
}

type ProfilesRepo struct {
	c *Client
}

func NewProfilesRepo(c *Client) *ProfilesRepo {
	return &ProfilesRepo{c: c}
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	var rows []profileRow
	if err := r.c.From("profiles").Select("*").Eq("id", id).Limit(1).Get(ctx, &rows); err != nil {
		return profiles.Profile{}, r.translate(err)
	}
	if len(rows) == 0 {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *ProfilesRepo) Upsert(ctx context.Context, p profiles.Profile) error {
	var rows []profileRow
	return r.translate(r.c.From("profiles").Upsert(ctx, fromProfile(p), "id", &rows))
}

func (r *ProfilesRepo) ListNonCarers(ctx context.Context) ([]profiles.Profile, error) {
	var rows []profileRow
	err := r.c.From("profiles").
		Select("*").
		Eq("carer", false).
		Order("name", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, r.translate(err)
	}
	return toProfiles(rows), nil
}

func (r *ProfilesRepo) ListByCarer(ctx context.Context, carerID string) ([]profiles.Profile, error) {
	if carerID == "" {
		return []profiles.Profile{}, nil
	}
	var rows []profileRow
	err := r.c.From("profiles").
		Select("*").
		Eq("carer_id", carerID).
		Order("name", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, r.translate(err)
	}
	return toProfiles(rows), nil
}

func (r *ProfilesRepo) SetCarer(ctx context.Context, profileID string, expected, carerID *string) error {
	var rows []profileRow
	patch := map[string]any{"carer_id": carerID, "updated_at": time.Now().UTC()}
	q := r.c.From("profiles").Eq("id", profileID)
	if expected == nil {
		q = q.Is("carer_id", "null")
	} else {
		q = q.Eq("carer_id", *expected)
	}
	if err := q.Update(ctx, patch, &rows); err != nil {
		return r.translate(err)
	}
	if len(rows) > 0 {
		return nil
	}

	// Vacío: la fila no está, carer_id cambió en el medio, o RLS no deja
	// escribir (el update vuelve vacío en lugar de fallar).
	cur, err := r.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if !sameCarer(cur.CarerID, expected) {
		return profiles.ErrCarerChanged
	}
	return profiles.ErrPermissionDenied
}

func (r *ProfilesRepo) translate(err error) error {
	return translate(err, profiles.ErrSchemaMismatch, profiles.ErrPermissionDenied)
}

func sameCarer(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func toProfiles(rows []profileRow) []profiles.Profile {
	out := make([]profiles.Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
