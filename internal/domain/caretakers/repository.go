package caretakers

import (
	"context"

	"vida-melhor/internal/domain/profiles"
)

// Repository es el subconjunto de profiles.Repository que necesita el vínculo.
type Repository interface {
	GetByID(ctx context.Context, id string) (profiles.Profile, error)
	ListNonCarers(ctx context.Context) ([]profiles.Profile, error)
	SetCarer(ctx context.Context, profileID string, expected, carerID *string) error
}
