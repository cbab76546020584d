package profiles

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	Upsert(ctx context.Context, p Profile) error

	// ListNonCarers devuelve los perfiles con carer=false (candidatos a vincular).
	ListNonCarers(ctx context.Context) ([]Profile, error)
	// ListByCarer devuelve los perfiles cuyo carer_id es carerID.
	ListByCarer(ctx context.Context, carerID string) ([]Profile, error)

	// SetCarer escribe carer_id (nil = desvincular) solo si el valor actual es
	// expected (nil = sin cuidador). Si la fila existe con otro valor devuelve
	// ErrCarerChanged; si no existe, ErrNotFound.
	SetCarer(ctx context.Context, profileID string, expected, carerID *string) error
}
