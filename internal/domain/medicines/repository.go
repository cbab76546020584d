package medicines

import (
	"context"
	"time"
)

type Repository interface {
	// ListByOwners devuelve los medicamentos de los user_id dados, ordenados por id desc (orden de carga: el más reciente primero).
	// ownerIDs vacío => slice vacío sin consultar.
	ListByOwners(ctx context.Context, ownerIDs []string) ([]Medicine, error)
	GetByID(ctx context.Context, id int64) (Medicine, error)

	// Create asigna el ID.
	Create(ctx context.Context, m Medicine) (Medicine, error)
	Update(ctx context.Context, m Medicine) error
	Delete(ctx context.Context, id int64) error

	// ConfirmDose es un único update: ultima_dose=at, estoque=max(0, estoque-1).
	ConfirmDose(ctx context.Context, id int64, at time.Time) (Medicine, error)

	// ListDue devuelve medicamentos pendientes en now con id > afterID, en
	// orden de id ascendente y hasta limit. El worker pagina con el último id.
	ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]Medicine, error)
}
