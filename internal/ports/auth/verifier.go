package auth

import "context"

// AuthVerifier valida el access token de una sesión del backend y devuelve sus claims.
// Un token vencido, mal firmado o de rol anónimo es error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
