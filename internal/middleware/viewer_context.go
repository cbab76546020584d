package middleware

import (
	"context"
	"net/http"
	"strings"

	"vida-melhor/internal/domain/viewer"
)

const viewerKey ctxKey = "viewer"

// ViewerContext resuelve una vez por request si el usuario autenticado mira
// como idoso o como cuidador. Debe ir después de AuthContext.
// Sin claims el request sigue sin viewer. Si hay claims pero no se pudo leer el
// perfil (backend caído) responde 502: no es una sesión perdida.
func ViewerContext(lookup viewer.ElderLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok || strings.TrimSpace(claims.UserID) == "" || lookup == nil {
				next.ServeHTTP(w, r)
				return
			}

			v, err := viewer.Resolve(r.Context(), lookup, claims.UserID)
			if err != nil {
				http.Error(w, "could not load profile, try again", http.StatusBadGateway)
				return
			}

			ctx := context.WithValue(r.Context(), viewerKey, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetViewer(ctx context.Context) (viewer.Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(viewer.Viewer)
	return v, ok && v != nil
}

// WithViewer inyecta un viewer ya resuelto (tests).
func WithViewer(ctx context.Context, v viewer.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}
