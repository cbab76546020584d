package caretakers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"vida-melhor/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/caretaker/elders", func(cr chi.Router) {
		cr.Get("/", listLinkableHandler(svc))
		cr.Post("/{elderID}/link", linkActionHandler(svc.Link))
		cr.Post("/{elderID}/unlink", linkActionHandler(svc.Unlink))
		cr.Post("/{elderID}/toggle", linkActionHandler(svc.Toggle))
	})
}

type linkableElderResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	SpecialCare string     `json:"special_care"`
	CarerID     *string    `json:"carer_id"`
	Status      LinkStatus `json:"status" enums:"unlinked,linked_to_me,linked_to_other"`
}

// listLinkableHandler godoc
// @Summary Idosos vinculables
// @Description Lista los perfiles no cuidadores con su estado respecto del cuidador autenticado.
// @Tags caretaker
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} linkableElderResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "only caretaker accounts can link elders / access policy"
// @Failure 422 {string} string "schema mismatch"
// @Router /caretaker/elders [get]
func listLinkableHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListLinkable(r.Context(), claims.UserID)
		if err != nil {
			writeLinkError(w, err)
			return
		}

		out := make([]linkableElderResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toLinkableElderResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type linkAction func(ctx context.Context, actorID, elderID string) (LinkableElder, error)

// linkActionHandler godoc
// @Summary Vincular / desvincular idoso
// @Description link: vincula si está libre (409 si ya tiene otro cuidador). unlink: solo si el vínculo es del cuidador autenticado. toggle: alterna.
// @Tags caretaker
// @Produce json
// @Param elderID path string true "ID del perfil del idoso"
// @Success 200 {object} linkableElderResponse
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "profile not found"
// @Failure 409 {string} string "elder is already linked to another caretaker"
// @Failure 422 {string} string "schema mismatch"
// @Router /caretaker/elders/{elderID}/link [post]
// @Router /caretaker/elders/{elderID}/unlink [post]
// @Router /caretaker/elders/{elderID}/toggle [post]
func linkActionHandler(action linkAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		res, err := action(r.Context(), claims.UserID, chi.URLParam(r, "elderID"))
		if err != nil {
			writeLinkError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLinkableElderResponse(res))
	}
}

func writeLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, ErrNotCarer):
		http.Error(w, ErrNotCarer.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidTarget):
		http.Error(w, ErrInvalidTarget.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
	case errors.Is(err, ErrAlreadyLinked):
		http.Error(w, ErrAlreadyLinked.Error(), http.StatusConflict)
	case errors.Is(err, ErrSchemaMismatch):
		http.Error(w, ErrSchemaMismatch.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrPermissionDenied):
		http.Error(w, ErrPermissionDenied.Error(), http.StatusForbidden)
	default:
		http.Error(w, ErrBackend.Error(), http.StatusBadGateway)
	}
}

func toLinkableElderResponse(it LinkableElder) linkableElderResponse {
	return linkableElderResponse{
		ID:          it.Profile.ID,
		Name:        it.Profile.Name,
		Email:       it.Profile.Email,
		Phone:       it.Profile.Phone,
		SpecialCare: it.Profile.SpecialCare,
		CarerID:     it.Profile.CarerID,
		Status:      it.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
