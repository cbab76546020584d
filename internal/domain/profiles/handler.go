package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"vida-melhor/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/me", func(mr chi.Router) {
		mr.Get("/profile", getMyProfileHandler(svc))
		mr.Patch("/profile", updateMyProfileHandler(svc))
		mr.Put("/device-token", putDeviceTokenHandler(svc))
	})
}

type profileResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CPF         string    `json:"cpf"`
	Address     string    `json:"address"`
	SpecialCare string    `json:"special_care"`
	Carer       bool      `json:"carer"`
	CarerID     *string   `json:"carer_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	CPF         *string `json:"cpf"`
	Address     *string `json:"address"`
	SpecialCare *string `json:"special_care"`
}

type deviceTokenRequest struct {
	Token string `json:"token"`
}

// getMyProfileHandler godoc
// @Summary Perfil del usuario autenticado
// @Description Devuelve el perfil. Si todavía no existe, lo crea a partir de la metadata del token (ensure).
// @Tags profiles
// @Produce json
// @Success 200 {object} profileResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/profile [get]
func getMyProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.GetByID(r.Context(), claims.UserID)
		if errors.Is(err, ErrNotFound) {
			p, err = svc.Ensure(r.Context(), EnsureInput{
				UserID:   claims.UserID,
				Email:    claims.Email,
				Metadata: claims.Metadata,
			})
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

func updateMyProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Update(r.Context(), claims.UserID, UpdateInput{
			Name:        req.Name,
			Phone:       req.Phone,
			CPF:         req.CPF,
			Address:     req.Address,
			SpecialCare: req.SpecialCare,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "profile not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

func putDeviceTokenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req deviceTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := svc.SetDeviceToken(r.Context(), claims.UserID, req.Token); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "profile not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toProfileResponse(p Profile) profileResponse {
	return profileResponse{
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
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
