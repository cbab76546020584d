package consultations

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
	r.Route("/consultations", func(cr chi.Router) {
		cr.Get("/", listConsultationsHandler(svc))
		cr.Post("/", createConsultationHandler(svc))
	})
}

type createConsultationRequest struct {
	UserID        string `json:"user_id"` // opcional: cuidador agendando para un idoso
	Nome          string `json:"nome"`
	DataHora      string `json:"data_hora"` // RFC3339 o YYYY-MM-DD
	Tipo          Tipo   `json:"tipo" enums:"presencial,telemedicina"`
	Medico        string `json:"medico"`
	Especialidade string `json:"especialidade"`
}

type consultationResponse struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	Nome          string    `json:"nome"`
	DataHora      time.Time `json:"data_hora"`
	Tipo          Tipo      `json:"tipo"`
	Medico        string    `json:"medico,omitempty"`
	Especialidade string    `json:"especialidade,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// createConsultationHandler godoc
// @Summary Agendar consulta
// @Description Crea una consulta para el usuario o, si es cuidador, para uno de sus idosos (user_id).
// @Tags consultations
// @Accept json
// @Produce json
// @Param payload body createConsultationRequest true "Datos de la consulta; data_hora en RFC3339 o YYYY-MM-DD"
// @Success 201 {object} consultationResponse
// @Failure 400 {string} string "invalid json / campos obligatorios / tipo inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /consultations [post]
func createConsultationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		dataHora, err := parseDateTime(req.DataHora)
		if err != nil {
			http.Error(w, "data_hora must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		c, err := svc.Create(r.Context(), v, CreateInput{
			OwnerUserID:   req.UserID,
			Nome:          req.Nome,
			DataHora:      dataHora,
			Tipo:          req.Tipo,
			Medico:        req.Medico,
			Especialidade: req.Especialidade,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, "nome, data_hora and tipo are required", http.StatusBadRequest)
			case errors.Is(err, ErrInvalidTipo):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "failed to create consultation", http.StatusBadGateway)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toConsultationResponse(c))
	}
}

// listConsultationsHandler godoc
// @Summary Listar consultas
// @Description Lista consultas propias o de los idosos vinculados, opcionalmente en un rango de fechas.
// @Tags consultations
// @Produce json
// @Param from query string false "Desde (RFC3339 o YYYY-MM-DD)"
// @Param to query string false "Hasta (RFC3339 o YYYY-MM-DD)"
// @Success 200 {array} consultationResponse
// @Failure 400 {string} string "rango inválido"
// @Failure 401 {string} string "unauthorized"
// @Router /consultations [get]
func listConsultationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var rng Range
		if s := strings.TrimSpace(r.URL.Query().Get("from")); s != "" {
			t, err := parseDateTime(s)
			if err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
			rng.From = &t
		}
		if s := strings.TrimSpace(r.URL.Query().Get("to")); s != "" {
			t, err := parseDateTime(s)
			if err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
			rng.To = &t
		}

		items, err := svc.ListForViewer(r.Context(), v, rng)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "to must be after from", http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to load consultations", http.StatusBadGateway)
			return
		}

		out := make([]consultationResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toConsultationResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// parseDateTime acepta RFC3339 o una fecha sola (formulario de "dia da consulta").
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func toConsultationResponse(c Consultation) consultationResponse {
	return consultationResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		Nome:          c.Nome,
		DataHora:      c.DataHora,
		Tipo:          c.Tipo,
		Medico:        c.Medico,
		Especialidade: c.Especialidade,
		CreatedAt:     c.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
