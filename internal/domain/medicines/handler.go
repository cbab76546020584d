package medicines

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vida-melhor/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, reminders *Reminders) {
	r.Get("/me/reminder", getReminderHandler(reminders))

	r.Route("/medicines", func(mr chi.Router) {
		mr.Get("/", listMedicinesHandler(svc))
		mr.Post("/", createMedicineHandler(svc))
		mr.Patch("/{medicineID}", updateMedicineHandler(svc))
		mr.Delete("/{medicineID}", deleteMedicineHandler(svc))

		mr.Post("/{medicineID}/confirm-dose", confirmDoseHandler(reminders))
	})
}

type medicineResponse struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	Nome            string     `json:"nome"`
	Dose            string     `json:"dose"`
	Estoque         int        `json:"estoque"`
	FrequenciaHoras *int       `json:"frequencia_horas"`
	UltimaDose      *time.Time `json:"ultima_dose"`
	Due             bool       `json:"due"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
}

type reminderResponse struct {
	State   ReminderState     `json:"state"`
	Pending *medicineResponse `json:"pending"`
}

type confirmDoseResponse struct {
	Medicine medicineResponse `json:"medicine"`
	Reminder reminderResponse `json:"reminder"`
}

type createMedicineRequest struct {
	UserID          string `json:"user_id"` // opcional: cuidador creando para un idoso
	Nome            string `json:"nome"`
	Dose            string `json:"dose"`
	Estoque         int    `json:"estoque"`
	FrequenciaHoras *int   `json:"frequencia_horas"`
}

type updateMedicineRequest struct {
	Nome            *string `json:"nome"`
	Dose            *string `json:"dose"`
	Estoque         *int    `json:"estoque"`
	FrequenciaHoras *int    `json:"frequencia_horas"`
	ClearFrequencia bool    `json:"clear_frequencia"`
}

// getReminderHandler godoc
// @Summary Recordatorio de dosis actual
// @Description Devuelve como máximo un medicamento pendiente (el primero en orden de carga). Para un cuidador, considera los medicamentos de todos sus idosos vinculados.
// @Tags medicines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} reminderResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/reminder [get]
func getReminderHandler(reminders *Reminders) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rem, err := reminders.Current(r.Context(), v)
		if err != nil {
			http.Error(w, "failed to load medicines", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(rem, reminders.now()))
	}
}

// confirmDoseHandler godoc
// @Summary Confirmar dosis
// @Description Registra la toma: ultima_dose=ahora y estoque-1 (mínimo 0). Devuelve el medicamento actualizado y el siguiente recordatorio.
// @Tags medicines
// @Produce json
// @Param medicineID path int true "ID del medicamento"
// @Success 200 {object} confirmDoseResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medicine not found"
// @Failure 409 {string} string "confirmation in progress or dose not due"
// @Failure 502 {string} string "confirm failed"
// @Router /medicines/{medicineID}/confirm-dose [post]
func confirmDoseHandler(reminders *Reminders) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := parseID(w, r)
		if !ok {
			return
		}

		rem, m, err := reminders.Confirm(r.Context(), v, id)
		if err != nil {
			switch {
			case errors.Is(err, ErrConfirmInFlight):
				http.Error(w, "confirmation in progress", http.StatusConflict)
			case errors.Is(err, ErrNotDue):
				http.Error(w, "dose not due", http.StatusConflict)
			default:
				writeServiceError(w, err, "confirm failed")
			}
			return
		}

		now := reminders.now()
		writeJSON(w, http.StatusOK, confirmDoseResponse{
			Medicine: toMedicineResponse(m, now),
			Reminder: toReminderResponse(rem, now),
		})
	}
}

// listMedicinesHandler godoc
// @Summary Listar medicamentos
// @Description Medicamentos propios o, para un cuidador, de todos sus idosos vinculados. Sin idosos => lista vacía.
// @Tags medicines
// @Produce json
// @Success 200 {array} medicineResponse
// @Failure 401 {string} string "unauthorized"
// @Router /medicines [get]
func listMedicinesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListForViewer(r.Context(), v)
		if err != nil {
			http.Error(w, "failed to load medicines", http.StatusBadGateway)
			return
		}

		now := svc.now()
		out := make([]medicineResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicineResponse(m, now))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), v, CreateInput{
			OwnerUserID:     req.UserID,
			Nome:            req.Nome,
			Dose:            req.Dose,
			Estoque:         req.Estoque,
			FrequenciaHoras: req.FrequenciaHoras,
		})
		if err != nil {
			writeServiceError(w, err, "failed to create medicine")
			return
		}
		writeJSON(w, http.StatusCreated, toMedicineResponse(m, svc.now()))
	}
}

func updateMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var req updateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Update(r.Context(), v, id, UpdateInput{
			Nome:            req.Nome,
			Dose:            req.Dose,
			Estoque:         req.Estoque,
			FrequenciaHoras: req.FrequenciaHoras,
			ClearFrequencia: req.ClearFrequencia,
		})
		if err != nil {
			writeServiceError(w, err, "failed to update medicine")
			return
		}
		writeJSON(w, http.StatusOK, toMedicineResponse(m, svc.now()))
	}
}

func deleteMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := parseID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), v, id); err != nil {
			writeServiceError(w, err, "failed to delete medicine")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "medicineID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid medicine id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, "nome and dose are required", http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medicine not found", http.StatusNotFound)
	default:
		http.Error(w, fallback, http.StatusBadGateway)
	}
}

func toMedicineResponse(m Medicine, now time.Time) medicineResponse {
	out := medicineResponse{
		ID:              m.ID,
		UserID:          m.UserID,
		Nome:            m.Nome,
		Dose:            m.Dose,
		Estoque:         m.Estoque,
		FrequenciaHoras: m.FrequenciaHoras,
		UltimaDose:      m.UltimaDose,
		Due:             m.IsDue(now),
	}
	if next, ok := m.NextDueAt(); ok && !next.IsZero() {
		out.NextDueAt = &next
	}
	return out
}

func toReminderResponse(rem Reminder, now time.Time) reminderResponse {
	out := reminderResponse{State: rem.State}
	if rem.Pending != nil {
		m := toMedicineResponse(*rem.Pending, now)
		out.Pending = &m
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
