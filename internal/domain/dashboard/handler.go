package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"vida-melhor/internal/domain/catalog"
	"vida-melhor/internal/domain/medicines"
	"vida-melhor/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/home", getHomeHandler(svc))
}

type homeMedicine struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	Nome            string     `json:"nome"`
	Dose            string     `json:"dose"`
	Estoque         int        `json:"estoque"`
	FrequenciaHoras *int       `json:"frequencia_horas"`
	UltimaDose      *time.Time `json:"ultima_dose"`
	Due             bool       `json:"due"`
}

type homePharmacy struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
	Active  bool   `json:"active"`
}

type medicinesPart struct {
	Items []homeMedicine `json:"items"`
	Error string         `json:"error,omitempty"`
}

type pharmaciesPart struct {
	Items []homePharmacy `json:"items"`
	Error string         `json:"error,omitempty"`
}

type reminderPart struct {
	State   medicines.ReminderState `json:"state"`
	Pending *homeMedicine           `json:"pending"`
}

type homeResponse struct {
	IsCaretaker bool           `json:"is_caretaker"`
	Medicines   medicinesPart  `json:"medicines"`
	Pharmacies  pharmaciesPart `json:"pharmacies"`
	Reminder    reminderPart   `json:"reminder"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// getHomeHandler godoc
// @Summary Dashboard inicial
// @Description Medicamentos (propios o de los idosos vinculados) y farmacias, cargados en paralelo. Cada parte informa su propio error; la respuesta es 200 aunque una parte falle.
// @Tags home
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} homeResponse
// @Failure 401 {string} string "unauthorized"
// @Router /home [get]
func getHomeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.GetViewer(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		home := svc.Load(r.Context(), v)
		now := home.GeneratedAt

		resp := homeResponse{
			IsCaretaker: v.IsCaretaker(),
			Medicines:   medicinesPart{Items: make([]homeMedicine, 0, len(home.Medicines))},
			Pharmacies:  pharmaciesPart{Items: make([]homePharmacy, 0, len(home.Pharmacies))},
			Reminder:    reminderPart{State: home.Reminder.State},
			GeneratedAt: now,
		}

		if home.MedicinesErr != nil {
			resp.Medicines.Error = "failed to load medicines"
		}
		for _, m := range home.Medicines {
			resp.Medicines.Items = append(resp.Medicines.Items, toHomeMedicine(m, now))
		}

		if home.PharmaciesErr != nil {
			resp.Pharmacies.Error = "failed to load pharmacies"
		}
		for _, p := range home.Pharmacies {
			resp.Pharmacies.Items = append(resp.Pharmacies.Items, toHomePharmacy(p))
		}

		if home.Reminder.Pending != nil {
			m := toHomeMedicine(*home.Reminder.Pending, now)
			resp.Reminder.Pending = &m
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func toHomeMedicine(m medicines.Medicine, now time.Time) homeMedicine {
	return homeMedicine{
		ID:              m.ID,
		UserID:          m.UserID,
		Nome:            m.Nome,
		Dose:            m.Dose,
		Estoque:         m.Estoque,
		FrequenciaHoras: m.FrequenciaHoras,
		UltimaDose:      m.UltimaDose,
		Due:             m.IsDue(now),
	}
}

func toHomePharmacy(p catalog.Pharmacy) homePharmacy {
	return homePharmacy{
		ID:      p.ID,
		Name:    p.Name,
		Address: p.Address,
		Contact: p.Contact,
		Active:  p.Active,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
