package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vida-melhor/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/pharmacies", listPharmaciesHandler(svc))

	r.Route("/store", func(sr chi.Router) {
		sr.Get("/", searchStoreHandler(svc))
		sr.Get("/{itemID}", getStoreItemHandler(svc))
	})
}

type pharmacyResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Contact       string    `json:"contact"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type storeItemResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	CategoryID   string    `json:"category_id,omitempty"`
	IsGeneric    bool      `json:"is_generic"`
	PharmacyID   string    `json:"pharmacy_id"`
	Stock        int       `json:"stock"`
	PriceInCents int64     `json:"price_in_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

// listPharmaciesHandler godoc
// @Summary Listar farmacias
// @Description Farmacias ordenadas por nombre. q filtra por nombre (contiene, sin distinguir mayúsculas).
// @Tags catalog
// @Produce json
// @Param q query string false "Búsqueda por nombre"
// @Success 200 {array} pharmacyResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 502 {string} string "failed to load pharmacies"
// @Router /pharmacies [get]
func listPharmaciesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListPharmacies(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, "failed to load pharmacies", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, toPharmacyResponses(items))
	}
}

// searchStoreHandler godoc
// @Summary Buscar en la tienda
// @Description Medicamentos a la venta ordenados por nombre.
// @Tags catalog
// @Produce json
// @Param q query string false "Búsqueda por nombre"
// @Param pharmacy_id query string false "Solo de esta farmacia"
// @Param limit query int false "Máximo de resultados (default 50, máx 200)"
// @Success 200 {array} storeItemResponse
// @Failure 400 {string} string "invalid limit"
// @Failure 401 {string} string "unauthorized"
// @Router /store [get]
func searchStoreHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := StoreQuery{
			Q:          r.URL.Query().Get("q"),
			PharmacyID: r.URL.Query().Get("pharmacy_id"),
		}
		if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}

		items, err := svc.SearchStore(r.Context(), q)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to load store", http.StatusBadGateway)
			return
		}

		out := make([]storeItemResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toStoreItemResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getStoreItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		it, err := svc.GetStoreItem(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "item not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load item", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, toStoreItemResponse(it))
	}
}

func toPharmacyResponses(items []Pharmacy) []pharmacyResponse {
	out := make([]pharmacyResponse, 0, len(items))
	for _, p := range items {
		out = append(out, pharmacyResponse{
			ID:            p.ID,
			Name:          p.Name,
			Address:       p.Address,
			Contact:       p.Contact,
			Email:         p.Email,
			EmailVerified: p.EmailVerified,
			Active:        p.Active,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	return out
}

func toStoreItemResponse(it StoreItem) storeItemResponse {
	return storeItemResponse{
		ID:           it.ID,
		Name:         it.Name,
		Slug:         it.Slug,
		Description:  it.Description,
		CategoryID:   it.CategoryID,
		IsGeneric:    it.IsGeneric,
		PharmacyID:   it.PharmacyID,
		Stock:        it.Stock,
		PriceInCents: it.PriceInCents,
		CreatedAt:    it.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
