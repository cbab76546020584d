package postgrest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vida-melhor/internal/domain/consultations"
	"vida-melhor/internal/domain/profiles"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Prefer string
	Body   string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(r *http.Request, body string) (int, string)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Prefer: r.Header.Get("Prefer"),
		Body:   string(b),
	})
	f.mu.Unlock()

	status, out := f.respond(r, string(b))
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}

func newTestClient(t *testing.T, respond func(r *http.Request, body string) (int, string)) (*Client, *fakeServer) {
	t.Helper()
	fs := &fakeServer{respond: respond}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "anon-key", func(ctx context.Context) string { return "user-token" })
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, fs
}

func TestQuery_BuildsFilters(t *testing.T) {
	c, fs := newTestClient(t, func(r *http.Request, _ string) (int, string) { return 200, `[]` })

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var out []map[string]any
	err := c.From("consultation").
		Select("*").
		In("user_id", []string{"a", "b"}).
		Gte("data_hora", from).
		Order("data_hora", true).
		Order("id", true).
		Limit(10).
		Get(context.Background(), &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	req := fs.requests[0]
	if req.Path != "/rest/v1/consultation" {
		t.Fatalf("path = %q", req.Path)
	}
	if req.Auth != "Bearer user-token" {
		t.Fatalf("auth = %q", req.Auth)
	}
	for _, want := range []string{
		"select=%2A",
		"user_id=in.%28%22a%22%2C%22b%22%29",
		"data_hora=gte.2025-03-01T00%3A00%3A00Z",
		"order=data_hora.asc%2Cid.asc",
		"limit=10",
	} {
		if !strings.Contains(req.Query, want) {
			t.Fatalf("query %q missing %q", req.Query, want)
		}
	}
}

func TestClient_FallsBackToAnonKey(t *testing.T) {
	fs := &fakeServer{respond: func(*http.Request, string) (int, string) { return 200, `[]` }}
	srv := httptest.NewServer(fs)
	defer srv.Close()

	c, err := NewClient(srv.URL, "anon-key", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var out []map[string]any
	if err := c.From("pharmacies").Get(context.Background(), &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fs.requests[0].Auth != "Bearer anon-key" {
		t.Fatalf("auth = %q", fs.requests[0].Auth)
	}
}

func TestProfilesRepo_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
		want error
	}{
		{"missing column", `{"code":"42703","message":"column profiles.carer_id does not exist"}`, 400, profiles.ErrSchemaMismatch},
		{"rls", `{"code":"42501","message":"new row violates row-level security policy"}`, 403, profiles.ErrPermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(*http.Request, string) (int, string) { return tc.code, tc.body })
			repo := NewProfilesRepo(c)

			carer := "c-1"
			err := repo.SetCarer(context.Background(), "e-1", nil, &carer)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestProfilesRepo_SetCarerEmptyResultIsNotFound(t *testing.T) {
	c, fs := newTestClient(t, func(*http.Request, string) (int, string) { return 200, `[]` })
	repo := NewProfilesRepo(c)

	err := repo.SetCarer(context.Background(), "e-1", strPtr("c-1"), nil)
	if !errors.Is(err, profiles.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	req := fs.requests[0]
	if req.Method != http.MethodPatch || !strings.Contains(req.Query, "id=eq.e-1") {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.Query, "carer_id=eq.c-1") {
		t.Fatalf("expected the current carer as a filter, got %s", req.Query)
	}
	if !strings.Contains(req.Body, `"carer_id":null`) {
		t.Fatalf("expected carer_id null in body, got %s", req.Body)
	}
}

func TestProfilesRepo_SetCarerLostRace(t *testing.T) {
	c, fs := newTestClient(t, func(r *http.Request, _ string) (int, string) {
		if r.Method == http.MethodPatch {
			return 200, `[]`
		}
		return 200, `[{"id":"e-1","name":"Ana","carer":false,"carer_id":"c-2",
			"created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"}]`
	})
	repo := NewProfilesRepo(c)

	err := repo.SetCarer(context.Background(), "e-1", nil, strPtr("c-1"))
	if !errors.Is(err, profiles.ErrCarerChanged) {
		t.Fatalf("expected ErrCarerChanged, got %v", err)
	}
	if !strings.Contains(fs.requests[0].Query, "carer_id=is.null") {
		t.Fatalf("link must only write over a free elder, got %s", fs.requests[0].Query)
	}
}

func TestProfilesRepo_SetCarerHiddenByPolicy(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request, _ string) (int, string) {
		if r.Method == http.MethodPatch {
			return 200, `[]`
		}
		return 200, `[{"id":"e-1","name":"Ana","carer":false,"carer_id":null,
			"created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"}]`
	})
	repo := NewProfilesRepo(c)

	err := repo.SetCarer(context.Background(), "e-1", nil, strPtr("c-1"))
	if !errors.Is(err, profiles.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestProfilesRepo_GetByID(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request, _ string) (int, string) {
		if strings.Contains(r.URL.RawQuery, "id=eq.missing") {
			return 200, `[]`
		}
		return 200, `[{"id":"e-1","name":"Ana","carer":false,"carer_id":"c-1","device_token":null,
			"created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"}]`
	})
	repo := NewProfilesRepo(c)

	p, err := repo.GetByID(context.Background(), "e-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !p.LinkedTo("c-1") || p.DeviceToken != "" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, profiles.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMedicinesRepo_ConfirmDoseRetriesOnRace(t *testing.T) {
	var patches int
	c, fs := newTestClient(t, func(r *http.Request, _ string) (int, string) {
		switch r.Method {
		case http.MethodGet:
			return 200, `[{"id":1,"user_id":"e-1","nome":"Losartana","dose":"50mg","estoque":0,"frequencia_horas":8,"ultima_dose":null}]`
		case http.MethodPatch:
			patches++
			if patches == 1 {
				return 200, `[]`
			}
			return 200, `[{"id":1,"user_id":"e-1","nome":"Losartana","dose":"50mg","estoque":0,"frequencia_horas":8,"ultima_dose":"2025-01-01T08:00:00Z"}]`
		}
		return 500, ``
	})
	repo := NewMedicinesRepo(c)

	at := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	m, err := repo.ConfirmDose(context.Background(), 1, at)
	if err != nil {
		t.Fatalf("ConfirmDose: %v", err)
	}
	if m.Estoque != 0 || m.UltimaDose == nil || !m.UltimaDose.Equal(at) {
		t.Fatalf("unexpected medicine: %+v", m)
	}
	if patches != 2 {
		t.Fatalf("expected 2 patch attempts, got %d", patches)
	}

	var last recorded
	for _, r := range fs.requests {
		if r.Method == http.MethodPatch {
			last = r
		}
	}
	if !strings.Contains(last.Query, "estoque=eq.0") {
		t.Fatalf("expected stock guard in query, got %q", last.Query)
	}
	if !strings.Contains(last.Body, `"estoque":0`) {
		t.Fatalf("stock must not go negative, body %s", last.Body)
	}
}

func TestMedicinesRepo_ListDueFiltersClientSide(t *testing.T) {
	c, fs := newTestClient(t, func(*http.Request, string) (int, string) {
		return 200, `[
			{"id":1,"user_id":"e-1","nome":"A","dose":"1","estoque":3,"frequencia_horas":8,"ultima_dose":"2025-01-01T00:00:00Z"},
			{"id":2,"user_id":"e-1","nome":"B","dose":"1","estoque":3,"frequencia_horas":8,"ultima_dose":"2025-01-01T07:00:00Z"},
			{"id":3,"user_id":"e-2","nome":"C","dose":"1","estoque":3,"frequencia_horas":null,"ultima_dose":null}
		]`
	})
	repo := NewMedicinesRepo(c)

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	due, err := repo.ListDue(context.Background(), now, 0, 0)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 2 || due[0].ID != 1 || due[1].ID != 3 {
		t.Fatalf("unexpected due list: %+v", due)
	}

	if _, err := repo.ListDue(context.Background(), now, 1, 0); err != nil {
		t.Fatalf("ListDue after 1: %v", err)
	}
	if q := fs.requests[1].Query; !strings.Contains(q, "id=gt.1") {
		t.Fatalf("expected keyset filter, got %q", q)
	}
}

func TestConsultationsRepo_CreateSendsRow(t *testing.T) {
	c, fs := newTestClient(t, func(*http.Request, string) (int, string) {
		return 201, `[{"id":5,"user_id":"e-1","nome":"Retorno","data_hora":"2025-02-10T13:00:00Z","tipo":"telemedicina","medico":"Dr. Silva","especialidade":"Cardio"}]`
	})
	repo := NewConsultationsRepo(c)

	out, err := repo.Create(context.Background(), consultations.Consultation{
		UserID:   "e-1",
		Nome:     "Retorno",
		DataHora: time.Date(2025, 2, 10, 13, 0, 0, 0, time.UTC),
		Tipo:     consultations.TipoTelemedicina,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.ID != 5 || out.Tipo != consultations.TipoTelemedicina {
		t.Fatalf("unexpected consultation: %+v", out)
	}
	req := fs.requests[0]
	if req.Method != http.MethodPost || req.Prefer != "return=representation" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if strings.Contains(req.Body, `"id"`) {
		t.Fatalf("id must be assigned by the backend, body %s", req.Body)
	}
}

func strPtr(s string) *string { return &s }
