package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/router"
)

func TestHTTP_EndToEnd_ElderAndCaretaker(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	elderID := "elder-1"
	carerID := "carer-1"
	otherCarerID := "carer-2"

	// 1) Sin usuario no hay acceso
	{
		st, _ := doReq(t, ts.URL, "GET", "/medicines", "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user, got %d", st)
		}
	}

	// 2) Primer acceso crea los perfiles
	ensureProfile(t, ts.URL, elderID, false)
	ensureProfile(t, ts.URL, carerID, true)
	ensureProfile(t, ts.URL, otherCarerID, true)

	// 3) Idoso registra un medicamento: queda pendiente
	medID := createMedicine(t, ts.URL, elderID, map[string]any{
		"nome":             "Losartana",
		"dose":             "50mg",
		"estoque":          1,
		"frequencia_horas": 8,
	})
	{
		st, body := doReq(t, ts.URL, "GET", "/me/reminder", elderID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 reminder, got %d body=%s", st, string(body))
		}
		var rem struct {
			State   string `json:"state"`
			Pending *struct {
				ID int64 `json:"id"`
			} `json:"pending"`
		}
		_ = json.Unmarshal(body, &rem)
		if rem.State != "due" || rem.Pending == nil || rem.Pending.ID != medID {
			t.Fatalf("expected due reminder for %d, got %s", medID, string(body))
		}
	}

	// 4) Confirmar la dose descuenta stock y deja el recordatorio en idle
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines/"+strconv.FormatInt(medID, 10)+"/confirm-dose", elderID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 confirm, got %d body=%s", st, string(body))
		}
		var resp struct {
			Medicine struct {
				Estoque int  `json:"estoque"`
				Due     bool `json:"due"`
			} `json:"medicine"`
			Reminder struct {
				State string `json:"state"`
			} `json:"reminder"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Medicine.Estoque != 0 || resp.Medicine.Due || resp.Reminder.State != "idle" {
			t.Fatalf("unexpected confirm response: %s", string(body))
		}

		// Repetir el POST no registra otra dose
		st, body = doReq(t, ts.URL, "POST", "/medicines/"+strconv.FormatInt(medID, 10)+"/confirm-dose", elderID, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 on replayed confirm, got %d body=%s", st, string(body))
		}
	}

	// 5) Cuidador aún no ve los medicamentos del idoso
	if n := countMedicines(t, ts.URL, carerID); n != 0 {
		t.Fatalf("expected 0 medicines before link, got %d", n)
	}

	// 6) Un idoso no puede usar la pantalla de cuidador
	{
		st, _ := doReq(t, ts.URL, "GET", "/caretaker/elders", elderID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 for elder on caretaker screen, got %d", st)
		}
	}

	// 7) Cuidador vincula al idoso
	{
		st, body := doReq(t, ts.URL, "POST", "/caretaker/elders/"+elderID+"/link", carerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 link, got %d body=%s", st, string(body))
		}
		var resp struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Status != "linked_to_me" {
			t.Fatalf("expected linked_to_me, got %s", string(body))
		}
	}

	// 8) Otro cuidador no puede quitárselo
	{
		st, _ := doReq(t, ts.URL, "POST", "/caretaker/elders/"+elderID+"/link", otherCarerID, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 for already linked elder, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "POST", "/caretaker/elders/"+elderID+"/unlink", otherCarerID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 unlinking someone else's elder, got %d", st)
		}
	}

	// 9) Ahora el cuidador ve y agenda por el idoso
	if n := countMedicines(t, ts.URL, carerID); n != 1 {
		t.Fatalf("expected 1 medicine after link, got %d", n)
	}
	{
		st, body := doReq(t, ts.URL, "POST", "/consultations", carerID, map[string]any{
			"user_id":   elderID,
			"nome":      "Retorno cardiologia",
			"data_hora": "2030-02-10T13:00:00Z",
			"tipo":      "Presencial",
			"medico":    "Dra. Souza",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 consultation by carer, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, ts.URL, "GET", "/consultations", elderID, nil)
		if st != http.StatusOK || !bytes.Contains(body, []byte("Retorno cardiologia")) {
			t.Fatalf("elder should see consultation, got %d body=%s", st, string(body))
		}
	}

	// 10) Dashboard del cuidador
	{
		st, body := doReq(t, ts.URL, "GET", "/home", carerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 home, got %d body=%s", st, string(body))
		}
		var home struct {
			IsCaretaker bool `json:"is_caretaker"`
			Medicines   struct {
				Items []json.RawMessage `json:"items"`
				Error string            `json:"error"`
			} `json:"medicines"`
			Pharmacies struct {
				Items []json.RawMessage `json:"items"`
				Error string            `json:"error"`
			} `json:"pharmacies"`
		}
		_ = json.Unmarshal(body, &home)
		if !home.IsCaretaker || len(home.Medicines.Items) != 1 || len(home.Pharmacies.Items) == 0 {
			t.Fatalf("unexpected home: %s", string(body))
		}
		if home.Medicines.Error != "" || home.Pharmacies.Error != "" {
			t.Fatalf("unexpected part errors: %s", string(body))
		}
	}

	// 11) Desvincular corta el acceso
	{
		st, _ := doReq(t, ts.URL, "POST", "/caretaker/elders/"+elderID+"/toggle", carerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 toggle, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "DELETE", "/medicines/"+strconv.FormatInt(medID, 10), carerID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 delete after unlink, got %d", st)
		}
	}
}

func TestHTTP_CatalogIsPublicForSignedInUsers(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	st, body := doReq(t, ts.URL, "GET", "/store?q=losartana", "u-1", nil)
	if st != http.StatusOK || !bytes.Contains(body, []byte("Losartana")) {
		t.Fatalf("expected losartana in store, got %d body=%s", st, string(body))
	}
	if bytes.Contains(body, []byte("Dipirona")) {
		t.Fatalf("search should filter by name: %s", string(body))
	}

	st, _ = doReq(t, ts.URL, "GET", "/store?limit=-1", "u-1", nil)
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", st)
	}
}

// unreachableProfiles simula el backend de perfiles caído.
type unreachableProfiles struct {
	profiles.Repository
}

func (unreachableProfiles) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	return profiles.Profile{}, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

func TestHTTP_ProfilesBackendDownIsNotUnauthorized(t *testing.T) {
	repos := router.MemoryRepos()
	repos.Profiles = unreachableProfiles{repos.Profiles}
	ts := httptest.NewServer(router.NewRouter(router.Options{Repos: &repos}))
	defer ts.Close()

	st, body := doReq(t, ts.URL, "GET", "/medicines", "elder-1", nil)
	if st != http.StatusBadGateway {
		t.Fatalf("expected 502 with profiles backend down, got %d body=%s", st, string(body))
	}

	// Sin usuario sigue siendo 401
	if st, _ := doReq(t, ts.URL, "GET", "/medicines", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", st)
	}
}

func ensureProfile(t *testing.T, baseURL, userID string, carer bool) {
	t.Helper()

	req, _ := http.NewRequest("GET", baseURL+"/me/profile", nil)
	req.Header.Set("X-Debug-User-ID", userID)
	if carer {
		req.Header.Set("X-Debug-Carer", "true")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 profile, got %d body=%s", res.StatusCode, string(body))
	}
	var p struct {
		ID    string `json:"id"`
		Carer bool   `json:"carer"`
	}
	_ = json.Unmarshal(body, &p)
	if p.ID != userID || p.Carer != carer {
		t.Fatalf("unexpected profile: %s", string(body))
	}
}

func createMedicine(t *testing.T, baseURL, userID string, payload map[string]any) int64 {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medicines", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medicine, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == 0 {
		t.Fatalf("create medicine: missing id body=%s", string(body))
	}
	return resp.ID
}

func countMedicines(t *testing.T, baseURL, userID string) int {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/medicines", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list medicines, got %d body=%s", st, string(body))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("decode medicines: %v body=%s", err, string(body))
	}
	return len(items)
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
