package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vida-melhor/internal/domain/viewer"
	"vida-melhor/internal/ports/auth"
)

type fakeVerifier struct {
	tokens map[string]string
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	uid, ok := f.tokens[token]
	if !ok {
		return auth.Claims{}, errors.New("invalid token")
	}
	return auth.Claims{UserID: uid, Role: "authenticated"}, nil
}

type fakeLookup struct {
	carers map[string]bool
	elders map[string][]string
}

func (f fakeLookup) IsCarer(ctx context.Context, userID string) (bool, error) {
	if userID == "broken" {
		return false, errors.New("db down")
	}
	return f.carers[userID], nil
}

func (f fakeLookup) EldersOf(ctx context.Context, carerID string) ([]string, error) {
	return f.elders[carerID], nil
}

// captured guarda lo que el handler final vio en el context.
type captured struct {
	claims    auth.Claims
	hasClaims bool
	viewer    viewer.Viewer
	hasViewer bool
}

func run(t *testing.T, h func(http.Handler) http.Handler, req *http.Request) captured {
	t.Helper()
	var got captured
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.claims, got.hasClaims = GetClaims(r.Context())
		got.viewer, got.hasViewer = GetViewer(r.Context())
	})
	rec := httptest.NewRecorder()
	h(final).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return got
}

func TestAuthContext_Verifier(t *testing.T) {
	mw := AuthContext(fakeVerifier{tokens: map[string]string{"good": "u-1"}})

	cases := []struct {
		name    string
		prepare func(r *http.Request)
		wantUID string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, "u-1"},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, "u-1"},
		{"invalid token is anonymous", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, ""},
		{"debug header ignored", func(r *http.Request) { r.Header.Set(DebugUserHeader, "u-9") }, ""},
		{"query token without upgrade", func(r *http.Request) { r.URL.RawQuery = "access_token=good" }, ""},
		{"query token on websocket upgrade", func(r *http.Request) {
			r.URL.RawQuery = "access_token=good"
			r.Header.Set("Upgrade", "websocket")
		}, "u-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tc.prepare(req)

			got := run(t, mw, req)
			if tc.wantUID == "" {
				assert.False(t, got.hasClaims)
				return
			}
			require.True(t, got.hasClaims)
			assert.Equal(t, tc.wantUID, got.claims.UserID)
		})
	}
}

func TestAuthContext_DevMode(t *testing.T) {
	mw := AuthContext(nil)

	req := httptest.NewRequest(http.MethodGet, "/medicines", nil)
	req.Header.Set(DebugUserHeader, " c-1 ")
	req.Header.Set("X-Debug-Carer", "TRUE")

	got := run(t, mw, req)
	require.True(t, got.hasClaims)
	assert.Equal(t, "c-1", got.claims.UserID)
	assert.Equal(t, true, got.claims.Metadata["carer"])

	got = run(t, mw, httptest.NewRequest(http.MethodGet, "/medicines", nil))
	assert.False(t, got.hasClaims)
}

func TestViewerContext(t *testing.T) {
	lookup := fakeLookup{
		carers: map[string]bool{"c-1": true},
		elders: map[string][]string{"c-1": {"e-1", "e-2"}},
	}
	chain := func(next http.Handler) http.Handler {
		return AuthContext(nil)(ViewerContext(lookup)(next))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DebugUserHeader, "c-1")
	got := run(t, chain, req)
	require.True(t, got.hasViewer)
	assert.True(t, got.viewer.IsCaretaker())
	subjects, err := got.viewer.Subjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"e-1", "e-2"}, subjects)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DebugUserHeader, "e-1")
	got = run(t, chain, req)
	require.True(t, got.hasViewer)
	assert.False(t, got.viewer.IsCaretaker())

	// sin claims no hay viewer, pero el request sigue
	got = run(t, chain, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, got.hasViewer)
}

func TestViewerContext_LookupFailureIsBadGateway(t *testing.T) {
	called := false
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := AuthContext(nil)(ViewerContext(fakeLookup{})(final))

	req := httptest.NewRequest(http.MethodGet, "/medicines", nil)
	req.Header.Set(DebugUserHeader, "broken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, called, "handler must not run without a viewer")
}

func TestWithViewer(t *testing.T) {
	ctx := WithViewer(context.Background(), viewer.Elder("e-1"))
	v, ok := GetViewer(ctx)
	require.True(t, ok)
	assert.Equal(t, "e-1", v.UserID())

	_, ok = GetViewer(context.Background())
	assert.False(t, ok)
}
