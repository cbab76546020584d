package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vida-melhor/internal/platform/httpclient"
	"vida-melhor/internal/ports/auth"
)

var (
	ErrTokenEmpty      = errors.New("token is empty")
	ErrTokenInvalid    = errors.New("token is invalid")
	ErrNotConfigured   = errors.New("supabase verifier not configured")
	ErrUpstreamFailure = errors.New("supabase upstream error")
)

// accessClaims son los claims que emite GoTrue en el access token.
type accessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// JWTVerifier valida el access token localmente con el JWT secret del proyecto (HS256).
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}
	if claims.Role != "" && claims.Role != "authenticated" {
		return auth.Claims{}, fmt.Errorf("%w: role %q", ErrTokenInvalid, claims.Role)
	}

	return auth.Claims{
		UserID:   sub,
		Email:    strings.TrimSpace(claims.Email),
		Role:     claims.Role,
		Metadata: claims.UserMetadata,
	}, nil
}

// RemoteVerifier pregunta a /auth/v1/user. Sirve cuando no se tiene el JWT secret.
type RemoteVerifier struct {
	http *httpclient.Client
}

func NewRemoteVerifier(cfg Config) (*RemoteVerifier, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" || strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc, err := httpclient.New(base+"/auth/v1", timeout)
	if err != nil {
		return nil, err
	}
	hc.Header["apikey"] = cfg.AnonKey
	return &RemoteVerifier{http: hc}, nil
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.http == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var out struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		Role         string         `json:"role"`
		UserMetadata map[string]any `json:"user_metadata"`
	}
	err := v.http.DoJSON(ctx, http.MethodGet, "/user", map[string]string{
		"Authorization": "Bearer " + token,
	}, nil, &out)
	if err != nil {
		switch httpclient.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return auth.Claims{}, ErrTokenInvalid
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		return auth.Claims{}, errors.New("supabase response missing user id")
	}
	return auth.Claims{
		UserID:   out.ID,
		Email:    strings.TrimSpace(out.Email),
		Role:     out.Role,
		Metadata: out.UserMetadata,
	}, nil
}
