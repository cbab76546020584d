// Package postgrest habla con la API REST de tablas del backend hospedado.
package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vida-melhor/internal/platform/httpclient"
)

// Códigos que el backend devuelve en el body de error.
const (
	CodeUndefinedColumn  = "42703"
	CodePermissionDenied = "42501"
	CodeNoRows           = "PGRST116"
)

// TokenSource entrega el access token del usuario actual ("" = usar la anon key).
type TokenSource func(ctx context.Context) string

type Client struct {
	http   *httpclient.Client
	anon   string
	tokens TokenSource
}

// NewClient apunta a <baseURL>/rest/v1.
func NewClient(baseURL, anonKey string, tokens TokenSource) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || strings.TrimSpace(anonKey) == "" {
		return nil, errors.New("postgrest: base url and anon key are required")
	}
	hc, err := httpclient.New(baseURL+"/rest/v1", 15*time.Second)
	if err != nil {
		return nil, err
	}
	hc.Header["apikey"] = anonKey
	return &Client{http: hc, anon: anonKey, tokens: tokens}, nil
}

// From arranca una consulta sobre table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

func (c *Client) bearer(ctx context.Context) string {
	tok := ""
	if c.tokens != nil {
		tok = c.tokens(ctx)
	}
	if tok == "" {
		tok = c.anon
	}
	return "Bearer " + tok
}

// Query es un builder mínimo: filtros + orden + límite y un verbo final.
type Query struct {
	c      *Client
	table  string
	params url.Values
}

func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

func (q *Query) Eq(col string, v any) *Query {
	q.params.Add(col, "eq."+format(v))
	return q
}

func (q *Query) Is(col, v string) *Query {
	q.params.Add(col, "is."+v)
	return q
}

func (q *Query) In(col string, vals []string) *Query {
	quoted := make([]string, 0, len(vals))
	for _, v := range vals {
		quoted = append(quoted, `"`+strings.ReplaceAll(v, `"`, `\"`)+`"`)
	}
	q.params.Add(col, "in.("+strings.Join(quoted, ",")+")")
	return q
}

func (q *Query) Gt(col string, v any) *Query {
	q.params.Add(col, "gt."+format(v))
	return q
}

func (q *Query) Gte(col string, v any) *Query {
	q.params.Add(col, "gte."+format(v))
	return q
}

func (q *Query) Lte(col string, v any) *Query {
	q.params.Add(col, "lte."+format(v))
	return q
}

// ILike busca pattern en col sin distinguir mayúsculas; el caller escapa comodines.
func (q *Query) ILike(col, pattern string) *Query {
	q.params.Add(col, "ilike.*"+pattern+"*")
	return q
}

func (q *Query) Order(col string, asc bool) *Query {
	dir := "desc"
	if asc {
		dir = "asc"
	}
	if cur := q.params.Get("order"); cur != "" {
		q.params.Set("order", cur+","+col+"."+dir)
		return q
	}
	q.params.Set("order", col+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.params.Set("limit", strconv.Itoa(n))
	}
	return q
}

// Get decodifica las filas en out (puntero a slice).
func (q *Query) Get(ctx context.Context, out any) error {
	return q.do(ctx, http.MethodGet, nil, nil, out)
}

// Insert devuelve las filas insertadas en out.
func (q *Query) Insert(ctx context.Context, row any, out any) error {
	return q.do(ctx, http.MethodPost, row, map[string]string{"Prefer": "return=representation"}, out)
}

// Upsert inserta o mezcla por onConflict.
func (q *Query) Upsert(ctx context.Context, row any, onConflict string, out any) error {
	if onConflict != "" {
		q.params.Set("on_conflict", onConflict)
	}
	return q.do(ctx, http.MethodPost, row, map[string]string{
		"Prefer": "resolution=merge-duplicates,return=representation",
	}, out)
}

// Update aplica patch a las filas filtradas y las devuelve en out.
func (q *Query) Update(ctx context.Context, patch any, out any) error {
	return q.do(ctx, http.MethodPatch, patch, map[string]string{"Prefer": "return=representation"}, out)
}

// Delete borra las filas filtradas y las devuelve en out (puede ser nil).
func (q *Query) Delete(ctx context.Context, out any) error {
	return q.do(ctx, http.MethodDelete, nil, map[string]string{"Prefer": "return=representation"}, out)
}

func (q *Query) do(ctx context.Context, method string, body any, extra map[string]string, out any) error {
	h := map[string]string{"Authorization": q.c.bearer(ctx)}
	for k, v := range extra {
		h[k] = v
	}
	_, err := q.c.http.Do(ctx, httpclient.Request{
		Method: method,
		Path:   "/" + q.table,
		Query:  q.params,
		Header: h,
		Body:   body,
	}, out)
	if err != nil {
		return fmt.Errorf("postgrest %s %s: %w", method, q.table, err)
	}
	return nil
}

func format(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// CodeOf devuelve el código de error del backend ("" si no hay).
func CodeOf(err error) string {
	var he *httpclient.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

// translate mapea errores de esquema y de RLS a los sentinels dados.
func translate(err error, schemaMismatch, permissionDenied error) error {
	if err == nil {
		return nil
	}
	switch CodeOf(err) {
	case CodeUndefinedColumn:
		return fmt.Errorf("%w: %v", schemaMismatch, err)
	case CodePermissionDenied:
		return fmt.Errorf("%w: %v", permissionDenied, err)
	}
	if httpclient.StatusOf(err) == http.StatusForbidden {
		return fmt.Errorf("%w: %v", permissionDenied, err)
	}
	return err
}
