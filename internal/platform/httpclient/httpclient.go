package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBody        = 1 << 20
)

// Client envuelve *http.Client con base URL y headers fijos (apikey, etc).
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Header  map[string]string
}

// New crea un Client contra baseURL. baseURL vacío solo admite URLs absolutas.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		HTTP:   &http.Client{Timeout: timeout},
		Header: map[string]string{},
	}
	if strings.TrimSpace(baseURL) == "" {
		return c, nil
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	c.BaseURL = strings.TrimRight(baseURL, "/")
	return c, nil
}

// Request describe una llamada JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header map[string]string
	Body   any
}

// HTTPError representa una respuesta no-2xx. Code y Message se llenan si el body
// trae el formato de error habitual ({"code","message"} o {"error","error_description"}).
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	switch {
	case e.Code != "" || e.Message != "":
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	case e.Body != "":
		return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("http error: status=%d", e.StatusCode)
}

// StatusOf devuelve el status de un *HTTPError (0 si no lo es).
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// Do ejecuta req y decodifica la respuesta en out (si no es nil).
// Devuelve los headers de la respuesta (Content-Range, etc).
func (c *Client) Do(ctx context.Context, req Request, out any) (http.Header, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("httpclient: nil client")
	}

	fullURL, err := c.resolveURL(req.Path)
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: marshal json: %w", err)
		}
		body = bytes.NewReader(b)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: new request: %w", err)
	}

	hreq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for _, h := range []map[string]string{c.Header, req.Header} {
		for k, v := range h {
			if strings.TrimSpace(k) == "" {
				continue
			}
			hreq.Header.Set(k, v)
		}
	}

	resp, err := c.HTTP.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("httpclient: do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, newHTTPError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.Header, fmt.Errorf("httpclient: unmarshal json: %w", err)
	}
	return resp.Header, nil
}

// DoJSON es el atajo sin query ni headers de respuesta.
func (c *Client) DoJSON(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	_, err := c.Do(ctx, Request{Method: method, Path: path, Header: headers, Body: in}, out)
	return err
}

func newHTTPError(status int, raw []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var payload struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return e
	}

	switch v := payload.Code.(type) {
	case string:
		e.Code = v
	case float64:
		e.Code = fmt.Sprintf("%.0f", v)
	}
	if payload.ErrorCode != "" {
		e.Code = payload.ErrorCode
	}
	if e.Code == "" {
		e.Code = payload.Error
	}
	for _, m := range []string{payload.Message, payload.Msg, payload.ErrorDescription} {
		if m != "" {
			e.Message = m
			break
		}
	}
	return e
}

func (c *Client) resolveURL(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("httpclient: empty url")
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	if c.BaseURL == "" {
		return "", errors.New("httpclient: relative path requires BaseURL")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path, nil
}
