// Package testutil provides a fake CTF upstream for package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/config"
)

// Upstream is an httptest server speaking the platform's envelope format
// under /api.
type Upstream struct {
	Server *httptest.Server
}

// NewUpstream starts a fake upstream whose /api routes are declared by mount.
func NewUpstream(t *testing.T, mount func(r chi.Router)) *Upstream {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", mount)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Upstream{Server: srv}
}

// BaseURL is the API root to configure a client with.
func (u *Upstream) BaseURL() string {
	return u.Server.URL + "/api"
}

// Client returns a client pointed at the upstream.
func (u *Upstream) Client(t *testing.T, opts ...client.Option) *client.Client {
	t.Helper()
	c, err := client.New(config.APIConfig{BaseURL: u.BaseURL(), Timeout: 5 * time.Second}, opts...)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

// OK answers with a successful envelope around data.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, map[string]any{
		"success":   true,
		"message":   "操作成功",
		"data":      data,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Fail answers with a failed envelope.
func Fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UnixMilli(),
	})
}

// Page builds the nested paged payload the platform returns.
func Page(key string, items any, totalPages, totalElements, currentPage, pageSize int) map[string]any {
	return map[string]any{
		key:             items,
		"totalPages":    totalPages,
		"totalElements": totalElements,
		"currentPage":   currentPage,
		"pageSize":      pageSize,
	}
}

// DecodeBody decodes a JSON request body, failing the test on error.
func DecodeBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Errorf("decode request body: %v", err)
	}
}
