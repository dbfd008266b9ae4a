// Package domain holds the plumbing shared by the per-resource access
// modules in its subpackages: one request, one unwrap, and the server's
// message passed through untouched.
package domain

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/normalize"
	"ctf-portal/pkg/errors"
)

// Sender issues one request against the upstream. *client.Client is the
// production implementation.
type Sender interface {
	Send(ctx context.Context, method, path string, o client.Options) (*normalize.Envelope, error)
}

// Fetch sends the request and decodes the required payload into out.
// fallback is used only when the server failed without saying why.
func Fetch(ctx context.Context, s Sender, method, path string, o client.Options, out any, fallback string) error {
	env, err := s.Send(ctx, method, path, o)
	if err != nil {
		return err
	}
	return errors.WithFallback(normalize.UnwrapRequired(env, out), fallback)
}

// Do sends the request and only checks that it succeeded.
func Do(ctx context.Context, s Sender, method, path string, o client.Options, fallback string) error {
	env, err := s.Send(ctx, method, path, o)
	if err != nil {
		return err
	}
	_, err = normalize.Unwrap(env)
	return errors.WithFallback(err, fallback)
}

// Get is Fetch for GET requests.
func Get(ctx context.Context, s Sender, path string, q url.Values, out any, fallback string) error {
	return Fetch(ctx, s, http.MethodGet, path, client.Options{Query: q}, out, fallback)
}

// FetchPage reads one page of a list endpoint. A failed envelope or an
// unexpected payload yields the empty page; only transport errors and the
// handled 401 are returned.
func FetchPage[T any](ctx context.Context, s Sender, path string, q url.Values, itemsKey string) (normalize.Page[T], error) {
	env, err := s.Send(ctx, http.MethodGet, path, client.Options{Query: q})
	if err != nil {
		return normalize.EmptyPage[T](), err
	}
	return normalize.UnwrapPaged[T](env, itemsKey), nil
}

// FetchList reads an endpoint that answers with a list, either bare or
// nested under itemsKey. Unlike FetchPage a failed envelope is an error.
func FetchList[T any](ctx context.Context, s Sender, path string, q url.Values, itemsKey, fallback string) ([]T, error) {
	env, err := s.Send(ctx, http.MethodGet, path, client.Options{Query: q})
	if err != nil {
		return []T{}, err
	}
	if !env.Success {
		return []T{}, errors.WithFallback(errors.NewApiError(env.Message), fallback)
	}
	return normalize.UnwrapList[T](env, itemsKey), nil
}

// PageQuery is the paging pair every list endpoint accepts. Page is
// zero-based.
type PageQuery struct {
	Page int
	Size int
}

// Values renders q, substituting defaultSize when Size is not positive.
func (q PageQuery) Values(defaultSize int) url.Values {
	size := q.Size
	if size <= 0 {
		size = defaultSize
	}
	page := q.Page
	if page < 0 {
		page = 0
	}
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
}

// SetID adds key=id when id is set.
func SetID(q url.Values, key string, id normalize.ID) {
	if id > 0 {
		q.Set(key, id.String())
	}
}

// SetString adds key=value when value is not blank.
func SetString(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

// Path joins segments into an API path, e.g. Path("teams", id, "apply").
func Path(segments ...any) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		switch v := seg.(type) {
		case string:
			b.WriteString(url.PathEscape(v))
		case normalize.ID:
			b.WriteString(v.String())
		case int:
			b.WriteString(strconv.Itoa(v))
		default:
			panic("domain.Path: unsupported segment type")
		}
	}
	return b.String()
}
