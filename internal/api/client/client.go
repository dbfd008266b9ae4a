// Package client is the single configured HTTP client used to talk to the
// CTF platform. Every domain package goes through Client.Send, which owns the
// cross-cutting behaviour: credential injection, the request timeout, cache
// busting, and the central handling of 401/403/5xx responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"ctf-portal/internal/config"
	"ctf-portal/internal/normalize"
	"ctf-portal/pkg/errors"
)

const maxBodyBytes = 16 << 20

// SessionContext is the view of Session State the client needs.
type SessionContext interface {
	// Credential returns the bearer credential, or "" when there is none.
	Credential() string
	// Invalidate clears the session and reports whether this call did it.
	Invalidate(ctx context.Context) bool
}

// Options carries the optional parts of a request.
type Options struct {
	Query url.Values
	Body  any
}

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       http.CookieJar
	cacheBust bool
	userAgent string
	logger    *zap.Logger
	now       func() time.Time

	notifier       Notifier
	onUnauthorized func(ctx context.Context)

	mu      sync.RWMutex
	session SessionContext
}

type Option func(*Client)

// WithSession attaches the Session State used for credentials and 401s.
func WithSession(s SessionContext) Option {
	return func(c *Client) { c.session = s }
}

// WithNotifier sets the toast collaborator for 403 and 5xx responses.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithUnauthorizedHandler sets the callback fired once when a 401 clears the
// session. Callers use it to send the user to the login entry point.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.APIConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url must be absolute, got %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout, Jar: jar},
		jar:       jar,
		cacheBust: cfg.CacheBust,
		userAgent: cfg.UserAgent,
		logger:    zap.NewNop(),
		now:       time.Now,
		notifier:  NopNotifier{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetSession attaches s after construction. Session State and the auth
// module depend on each other, so the wiring code closes the loop here.
func (c *Client) SetSession(s SessionContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) sessionContext() SessionContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// BaseURL returns the configured upstream root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Cookies returns the upstream cookies currently held, e.g. the servlet
// session cookie, so they can be persisted alongside the principal.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.rootURL())
}

// SetCookies restores previously persisted upstream cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	restored := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		restored = append(restored, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	c.jar.SetCookies(c.rootURL(), restored)
}

// ClearCookies drops every upstream cookie.
func (c *Client) ClearCookies() {
	expired := make([]*http.Cookie, 0)
	for _, ck := range c.Cookies() {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.jar.SetCookies(c.rootURL(), expired)
}

func (c *Client) rootURL() *url.URL {
	return &url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host, Path: "/"}
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*normalize.Envelope, error) {
	return c.Send(ctx, http.MethodGet, path, Options{Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*normalize.Envelope, error) {
	return c.Send(ctx, http.MethodPost, path, Options{Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*normalize.Envelope, error) {
	return c.Send(ctx, http.MethodPut, path, Options{Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*normalize.Envelope, error) {
	return c.Send(ctx, http.MethodDelete, path, Options{})
}

// Send issues one request and returns the response envelope. A failed
// envelope (success=false) is returned as is, whatever the HTTP status;
// turning it into an error is the normalizer's job.
func (c *Client) Send(ctx context.Context, method, path string, o Options) (*normalize.Envelope, error) {
	resp, body, err := c.do(ctx, method, path, o, "application/json")
	if err != nil {
		return nil, err
	}

	env, ok := normalize.ParseEnvelope(body)
	if err := c.handleStatus(ctx, resp.StatusCode, env); err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewHttpError(resp.StatusCode, string(body))
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, method, path string, o Options, accept string) (*http.Response, []byte, error) {
	op := method + " " + path
	u := c.resolve(path, o.Query, method)

	var body io.Reader
	if o.Body != nil {
		b, err := json.Marshal(o.Body)
		if err != nil {
			return nil, nil, errors.NewBadRequestError(fmt.Sprintf("encode %s body: %v", op, err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, nil, errors.NewBadRequestError(fmt.Sprintf("build %s: %v", op, err))
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if s := c.sessionContext(); s != nil {
		if cred := s.Credential(); cred != "" {
			req.Header.Set("Authorization", "Bearer "+cred)
		}
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, nil, c.transportError(ctx, op, err)
	}
	if len(data) > maxBodyBytes {
		c.logger.Warn("api response too large", zap.String("method", method), zap.String("path", path))
		return nil, nil, errors.NewHttpError(resp.StatusCode, "response body exceeds 16 MiB")
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", c.now().Sub(start)),
	)
	return resp, data, nil
}

func (c *Client) resolve(path string, query url.Values, method string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.cacheBust && method == http.MethodGet {
		q.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	u.RawQuery = q.Encode()
	return &u
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if stderrors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Warn("api request timed out", zap.String("op", op))
		return errors.NewTimeoutError(op, err)
	}
	c.logger.Warn("api request failed", zap.String("op", op), zap.Error(err))
	return errors.NewNetworkError(op, err)
}

// handleStatus applies the side effects every response is subject to. It
// returns an error only for 401, which callers never see as a business error.
func (c *Client) handleStatus(ctx context.Context, status int, env *normalize.Envelope) error {
	switch {
	case status == http.StatusUnauthorized:
		if s := c.sessionContext(); s != nil && s.Invalidate(ctx) {
			c.logger.Info("session rejected by server, cleared")
			if c.onUnauthorized != nil {
				c.onUnauthorized(ctx)
			}
		}
		return errors.NewAuthenticationError("session expired, please log in again")

	case status == http.StatusForbidden:
		c.notifier.Notify(ctx, Notice{
			Level:   LevelWarning,
			Status:  status,
			Message: noticeMessage(env, "permission denied"),
		})

	case status >= http.StatusInternalServerError:
		c.notifier.Notify(ctx, Notice{
			Level:   LevelError,
			Status:  status,
			Message: noticeMessage(env, "server error, please try again later"),
		})
	}
	return nil
}

func noticeMessage(env *normalize.Envelope, fallback string) string {
	if env != nil && env.Message != "" {
		return env.Message
	}
	return fallback
}
