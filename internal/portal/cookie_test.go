package portal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctf-portal/internal/config"
)

func newCodec(secret string) *CookieCodec {
	return NewCookieCodec(config.ServerConfig{
		JWTSecret:  secret,
		CookieName: "portal_session",
		SessionTTL: time.Hour,
	})
}

func requestWith(ck *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if ck != nil {
		r.AddCookie(ck)
	}
	return r
}

func TestCookieRoundTrip(t *testing.T) {
	codec := newCodec("k1")
	sid := NewSid()

	ck, err := codec.Issue(sid)
	require.NoError(t, err)
	assert.Equal(t, "portal_session", ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.NotContains(t, ck.Value, sid)

	got, err := codec.Parse(requestWith(ck))
	require.NoError(t, err)
	assert.Equal(t, sid, got)
}

func TestCookieRejections(t *testing.T) {
	codec := newCodec("k1")
	ck, err := codec.Issue("sid-1")
	require.NoError(t, err)

	_, err = codec.Parse(requestWith(nil))
	assert.ErrorIs(t, err, ErrNoSid)

	tampered := *ck
	tampered.Value += "x"
	_, err = codec.Parse(requestWith(&tampered))
	assert.ErrorIs(t, err, ErrNoSid)

	_, err = newCodec("other").Parse(requestWith(ck))
	assert.ErrorIs(t, err, ErrNoSid)
}

func TestCookieExpires(t *testing.T) {
	codec := newCodec("k1")
	start := time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return start }
	ck, err := codec.Issue("sid-1")
	require.NoError(t, err)

	codec.now = func() time.Time { return start.Add(30 * time.Minute) }
	_, err = codec.Parse(requestWith(ck))
	require.NoError(t, err)

	codec.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = codec.Parse(requestWith(ck))
	assert.ErrorIs(t, err, ErrNoSid)
}

func TestCookieClear(t *testing.T) {
	ck := newCodec("k1").Clear()
	assert.Equal(t, "portal_session", ck.Name)
	assert.Empty(t, ck.Value)
	assert.Equal(t, -1, ck.MaxAge)
}
