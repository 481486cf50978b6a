package debug

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamelink/metrics"
	"gamelink/session"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Healthz(t *testing.T) {
	rec := get(t, NewRouter(Sources{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	c := &metrics.Counters{}
	c.IncSent()
	c.IncSent()
	c.IncReconnect()

	rec := get(t, NewRouter(Sources{Metrics: c}), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	var body map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body["frames_sent"])
	assert.Equal(t, int64(1), body["reconnect_attempts"])

	assert.Equal(t, http.StatusNotFound, get(t, NewRouter(Sources{}), "/metrics").Code)
}

func TestRouter_State(t *testing.T) {
	var current any
	src := Sources{
		Game: func() (any, bool) { return current, current != nil },
	}
	h := NewRouter(src)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/state/game").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/state/mahjong").Code)

	current = map[string]any{"id": 7, "currentTurn": 2}
	rec := get(t, h, "/state/game")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"currentTurn":2}`, rec.Body.String())
}

func TestRouter_StateRequiresLogin(t *testing.T) {
	ctx := context.Background()
	sess, err := session.Open(ctx, session.NewMemoryStorage())
	require.NoError(t, err)

	h := NewRouter(Sources{
		Session: sess,
		Game:    func() (any, bool) { return map[string]int{"id": 1}, true },
	})
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/state/game").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	require.NoError(t, sess.SetUserInfo(ctx, session.Profile{Token: "tok", UserID: 1}))
	assert.Equal(t, http.StatusOK, get(t, h, "/state/game").Code)
}
