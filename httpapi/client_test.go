package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gamelink/game"
	"gamelink/mahjong"
	"gamelink/session"
)

func newSession(t *testing.T, token string) *session.Store {
	t.Helper()
	ctx := context.Background()
	s, err := session.Open(ctx, session.NewMemoryStorage())
	require.NoError(t, err)
	if token != "" {
		require.NoError(t, s.SetUserInfo(ctx, session.Profile{Token: token, UserID: 1, Username: "alice"}))
	}
	return s
}

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestDo_UnwrapsData(t *testing.T) {
	var gotAuth, gotCorrelation string
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get("Correlation-Id")
		require.Equal(t, "/api/game/1", r.URL.Path)
		writeJSON(w, map[string]any{"code": 200, "data": map[string]any{"id": 1}})
	})

	c := New(url+"/api", newSession(t, "tok"))
	g, err := c.GetGameDetail(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), g.ID)
	require.Equal(t, "Bearer tok", gotAuth)
	_, err = uuid.Parse(gotCorrelation)
	require.NoError(t, err)
}

func TestDo_NoTokenNoAuthorizationHeader(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"code": 200})
	})

	c := New(url, newSession(t, ""))
	require.NoError(t, c.CancelGame(context.Background(), 3))
}

func TestDo_UnauthorizedClearsSession(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 401, "data": map[string]any{"id": 1}, "message": "token expired"})
	})

	sess := newSession(t, "tok")
	redirected := 0
	c := New(url, sess, WithUnauthorizedHandler(func() { redirected++ }))

	g, err := c.GetGameDetail(context.Background(), 1)
	require.Nil(t, g)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, sess.IsLoggedIn())
	require.Equal(t, 1, redirected)
}

func TestDo_HTTPStatusUnauthorizedWithoutEnvelope(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	sess := newSession(t, "tok")
	c := New(url, sess)
	_, err := c.GetGameDetail(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, sess.IsLoggedIn())
}

func TestDo_APIErrorCarriesMessage(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 500, "message": "x"})
	})

	sess := newSession(t, "tok")
	c := New(url, sess)
	_, err := c.GetGameDetail(context.Background(), 1)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 500, apiErr.Code)
	require.Equal(t, "x", apiErr.Message)
	require.True(t, sess.IsLoggedIn())
}

func TestDo_APIErrorDefaultMessage(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 409})
	})

	_, err := New(url, newSession(t, "tok")).JoinGame(context.Background(), "ABCD")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "request failed", apiErr.Message)
}

func TestDo_Forbidden(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "Invalid CORS request")
	})

	sess := newSession(t, "tok")
	_, err := New(url, sess).GetGameDetail(context.Background(), 1)
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, ForbiddenMessage, err.Error())
	require.True(t, sess.IsLoggedIn())
}

func TestLogin_StoresProfile(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "bob", body.Username)
		writeJSON(w, map[string]any{"code": 200, "data": map[string]any{
			"token": "jwt", "userId": 9, "username": "bob", "realName": "Bob", "role": 1,
		}})
	})

	sess := newSession(t, "")
	p, err := New(url, sess).Login(context.Background(), "bob", "pw")
	require.NoError(t, err)
	require.Equal(t, int64(9), p.UserID)
	require.Equal(t, "jwt", sess.Token())
	require.True(t, sess.IsAdmin())
}

func TestGetUserGames_Query(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/list", r.URL.Path)
		require.Equal(t, "3", r.URL.Query().Get("status"))
		require.Equal(t, "2", r.URL.Query().Get("pageNum"))
		writeJSON(w, map[string]any{"code": 200, "data": map[string]any{
			"records": []map[string]any{{"id": 4, "gameStatus": 3}}, "total": 1,
		}})
	})

	p, err := New(url, newSession(t, "tok")).GetUserGames(context.Background(), game.StatusFinished, 2, 0)
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	require.Equal(t, game.StatusFinished, p.Records[0].GameStatus)
}

func TestMahjong_ActiveNullAndAction(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mahjong/active":
			writeJSON(w, map[string]any{"code": 200, "data": nil})
		case "/mahjong/5/action":
			var req mahjong.ActionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, mahjong.ActionDiscard, req.ActionType)
			writeJSON(w, map[string]any{"code": 200, "data": map[string]any{
				"id": 5, "currentRoundData": map[string]any{"roundNumber": 1, "availableActions": []string{"PASS"}},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c := New(url, newSession(t, "tok"))
	g, err := c.ActiveMahjong(context.Background())
	require.NoError(t, err)
	require.Nil(t, g)

	g, err = c.MahjongAction(context.Background(), 5, mahjong.ActionRequest{ActionType: mahjong.ActionDiscard, Tile: "1W"})
	require.NoError(t, err)
	require.True(t, g.CurrentRoundData.CanAct(mahjong.ActionPass))
}

func TestCheckTurnAndHeartbeat(t *testing.T) {
	var calls []string
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/game/4/turn":
			writeJSON(w, map[string]any{"code": 200, "data": true})
		case "/game/5/turn":
			writeJSON(w, map[string]any{"code": 200, "data": false})
		default:
			writeJSON(w, map[string]any{"code": 200})
		}
	})
	c := New(url, newSession(t, "tok"))
	ctx := context.Background()

	mine, err := c.CheckTurn(ctx, 4)
	require.NoError(t, err)
	require.True(t, mine)

	mine, err = c.CheckTurn(ctx, 5)
	require.NoError(t, err)
	require.False(t, mine)

	require.NoError(t, c.Heartbeat(ctx, 4))
	require.Equal(t, []string{"GET /game/4/turn", "GET /game/5/turn", "POST /game/4/heartbeat"}, calls)
}

func TestUserInfo(t *testing.T) {
	var path, auth string
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		path, auth = r.URL.Path, r.Header.Get("Authorization")
		writeJSON(w, map[string]any{"code": 200, "data": map[string]any{
			"userId": 1, "username": "alice", "realName": "Alice", "role": 1,
		}})
	})
	c := New(url, newSession(t, "tok"))

	p, err := c.UserInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/auth/user-info", path)
	require.Equal(t, "Bearer tok", auth)
	require.Equal(t, int64(1), p.UserID)
	require.Equal(t, "Alice", p.RealName)
	require.Equal(t, session.RoleAdmin, p.Role)
}
