package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func sampleProfile() Profile {
	return Profile{
		Token:    "tok-1",
		UserID:   42,
		Username: "alice",
		RealName: "Alice",
		Phone:    "123",
		Email:    "a@example.com",
		Avatar:   "https://cdn.example.com/a.png",
		Role:     RoleAdmin,
	}
}

func storages(t *testing.T) map[string]Storage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   fs,
		"redis":  NewRedisStorage(rc),
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	for name, st := range storages(t) {
		t.Run(name, func(t *testing.T) {
			s, err := Open(ctx, st)
			require.NoError(t, err)
			require.False(t, s.IsLoggedIn())

			require.NoError(t, s.SetUserInfo(ctx, sampleProfile()))
			require.True(t, s.IsLoggedIn())
			require.True(t, s.IsAdmin())

			reopened, err := Open(ctx, st)
			require.NoError(t, err)
			require.Equal(t, sampleProfile(), reopened.Profile())

			require.NoError(t, reopened.Clear(ctx))
			require.False(t, reopened.IsLoggedIn())
			require.Equal(t, int64(0), reopened.UserID())

			again, err := Open(ctx, st)
			require.NoError(t, err)
			require.Equal(t, Profile{}, again.Profile())
		})
	}
}

func TestRedisStorage_OneKeyPerField(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	s, err := Open(ctx, NewRedisStorage(rc))
	require.NoError(t, err)
	require.NoError(t, s.SetUserInfo(ctx, sampleProfile()))

	v, err := mr.Get("gamelink:session:userId")
	require.NoError(t, err)
	require.Equal(t, "42", v)
	v, err = mr.Get("gamelink:session:username")
	require.NoError(t, err)
	require.Equal(t, "alice", v)
}

func TestOpen_BadNumericFieldsDefaultToZero(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	require.NoError(t, st.Set(ctx, KeyToken, "t"))
	require.NoError(t, st.Set(ctx, KeyUserID, "abc"))
	require.NoError(t, st.Set(ctx, KeyRole, ""))

	s, err := Open(ctx, st)
	require.NoError(t, err)
	require.True(t, s.IsLoggedIn())
	require.Equal(t, int64(0), s.UserID())
	require.False(t, s.IsAdmin())
}

func TestTokenExpiry(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	s, err := Open(ctx, NewMemoryStorage())
	require.NoError(t, err)
	p := sampleProfile()
	p.Token = signed
	require.NoError(t, s.SetUserInfo(ctx, p))

	got, ok := s.TokenExpiry()
	require.True(t, ok)
	require.True(t, exp.Equal(got))
	require.False(t, s.Expired(time.Now()))
	require.True(t, s.Expired(exp.Add(time.Second)))

	p.Token = "not-a-jwt"
	require.NoError(t, s.SetUserInfo(ctx, p))
	_, ok = s.TokenExpiry()
	require.False(t, ok)
	require.False(t, s.Expired(time.Now()))
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryStorage())
	require.NoError(t, err)

	require.NoError(t, Guard(s, LoginRoute))
	require.ErrorIs(t, Guard(s, "/game/1"), ErrLoginRequired)

	require.NoError(t, s.SetUserInfo(ctx, sampleProfile()))
	require.NoError(t, Guard(s, "/game/1"))
}
