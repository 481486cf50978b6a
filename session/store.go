package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 持久化 key，每个字段独立存储
const (
	KeyToken    = "token"
	KeyUserID   = "userId"
	KeyUsername = "username"
	KeyRealName = "realName"
	KeyPhone    = "phone"
	KeyEmail    = "email"
	KeyAvatar   = "avatar"
	KeyRole     = "role"
)

var allKeys = []string{KeyToken, KeyUserID, KeyUsername, KeyRealName, KeyPhone, KeyEmail, KeyAvatar, KeyRole}

// RoleAdmin 管理员角色值
const RoleAdmin = 1

// Profile 登录用户信息
type Profile struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	RealName string `json:"realName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Role     int    `json:"role"`
}

// Store 会话存储：内存副本 + 持久化 Storage
type Store struct {
	mu      sync.RWMutex
	profile Profile
	storage Storage
}

// Open 从 storage 恢复会话；数值字段无法解析时按 0 处理
func Open(ctx context.Context, storage Storage) (*Store, error) {
	s := &Store{storage: storage}
	vals := make(map[string]string, len(allKeys))
	for _, k := range allKeys {
		v, ok, err := storage.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("restore session key %s: %w", k, err)
		}
		if ok {
			vals[k] = v
		}
	}
	uid, _ := strconv.ParseInt(vals[KeyUserID], 10, 64)
	role, _ := strconv.Atoi(vals[KeyRole])
	s.profile = Profile{
		Token:    vals[KeyToken],
		UserID:   uid,
		Username: vals[KeyUsername],
		RealName: vals[KeyRealName],
		Phone:    vals[KeyPhone],
		Email:    vals[KeyEmail],
		Avatar:   vals[KeyAvatar],
		Role:     role,
	}
	return s, nil
}

// SetUserInfo 登录成功后写入全部字段
func (s *Store) SetUserInfo(ctx context.Context, p Profile) error {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()

	fields := map[string]string{
		KeyToken:    p.Token,
		KeyUserID:   strconv.FormatInt(p.UserID, 10),
		KeyUsername: p.Username,
		KeyRealName: p.RealName,
		KeyPhone:    p.Phone,
		KeyEmail:    p.Email,
		KeyAvatar:   p.Avatar,
		KeyRole:     strconv.Itoa(p.Role),
	}
	for _, k := range allKeys {
		if err := s.storage.Set(ctx, k, fields[k]); err != nil {
			return fmt.Errorf("persist session key %s: %w", k, err)
		}
	}
	return nil
}

// Clear 退出登录或 401 时清空
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.profile = Profile{}
	s.mu.Unlock()

	var errs []error
	for _, k := range allKeys {
		if err := s.storage.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete session key %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Token
}

func (s *Store) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.UserID
}

func (s *Store) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Role == RoleAdmin
}

// TokenExpiry 读取 JWT 的 exp，不做签名校验（鉴权在服务端）
func (s *Store) TokenExpiry() (time.Time, bool) {
	tok := s.Token()
	if tok == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired 令牌带 exp 且已过期；无法解析的令牌交给服务端判断
func (s *Store) Expired(now time.Time) bool {
	exp, ok := s.TokenExpiry()
	return ok && !now.Before(exp)
}
