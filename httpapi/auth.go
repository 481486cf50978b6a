package httpapi

import (
	"context"
	"fmt"

	"gamelink/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 登录成功后写入会话
func (c *Client) Login(ctx context.Context, username, password string) (session.Profile, error) {
	var p session.Profile
	if err := c.post(ctx, "/auth/login", loginRequest{Username: username, Password: password}, &p); err != nil {
		return session.Profile{}, err
	}
	if p.Token == "" {
		return session.Profile{}, fmt.Errorf("login: empty token in response")
	}
	if err := c.sess.SetUserInfo(ctx, p); err != nil {
		return session.Profile{}, err
	}
	return p, nil
}

// Logout 本地退出，只清空会话
func (c *Client) Logout(ctx context.Context) error {
	return c.sess.Clear(ctx)
}

// UserInfo 获取当前用户信息
func (c *Client) UserInfo(ctx context.Context) (session.Profile, error) {
	var p session.Profile
	err := c.get(ctx, "/auth/user-info", &p)
	return p, err
}
