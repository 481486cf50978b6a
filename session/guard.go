package session

import "errors"

var ErrLoginRequired = errors.New("login required")

// LoginRoute 未登录时的跳转目标
const LoginRoute = "/login"

var publicRoutes = map[string]bool{
	LoginRoute: true,
}

// Guard 路由守卫：非公开路由要求已登录
func Guard(s *Store, route string) error {
	if publicRoutes[route] {
		return nil
	}
	if !s.IsLoggedIn() {
		return ErrLoginRequired
	}
	return nil
}
