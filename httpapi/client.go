package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gamelink/logger"
	"gamelink/session"
)

const (
	CodeOK           = 200
	CodeUnauthorized = 401

	// ForbiddenMessage 403 时返回的固定提示
	ForbiddenMessage = "permission denied, check the server configuration"

	defaultTimeout = 30 * time.Second
)

var (
	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New(ForbiddenMessage)
)

// APIError 业务错误（code 非 200）
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// envelope 所有接口统一的响应结构
type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Session 客户端需要的会话操作
type Session interface {
	Token() string
	SetUserInfo(ctx context.Context, p session.Profile) error
	Clear(ctx context.Context) error
}

// Client REST 客户端：注入 Bearer token、解包 envelope
type Client struct {
	baseURL        string
	http           *http.Client
	sess           Session
	log            *zap.SugaredLogger
	onUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithUnauthorizedHandler 401 清空会话后回调（跳转登录）
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, sess Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		sess:    sess,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log)
	return c
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Correlation-Id", uuid.NewString())
	if tok := c.sess.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		c.log.Warnw("forbidden", "method", method, "path", path)
		return ErrForbidden
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Code == 0 {
		if resp.StatusCode == http.StatusUnauthorized {
			return c.unauthorized(ctx, "")
		}
		return fmt.Errorf("%s %s: unexpected response (status %d)", method, path, resp.StatusCode)
	}

	switch env.Code {
	case CodeOK:
		if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
		return nil
	case CodeUnauthorized:
		return c.unauthorized(ctx, env.Message)
	default:
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		c.log.Debugw("api error", "method", method, "path", path, "code", env.Code, "message", msg)
		return &APIError{Code: env.Code, Message: msg}
	}
}

// unauthorized 清空会话并通知上层跳转登录
func (c *Client) unauthorized(ctx context.Context, msg string) error {
	if err := c.sess.Clear(ctx); err != nil {
		c.log.Errorw("clear session", "error", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	if msg != "" {
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}
	return ErrUnauthorized
}
