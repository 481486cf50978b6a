package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gamelink/logger"
)

const (
	contentTypeJSON   = "application/json"
	disconnectTimeout = 2 * time.Second
)

// StompDialer 通过 WebSocket 建立 STOMP 连接
// URL 形如 ws://host/ws/game/websocket（SockJS 的原生 websocket 入口）
type StompDialer struct {
	URL       string
	Heartbeat time.Duration // STOMP 心跳，收发对称
	WS        *websocket.Dialer
	Log       *zap.SugaredLogger
}

func (d *StompDialer) Dial(ctx context.Context, credential string) (Broker, error) {
	log := logger.OrNop(d.Log)

	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse ws url: %w", err)
	}
	// token 同时放在查询参数里，兼容只透传 URL 的代理
	q := u.Query()
	q.Set("token", credential)
	u.RawQuery = q.Encode()

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+credential)

	wd := d.WS
	if wd == nil {
		wd = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		}
	}
	ws, _, err := wd.DialContext(ctx, u.String(), hdr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	var readWait time.Duration
	if d.Heartbeat > 0 {
		readWait = 3 * d.Heartbeat
	}
	raw := newWSConn(ws, readWait)

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host(u.Hostname()),
		stomp.ConnOpt.HeartBeat(d.Heartbeat, d.Heartbeat),
		stomp.ConnOpt.Header("Authorization", "Bearer "+credential),
		stomp.ConnOpt.Header("token", credential),
	}

	type result struct {
		conn *stomp.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := stomp.Connect(raw, opts...)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("stomp handshake: %w", r.err)
		}
		log.Debugw("stomp connected", "url", d.URL)
		return &stompBroker{conn: r.conn, raw: raw}, nil
	case <-ctx.Done():
		_ = raw.Close()
		return nil, ctx.Err()
	}
}

type stompBroker struct {
	conn *stomp.Conn
	raw  *wsConn
	once sync.Once
}

func (b *stompBroker) Subscribe(destination string) (Subscription, error) {
	sub, err := b.conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, err
	}
	s := &stompSub{
		sub:  sub,
		out:  make(chan []byte, 64),
		stop: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

func (b *stompBroker) Send(destination string, body []byte) error {
	return b.conn.Send(destination, contentTypeJSON, body)
}

func (b *stompBroker) Done() <-chan struct{} {
	return b.raw.done
}

// Close 先尝试正常 DISCONNECT，超时则直接关闭底层连接
func (b *stompBroker) Close() error {
	b.once.Do(func() {
		done := make(chan struct{})
		go func() {
			_ = b.conn.Disconnect()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(disconnectTimeout):
		}
		_ = b.raw.Close()
	})
	return nil
}

type stompSub struct {
	sub  *stomp.Subscription
	out  chan []byte
	stop chan struct{}
	once sync.Once
}

func (s *stompSub) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-s.sub.C:
			if !ok || msg.Err != nil {
				return
			}
			select {
			case s.out <- msg.Body:
			case <-s.stop:
				return
			}
		}
	}
}

func (s *stompSub) Messages() <-chan []byte {
	return s.out
}

// Unsubscribe 立即停止投递；UNSUBSCRIBE 的回执在后台等待
func (s *stompSub) Unsubscribe() error {
	s.once.Do(func() {
		close(s.stop)
		go func() { _ = s.sub.Unsubscribe() }()
	})
	return nil
}
