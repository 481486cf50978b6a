package realtime

import (
	"context"
	"errors"
)

var (
	ErrConnecting         = errors.New("connection attempt already in progress")
	ErrNotConnected       = errors.New("not connected")
	ErrDisconnected       = errors.New("disconnected while connecting")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted, reconnect manually")
)

// Broker 一条已完成握手的消息代理连接
type Broker interface {
	Subscribe(destination string) (Subscription, error)
	Send(destination string, body []byte) error
	// Done 在底层连接断开后关闭
	Done() <-chan struct{}
	Close() error
}

// Subscription 单个订阅；Messages 在取消订阅或连接断开后关闭
type Subscription interface {
	Messages() <-chan []byte
	Unsubscribe() error
}

// Dialer 建立连接并完成 broker 握手；credential 为登录 token
type Dialer interface {
	Dial(ctx context.Context, credential string) (Broker, error)
}

// DialerFunc 便于用函数实现 Dialer
type DialerFunc func(ctx context.Context, credential string) (Broker, error)

func (f DialerFunc) Dial(ctx context.Context, credential string) (Broker, error) {
	return f(ctx, credential)
}
