package realtime

import (
	"time"

	"go.uber.org/zap"

	"gamelink/logger"
	"gamelink/metrics"
)

// 棋盘游戏默认策略
const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 3 * time.Second
	DefaultGameHeartbeat     = 30 * time.Second

	DefaultMahjongReconnectDelay = 5 * time.Second
)

type Option func(*linkConfig)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *linkConfig) { c.log = l }
}

func WithMetrics(m *metrics.Counters) Option {
	return func(c *linkConfig) { c.metrics = m }
}

// WithReconnect max 为 0 时不限次数
func WithReconnect(max int, delay time.Duration) Option {
	return func(c *linkConfig) {
		c.maxAttempts = max
		c.reconnectDelay = delay
	}
}

// WithHeartbeat 订阅期间的应用层心跳间隔，0 表示不发送
func WithHeartbeat(every time.Duration) Option {
	return func(c *linkConfig) { c.heartbeatEvery = every }
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *linkConfig) { c.dialTimeout = d }
}

func buildConfig(d Dialer, base linkConfig, opts []Option) linkConfig {
	base.dialer = d
	for _, opt := range opts {
		opt(&base)
	}
	base.log = logger.OrNop(base.log)
	return base
}
