package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gamelink/metrics"
)

const defaultDialTimeout = 15 * time.Second

// linkConfig 重连与心跳策略
type linkConfig struct {
	dialer         Dialer
	maxAttempts    int // 0 表示不限次数
	reconnectDelay time.Duration
	heartbeatEvery time.Duration
	dialTimeout    time.Duration
	log            *zap.SugaredLogger
	metrics        *metrics.Counters
}

// linkEvents 连接事件回调，均在锁外调用
type linkEvents struct {
	connected    func()
	disconnected func()
	failed       func(error)
	message      func([]byte)
	// reconnected 自动重连成功后调用，由上层恢复订阅
	reconnected func()
}

// link 单条 broker 连接：幂等连接、唯一订阅、心跳、有限次重连
type link struct {
	cfg linkConfig

	mu         sync.Mutex
	broker     Broker
	connecting bool
	credential string
	events     linkEvents
	epoch      uint64 // connect/disconnect 时递增，旧的后台协程据此退出

	attempts      int
	terminalFired bool
	timer         *time.Timer

	topic   string
	topicID int64
	sub     Subscription
	subGen  uint64
	hbDest  string
	hbStop  chan struct{}
}

func newLink(cfg linkConfig) *link {
	if cfg.dialTimeout <= 0 {
		cfg.dialTimeout = defaultDialTimeout
	}
	if cfg.metrics == nil {
		cfg.metrics = &metrics.Counters{}
	}
	return &link{cfg: cfg}
}

// connect 已连接直接返回；正在连接返回 ErrConnecting
func (l *link) connect(ctx context.Context, credential string, ev linkEvents) error {
	l.mu.Lock()
	if l.broker != nil {
		l.mu.Unlock()
		return nil
	}
	if l.connecting {
		l.mu.Unlock()
		return ErrConnecting
	}
	l.connecting = true
	l.credential = credential
	l.events = ev
	l.attempts = 0
	l.terminalFired = false
	l.epoch++
	epoch := l.epoch
	l.mu.Unlock()

	b, err := l.cfg.dialer.Dial(ctx, credential)

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		if b != nil {
			_ = b.Close()
		}
		return ErrDisconnected
	}
	l.connecting = false
	if err != nil {
		l.mu.Unlock()
		l.cfg.log.Errorw("connect failed", "error", err)
		return err
	}
	l.broker = b
	go l.watch(b, epoch)
	connected := l.events.connected
	l.mu.Unlock()

	l.cfg.metrics.IncConnect()
	l.cfg.log.Infow("connected")
	if connected != nil {
		connected()
	}
	return nil
}

func (l *link) isConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.broker != nil
}

// watch 等待连接断开，非主动断开时进入重连
func (l *link) watch(b Broker, epoch uint64) {
	<-b.Done()

	l.mu.Lock()
	if l.epoch != epoch || l.broker != b {
		l.mu.Unlock()
		return
	}
	l.broker = nil
	l.sub = nil
	l.subGen++
	l.stopHeartbeatLocked()
	disconnected := l.events.disconnected
	l.mu.Unlock()

	l.cfg.log.Warnw("connection lost")
	if disconnected != nil {
		disconnected()
	}
	l.scheduleReconnect(epoch)
}

// scheduleReconnect 记一次断开/失败；达到上限后只上报一次终止错误
func (l *link) scheduleReconnect(epoch uint64) {
	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return
	}
	l.attempts++
	if l.cfg.maxAttempts > 0 && l.attempts >= l.cfg.maxAttempts {
		fire := !l.terminalFired
		l.terminalFired = true
		failed := l.events.failed
		attempts := l.attempts
		l.mu.Unlock()
		if fire {
			l.cfg.log.Errorw("reconnect attempts exhausted", "attempts", attempts)
			if failed != nil {
				failed(ErrReconnectExhausted)
			}
		}
		return
	}
	attempt := l.attempts
	l.timer = time.AfterFunc(l.cfg.reconnectDelay, func() { l.reconnect(epoch) })
	l.mu.Unlock()

	l.cfg.metrics.IncReconnect()
	l.cfg.log.Infow("reconnect scheduled", "attempt", attempt, "max", l.cfg.maxAttempts, "delay", l.cfg.reconnectDelay)
}

func (l *link) reconnect(epoch uint64) {
	l.mu.Lock()
	if l.epoch != epoch || l.broker != nil || l.connecting {
		l.mu.Unlock()
		return
	}
	l.connecting = true
	credential := l.credential
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.dialTimeout)
	b, err := l.cfg.dialer.Dial(ctx, credential)
	cancel()

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		if b != nil {
			_ = b.Close()
		}
		return
	}
	l.connecting = false
	if err != nil {
		l.mu.Unlock()
		l.cfg.log.Warnw("reconnect failed", "error", err)
		l.scheduleReconnect(epoch)
		return
	}
	l.broker = b
	l.attempts = 0
	l.terminalFired = false
	go l.watch(b, epoch)
	connected := l.events.connected
	reconnected := l.events.reconnected
	l.mu.Unlock()

	l.cfg.metrics.IncConnect()
	l.cfg.log.Infow("reconnected")
	if connected != nil {
		connected()
	}
	if reconnected != nil {
		reconnected()
	}
}

// subscribe 替换现有订阅，保证任意时刻只有一个订阅；并启动心跳
func (l *link) subscribe(topic string, topicID int64, heartbeatDest string) error {
	l.mu.Lock()
	if l.broker == nil {
		l.mu.Unlock()
		l.cfg.log.Errorw("subscribe while not connected", "topic", topic)
		return ErrNotConnected
	}
	old := l.sub
	l.sub = nil
	l.subGen++
	l.stopHeartbeatLocked()

	s, err := l.broker.Subscribe(topic)
	if err != nil {
		l.topic, l.topicID = "", 0
		l.mu.Unlock()
		if old != nil {
			_ = old.Unsubscribe()
		}
		l.cfg.log.Errorw("subscribe failed", "topic", topic, "error", err)
		return err
	}
	l.sub = s
	l.topic, l.topicID = topic, topicID
	gen := l.subGen
	l.hbDest = heartbeatDest
	if heartbeatDest != "" && l.cfg.heartbeatEvery > 0 {
		l.startHeartbeatLocked()
	}
	l.mu.Unlock()

	if old != nil {
		_ = old.Unsubscribe()
	}
	go l.deliver(s, gen)
	l.cfg.log.Infow("subscribed", "topic", topic)
	return nil
}

// deliver 只投递当前订阅的消息，被替换的订阅残留消息直接丢弃
func (l *link) deliver(s Subscription, gen uint64) {
	for b := range s.Messages() {
		l.mu.Lock()
		current := l.subGen == gen && l.sub == s
		handler := l.events.message
		l.mu.Unlock()
		if !current {
			continue
		}
		l.cfg.metrics.IncReceived()
		if handler != nil {
			handler(b)
		}
	}
}

// unsubscribe 未订阅时调用也安全
func (l *link) unsubscribe() {
	l.mu.Lock()
	s := l.sub
	l.sub = nil
	l.subGen++
	l.topic, l.topicID = "", 0
	l.stopHeartbeatLocked()
	l.mu.Unlock()

	if s != nil {
		_ = s.Unsubscribe()
		l.cfg.log.Infow("unsubscribed")
	}
}

// current 当前订阅的 topic 与业务 ID
func (l *link) current() (string, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.topic, l.topicID
}

// publish 未连接时记录日志后忽略；发送在锁外进行
func (l *link) publish(dest string, body []byte) bool {
	l.mu.Lock()
	b := l.broker
	l.mu.Unlock()
	if b == nil {
		l.cfg.metrics.IncPublishSkipped()
		l.cfg.log.Warnw("publish skipped, not connected", "destination", dest)
		return false
	}
	if err := b.Send(dest, body); err != nil {
		l.cfg.log.Errorw("publish failed", "destination", dest, "error", err)
		return false
	}
	l.cfg.metrics.IncSent()
	return true
}

func (l *link) startHeartbeatLocked() {
	stop := make(chan struct{})
	l.hbStop = stop
	every := l.cfg.heartbeatEvery
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if !l.heartbeat(stop) {
					return
				}
			}
		}
	}()
}

// heartbeat 在锁内检查状态，锁外发送；停止之后不会再发起新的心跳
func (l *link) heartbeat(stop chan struct{}) bool {
	l.mu.Lock()
	if l.hbStop != stop || l.broker == nil {
		l.mu.Unlock()
		return false
	}
	b, dest := l.broker, l.hbDest
	l.mu.Unlock()

	if err := b.Send(dest, []byte("{}")); err != nil {
		l.cfg.log.Warnw("heartbeat failed", "error", err)
		return true
	}
	l.cfg.metrics.IncHeartbeat()
	l.cfg.metrics.IncSent()
	return true
}

func (l *link) stopHeartbeatLocked() {
	if l.hbStop != nil {
		close(l.hbStop)
		l.hbStop = nil
	}
}

// disconnect 停止心跳、订阅与重连，重置全部状态；任何时候调用都安全
func (l *link) disconnect() {
	l.mu.Lock()
	l.epoch++
	b := l.broker
	s := l.sub
	l.broker = nil
	l.sub = nil
	l.subGen++
	l.topic, l.topicID = "", 0
	l.hbDest = ""
	l.stopHeartbeatLocked()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.connecting = false
	l.credential = ""
	l.attempts = 0
	l.terminalFired = false
	l.events = linkEvents{}
	l.mu.Unlock()

	if s != nil {
		_ = s.Unsubscribe()
	}
	if b != nil {
		_ = b.Close()
		l.cfg.log.Infow("disconnected")
	}
}
