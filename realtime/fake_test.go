package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

type sentFrame struct {
	dest string
	body string
}

// fakeSub 取消订阅后通道不关闭，模拟仍在途的消息
type fakeSub struct {
	dest string
	ch   chan []byte

	mu           sync.Mutex
	unsubscribed bool
}

func (s *fakeSub) Messages() <-chan []byte { return s.ch }

func (s *fakeSub) Unsubscribe() error {
	s.mu.Lock()
	s.unsubscribed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSub) isUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

func (s *fakeSub) push(msg string) {
	s.ch <- []byte(msg)
}

type fakeBroker struct {
	mu     sync.Mutex
	sent   []sentFrame
	subs   []*fakeSub
	closed bool

	done     chan struct{}
	doneOnce sync.Once

	// gate 非空时 Send 阻塞到 unstall
	gateMu  sync.Mutex
	gate    chan struct{}
	waiting int32
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{done: make(chan struct{})}
}

func (b *fakeBroker) Subscribe(dest string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &fakeSub{dest: dest, ch: make(chan []byte, 16)}
	b.subs = append(b.subs, s)
	return s, nil
}

func (b *fakeBroker) Send(dest string, body []byte) error {
	b.gateMu.Lock()
	gate := b.gate
	b.gateMu.Unlock()
	if gate != nil {
		atomic.AddInt32(&b.waiting, 1)
		<-gate
		atomic.AddInt32(&b.waiting, -1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("closed")
	}
	b.sent = append(b.sent, sentFrame{dest: dest, body: string(body)})
	return nil
}

func (b *fakeBroker) Done() <-chan struct{} { return b.done }

func (b *fakeBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.drop()
	return nil
}

// stall 之后的 Send 阻塞，模拟写不出去的连接
func (b *fakeBroker) stall() {
	b.gateMu.Lock()
	b.gate = make(chan struct{})
	b.gateMu.Unlock()
}

func (b *fakeBroker) unstall() {
	b.gateMu.Lock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
	b.gateMu.Unlock()
}

func (b *fakeBroker) isStalled() bool {
	return atomic.LoadInt32(&b.waiting) > 0
}

// drop 模拟网络断开
func (b *fakeBroker) drop() {
	b.doneOnce.Do(func() { close(b.done) })
}

func (b *fakeBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *fakeBroker) sentTo(dest string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, f := range b.sent {
		if f.dest == dest {
			out = append(out, f.body)
		}
	}
	return out
}

func (b *fakeBroker) countSuffix(suffix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, f := range b.sent {
		if strings.HasSuffix(f.dest, suffix) {
			n++
		}
	}
	return n
}

func (b *fakeBroker) subscriptions() []*fakeSub {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeSub(nil), b.subs...)
}

type fakeDialer struct {
	mu          sync.Mutex
	brokers     []*fakeBroker
	credentials []string
	dials       int
	// failAfter 之后的拨号全部失败；<0 表示不失败
	failAfter int
	// failNext 接下来的 N 次拨号失败
	failNext int
	block    chan struct{}
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{failAfter: -1}
}

func (d *fakeDialer) Dial(ctx context.Context, credential string) (Broker, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.credentials = append(d.credentials, credential)
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAfter >= 0 && n > d.failAfter {
		return nil, errors.New("connection refused")
	}
	if d.failNext > 0 {
		d.failNext--
		return nil, errors.New("connection refused")
	}
	b := newFakeBroker()
	d.brokers = append(d.brokers, b)
	return b, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) broker(i int) *fakeBroker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.brokers) {
		return nil
	}
	return d.brokers[i]
}

func (d *fakeDialer) brokerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.brokers)
}
