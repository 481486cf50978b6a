package metrics

import (
	"sync/atomic"
)

// Counters 记录实时连接运行期的关键指标（用于监控与调试）
type Counters struct {
	FramesSent        int64 // 发布到 broker 的消息数
	FramesReceived    int64 // 从订阅收到的消息数
	MalformedDropped  int64 // 解析失败被丢弃的消息数
	PublishSkipped    int64 // 未连接时被忽略的发布
	HeartbeatsSent    int64 // 应用层心跳次数
	ReconnectAttempts int64 // 自动重连尝试次数
	Connects          int64 // 成功握手次数
}

func (m *Counters) IncSent()           { atomic.AddInt64(&m.FramesSent, 1) }
func (m *Counters) IncReceived()       { atomic.AddInt64(&m.FramesReceived, 1) }
func (m *Counters) IncMalformed()      { atomic.AddInt64(&m.MalformedDropped, 1) }
func (m *Counters) IncPublishSkipped() { atomic.AddInt64(&m.PublishSkipped, 1) }
func (m *Counters) IncHeartbeat()      { atomic.AddInt64(&m.HeartbeatsSent, 1) }
func (m *Counters) IncReconnect()      { atomic.AddInt64(&m.ReconnectAttempts, 1) }
func (m *Counters) IncConnect()        { atomic.AddInt64(&m.Connects, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Counters) Snapshot() map[string]any {
	return map[string]any{
		"frames_sent":        atomic.LoadInt64(&m.FramesSent),
		"frames_received":    atomic.LoadInt64(&m.FramesReceived),
		"malformed_dropped":  atomic.LoadInt64(&m.MalformedDropped),
		"publish_skipped":    atomic.LoadInt64(&m.PublishSkipped),
		"heartbeats_sent":    atomic.LoadInt64(&m.HeartbeatsSent),
		"reconnect_attempts": atomic.LoadInt64(&m.ReconnectAttempts),
		"connects":           atomic.LoadInt64(&m.Connects),
	}
}
