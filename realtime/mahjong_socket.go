package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gamelink/protocol"
)

type MahjongCallbacks struct {
	OnConnected    func()
	OnDisconnected func()
	OnError        func(error)
	OnEvent        func(protocol.MahjongMessage, protocol.MahjongEvent)
}

// MahjongSocket 麻将对局连接；断线后无限次按固定间隔重连
type MahjongSocket struct {
	link *link

	mu     sync.Mutex
	cb     MahjongCallbacks
	gameID int64
}

func NewMahjongSocket(d Dialer, opts ...Option) *MahjongSocket {
	cfg := buildConfig(d, linkConfig{
		maxAttempts:    0,
		reconnectDelay: DefaultMahjongReconnectDelay,
	}, opts)
	cfg.log = cfg.log.Named("mahjong-socket")
	return &MahjongSocket{link: newLink(cfg)}
}

// Connect 已连接到同一局时不做任何事；否则断开旧连接后重新连接、订阅并发送 join
func (m *MahjongSocket) Connect(ctx context.Context, gameID int64, credential string, cb MahjongCallbacks) error {
	m.mu.Lock()
	same := m.gameID == gameID
	m.mu.Unlock()
	if same && m.link.isConnected() {
		return nil
	}
	m.Disconnect()

	m.mu.Lock()
	m.cb = cb
	m.gameID = gameID
	m.mu.Unlock()

	err := m.link.connect(ctx, credential, linkEvents{
		connected: func() {
			if c := m.callbacks(); c.OnConnected != nil {
				c.OnConnected()
			}
		},
		disconnected: func() {
			if c := m.callbacks(); c.OnDisconnected != nil {
				c.OnDisconnected()
			}
		},
		failed: func(err error) {
			if c := m.callbacks(); c.OnError != nil {
				c.OnError(err)
			}
		},
		message:     m.handle,
		reconnected: func() { _ = m.attach(gameID) },
	})
	if err != nil {
		return err
	}
	return m.attach(gameID)
}

func (m *MahjongSocket) callbacks() MahjongCallbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb
}

func (m *MahjongSocket) attach(gameID int64) error {
	if err := m.link.subscribe(protocol.MahjongTopic(gameID), gameID, m.heartbeatDest(gameID)); err != nil {
		return err
	}
	m.publish(gameID, protocol.MahjongJoin, nil)
	return nil
}

func (m *MahjongSocket) heartbeatDest(gameID int64) string {
	if m.link.cfg.heartbeatEvery <= 0 {
		return ""
	}
	return protocol.MahjongActionDest(gameID, protocol.MahjongHeartbeat)
}

func (m *MahjongSocket) handle(b []byte) {
	msg, ev, err := protocol.DecodeMahjongMessage(b)
	if err != nil {
		m.link.cfg.metrics.IncMalformed()
		m.link.cfg.log.Warnw("drop malformed message", "error", err, "size", len(b))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.link.cfg.log.Errorw("event handler panic", "type", msg.Type, "panic", fmt.Sprint(r))
		}
	}()
	if h := m.callbacks().OnEvent; h != nil {
		h(msg, ev)
	}
}

func (m *MahjongSocket) publish(gameID int64, action string, body any) {
	b := protocol.EmptyBody
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			m.link.cfg.log.Errorw("encode command", "action", action, "error", err)
			return
		}
	}
	m.link.publish(protocol.MahjongActionDest(gameID, action), b)
}

func (m *MahjongSocket) Ready(gameID int64) {
	m.publish(gameID, protocol.MahjongReady, nil)
}

func (m *MahjongSocket) Discard(gameID int64, tile string) {
	m.publish(gameID, protocol.MahjongDiscard, protocol.TileCommand{Tile: tile})
}

func (m *MahjongSocket) Pong(gameID int64, tile string) {
	m.publish(gameID, protocol.MahjongPong, protocol.TileCommand{Tile: tile})
}

// Kong kongType 为空时服务端按明杠处理
func (m *MahjongSocket) Kong(gameID int64, tile, kongType string) {
	m.publish(gameID, protocol.MahjongKong, protocol.KongCommand{Tile: tile, KongType: kongType})
}

func (m *MahjongSocket) Hu(gameID int64) {
	m.publish(gameID, protocol.MahjongHu, nil)
}

func (m *MahjongSocket) Pass(gameID int64) {
	m.publish(gameID, protocol.MahjongPass, nil)
}

func (m *MahjongSocket) Sync(gameID int64) {
	m.publish(gameID, protocol.MahjongSync, nil)
}

func (m *MahjongSocket) StartGame(gameID int64) {
	m.publish(gameID, protocol.MahjongStart, nil)
}

func (m *MahjongSocket) NextRound(gameID int64) {
	m.publish(gameID, protocol.MahjongNextRound, nil)
}

func (m *MahjongSocket) Heartbeat(gameID int64) {
	m.publish(gameID, protocol.MahjongHeartbeat, nil)
}

func (m *MahjongSocket) Action(gameID int64, cmd protocol.ActionCommand) {
	m.publish(gameID, protocol.MahjongAction, cmd)
}

func (m *MahjongSocket) Disconnect() {
	m.link.disconnect()
	m.mu.Lock()
	m.cb = MahjongCallbacks{}
	m.gameID = 0
	m.mu.Unlock()
}

func (m *MahjongSocket) IsConnected() bool {
	return m.link.isConnected()
}

func (m *MahjongSocket) CurrentGameID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameID
}
