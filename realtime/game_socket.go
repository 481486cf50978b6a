package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gamelink/protocol"
)

// Callbacks 棋盘游戏连接回调，均不在内部锁内调用
type Callbacks struct {
	OnConnected    func()
	OnDisconnected func()
	// OnError 重连次数用尽时以 ErrReconnectExhausted 调用一次
	OnError   func(error)
	OnMessage func(protocol.Envelope, protocol.Event)
}

// GameSocket 棋盘游戏的实时连接，显式创建并注入给需要的组件
type GameSocket struct {
	link *link

	mu sync.Mutex
	cb Callbacks
}

func NewGameSocket(d Dialer, opts ...Option) *GameSocket {
	cfg := buildConfig(d, linkConfig{
		maxAttempts:    DefaultReconnectAttempts,
		reconnectDelay: DefaultReconnectDelay,
		heartbeatEvery: DefaultGameHeartbeat,
	}, opts)
	cfg.log = cfg.log.Named("game-socket")
	return &GameSocket{link: newLink(cfg)}
}

// Connect 建立连接；已连接时直接返回，连接中返回 ErrConnecting
func (g *GameSocket) Connect(ctx context.Context, credential string, cb Callbacks) error {
	if g.link.isConnected() {
		return nil
	}
	g.mu.Lock()
	prev := g.cb
	g.cb = cb
	g.mu.Unlock()

	err := g.link.connect(ctx, credential, linkEvents{
		connected:    func() { g.callbacks().fireConnected() },
		disconnected: func() { g.callbacks().fireDisconnected() },
		failed:       func(err error) { g.callbacks().fireError(err) },
		message:      g.handle,
		reconnected:  g.resubscribe,
	})
	switch {
	case errors.Is(err, ErrConnecting):
		// 回调属于正在进行的那次连接
		g.mu.Lock()
		g.cb = prev
		g.mu.Unlock()
	case err != nil && !errors.Is(err, ErrDisconnected):
		cb.fireError(err)
	}
	return err
}

func (g *GameSocket) callbacks() Callbacks {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cb
}

func (c Callbacks) fireConnected() {
	if c.OnConnected != nil {
		c.OnConnected()
	}
}

func (c Callbacks) fireDisconnected() {
	if c.OnDisconnected != nil {
		c.OnDisconnected()
	}
}

func (c Callbacks) fireError(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

// handle 解析失败只记录日志并丢弃
func (g *GameSocket) handle(b []byte) {
	env, ev, err := protocol.DecodeGameMessage(b)
	if err != nil {
		g.link.cfg.metrics.IncMalformed()
		g.link.cfg.log.Warnw("drop malformed message", "error", err, "size", len(b))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.link.cfg.log.Errorw("message handler panic", "type", env.Type, "panic", fmt.Sprint(r))
		}
	}()
	if h := g.callbacks().OnMessage; h != nil {
		h(env, ev)
	}
}

func (g *GameSocket) resubscribe() {
	if _, id := g.link.current(); id != 0 {
		_ = g.SubscribeToGame(id)
	}
}

// SubscribeToGame 替换已有订阅，启动心跳并立即请求同步
func (g *GameSocket) SubscribeToGame(gameID int64) error {
	err := g.link.subscribe(
		protocol.GameTopic(gameID),
		gameID,
		protocol.GameAction(gameID, protocol.ActionHeartbeat),
	)
	if err != nil {
		return err
	}
	g.SyncGameState(gameID)
	return nil
}

// UnsubscribeFromGame 未订阅时调用也安全
func (g *GameSocket) UnsubscribeFromGame() {
	g.link.unsubscribe()
}

func (g *GameSocket) send(gameID int64, action string, body any) {
	b := protocol.EmptyBody
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			g.link.cfg.log.Errorw("encode command", "action", action, "error", err)
			return
		}
	}
	g.link.publish(protocol.GameAction(gameID, action), b)
}

func (g *GameSocket) RollDice(gameID int64) {
	g.send(gameID, protocol.ActionRollDice, nil)
}

func (g *GameSocket) MovePiece(gameID int64, pieceIndex, diceResult int) {
	g.send(gameID, protocol.ActionMovePiece, protocol.MovePieceCommand{PieceIndex: pieceIndex, DiceResult: diceResult})
}

func (g *GameSocket) CompleteTask(gameID, recordID int64, note string) {
	g.send(gameID, protocol.ActionCompleteTask, protocol.CompleteTaskCommand{RecordID: recordID, CompletionNote: note})
}

func (g *GameSocket) AbandonTask(gameID, recordID int64) {
	g.send(gameID, protocol.ActionAbandonTask, protocol.AbandonTaskCommand{RecordID: recordID})
}

func (g *GameSocket) SyncGameState(gameID int64) {
	g.send(gameID, protocol.ActionSync, nil)
}

func (g *GameSocket) SendHeartbeat(gameID int64) {
	g.send(gameID, protocol.ActionHeartbeat, nil)
}

// Disconnect 停止心跳、订阅与重连并重置状态
func (g *GameSocket) Disconnect() {
	g.link.disconnect()
	g.mu.Lock()
	g.cb = Callbacks{}
	g.mu.Unlock()
}

func (g *GameSocket) IsConnected() bool {
	return g.link.isConnected()
}

// CurrentGameID 当前订阅的游戏，未订阅为 0
func (g *GameSocket) CurrentGameID() int64 {
	_, id := g.link.current()
	return id
}
