package mahjong

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gamelink/logger"
	"gamelink/protocol"
)

var (
	ErrNoActiveGame       = errors.New("no active mahjong game")
	ErrInvalidPlayerCount = errors.New("player count must be between 2 and 4")
	ErrInvalidFlyCount    = errors.New("fly count must be between 0 and 5")
	ErrEmptyAction        = errors.New("action type is required")
)

const (
	MinPlayers  = 2
	MaxPlayers  = 4
	MaxFlyCount = 5
)

// API 麻将用到的 REST 接口
type API interface {
	CreateMahjong(ctx context.Context, req CreateRequest) (*Game, error)
	JoinMahjong(ctx context.Context, gameCode string) (*Game, error)
	LeaveMahjong(ctx context.Context, gameID int64) error
	StartMahjong(ctx context.Context, gameID int64) (*Game, error)
	GetMahjong(ctx context.Context, gameID int64) (*Game, error)
	GetMahjongByCode(ctx context.Context, gameCode string) (*Game, error)
	MahjongAction(ctx context.Context, gameID int64, req ActionRequest) (*Game, error)
	MyMahjongGames(ctx context.Context) ([]Game, error)
	ActiveMahjong(ctx context.Context) (*Game, error)
	NextMahjongRound(ctx context.Context, gameID int64) (*Game, error)
}

type Option func(*Store)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = logger.OrNop(l) }
}

// Identity 当前登录用户
type Identity interface {
	UserID() int64
}

// WithIdentity 用于识别发给自己的快照
func WithIdentity(id Identity) Option {
	return func(s *Store) { s.id = id }
}

// OnNotice 提示回调
func OnNotice(fn func(string)) Option {
	return func(s *Store) { s.onNotice = fn }
}

// Store 麻将客户端状态：只做整体替换，没有增量更新
type Store struct {
	api      API
	id       Identity
	log      *zap.SugaredLogger
	onNotice func(string)

	mu       sync.Mutex
	game     *Game
	loading  bool
	errorMsg string
}

func NewStore(api API, opts ...Option) *Store {
	s := &Store{api: api, log: logger.Named("mahjong")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) me() int64 {
	if s.id == nil {
		return 0
	}
	return s.id.UserID()
}

func (s *Store) notify(format string, args ...any) {
	if s.onNotice != nil {
		s.onNotice(fmt.Sprintf(format, args...))
	}
}

// CurrentGame 当前对局；返回值只读
func (s *Store) CurrentGame() *Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

// CurrentRound 当前局；返回值只读
func (s *Store) CurrentRound() *Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil
	}
	return s.game.CurrentRoundData
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMsg
}

func (s *Store) currentID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return 0, ErrNoActiveGame
	}
	return s.game.ID, nil
}

// replace 执行一次 REST 调用，成功后整体替换对局和当前局
func (s *Store) replace(fn func() (*Game, error)) (*Game, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	g, err := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errorMsg = err.Error()
		return nil, err
	}
	if g != nil {
		s.game = g
	}
	return g, nil
}

func validateCreate(req CreateRequest) error {
	if req.PlayerCount != 0 && (req.PlayerCount < MinPlayers || req.PlayerCount > MaxPlayers) {
		return ErrInvalidPlayerCount
	}
	if req.FlyCount != nil && (*req.FlyCount < 0 || *req.FlyCount > MaxFlyCount) {
		return ErrInvalidFlyCount
	}
	return nil
}

// CreateGame playerCount 为 0 时由服务端取默认值
func (s *Store) CreateGame(ctx context.Context, req CreateRequest) (*Game, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	return s.replace(func() (*Game, error) { return s.api.CreateMahjong(ctx, req) })
}

func (s *Store) JoinGame(ctx context.Context, gameCode string) (*Game, error) {
	return s.replace(func() (*Game, error) { return s.api.JoinMahjong(ctx, gameCode) })
}

// LeaveGame 离开成功后清空本地状态
func (s *Store) LeaveGame(ctx context.Context) error {
	id, err := s.currentID()
	if err != nil {
		return err
	}
	if err := s.api.LeaveMahjong(ctx, id); err != nil {
		s.mu.Lock()
		s.errorMsg = err.Error()
		s.mu.Unlock()
		return err
	}
	s.Clear()
	return nil
}

func (s *Store) StartGame(ctx context.Context) (*Game, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	return s.replace(func() (*Game, error) { return s.api.StartMahjong(ctx, id) })
}

func (s *Store) GetGameState(ctx context.Context, gameID int64) (*Game, error) {
	return s.replace(func() (*Game, error) { return s.api.GetMahjong(ctx, gameID) })
}

// GetGameByCode 只查询，不修改当前状态
func (s *Store) GetGameByCode(ctx context.Context, gameCode string) (*Game, error) {
	return s.api.GetMahjongByCode(ctx, gameCode)
}

func (s *Store) ExecuteAction(ctx context.Context, req ActionRequest) (*Game, error) {
	if req.ActionType == "" {
		return nil, ErrEmptyAction
	}
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	return s.replace(func() (*Game, error) { return s.api.MahjongAction(ctx, id, req) })
}

func (s *Store) MyGames(ctx context.Context) ([]Game, error) {
	return s.api.MyMahjongGames(ctx)
}

// ActiveGame 恢复进行中的对局；没有时保持当前状态并返回 nil
func (s *Store) ActiveGame(ctx context.Context) (*Game, error) {
	return s.replace(func() (*Game, error) { return s.api.ActiveMahjong(ctx) })
}

func (s *Store) NextRound(ctx context.Context) (*Game, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	return s.replace(func() (*Game, error) { return s.api.NextMahjongRound(ctx, id) })
}

// UpdateGameState 外部投递的完整快照
func (s *Store) UpdateGameState(g *Game) {
	if g == nil {
		return
	}
	s.mu.Lock()
	s.game = g
	s.mu.Unlock()
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.game = nil
	s.errorMsg = ""
	s.loading = false
	s.mu.Unlock()
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.errorMsg = ""
	s.mu.Unlock()
}

// HandleEvent 处理频道事件：发给自己的快照整体替换，其余变化走 REST 重新拉取
func (s *Store) HandleEvent(ctx context.Context, ev protocol.MahjongEvent) error {
	raw := protocol.SnapshotFor(ev, s.me())
	if raw != nil {
		var g Game
		if err := json.Unmarshal(raw, &g); err != nil {
			return fmt.Errorf("%w: snapshot: %v", protocol.ErrMalformed, err)
		}
		if cur := s.CurrentGame(); cur != nil && g.ID != 0 && g.ID != cur.ID {
			s.log.Warnw("drop snapshot for another game", "gameID", g.ID, "current", cur.ID)
			return nil
		}
		s.UpdateGameState(&g)
	}

	refresh := false
	switch e := ev.(type) {
	case protocol.MahjongRefresh:
		refresh = true
	case protocol.MahjongPlayerJoined:
		refresh = raw == nil
		s.notify("%s 加入了游戏", e.PlayerName)
	case protocol.MahjongPlayerLeft:
		s.notify("%s 离开了游戏", e.PlayerName)
	case protocol.MahjongPlayerReady:
		s.notify("%s 已准备", e.PlayerName)
	case protocol.MahjongGameStarted:
		refresh = raw == nil
		s.notify("游戏开始")
	case protocol.MahjongRoundStarted:
		s.notify("第 %d 局开始", e.RoundNumber)
	case protocol.MahjongRoundEnded:
		s.notify("第 %d 局结束", e.RoundNumber)
	case protocol.MahjongError:
		s.mu.Lock()
		s.errorMsg = e.Message
		s.mu.Unlock()
		s.notify("%s", e.Message)
	}
	if !refresh {
		return nil
	}
	id, err := s.currentID()
	if err != nil {
		return nil
	}
	return s.refetch(ctx, id)
}

// refetch 拉取 gameID 的快照；返回前对局已被清空或切换时丢弃结果
func (s *Store) refetch(ctx context.Context, gameID int64) error {
	g, err := s.api.GetMahjong(ctx, gameID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil || s.game.ID != gameID {
		return nil
	}
	if err != nil {
		s.errorMsg = err.Error()
		return err
	}
	if g != nil {
		s.game = g
	}
	return nil
}
