package game

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"gamelink/logger"
	"gamelink/protocol"
	"gamelink/realtime"
)

var (
	ErrNoActiveGame = errors.New("no active game")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNoDiceResult = errors.New("no dice result")
	ErrInvalidPiece = errors.New("invalid piece index")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// historyPageSize 历史记录一次拉取的条数
const historyPageSize = 50

// API 棋盘游戏用到的 REST 接口
type API interface {
	CreateGame(ctx context.Context, req CreateRequest) (*Info, error)
	UpdateTaskPositions(ctx context.Context, gameID int64, positions []int) (*Info, error)
	JoinGame(ctx context.Context, gameCode string) (*Info, error)
	GetGameDetail(ctx context.Context, gameID int64) (*Info, error)
	GetUserGames(ctx context.Context, status Status, pageNum, pageSize int) (*Page, error)
	CancelGame(ctx context.Context, gameID int64) error
	ForceEndGame(ctx context.Context, gameID int64) error
}

// Socket 实时连接，由 realtime.GameSocket 实现
type Socket interface {
	Connect(ctx context.Context, credential string, cb realtime.Callbacks) error
	SubscribeToGame(gameID int64) error
	UnsubscribeFromGame()
	RollDice(gameID int64)
	MovePiece(gameID int64, pieceIndex, diceResult int)
	CompleteTask(gameID, recordID int64, note string)
	AbandonTask(gameID, recordID int64)
	SyncGameState(gameID int64)
	Disconnect()
	IsConnected() bool
}

// Identity 当前登录用户
type Identity interface {
	Token() string
	UserID() int64
}

type Option func(*Store)

// OnNotice 提示回调，在调用方 goroutine 或消息投递 goroutine 中执行
func OnNotice(fn func(Notice)) Option {
	return func(s *Store) { s.onNotice = fn }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = logger.OrNop(l) }
}

// Store 棋盘游戏的客户端状态容器
type Store struct {
	api    API
	socket Socket
	id     Identity

	onNotice func(Notice)
	log      *zap.SugaredLogger

	mu sync.Mutex
	st State
}

func NewStore(api API, socket Socket, id Identity, opts ...Option) *Store {
	s := &Store{
		api:    api,
		socket: socket,
		id:     id,
		log:    logger.Named("game"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot 当前状态的副本
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

func (s *Store) me() int64 {
	if s.id == nil {
		return 0
	}
	return s.id.UserID()
}

func (s *Store) view(fn func(State, int64) bool) bool {
	me := s.me()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st, me)
}

func (s *Store) IsMyTurn() bool {
	return s.view(State.IsMyTurn)
}

func (s *Store) MyPlayerNumber() int {
	me := s.me()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.MyPlayerNumber(me)
}

func (s *Store) MyPieces() []int {
	me := s.me()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.MyPieces(me)
}

func (s *Store) OpponentPieces() []int {
	me := s.me()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.OpponentPieces(me)
}

func (s *Store) IsWaiting() bool {
	return s.view(func(st State, _ int64) bool { return st.IsWaiting() })
}

func (s *Store) IsPlaying() bool {
	return s.view(func(st State, _ int64) bool { return st.IsPlaying() })
}

func (s *Store) IsFinished() bool {
	return s.view(func(st State, _ int64) bool { return st.IsFinished() })
}

func (s *Store) IsWinner() bool       { return s.view(State.IsWinner) }
func (s *Store) IsRoomOwner() bool    { return s.view(State.IsRoomOwner) }
func (s *Store) IsTaskExecutor() bool { return s.view(State.IsTaskExecutor) }

func (s *Store) notify(notices ...Notice) {
	if s.onNotice == nil {
		return
	}
	for _, n := range notices {
		s.onNotice(n)
	}
}

// HandleMessage 应用一条实时消息，按需重新拉取快照
func (s *Store) HandleMessage(env protocol.Envelope, ev protocol.Event) {
	me := s.me()
	s.mu.Lock()
	next, fx := Reduce(s.st, me, env, ev)
	s.st = next
	s.mu.Unlock()

	s.notify(fx.Notices...)
	if fx.RefetchGameID != 0 {
		if err := s.refetch(context.Background(), fx.RefetchGameID); err != nil {
			s.log.Warnw("refetch game failed", "gameID", fx.RefetchGameID, "error", err)
		}
	}
}

// refetch 重新拉取当前对局；返回前对局已被清空或切换时丢弃结果
func (s *Store) refetch(ctx context.Context, gameID int64) error {
	g, err := s.api.GetGameDetail(ctx, gameID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Game == nil || s.st.Game.ID != gameID {
		s.log.Debugw("drop stale snapshot", "gameID", gameID)
		return nil
	}
	if err != nil {
		s.st.ErrorMessage = err.Error()
		return err
	}
	if g == nil {
		return nil
	}
	s.applyLocked(g)
	return nil
}

func (s *Store) activeGameID() (int64, error) {
	if s.st.Game == nil {
		return 0, ErrNoActiveGame
	}
	return s.st.Game.ID, nil
}

// RollDice 仅在轮到自己时发送
func (s *Store) RollDice() error {
	me := s.me()
	s.mu.Lock()
	gameID, err := s.activeGameID()
	if err == nil && !s.st.IsMyTurn(me) {
		err = ErrNotYourTurn
	}
	if err != nil {
		s.mu.Unlock()
		s.notify(Notice{Kind: NoticeFail, Message: "还没轮到你"})
		return err
	}
	s.st.DiceRolling = true
	s.st.DiceResult = nil
	s.mu.Unlock()

	s.socket.RollDice(gameID)
	return nil
}

// MovePiece 使用并清除手上的点数，再发送走棋命令
func (s *Store) MovePiece(pieceIndex int) error {
	me := s.me()
	s.mu.Lock()
	gameID, err := s.activeGameID()
	switch {
	case err != nil:
	case !s.st.IsMyTurn(me):
		err = ErrNotYourTurn
	case s.st.DiceResult == nil:
		err = ErrNoDiceResult
	case pieceIndex < 0 || pieceIndex >= PiecesPerPlayer:
		err = ErrInvalidPiece
	}
	if err != nil {
		s.mu.Unlock()
		s.notify(Notice{Kind: NoticeFail, Message: "现在不能移动棋子"})
		return err
	}
	dice := *s.st.DiceResult
	s.st.DiceResult = nil
	s.mu.Unlock()

	s.socket.MovePiece(gameID, pieceIndex, dice)
	return nil
}

func (s *Store) CompleteTask(recordID int64, note string) error {
	s.mu.Lock()
	gameID, err := s.activeGameID()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.socket.CompleteTask(gameID, recordID, note)
	return nil
}

func (s *Store) AbandonTask(recordID int64) error {
	s.mu.Lock()
	gameID, err := s.activeGameID()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.socket.AbandonTask(gameID, recordID)
	return nil
}

// load 包装一次 REST 调用：设置 Loading，成功时整体替换当前对局
func (s *Store) load(fn func() (*Info, error)) (*Info, error) {
	s.mu.Lock()
	s.st.Loading = true
	s.mu.Unlock()

	g, err := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Loading = false
	if err != nil {
		s.st.ErrorMessage = err.Error()
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGame
	}
	s.applyLocked(g)
	return g, nil
}

// applyLocked 整体替换对局；换局或对局已结束时清掉骰子和任务
func (s *Store) applyLocked(g *Info) {
	if s.st.Game == nil || s.st.Game.ID != g.ID || g.GameStatus.Terminal() {
		s.st.DiceResult = nil
		s.st.DiceRolling = false
		s.st.TriggeredTask = nil
	}
	s.st.Game = g.Clone()
}

func (s *Store) CreateGame(ctx context.Context, req CreateRequest) (*Info, error) {
	g, err := s.load(func() (*Info, error) { return s.api.CreateGame(ctx, req) })
	if err != nil {
		s.notify(Notice{Kind: NoticeFail, Message: "创建游戏失败"})
		return nil, err
	}
	s.notify(Notice{Kind: NoticeSuccess, Message: "游戏创建成功"})
	return g, nil
}

func (s *Store) UpdateTaskPositions(ctx context.Context, positions []int) (*Info, error) {
	s.mu.Lock()
	gameID, err := s.activeGameID()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.load(func() (*Info, error) { return s.api.UpdateTaskPositions(ctx, gameID, positions) })
}

func (s *Store) JoinGame(ctx context.Context, gameCode string) (*Info, error) {
	g, err := s.load(func() (*Info, error) { return s.api.JoinGame(ctx, gameCode) })
	if err != nil {
		s.notify(Notice{Kind: NoticeFail, Message: "加入游戏失败"})
		return nil, err
	}
	s.notify(Notice{Kind: NoticeSuccess, Message: "加入游戏成功"})
	return g, nil
}

// FetchGameDetail 拉取完整快照并替换本地状态
func (s *Store) FetchGameDetail(ctx context.Context, gameID int64) (*Info, error) {
	return s.load(func() (*Info, error) { return s.api.GetGameDetail(ctx, gameID) })
}

// ConnectSocket 使用当前会话的 token 建立实时连接
func (s *Store) ConnectSocket(ctx context.Context) error {
	token := ""
	if s.id != nil {
		token = s.id.Token()
	}
	if token == "" {
		return ErrNotLoggedIn
	}
	err := s.socket.Connect(ctx, token, realtime.Callbacks{
		OnConnected:    func() { s.setConnected(true) },
		OnDisconnected: func() { s.setConnected(false) },
		OnError:        s.onSocketError,
		OnMessage:      s.HandleMessage,
	})
	if err != nil {
		return err
	}
	s.setConnected(s.socket.IsConnected())
	return nil
}

func (s *Store) setConnected(v bool) {
	s.mu.Lock()
	s.st.Connected = v
	s.mu.Unlock()
}

func (s *Store) onSocketError(err error) {
	s.mu.Lock()
	s.st.Connected = false
	s.st.ErrorMessage = err.Error()
	s.mu.Unlock()
	s.log.Warnw("game socket error", "error", err)
	s.notify(Notice{Kind: NoticeFail, Message: "连接失败"})
}

// EnterGameRoom 拉取快照，建立连接并订阅
func (s *Store) EnterGameRoom(ctx context.Context, gameID int64) error {
	if _, err := s.FetchGameDetail(ctx, gameID); err != nil {
		return err
	}
	if err := s.ConnectSocket(ctx); err != nil {
		return err
	}
	return s.socket.SubscribeToGame(gameID)
}

// LeaveGameRoom 取消订阅并清空对局，保留连接
func (s *Store) LeaveGameRoom() {
	s.socket.UnsubscribeFromGame()
	s.mu.Lock()
	s.resetGameLocked()
	s.mu.Unlock()
}

func (s *Store) resetGameLocked() {
	s.st.Game = nil
	s.st.DiceResult = nil
	s.st.DiceRolling = false
	s.st.TriggeredTask = nil
}

// DisconnectSocket 断开连接并清空对局
func (s *Store) DisconnectSocket() {
	s.socket.Disconnect()
	s.mu.Lock()
	s.st.Connected = false
	s.resetGameLocked()
	s.mu.Unlock()
}

func (s *Store) endGame(ctx context.Context, fn func(context.Context, int64) error, okMsg string) error {
	s.mu.Lock()
	gameID, err := s.activeGameID()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := fn(ctx, gameID); err != nil {
		s.mu.Lock()
		s.st.ErrorMessage = err.Error()
		s.mu.Unlock()
		return err
	}
	s.socket.UnsubscribeFromGame()
	s.mu.Lock()
	if s.st.Game != nil && s.st.Game.ID == gameID {
		s.resetGameLocked()
	}
	s.mu.Unlock()
	s.notify(Notice{Kind: NoticeSuccess, Message: okMsg})
	return nil
}

func (s *Store) CancelGame(ctx context.Context) error {
	return s.endGame(ctx, s.api.CancelGame, "游戏已取消")
}

func (s *Store) ForceEndGame(ctx context.Context) error {
	return s.endGame(ctx, s.api.ForceEndGame, "游戏已结束")
}

// FetchGameHistory status 为 0 时不过滤
func (s *Store) FetchGameHistory(ctx context.Context, status Status) ([]Info, error) {
	page, err := s.api.GetUserGames(ctx, status, 1, historyPageSize)
	if err != nil {
		s.mu.Lock()
		s.st.ErrorMessage = err.Error()
		s.mu.Unlock()
		return nil, err
	}
	var records []Info
	if page != nil {
		records = page.Records
	}
	s.mu.Lock()
	s.st.History = append([]Info(nil), records...)
	s.mu.Unlock()
	return records, nil
}

// SyncGameState 请求服务端推送一次完整状态
func (s *Store) SyncGameState() error {
	s.mu.Lock()
	gameID, err := s.activeGameID()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.socket.SyncGameState(gameID)
	return nil
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.st.ErrorMessage = ""
	s.mu.Unlock()
}
