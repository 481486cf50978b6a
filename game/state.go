package game

// State 棋盘游戏客户端状态
type State struct {
	Game          *Info
	Connected     bool
	Loading       bool
	DiceResult    *int // 自己掷出、尚未使用的点数
	DiceRolling   bool
	TriggeredTask *TriggeredTask
	ErrorMessage  string
	History       []Info
}

// clone 返回可独立修改的副本
func (s State) clone() State {
	c := s
	c.Game = s.Game.Clone()
	c.DiceResult = clonePtr(s.DiceResult)
	c.TriggeredTask = clonePtr(s.TriggeredTask)
	c.History = append([]Info(nil), s.History...)
	return c
}

// MyPlayerNumber 1 或 2；不在本局中返回 0
func (s State) MyPlayerNumber(me int64) int {
	if s.Game == nil || me == 0 {
		return 0
	}
	if s.Game.Player1ID == me {
		return 1
	}
	if s.Game.Player2ID != nil && *s.Game.Player2ID == me {
		return 2
	}
	return 0
}

// IsMyTurn 已结束或取消的对局没有回合
func (s State) IsMyTurn(me int64) bool {
	n := s.MyPlayerNumber(me)
	return n != 0 && !s.Game.GameStatus.Terminal() && s.Game.CurrentTurn == n
}

func (s State) MyPieces(me int64) []int {
	switch s.MyPlayerNumber(me) {
	case 1:
		return piecesOrDefault(s.Game.Player1Pieces)
	case 2:
		return piecesOrDefault(s.Game.Player2Pieces)
	}
	return make([]int, PiecesPerPlayer)
}

func (s State) OpponentPieces(me int64) []int {
	switch s.MyPlayerNumber(me) {
	case 1:
		return piecesOrDefault(s.Game.Player2Pieces)
	case 2:
		return piecesOrDefault(s.Game.Player1Pieces)
	}
	return make([]int, PiecesPerPlayer)
}

func piecesOrDefault(p []int) []int {
	if len(p) == 0 {
		return make([]int, PiecesPerPlayer)
	}
	return append([]int(nil), p...)
}

func (s State) status() Status {
	if s.Game == nil {
		return 0
	}
	return s.Game.GameStatus
}

func (s State) IsWaiting() bool  { return s.status() == StatusWaiting }
func (s State) IsPlaying() bool  { return s.status() == StatusPlaying }
func (s State) IsFinished() bool { return s.status() == StatusFinished }

func (s State) IsWinner(me int64) bool {
	return s.Game != nil && me != 0 && s.Game.WinnerID != nil && *s.Game.WinnerID == me
}

// IsRoomOwner 房主即 1 号位
func (s State) IsRoomOwner(me int64) bool {
	return s.Game != nil && me != 0 && s.Game.Player1ID == me
}

// IsTaskExecutor 当前任务由非触发方执行
func (s State) IsTaskExecutor(me int64) bool {
	return s.TriggeredTask != nil && me != 0 && s.TriggeredTask.ExecutorPlayerID == me
}
