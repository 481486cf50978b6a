package game

// Status 游戏状态
type Status int

const (
	StatusWaiting   Status = 1 // 等待加入
	StatusPlaying   Status = 2 // 游戏中
	StatusFinished  Status = 3 // 已结束
	StatusCancelled Status = 4 // 已取消
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusPlaying:
		return "PLAYING"
	case StatusFinished:
		return "FINISHED"
	case StatusCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Terminal 已结束或已取消，不再有回合
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// PiecesPerPlayer 每位玩家的棋子数
const PiecesPerPlayer = 2

// TaskPositionInfo 任务格子
type TaskPositionInfo struct {
	Position int    `json:"position"`
	TaskID   *int64 `json:"taskId"`
	Title    string `json:"title"`
}

// Info 一局棋盘游戏的完整快照
type Info struct {
	ID             int64              `json:"id"`
	GameCode       string             `json:"gameCode"`
	Player1ID      int64              `json:"player1Id"`
	Player1Name    string             `json:"player1Name"`
	Player1Avatar  string             `json:"player1Avatar"`
	Player2ID      *int64             `json:"player2Id"`
	Player2Name    string             `json:"player2Name"`
	Player2Avatar  string             `json:"player2Avatar"`
	CurrentTurn    int                `json:"currentTurn"`
	GameStatus     Status             `json:"gameStatus"`
	WinnerID       *int64             `json:"winnerId"`
	Player1Pieces  []int              `json:"player1Pieces"`
	Player2Pieces  []int              `json:"player2Pieces"`
	LastDiceResult *int               `json:"lastDiceResult"`
	TaskPositions  []int              `json:"taskPositions"`
	TaskInfos      []TaskPositionInfo `json:"taskInfos"`
	CreatedAt      string             `json:"createdAt"`
	StartedAt      string             `json:"startedAt"`
	EndedAt        string             `json:"endedAt"`
}

// Clone 深拷贝，调用方可以安全修改
func (g *Info) Clone() *Info {
	if g == nil {
		return nil
	}
	c := *g
	c.Player2ID = clonePtr(g.Player2ID)
	c.WinnerID = clonePtr(g.WinnerID)
	c.LastDiceResult = clonePtr(g.LastDiceResult)
	c.Player1Pieces = append([]int(nil), g.Player1Pieces...)
	c.Player2Pieces = append([]int(nil), g.Player2Pieces...)
	c.TaskPositions = append([]int(nil), g.TaskPositions...)
	c.TaskInfos = append([]TaskPositionInfo(nil), g.TaskInfos...)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TriggeredTask 当前进行中的任务，同一局最多一个
type TriggeredTask struct {
	TaskID            int64  `json:"taskId"`
	RecordID          int64  `json:"recordId"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Points            int    `json:"points"`
	TriggerPlayerID   int64  `json:"triggerPlayerId"`
	ExecutorPlayerID  int64  `json:"executorPlayerId"`
	TriggerPlayerName string `json:"triggerPlayerName,omitempty"`
}

// CreateRequest 创建房间
type CreateRequest struct {
	OpponentUserID *int64 `json:"opponentUserId,omitempty"`
	TaskPositions  []int  `json:"taskPositions,omitempty"`
}

// Page 分页结果
type Page struct {
	Records []Info `json:"records"`
	Total   int64  `json:"total"`
	Size    int64  `json:"size"`
	Current int64  `json:"current"`
}
