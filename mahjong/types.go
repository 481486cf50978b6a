package mahjong

// GameStatus 麻将对局状态
type GameStatus int

const (
	GameWaiting   GameStatus = 1
	GamePlaying   GameStatus = 2
	GameFinished  GameStatus = 3
	GameCancelled GameStatus = 4
)

// RoundStatus 单局状态
type RoundStatus int

const (
	RoundPlaying RoundStatus = 1
	RoundDraw    RoundStatus = 2 // 流局
	RoundHu      RoundStatus = 3
)

// RuleType 玩法
type RuleType int

const (
	RuleQiaoMa RuleType = 1 // 敲麻
	RuleBaiDa  RuleType = 2 // 百搭
)

// 操作类型
const (
	ActionDraw     = "DRAW"
	ActionDiscard  = "DISCARD"
	ActionChi      = "CHI"
	ActionPong     = "PONG"
	ActionMingKong = "MING_KONG"
	ActionAnKong   = "AN_KONG"
	ActionBuKong   = "BU_KONG"
	ActionBuHua    = "BU_HUA"
	ActionHu       = "HU"
	ActionPass     = "PASS"
	ActionReady    = "READY"
)

// MeldInfo 副露
type MeldInfo struct {
	Type      string   `json:"type"`
	Tiles     []string `json:"tiles"`
	Concealed bool     `json:"concealed,omitempty"`
}

// Round 当前局的完整快照；手牌只包含自己的
type Round struct {
	ID               int64          `json:"id"`
	RoundNumber      int            `json:"roundNumber"`
	RoundStatus      RoundStatus    `json:"roundStatus"`
	DealerSeat       int            `json:"dealerSeat"`
	CurrentTurn      int            `json:"currentTurn"`
	WallRemaining    int            `json:"wallRemaining"`
	MyHand           []string       `json:"myHand,omitempty"`
	MySeat           *int           `json:"mySeat,omitempty"`
	Player1Melds     []MeldInfo     `json:"player1Melds,omitempty"`
	Player2Melds     []MeldInfo     `json:"player2Melds,omitempty"`
	Player3Melds     []MeldInfo     `json:"player3Melds,omitempty"`
	Player4Melds     []MeldInfo     `json:"player4Melds,omitempty"`
	Player1Discards  []string       `json:"player1Discards,omitempty"`
	Player2Discards  []string       `json:"player2Discards,omitempty"`
	Player3Discards  []string       `json:"player3Discards,omitempty"`
	Player4Discards  []string       `json:"player4Discards,omitempty"`
	Player1Flowers   []string       `json:"player1Flowers,omitempty"`
	Player2Flowers   []string       `json:"player2Flowers,omitempty"`
	Player3Flowers   []string       `json:"player3Flowers,omitempty"`
	Player4Flowers   []string       `json:"player4Flowers,omitempty"`
	Player1HandCount *int           `json:"player1HandCount,omitempty"`
	Player2HandCount *int           `json:"player2HandCount,omitempty"`
	Player3HandCount *int           `json:"player3HandCount,omitempty"`
	Player4HandCount *int           `json:"player4HandCount,omitempty"`
	LastTile         string         `json:"lastTile,omitempty"`
	LastAction       string         `json:"lastAction,omitempty"`
	LastActionSeat   *int           `json:"lastActionSeat,omitempty"`
	AvailableActions []string       `json:"availableActions,omitempty"`
	WinnerSeat       *int           `json:"winnerSeat,omitempty"`
	HuType           string         `json:"huType,omitempty"`
	FanCount         *int           `json:"fanCount,omitempty"`
	ScoreChanges     map[string]int `json:"scoreChanges,omitempty"`
}

// CanAct 当前局是否允许该操作
func (r *Round) CanAct(action string) bool {
	if r == nil {
		return false
	}
	for _, a := range r.AvailableActions {
		if a == action {
			return true
		}
	}
	return false
}

// Game 对局快照，当前局嵌套在 CurrentRoundData
type Game struct {
	ID               int64      `json:"id"`
	GameCode         string     `json:"gameCode"`
	RuleType         RuleType   `json:"ruleType"`
	RuleTypeName     string     `json:"ruleTypeName"`
	FlowerMode       int        `json:"flowerMode"`
	PlayerCount      int        `json:"playerCount"`
	TotalRounds      int        `json:"totalRounds"`
	BaseScore        int        `json:"baseScore"`
	MaxScore         *int       `json:"maxScore"`
	FlyCount         int        `json:"flyCount"`
	WildTile         string     `json:"wildTile,omitempty"`
	GuideTile        string     `json:"guideTile,omitempty"`
	Dice1            *int       `json:"dice1,omitempty"`
	Dice2            *int       `json:"dice2,omitempty"`
	Player1ID        *int64     `json:"player1Id,omitempty"`
	Player1Name      string     `json:"player1Name,omitempty"`
	Player1Avatar    string     `json:"player1Avatar,omitempty"`
	Player2ID        *int64     `json:"player2Id,omitempty"`
	Player2Name      string     `json:"player2Name,omitempty"`
	Player2Avatar    string     `json:"player2Avatar,omitempty"`
	Player3ID        *int64     `json:"player3Id,omitempty"`
	Player3Name      string     `json:"player3Name,omitempty"`
	Player3Avatar    string     `json:"player3Avatar,omitempty"`
	Player4ID        *int64     `json:"player4Id,omitempty"`
	Player4Name      string     `json:"player4Name,omitempty"`
	Player4Avatar    string     `json:"player4Avatar,omitempty"`
	GameStatus       GameStatus `json:"gameStatus"`
	GameStatusName   string     `json:"gameStatusName"`
	CurrentRound     int        `json:"currentRound"`
	DealerSeat       int        `json:"dealerSeat"`
	Player1Score     int        `json:"player1Score"`
	Player2Score     int        `json:"player2Score"`
	Player3Score     int        `json:"player3Score"`
	Player4Score     int        `json:"player4Score"`
	CurrentRoundData *Round     `json:"currentRoundData,omitempty"`
	CreatedAt        string     `json:"createdAt"`
	StartedAt        string     `json:"startedAt,omitempty"`
	EndedAt          string     `json:"endedAt,omitempty"`
}

// SeatOf 返回用户座位（1-4），不在桌上返回 0
func (g *Game) SeatOf(userID int64) int {
	if g == nil {
		return 0
	}
	for i, p := range []*int64{g.Player1ID, g.Player2ID, g.Player3ID, g.Player4ID} {
		if p != nil && *p == userID {
			return i + 1
		}
	}
	return 0
}

// CreateRequest 创建对局；零值字段由服务端取默认值
type CreateRequest struct {
	RuleType    RuleType `json:"ruleType"`
	FlowerMode  int      `json:"flowerMode,omitempty"`
	PlayerCount int      `json:"playerCount,omitempty"`
	TotalRounds int      `json:"totalRounds,omitempty"`
	BaseScore   int      `json:"baseScore,omitempty"`
	MaxScore    *int     `json:"maxScore,omitempty"`
	FlyCount    *int     `json:"flyCount,omitempty"`
}

// ActionRequest 对局操作
type ActionRequest struct {
	ActionType string `json:"actionType"`
	Tile       string `json:"tile,omitempty"`
	ExtraData  string `json:"extraData,omitempty"`
}
