package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MahjongType 麻将频道消息类型
type MahjongType string

const (
	MahjongTypeGameState      MahjongType = "GAME_STATE"
	MahjongTypeStateUpdate    MahjongType = "GAME_STATE_UPDATE"
	MahjongTypePlayerJoined   MahjongType = "PLAYER_JOINED"
	MahjongTypePlayerLeft     MahjongType = "PLAYER_LEFT"
	MahjongTypePlayerReady    MahjongType = "PLAYER_READY"
	MahjongTypeGameStarted    MahjongType = "GAME_STARTED"
	MahjongTypeActionExecuted MahjongType = "ACTION_EXECUTED"
	MahjongTypeRoundStarted   MahjongType = "ROUND_STARTED"
	MahjongTypeRoundEnded     MahjongType = "ROUND_ENDED"
	MahjongTypeError          MahjongType = "ERROR"
)

// MahjongMessage 麻将频道消息，字段平铺在顶层
type MahjongMessage struct {
	Type        MahjongType     `json:"type"`
	GameID      int64           `json:"gameId"`
	PlayerID    *int64          `json:"playerId,omitempty"`
	PlayerName  string          `json:"playerName,omitempty"`
	GameState   json.RawMessage `json:"gameState,omitempty"`
	ActionType  string          `json:"actionType,omitempty"`
	Tile        string          `json:"tile,omitempty"`
	Seat        *int            `json:"seat,omitempty"`
	RoundNumber *int            `json:"roundNumber,omitempty"`
	DealerSeat  *int            `json:"dealerSeat,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type MahjongEvent interface {
	isMahjongEvent()
}

// MahjongSnapshot 完整游戏快照
type MahjongSnapshot struct {
	State json.RawMessage
}

// MahjongRefresh 服务端只通知变化，客户端需通过 REST 重新拉取
type MahjongRefresh struct{}

type MahjongPlayerJoined struct {
	PlayerID   int64
	PlayerName string
	State      json.RawMessage
}

type MahjongPlayerLeft struct {
	PlayerID   int64
	PlayerName string
}

type MahjongPlayerReady struct {
	PlayerID   int64
	PlayerName string
}

type MahjongGameStarted struct {
	PlayerID int64
	State    json.RawMessage
}

type MahjongActionExecuted struct {
	PlayerID   int64
	PlayerName string
	ActionType string
	Tile       string
	Seat       int
}

type MahjongRoundStarted struct {
	RoundNumber int
	DealerSeat  int
}

type MahjongRoundEnded struct {
	RoundNumber int
}

type MahjongError struct {
	Message string
}

func (MahjongSnapshot) isMahjongEvent()       {}
func (MahjongRefresh) isMahjongEvent()        {}
func (MahjongPlayerJoined) isMahjongEvent()   {}
func (MahjongPlayerLeft) isMahjongEvent()     {}
func (MahjongPlayerReady) isMahjongEvent()    {}
func (MahjongGameStarted) isMahjongEvent()    {}
func (MahjongActionExecuted) isMahjongEvent() {}
func (MahjongRoundStarted) isMahjongEvent()   {}
func (MahjongRoundEnded) isMahjongEvent()     {}
func (MahjongError) isMahjongEvent()          {}

// SnapshotFor 返回发给 userID 的完整快照，没有则为 nil
//
// PLAYER_JOINED 和 GAME_STARTED 携带的快照按发送者生成（手牌、座位、可执行操作），
// 只有发送者本人可以直接使用，其他人需要通过 REST 重新拉取。
func SnapshotFor(ev MahjongEvent, userID int64) json.RawMessage {
	switch e := ev.(type) {
	case MahjongSnapshot:
		return e.State
	case MahjongPlayerJoined:
		if userID != 0 && e.PlayerID == userID {
			return e.State
		}
	case MahjongGameStarted:
		if userID != 0 && e.PlayerID == userID {
			return e.State
		}
	}
	return nil
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// DecodeMahjongMessage 解析并校验一条麻将频道消息
func DecodeMahjongMessage(b []byte) (MahjongMessage, MahjongEvent, error) {
	var m MahjongMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return MahjongMessage{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var state json.RawMessage
	if present(m.GameState) {
		state = m.GameState
	}

	switch m.Type {
	case MahjongTypeGameState:
		if state == nil {
			return m, nil, fmt.Errorf("%w: %s: missing gameState", ErrMalformed, m.Type)
		}
		return m, MahjongSnapshot{State: state}, nil
	case MahjongTypeStateUpdate:
		if state != nil {
			return m, MahjongSnapshot{State: state}, nil
		}
		return m, MahjongRefresh{}, nil
	case MahjongTypePlayerJoined:
		return m, MahjongPlayerJoined{PlayerID: derefInt64(m.PlayerID), PlayerName: m.PlayerName, State: state}, nil
	case MahjongTypePlayerLeft:
		return m, MahjongPlayerLeft{PlayerID: derefInt64(m.PlayerID), PlayerName: m.PlayerName}, nil
	case MahjongTypePlayerReady:
		return m, MahjongPlayerReady{PlayerID: derefInt64(m.PlayerID), PlayerName: m.PlayerName}, nil
	case MahjongTypeGameStarted:
		return m, MahjongGameStarted{PlayerID: derefInt64(m.PlayerID), State: state}, nil
	case MahjongTypeActionExecuted:
		if m.ActionType == "" {
			return m, nil, fmt.Errorf("%w: %s: missing actionType", ErrMalformed, m.Type)
		}
		return m, MahjongActionExecuted{
			PlayerID:   derefInt64(m.PlayerID),
			PlayerName: m.PlayerName,
			ActionType: m.ActionType,
			Tile:       m.Tile,
			Seat:       derefInt(m.Seat),
		}, nil
	case MahjongTypeRoundStarted:
		if m.RoundNumber == nil {
			return m, nil, fmt.Errorf("%w: %s: missing roundNumber", ErrMalformed, m.Type)
		}
		return m, MahjongRoundStarted{RoundNumber: *m.RoundNumber, DealerSeat: derefInt(m.DealerSeat)}, nil
	case MahjongTypeRoundEnded:
		return m, MahjongRoundEnded{RoundNumber: derefInt(m.RoundNumber)}, nil
	case MahjongTypeError:
		msg := m.Error
		if msg == "" {
			msg = "unknown server error"
		}
		return m, MahjongError{Message: msg}, nil
	case "":
		return m, nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return m, nil, fmt.Errorf("%w: %q", ErrUnknownType, string(m.Type))
}

// 麻将命令消息体
type TileCommand struct {
	Tile string `json:"tile"`
}

type KongCommand struct {
	Tile     string `json:"tile"`
	KongType string `json:"kongType"`
}

type ActionCommand struct {
	ActionType string `json:"actionType"`
	Tile       string `json:"tile,omitempty"`
	ExtraData  string `json:"extraData,omitempty"`
}
