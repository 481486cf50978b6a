package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// MessageType 棋盘游戏消息类型
type MessageType string

const (
	TypeConnected       MessageType = "CONNECTED"
	TypeDisconnected    MessageType = "DISCONNECTED"
	TypePlayerJoined    MessageType = "PLAYER_JOINED"
	TypePlayerLeft      MessageType = "PLAYER_LEFT"
	TypeGameStarted     MessageType = "GAME_STARTED"
	TypeGameEnded       MessageType = "GAME_ENDED"
	TypeGameStateUpdate MessageType = "GAME_STATE_UPDATE"
	TypeDiceRolled      MessageType = "DICE_ROLLED"
	TypePieceMoved      MessageType = "PIECE_MOVED"
	TypePieceCaptured   MessageType = "PIECE_CAPTURED"
	TypeTurnChanged     MessageType = "TURN_CHANGED"
	TypeTaskTriggered   MessageType = "TASK_TRIGGERED"
	TypeTaskCompleted   MessageType = "TASK_COMPLETED"
	TypeTaskAbandoned   MessageType = "TASK_ABANDONED"
	TypeTaskTimeout     MessageType = "TASK_TIMEOUT"
	TypeError           MessageType = "ERROR"
	TypeHeartbeat       MessageType = "HEARTBEAT"
	TypeSyncRequest     MessageType = "SYNC_REQUEST"
	TypeSyncResponse    MessageType = "SYNC_RESPONSE"
)

// Timestamp 服务端时间戳，原样保留；兼容字符串、数字和数组形式
type Timestamp string

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	*t = Timestamp(b)
	return nil
}

// Envelope 订阅消息外层结构
type Envelope struct {
	Type       MessageType     `json:"type"`
	GameID     int64           `json:"gameId"`
	SenderID   *int64          `json:"senderId,omitempty"`
	SenderName string          `json:"senderName,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  Timestamp       `json:"timestamp,omitempty"`
}

// SentBy 消息是否由指定用户发出
func (e Envelope) SentBy(userID int64) bool {
	return e.SenderID != nil && userID != 0 && *e.SenderID == userID
}

// Event 各类消息解码后的载荷，封闭集合
type Event interface {
	isEvent()
}

type StateUpdated struct {
	CurrentTurn    int   `json:"currentTurn"`
	Player1Pieces  []int `json:"player1Pieces"`
	Player2Pieces  []int `json:"player2Pieces"`
	LastDiceResult *int  `json:"lastDiceResult"`
}

type DiceRolled struct {
	DiceResult int `json:"diceResult"`
}

type PieceMoved struct {
	PieceIndex   int   `json:"pieceIndex"`
	FromPosition int   `json:"fromPosition"`
	ToPosition   int   `json:"toPosition"`
	PlayerPieces []int `json:"playerPieces"`
}

type PieceCaptured struct {
	CapturedPlayerID   int64 `json:"capturedPlayerId"`
	CapturedPieceIndex int   `json:"capturedPieceIndex"`
}

type TurnChanged struct {
	CurrentTurn     int   `json:"currentTurn"`
	CurrentPlayerID int64 `json:"currentPlayerId"`
}

type PlayerJoined struct{}

type PlayerLeft struct{}

type GameStarted struct{}

type TaskTriggered struct {
	RecordID         int64  `json:"recordId"`
	TaskID           int64  `json:"taskId"`
	Title            string `json:"taskTitle"`
	Description      string `json:"taskDescription"`
	Points           int    `json:"points"`
	TriggerPlayerID  int64  `json:"triggerPlayerId"`
	ExecutorPlayerID int64  `json:"executorPlayerId"`
}

type TaskCompleted struct {
	RecordID       int64  `json:"recordId"`
	CompletionNote string `json:"completionNote"`
}

type TaskAbandoned struct {
	RecordID int64 `json:"recordId"`
}

type TaskTimedOut struct {
	RecordID int64 `json:"recordId"`
}

type GameEnded struct {
	WinnerID   *int64 `json:"winnerId"`
	WinnerName string `json:"winnerName"`
}

type ServerError struct {
	Message string `json:"error"`
}

// Passive 客户端不处理的消息（连接、心跳、同步等）
type Passive struct {
	Type MessageType
}

func (StateUpdated) isEvent()  {}
func (DiceRolled) isEvent()    {}
func (PieceMoved) isEvent()    {}
func (PieceCaptured) isEvent() {}
func (TurnChanged) isEvent()   {}
func (PlayerJoined) isEvent()  {}
func (PlayerLeft) isEvent()    {}
func (GameStarted) isEvent()   {}
func (TaskTriggered) isEvent() {}
func (TaskCompleted) isEvent() {}
func (TaskAbandoned) isEvent() {}
func (TaskTimedOut) isEvent()  {}
func (GameEnded) isEvent()     {}
func (ServerError) isEvent()   {}
func (Passive) isEvent()       {}

func malformed(t MessageType, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, t, fmt.Sprintf(format, args...))
}

// DecodeGameMessage 解析并校验一条订阅消息
func DecodeGameMessage(b []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return env, nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	ev, err := decodeEvent(env)
	if err != nil {
		return env, nil, err
	}
	return env, ev, nil
}

func hasData(env Envelope) bool {
	d := bytes.TrimSpace(env.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

func decodeData(env Envelope, dst any) error {
	if !hasData(env) {
		return malformed(env.Type, "missing data")
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return malformed(env.Type, "%v", err)
	}
	return nil
}

// required 检查 data 中必须出现的字段
func required(env Envelope, keys ...string) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &m); err != nil {
		return malformed(env.Type, "%v", err)
	}
	for _, k := range keys {
		v, ok := m[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return malformed(env.Type, "missing field %s", k)
		}
	}
	return nil
}

func decodeEvent(env Envelope) (Event, error) {
	switch env.Type {
	case TypeGameStateUpdate:
		var e StateUpdated
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		if err := required(env, "currentTurn", "player1Pieces", "player2Pieces"); err != nil {
			return nil, err
		}
		// 服务端用 0 表示没有骰子结果
		if e.LastDiceResult != nil && *e.LastDiceResult == 0 {
			e.LastDiceResult = nil
		}
		return e, nil

	case TypeDiceRolled:
		var e DiceRolled
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		if e.DiceResult < 1 || e.DiceResult > 6 {
			return nil, malformed(env.Type, "dice result %d out of range", e.DiceResult)
		}
		return e, nil

	case TypePieceMoved:
		var e PieceMoved
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		if err := required(env, "pieceIndex", "toPosition"); err != nil {
			return nil, err
		}
		return e, nil

	case TypePieceCaptured:
		var e PieceCaptured
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		if err := required(env, "capturedPlayerId", "capturedPieceIndex"); err != nil {
			return nil, err
		}
		return e, nil

	case TypeTurnChanged:
		var e TurnChanged
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		if e.CurrentTurn != 1 && e.CurrentTurn != 2 {
			return nil, malformed(env.Type, "current turn %d", e.CurrentTurn)
		}
		return e, nil

	case TypePlayerJoined:
		return PlayerJoined{}, nil

	case TypePlayerLeft:
		return PlayerLeft{}, nil

	case TypeGameStarted:
		return GameStarted{}, nil

	case TypeTaskTriggered:
		var e TaskTriggered
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		if err := required(env, "recordId", "taskId", "executorPlayerId"); err != nil {
			return nil, err
		}
		return e, nil

	case TypeTaskCompleted:
		var e TaskCompleted
		if hasData(env) {
			if err := decodeData(env, &e); err != nil {
				return nil, err
			}
		}
		return e, nil

	case TypeTaskAbandoned:
		var e TaskAbandoned
		if hasData(env) {
			if err := decodeData(env, &e); err != nil {
				return nil, err
			}
		}
		return e, nil

	case TypeTaskTimeout:
		var e TaskTimedOut
		if hasData(env) {
			if err := decodeData(env, &e); err != nil {
				return nil, err
			}
		}
		return e, nil

	case TypeGameEnded:
		var e GameEnded
		if err := decodeData(env, &e); err != nil {
			return nil, err
		}
		return e, nil

	case TypeError:
		var e ServerError
		if hasData(env) {
			if err := decodeData(env, &e); err != nil {
				return nil, err
			}
		}
		return e, nil

	case TypeConnected, TypeDisconnected, TypeHeartbeat, TypeSyncRequest, TypeSyncResponse:
		return Passive{Type: env.Type}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(env.Type))
}

// 发布命令的消息体
type MovePieceCommand struct {
	PieceIndex int `json:"pieceIndex"`
	DiceResult int `json:"diceResult"`
}

type CompleteTaskCommand struct {
	RecordID       int64  `json:"recordId"`
	CompletionNote string `json:"completionNote"`
}

type AbandonTaskCommand struct {
	RecordID int64 `json:"recordId"`
}

// EmptyBody 无参数命令的消息体
var EmptyBody = []byte("{}")

