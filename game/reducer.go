package game

import (
	"fmt"

	"gamelink/protocol"
)

// NoticeKind 提示类型
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeFail
)

// Notice 短暂提示（界面上的 toast）
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Effects 处理消息后需要执行的副作用
type Effects struct {
	Notices []Notice
	// RefetchGameID 非 0 时需要重新拉取完整快照
	RefetchGameID int64
}

func (e *Effects) notify(kind NoticeKind, format string, args ...any) {
	e.Notices = append(e.Notices, Notice{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func senderOr(env protocol.Envelope, def string) string {
	if env.SenderName != "" {
		return env.SenderName
	}
	return def
}

// Reduce 把一条消息应用到状态上，不修改入参
func Reduce(s State, me int64, env protocol.Envelope, ev protocol.Event) (State, Effects) {
	var fx Effects
	if s.Game != nil && env.GameID != 0 && env.GameID != s.Game.ID {
		return s, fx
	}
	next := s.clone()

	switch e := ev.(type) {
	case protocol.StateUpdated:
		if next.Game != nil {
			next.Game.CurrentTurn = e.CurrentTurn
			next.Game.Player1Pieces = append([]int(nil), e.Player1Pieces...)
			next.Game.Player2Pieces = append([]int(nil), e.Player2Pieces...)
			next.Game.LastDiceResult = clonePtr(e.LastDiceResult)
		}

	case protocol.DiceRolled:
		// 只有掷骰子的一方记录点数用于走棋
		if env.SentBy(me) {
			v := e.DiceResult
			next.DiceResult = &v
		}
		next.DiceRolling = false
		fx.notify(NoticeInfo, "%s 掷出了 %d", senderOr(env, "玩家"), e.DiceResult)

	case protocol.PieceMoved:
		// 位置以随后的 GAME_STATE_UPDATE 为准

	case protocol.PieceCaptured:
		if e.CapturedPlayerID == me {
			fx.notify(NoticeFail, "你的棋子被吃，返回起点")
		} else {
			fx.notify(NoticeSuccess, "吃子！对方棋子返回起点")
		}

	case protocol.TurnChanged:
		next.DiceResult = nil
		next.DiceRolling = false
		if next.Game != nil {
			next.Game.CurrentTurn = e.CurrentTurn
			if next.IsMyTurn(me) {
				fx.notify(NoticeInfo, "轮到你了")
			}
		}

	case protocol.PlayerJoined:
		fx.notify(NoticeSuccess, "%s 加入了游戏", senderOr(env, "对方"))
		// 增量信息不足以重建玩家列表，重新拉取快照
		if next.Game != nil {
			fx.RefetchGameID = next.Game.ID
		}

	case protocol.PlayerLeft:
		fx.notify(NoticeInfo, "%s 离开了游戏", senderOr(env, "对方"))

	case protocol.GameStarted:
		fx.notify(NoticeInfo, "游戏开始")
		if next.Game != nil {
			fx.RefetchGameID = next.Game.ID
		}

	case protocol.TaskTriggered:
		next.TriggeredTask = &TriggeredTask{
			TaskID:            e.TaskID,
			RecordID:          e.RecordID,
			Title:             e.Title,
			Description:       e.Description,
			Points:            e.Points,
			TriggerPlayerID:   e.TriggerPlayerID,
			ExecutorPlayerID:  e.ExecutorPlayerID,
			TriggerPlayerName: env.SenderName,
		}
		fx.notify(NoticeInfo, "触发任务：%s", e.Title)

	case protocol.TaskCompleted:
		next.TriggeredTask = nil
		fx.notify(NoticeSuccess, "任务完成")

	case protocol.TaskAbandoned:
		next.TriggeredTask = nil
		fx.notify(NoticeInfo, "任务已放弃")

	case protocol.TaskTimedOut:
		next.TriggeredTask = nil
		fx.notify(NoticeInfo, "任务超时")

	case protocol.GameEnded:
		if next.Game != nil {
			next.Game.GameStatus = StatusFinished
			next.Game.WinnerID = clonePtr(e.WinnerID)
			if next.IsWinner(me) {
				fx.notify(NoticeSuccess, "恭喜你赢了")
			} else {
				fx.notify(NoticeInfo, "%s 获胜", e.WinnerName)
			}
		}
		next.DiceResult = nil
		next.TriggeredTask = nil

	case protocol.ServerError:
		if e.Message != "" {
			next.ErrorMessage = e.Message
			fx.notify(NoticeFail, "%s", e.Message)
		}
		next.DiceRolling = false

	case protocol.Passive:
	}
	return next, fx
}
