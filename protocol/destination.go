package protocol

import "fmt"

// 棋盘游戏发布动作
const (
	ActionRollDice     = "roll-dice"
	ActionMovePiece    = "move-piece"
	ActionCompleteTask = "complete-task"
	ActionAbandonTask  = "abandon-task"
	ActionSync         = "sync"
	ActionHeartbeat    = "heartbeat"
)

// 麻将发布动作
const (
	MahjongJoin      = "join"
	MahjongReady     = "ready"
	MahjongDiscard   = "discard"
	MahjongPong      = "pong"
	MahjongKong      = "kong"
	MahjongHu        = "hu"
	MahjongPass      = "pass"
	MahjongSync      = "sync"
	MahjongStart     = "start"
	MahjongNextRound = "next-round"
	MahjongHeartbeat = "heartbeat"
	MahjongAction    = "action"
)

// GameTopic 棋盘游戏订阅地址
func GameTopic(gameID int64) string {
	return fmt.Sprintf("/topic/game/%d", gameID)
}

// GameAction 棋盘游戏命令地址
func GameAction(gameID int64, action string) string {
	return fmt.Sprintf("/app/game/%d/%s", gameID, action)
}

func MahjongTopic(gameID int64) string {
	return fmt.Sprintf("/topic/mahjong/game/%d", gameID)
}

func MahjongActionDest(gameID int64, action string) string {
	return fmt.Sprintf("/app/mahjong/%d/%s", gameID, action)
}
