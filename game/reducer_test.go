package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamelink/protocol"
)

func hasNotice(fx Effects, msg string) bool {
	for _, n := range fx.Notices {
		if n.Message == msg {
			return true
		}
	}
	return false
}

func TestReduce_TurnChanged(t *testing.T) {
	tests := []struct {
		name   string
		me     int64
		turn   int
		myTurn bool
	}{
		{"player1 gets turn", 1, 1, true},
		{"player1 loses turn", 1, 2, false},
		{"player2 loses turn", 2, 1, false},
		{"player2 gets turn", 2, 2, true},
		{"spectator turn 1", 3, 1, false},
		{"spectator turn 2", 3, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := playingGame()
			g.CurrentTurn = 3 - tt.turn
			before := State{Game: g, DiceResult: ptr(4), DiceRolling: true}

			next, fx := Reduce(before, tt.me, env(protocol.TypeTurnChanged, 7, 0),
				protocol.TurnChanged{CurrentTurn: tt.turn, CurrentPlayerID: int64(tt.turn)})

			assert.Nil(t, next.DiceResult)
			assert.False(t, next.DiceRolling)
			assert.Equal(t, tt.turn, next.Game.CurrentTurn)
			assert.Equal(t, tt.myTurn, next.IsMyTurn(tt.me))
			assert.Equal(t, tt.myTurn, hasNotice(fx, "轮到你了"))

			require.NotNil(t, before.DiceResult, "input state is not modified")
			assert.Equal(t, 3-tt.turn, before.Game.CurrentTurn)
		})
	}
}

func TestReduce_TurnChangedWithoutGame(t *testing.T) {
	next, fx := Reduce(State{DiceResult: ptr(2)}, 1, env(protocol.TypeTurnChanged, 7, 0), protocol.TurnChanged{CurrentTurn: 1})
	assert.Nil(t, next.DiceResult)
	assert.Nil(t, next.Game)
	assert.Empty(t, fx.Notices)
}

func TestReduce_PlayerJoinedRequestsRefetch(t *testing.T) {
	_, fx := Reduce(State{Game: playingGame()}, 1, env(protocol.TypePlayerJoined, 7, 2), protocol.PlayerJoined{})
	assert.Equal(t, int64(7), fx.RefetchGameID)

	_, fx = Reduce(State{}, 1, env(protocol.TypePlayerJoined, 7, 2), protocol.PlayerJoined{})
	assert.Zero(t, fx.RefetchGameID)
}
