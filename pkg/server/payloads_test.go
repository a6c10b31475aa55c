package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/ohhell/pkg/game"
)

func startedSnapshot(t *testing.T) game.Snapshot {
	t.Helper()
	cfg := manualTiming()
	cfg.ID = 42
	cfg.Seed = 11
	tbl := game.NewTable(cfg)
	t.Cleanup(func() { tbl.Finish() })
	for i := 0; i < game.MaxSeats; i++ {
		require.True(t, tbl.AddParticipant(game.NewHuman(fmt.Sprintf("p%d", i))))
	}
	tbl.Start()
	return tbl.Snapshot()
}

func TestGameStateMessageForSeatedViewer(t *testing.T) {
	snap := startedSnapshot(t)
	msg := gameStateMessage(snap, 0)

	assert.Equal(t, msgGameState, msg.Type)
	assert.Equal(t, 42, msg.TableID)
	assert.Equal(t, "INGAME", msg.State)
	assert.Equal(t, "BETTING", msg.Phase)
	assert.Equal(t, 1, msg.Round)
	assert.Equal(t, 1, msg.CardsDealt)
	assert.NotEmpty(t, msg.Trump, "round 1 has a trump card")
	assert.Empty(t, msg.LeadSuit, "no lead before the first play")

	require.NotNil(t, msg.Turn)
	assert.Equal(t, 0, msg.Turn.Seat)
	assert.Equal(t, "BET", msg.Turn.Action)
	assert.NotZero(t, msg.TurnDeadlineMs)

	assert.Equal(t, 0, msg.YourSeat)
	assert.Equal(t, -1, msg.YourBet)
	require.Len(t, msg.Hand, 1, "viewer sees exactly its own hand")
	require.Len(t, msg.Players, game.MaxSeats)
	for _, row := range msg.Players {
		assert.Equal(t, 1, row.CardsInHand)
		assert.Equal(t, -1, row.Bet)
	}
}

func TestGameStateMessageHidesHandsFromSpectators(t *testing.T) {
	snap := startedSnapshot(t)
	msg := gameStateMessage(snap, -1)

	assert.Equal(t, -1, msg.YourSeat)
	assert.Empty(t, msg.Hand)

	// No hand cards anywhere in the encoded frame.
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "hand")
}

func TestTableEndedMessage(t *testing.T) {
	cfg := manualTiming()
	cfg.ID = 7
	tbl := game.NewTable(cfg)
	require.True(t, tbl.AddParticipant(game.NewHuman("solo")))
	tbl.Start()
	detached := tbl.Finish()

	msg := tableEndedMessage(7, false, detached)
	assert.Equal(t, msgTableEnded, msg.Type)
	assert.Equal(t, 7, msg.TableID)
	assert.False(t, msg.Completed)
	require.Len(t, msg.Standings, game.MaxSeats)
	assert.Equal(t, "solo", msg.Standings[0].Name)
	assert.True(t, msg.Standings[1].Computer)
}

func TestErrorMessage(t *testing.T) {
	msg := errorMessage("bet", ErrRejected)
	assert.Equal(t, msgError, msg.Type)
	assert.Equal(t, "bet", msg.Action)
	assert.Equal(t, ErrRejected.Error(), msg.Message)
}
