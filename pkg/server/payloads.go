package server

import (
	"github.com/cardtable/ohhell/pkg/game"
	"github.com/cardtable/ohhell/pkg/server/internal/db"
)

// Outgoing message types. Every frame pushed to a client carries a "type"
// field so clients can dispatch without sniffing the payload.
const (
	msgGameState   = "gameState"
	msgLobby       = "lobby"
	msgTableEnded  = "tableEnded"
	msgError       = "error"
	msgCreated     = "created"
	msgStats       = "stats"
	msgLeaderboard = "leaderboard"
	msgHistory     = "history"
)

// TurnInfo names the seat the table is waiting on and the action it expects.
type TurnInfo struct {
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
	Action string `json:"action"` // "BET" or "PLAY"
}

// TableCard is one card on the table with the seat that played it.
type TableCard struct {
	Card string `json:"card"`
	Seat int    `json:"seat"`
}

// PlayerRow is the public view of one seat. Hands are never included here;
// a viewer only ever sees its own hand, in GameState.Hand.
type PlayerRow struct {
	Seat        int    `json:"seat"`
	Name        string `json:"name"`
	Computer    bool   `json:"computer"`
	Offline     bool   `json:"offline"`
	Bet         int    `json:"bet"`
	TricksWon   int    `json:"tricksWon"`
	Score       int    `json:"score"`
	CardsInHand int    `json:"cardsInHand"`
	Voted       bool   `json:"voted"`
}

// GameState is the per-viewer table state frame.
type GameState struct {
	Type            string      `json:"type"`
	TableID         int         `json:"tableId"`
	State           string      `json:"state"`
	Phase           string      `json:"phase"`
	Round           int         `json:"round"`
	CardsDealt      int         `json:"cardsDealt"`
	ActionLocked    bool        `json:"actionLocked"`
	TrickCounter    int         `json:"trickCounter"`
	Trump           string      `json:"trump,omitempty"`
	LeadSuit        string      `json:"leadSuit,omitempty"`
	TableCards      []TableCard `json:"tableCards"`
	Turn            *TurnInfo   `json:"turn,omitempty"`
	TurnDeadlineMs  int64       `json:"turnDeadlineMs,omitempty"`
	BettingLeadSeat int         `json:"bettingLeadSeat"`
	LastTrickWinner int         `json:"lastTrickWinner"`
	Players         []PlayerRow `json:"players"`
	YourSeat        int         `json:"yourSeat"`
	YourBet         int         `json:"yourBet"`
	Hand            []string    `json:"hand,omitempty"`
}

// gameStateMessage renders a snapshot for one viewer. viewerSeat is -1 for a
// spectator, which hides every hand.
func gameStateMessage(snap game.Snapshot, viewerSeat int) *GameState {
	msg := &GameState{
		Type:            msgGameState,
		TableID:         snap.ID,
		State:           snap.State.String(),
		Phase:           snap.Phase.String(),
		Round:           snap.Round,
		CardsDealt:      snap.CardsDealt,
		ActionLocked:    snap.ActionLocked,
		TrickCounter:    snap.TrickCounter,
		TableCards:      make([]TableCard, 0, len(snap.TableCards)),
		BettingLeadSeat: snap.InitiatorSeat,
		LastTrickWinner: snap.LastTrickWinnerSeat,
		Players:         make([]PlayerRow, 0, len(snap.Seats)),
		YourSeat:        viewerSeat,
		YourBet:         -1,
	}
	if snap.Trump != nil {
		msg.Trump = snap.Trump.Key()
	}
	if snap.LeadSuit != game.NoSuit {
		msg.LeadSuit = snap.LeadSuit.Key()
	}
	for _, played := range snap.TableCards {
		msg.TableCards = append(msg.TableCards, TableCard{
			Card: played.Card.Key(),
			Seat: played.Seat,
		})
	}
	if snap.State == game.StateInGame &&
		(snap.Phase == game.PhaseBetting || snap.Phase == game.PhasePlaying) {
		action := "PLAY"
		if snap.Phase == game.PhaseBetting {
			action = "BET"
		}
		msg.Turn = &TurnInfo{
			Seat:   snap.CurrentTurnSeat,
			Name:   snap.Seats[snap.CurrentTurnSeat].Name,
			Action: action,
		}
		if !snap.TurnDeadline.IsZero() {
			msg.TurnDeadlineMs = snap.TurnDeadline.UnixMilli()
		}
	}
	for _, seat := range snap.Seats {
		msg.Players = append(msg.Players, PlayerRow{
			Seat:        seat.Seat,
			Name:        seat.Name,
			Computer:    seat.Computer,
			Offline:     seat.Offline,
			Bet:         seat.Bet,
			TricksWon:   seat.TricksWon,
			Score:       seat.Score,
			CardsInHand: seat.CardsInHand,
			Voted:       seat.Voted,
		})
		if seat.Seat == viewerSeat {
			msg.YourBet = seat.Bet
			msg.Hand = make([]string, 0, len(seat.Hand))
			for _, card := range seat.Hand {
				msg.Hand = append(msg.Hand, card.Key())
			}
		}
	}
	return msg
}

// TableSummary is one lobby row.
type TableSummary struct {
	ID      int      `json:"id"`
	State   string   `json:"state"`
	Seats   int      `json:"seats"`
	Players []string `json:"players"`
}

// Lobby is the online-users and table listing frame.
type Lobby struct {
	Type   string         `json:"type"`
	Users  []string       `json:"users"`
	Tables []TableSummary `json:"tables"`
}

func lobbyMessage(users []string, tables []TableSummary) *Lobby {
	return &Lobby{Type: msgLobby, Users: users, Tables: tables}
}

// FinalStanding is one seat's result in a tableEnded frame.
type FinalStanding struct {
	Name     string `json:"name"`
	Computer bool   `json:"computer"`
	Score    int    `json:"score"`
}

// TableEnded announces a retired table with its final standings.
type TableEnded struct {
	Type      string          `json:"type"`
	TableID   int             `json:"tableId"`
	Completed bool            `json:"completed"`
	Standings []FinalStanding `json:"standings"`
}

func tableEndedMessage(tableID int, completed bool, detached []*game.Participant) *TableEnded {
	msg := &TableEnded{
		Type:      msgTableEnded,
		TableID:   tableID,
		Completed: completed,
		Standings: make([]FinalStanding, 0, len(detached)),
	}
	for _, p := range detached {
		msg.Standings = append(msg.Standings, FinalStanding{
			Name:     p.Name(),
			Computer: p.Kind() == game.Computer,
			Score:    p.Score(),
		})
	}
	return msg
}

// History lists recently ended tables with their standings.
type History struct {
	Type   string        `json:"type"`
	Tables []*TableEnded `json:"tables"`
}

// ErrorMsg reports a failed client action.
type ErrorMsg struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

func errorMessage(action string, err error) *ErrorMsg {
	return &ErrorMsg{Type: msgError, Action: action, Message: err.Error()}
}

// Created acknowledges table creation.
type Created struct {
	Type    string `json:"type"`
	TableID int    `json:"tableId"`
}

// StatsRow is one player's lifetime record on the wire.
type StatsRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GamesPlayed int    `json:"gamesPlayed"`
	Wins        int    `json:"wins"`
	TotalScore  int    `json:"totalScore"`
	BestScore   int    `json:"bestScore"`
}

func statsRow(stats *db.PlayerStats) StatsRow {
	return StatsRow{
		ID:          stats.ID,
		Name:        stats.Name,
		GamesPlayed: stats.GamesPlayed,
		Wins:        stats.Wins,
		TotalScore:  stats.TotalScore,
		BestScore:   stats.BestScore,
	}
}

// Stats is the lifetime record frame for the requesting user.
type Stats struct {
	Type  string   `json:"type"`
	Stats StatsRow `json:"stats"`
}

// Leaderboard is the top-players frame.
type Leaderboard struct {
	Type    string     `json:"type"`
	Players []StatsRow `json:"players"`
}
