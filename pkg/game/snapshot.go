package game

import "time"

// SeatInfo is a point-in-time copy of one seat's state. Hand contents are
// included; the presentation layer is responsible for only showing a hand to
// its owner.
type SeatInfo struct {
	Seat        int
	Name        string
	Computer    bool
	Offline     bool
	Bet         int // -1 until placed
	TricksWon   int
	Score       int
	CardsInHand int
	Hand        []Card
	Voted       bool
}

// Snapshot is an atomic copy of the observable table state.
type Snapshot struct {
	ID           int
	State        State
	Phase        Phase
	Round        int
	CardsDealt   int
	ActionLocked bool
	TrickCounter int
	TurnTimeout  time.Duration
	TurnDeadline time.Time // zero when no turn timer is armed

	Trump    *Card
	LeadSuit Suit

	// TableCards is the active trick, or the just-completed trick while it
	// remains on display.
	TableCards []PlayedCard

	CurrentTurnSeat     int
	InitiatorSeat       int
	LastTrickWinnerSeat int

	Seats []SeatInfo
}

// Snapshot returns an atomic snapshot of the table for safe concurrent
// reads.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		ID:                  t.cfg.ID,
		State:               t.state,
		Phase:               t.phase,
		Round:               t.round,
		CardsDealt:          CardsForRound(t.round),
		ActionLocked:        time.Now().Before(t.lockedUntil),
		TrickCounter:        t.trickCounter,
		TurnTimeout:         t.cfg.TurnTimeout,
		TurnDeadline:        t.turnDeadline,
		LeadSuit:            t.leadSuit,
		CurrentTurnSeat:     t.currentTurnSeat,
		InitiatorSeat:       t.initiatorSeat,
		LastTrickWinnerSeat: t.lastTrickWinnerSeat,
	}
	if t.trump != nil {
		trump := *t.trump
		snap.Trump = &trump
	}

	source := t.trick
	if len(source) == 0 {
		source = t.display
	}
	snap.TableCards = make([]PlayedCard, len(source))
	copy(snap.TableCards, source)

	snap.Seats = make([]SeatInfo, 0, len(t.participants))
	for _, p := range t.participants {
		hand := make([]Card, len(p.hand))
		copy(hand, p.hand)
		snap.Seats = append(snap.Seats, SeatInfo{
			Seat:        p.seat,
			Name:        p.name,
			Computer:    p.kind == Computer,
			Offline:     p.kind == Human && !p.connected,
			Bet:         p.bet,
			TricksWon:   p.tricksWon,
			Score:       p.score,
			CardsInHand: len(p.hand),
			Hand:        hand,
			Voted:       p.voted,
		})
	}
	return snap
}
