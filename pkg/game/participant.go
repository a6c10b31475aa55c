package game

// Kind distinguishes the two seat controllers. The set is closed: every
// participant is either a human or a computer seat.
type Kind int

const (
	Human Kind = iota
	Computer
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Computer {
		return "Computer"
	}
	return "Human"
}

// Participant is the per-seat state at a table. All fields are guarded by
// the owning table's lock once the participant is seated; the table is the
// only writer.
type Participant struct {
	name      string
	kind      Kind
	seat      int
	hand      []Card
	bet       int
	tricksWon int
	score     int
	voted     bool
	connected bool
}

// NewHuman creates a human participant. Humans start connected; the table is
// told about later connectivity changes through SetConnected.
func NewHuman(name string) *Participant {
	return &Participant{
		name:      name,
		kind:      Human,
		seat:      -1,
		bet:       -1,
		connected: true,
	}
}

// NewComputer creates a computer-controlled participant.
func NewComputer(name string) *Participant {
	return &Participant{
		name: name,
		kind: Computer,
		seat: -1,
		bet:  -1,
	}
}

// Name returns the display name.
func (p *Participant) Name() string { return p.name }

// Kind returns the seat controller kind.
func (p *Participant) Kind() Kind { return p.kind }

// Seat returns the seat index, or -1 when not seated.
func (p *Participant) Seat() int { return p.seat }

// Bet returns the current bet, -1 until placed.
func (p *Participant) Bet() int { return p.bet }

// HasBet reports whether a bet has been placed this round.
func (p *Participant) HasBet() bool { return p.bet >= 0 }

// TricksWon returns the tricks won this round.
func (p *Participant) TricksWon() int { return p.tricksWon }

// Score returns the cumulative score across rounds.
func (p *Participant) Score() int { return p.score }

// Voted reports whether the participant has voted to start.
func (p *Participant) Voted() bool { return p.voted }

// automated reports whether this seat's turns are driven by the AI timer
// class: computer seats always, human seats while disconnected.
func (p *Participant) automated() bool {
	return p.kind == Computer || !p.connected
}

// resetForRound clears hand, bet and trick count at the start of a round.
func (p *Participant) resetForRound() {
	p.hand = p.hand[:0]
	p.bet = -1
	p.tricksWon = 0
}

// resetForGame clears all per-game state including the cumulative score.
func (p *Participant) resetForGame() {
	p.resetForRound()
	p.score = 0
}

// detach clears seat assignment and the one-shot vote flag when the
// participant leaves a table.
func (p *Participant) detach() {
	p.seat = -1
	p.voted = false
}

// findCard looks up a card in the hand by its normalized key.
func (p *Participant) findCard(key string) (Card, bool) {
	for _, card := range p.hand {
		if card.Key() == key {
			return card, true
		}
	}
	return Card{}, false
}

// removeCard removes the first matching card from the hand.
func (p *Participant) removeCard(card Card) {
	for i, held := range p.hand {
		if held == card {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			return
		}
	}
}

// Hand returns a copy of the hand. Concurrent readers should go through
// Table.Snapshot instead.
func (p *Participant) Hand() []Card {
	hand := make([]Card, len(p.hand))
	copy(hand, p.hand)
	return hand
}
