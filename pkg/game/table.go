package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
)

// State is the table lifecycle state.
type State int

const (
	StateLobby State = iota
	StateWaiting
	StateInGame
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLobby:
		return "LOBBY"
	case StateWaiting:
		return "WAITING"
	case StateInGame:
		return "INGAME"
	case StateCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Phase is the in-game phase within a round.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseBetting
	PhasePlaying
	PhaseCompleted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "WAITING"
	case PhaseBetting:
		return "BETTING"
	case PhasePlaying:
		return "PLAYING"
	case PhaseCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// TableConfig holds configuration for a new table. The delay fields are
// presentation-tuning constants; zero values fall back to the defaults
// below, which preserve turn timeout > trick reveal > bot delay.
type TableConfig struct {
	ID  int
	Log slog.Logger

	// Seed makes deck shuffles deterministic when non-zero.
	Seed int64

	BotTurnDelay     time.Duration // auto-turn delay for computer seats
	OfflineTurnDelay time.Duration // auto-turn delay for disconnected humans
	TurnTimeout      time.Duration // connected-human turn timeout
	TrickRevealDelay time.Duration // wait before a full trick is resolved
	RevealPause      time.Duration // lockout window after a trick resolves
	IdleEndDelay     time.Duration // auto-end when no human is connected
}

func (cfg *TableConfig) setDefaults() {
	if cfg.BotTurnDelay == 0 {
		cfg.BotTurnDelay = 2 * time.Second
	}
	if cfg.OfflineTurnDelay == 0 {
		cfg.OfflineTurnDelay = 10 * time.Second
	}
	if cfg.TurnTimeout == 0 {
		cfg.TurnTimeout = 30 * time.Second
	}
	if cfg.TrickRevealDelay == 0 {
		cfg.TrickRevealDelay = 2 * time.Second
	}
	if cfg.RevealPause == 0 {
		cfg.RevealPause = 2650 * time.Millisecond
	}
	if cfg.IdleEndDelay == 0 {
		cfg.IdleEndDelay = 90 * time.Second
	}
}

// Table is the per-table game state machine. External actions and scheduled
// callbacks all take the same mutex, so at most one mutation is in flight at
// any instant.
type Table struct {
	mu    sync.Mutex
	cfg   TableConfig
	log   slog.Logger
	rng   *rand.Rand
	sched *scheduler

	events chan<- Event

	participants []*Participant
	state        State
	phase        Phase
	round        int
	deck         *Deck
	trump        *Card

	initiatorSeat       int
	currentTurnSeat     int
	leadSuit            Suit
	trick               []PlayedCard
	display             []PlayedCard
	topIdx              int
	lastTrickWinnerSeat int
	trickCounter        int

	turnToken    uint64
	lockedUntil  time.Time
	turnDeadline time.Time
	trickPending bool

	turnTimer   *scheduledTask
	trickTimer  *scheduledTask
	unlockTimer *scheduledTask
	idleTimer   *scheduledTask
}

// NewTable creates a table with its own timer goroutine.
func NewTable(cfg TableConfig) *Table {
	cfg.setDefaults()
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Table{
		cfg:                 cfg,
		log:                 log,
		rng:                 rand.New(rand.NewSource(seed)),
		sched:               newScheduler(),
		state:               StateLobby,
		phase:               PhaseWaiting,
		topIdx:              -1,
		lastTrickWinnerSeat: -1,
	}
}

// ID returns the table identifier.
func (t *Table) ID() int { return t.cfg.ID }

// AddParticipant seats a participant. It fails once the table is full or the
// game has started.
func (t *Table) AddParticipant(p *Participant) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.participants) >= MaxSeats {
		return false
	}
	if t.state != StateLobby && t.state != StateWaiting {
		return false
	}
	p.seat = len(t.participants)
	t.participants = append(t.participants, p)
	t.log.Infof("table %d: seated %s at %d", t.cfg.ID, p.name, p.seat)
	t.publishLocked(EventStateChanged)
	return true
}

// RemoveParticipant detaches a participant and closes the seat gap so seats
// stay contiguous.
func (t *Table) RemoveParticipant(p *Participant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, seated := range t.participants {
		if seated == p {
			t.participants = append(t.participants[:i], t.participants[i+1:]...)
			break
		}
	}
	for i, seated := range t.participants {
		seated.seat = i
	}
	p.detach()
	t.log.Infof("table %d: removed %s, %d seats remain", t.cfg.ID, p.name, len(t.participants))
	t.publishLocked(EventStateChanged)
}

// MarkWaiting moves a freshly created table into the joinable lobby state.
func (t *Table) MarkWaiting() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateLobby {
		t.state = StateWaiting
	}
	t.publishLocked(EventLobbyChanged)
}

// Vote records a seated participant's vote to start. Votes from participants
// not seated at this table are ignored.
func (t *Table) Vote(p *Participant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, seated := range t.participants {
		if seated == p {
			p.voted = true
			t.publishLocked(EventStateChanged)
			return
		}
	}
}

// AllVoted reports whether every seated participant has voted to start.
func (t *Table) AllVoted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.participants) == 0 {
		return false
	}
	for _, p := range t.participants {
		if !p.voted {
			return false
		}
	}
	return true
}

// Start begins the game: empty seats are backfilled with computer players,
// per-game state is reset and round 1 is dealt. Starting an already running
// table is a no-op.
func (t *Table) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateLobby && t.state != StateWaiting {
		return
	}
	for i := len(t.participants); i < MaxSeats; i++ {
		bot := NewComputer(fmt.Sprintf("Bot %d", i+1))
		bot.seat = i
		t.participants = append(t.participants, bot)
	}
	for _, p := range t.participants {
		p.resetForGame()
	}
	t.state = StateInGame
	t.phase = PhaseBetting
	t.round = 1
	t.initiatorSeat = 0
	t.log.Infof("table %d: game started with %d seats", t.cfg.ID, len(t.participants))
	t.startRoundLocked()
	t.updateIdleTimerLocked()
}

// startRound resets per-round state, deals CardsForRound(round) cards to
// each seat and draws the trump card when the round has one.
func (t *Table) startRoundLocked() {
	for _, p := range t.participants {
		p.resetForRound()
	}
	t.deck = NewDeck(t.rng)
	t.trick = nil
	t.display = nil
	t.leadSuit = NoSuit
	t.topIdx = -1
	t.trump = nil
	t.lockedUntil = time.Time{}
	t.trickPending = false
	t.trickCounter = 0
	t.turnDeadline = time.Time{}

	count := CardsForRound(t.round)
	for i := 0; i < count; i++ {
		for _, p := range t.participants {
			if card, ok := t.deck.Draw(); ok {
				p.hand = append(p.hand, card)
			}
		}
	}
	if HasTrump(t.round) {
		if card, ok := t.deck.Draw(); ok {
			t.trump = &card
		}
	}
	t.phase = PhaseBetting
	t.currentTurnSeat = t.initiatorSeat
	t.lastTrickWinnerSeat = -1
	t.log.Debugf("table %d: round %d started, %d cards each, trump %v",
		t.cfg.ID, t.round, count, t.trump)
	t.afterChangeLocked()
}

// PlaceBet records a bet for the participant holding the turn. It returns
// false, leaving all state unchanged, when the action cannot be accepted.
func (t *Table) PlaceBet(p *Participant, amount int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.placeBetLocked(p, amount)
}

func (t *Table) placeBetLocked(p *Participant, amount int) bool {
	if t.state != StateInGame || t.phase != PhaseBetting {
		return false
	}
	if p == nil || t.participants[t.currentTurnSeat] != p {
		return false
	}
	if time.Now().Before(t.lockedUntil) {
		return false
	}
	if t.trickPending {
		return false
	}
	if amount < 0 {
		amount = 0
	}
	if max := CardsForRound(t.round); amount > max {
		amount = max
	}
	t.cancelTurnTimerLocked()
	p.bet = amount
	t.log.Debugf("table %d: %s bet %d", t.cfg.ID, p.name, amount)
	if t.allBetsPlacedLocked() {
		t.phase = PhasePlaying
		t.currentTurnSeat = t.initiatorSeat
	} else {
		t.currentTurnSeat = t.nextSeat(t.currentTurnSeat)
	}
	t.afterChangeLocked()
	return true
}

// PlayCard plays the card named by key from the participant's hand. It
// returns false, leaving all state unchanged, when the action cannot be
// accepted or the play would break follow-suit.
func (t *Table) PlayCard(p *Participant, cardKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playCardLocked(p, cardKey)
}

func (t *Table) playCardLocked(p *Participant, cardKey string) bool {
	if t.state != StateInGame || t.phase != PhasePlaying {
		return false
	}
	if p == nil || t.participants[t.currentTurnSeat] != p {
		return false
	}
	if time.Now().Before(t.lockedUntil) {
		return false
	}
	if t.trickPending {
		return false
	}
	card, ok := p.findCard(strings.ToLower(strings.TrimSpace(cardKey)))
	if !ok {
		return false
	}
	if !t.isValidPlayLocked(p, card) {
		return false
	}
	t.cancelTurnTimerLocked()

	// The previous trick stays on display only until the next card hits
	// the table.
	if len(t.trick) == 0 && len(t.display) > 0 {
		t.display = nil
	}
	p.removeCard(card)
	t.trick = append(t.trick, PlayedCard{Card: card, Seat: p.seat})
	if t.leadSuit == NoSuit {
		t.leadSuit = card.Suit()
	}
	t.updateTopLocked()
	t.log.Debugf("table %d: %s played %s", t.cfg.ID, p.name, card.Key())

	if len(t.trick) >= len(t.participants) {
		t.scheduleTrickResolutionLocked()
	} else {
		t.currentTurnSeat = t.nextSeat(t.currentTurnSeat)
	}
	t.afterChangeLocked()
	return true
}

// isValidPlay enforces follow-suit: any card may lead, and once a lead suit
// is set a card of another suit is only legal when the hand is void in the
// lead suit.
func (t *Table) isValidPlayLocked(p *Participant, card Card) bool {
	if t.leadSuit == NoSuit {
		return true
	}
	if card.Suit() == t.leadSuit {
		return true
	}
	for _, held := range p.hand {
		if held.Suit() == t.leadSuit {
			return false
		}
	}
	return true
}

// updateTop compares the card just played against the trick's current top by
// strict greater-than, so equal values keep the earlier play on top.
func (t *Table) updateTopLocked() {
	idx := len(t.trick) - 1
	if t.topIdx < 0 {
		t.topIdx = idx
		return
	}
	trump := t.trumpSuitLocked()
	candidate := t.trick[idx].Card.TrickValue(trump, t.leadSuit)
	top := t.trick[t.topIdx].Card.TrickValue(trump, t.leadSuit)
	if candidate > top {
		t.topIdx = idx
	}
}

func (t *Table) trumpSuitLocked() Suit {
	if t.trump == nil {
		return NoSuit
	}
	return t.trump.Suit()
}

func (t *Table) allBetsPlacedLocked() bool {
	for _, p := range t.participants {
		if !p.HasBet() {
			return false
		}
	}
	return true
}

func (t *Table) nextSeat(seat int) int {
	next := seat + 1
	if next >= len(t.participants) {
		next = 0
	}
	return next
}

func (t *Table) roundCompleteLocked() bool {
	for _, p := range t.participants {
		if len(p.hand) > 0 {
			return false
		}
	}
	return true
}

// scheduleTrickResolution defers resolution of a full trick by the reveal
// delay. The trickPending flag makes resolution single-flight: a second
// attempt while one is pending is a no-op.
func (t *Table) scheduleTrickResolutionLocked() {
	if t.trickPending {
		return
	}
	t.trickPending = true
	until := time.Now().Add(t.cfg.TrickRevealDelay + t.cfg.RevealPause)
	if until.After(t.lockedUntil) {
		t.lockedUntil = until
	}
	if t.trickTimer != nil {
		t.sched.Cancel(t.trickTimer)
	}
	t.trickTimer = t.sched.Schedule(t.cfg.TrickRevealDelay, t.onTrickComplete)
}

func (t *Table) onTrickComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateInGame || t.phase == PhaseCompleted {
		t.trickPending = false
		return
	}
	t.resolveTrickLocked()
	if t.roundCompleteLocked() {
		t.afterChangeLocked()
		t.trickTimer = t.sched.Schedule(t.cfg.RevealPause, t.onRoundComplete)
		return
	}
	t.currentTurnSeat = t.initiatorSeat
	t.trickPending = false
	t.afterChangeLocked()
}

func (t *Table) onRoundComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateInGame || t.phase == PhaseCompleted {
		t.trickPending = false
		return
	}
	t.trickPending = false
	t.endRoundLocked()
}

// resolveTrick credits the top card's seat, makes that seat the next trick's
// initiator, moves the trick into the display buffer and opens the reveal
// lockout window.
func (t *Table) resolveTrickLocked() {
	if t.topIdx < 0 {
		return
	}
	winner := t.trick[t.topIdx].Seat
	if winner >= 0 && winner < len(t.participants) {
		t.participants[winner].tricksWon++
		t.initiatorSeat = winner
		t.lastTrickWinnerSeat = winner
	}
	t.log.Debugf("table %d: trick %d won by seat %d with %s",
		t.cfg.ID, t.trickCounter, winner, t.trick[t.topIdx].Card.Key())
	t.display = t.trick
	t.trick = nil
	t.leadSuit = NoSuit
	t.topIdx = -1
	t.lockedUntil = time.Now().Add(t.cfg.RevealPause)
	t.trickCounter++
}

// endRound applies scoring, then either completes the game after the final
// round or rotates the initiator and deals the next round.
func (t *Table) endRoundLocked() {
	for _, p := range t.participants {
		delta := scoreDelta(p.bet, p.tricksWon)
		p.score += delta
		t.log.Debugf("table %d: %s bet %d won %d, score %+d -> %d",
			t.cfg.ID, p.name, p.bet, p.tricksWon, delta, p.score)
	}
	t.lastTrickWinnerSeat = -1
	if t.round >= TotalRounds {
		t.phase = PhaseCompleted
		t.state = StateCompleted
		t.cancelTurnTimerLocked()
		t.log.Infof("table %d: game complete after round %d", t.cfg.ID, t.round)
		t.publishLocked(EventStateChanged)
		t.publishLocked(EventTableEnded)
		return
	}
	t.round++
	t.initiatorSeat = t.round % len(t.participants)
	t.startRoundLocked()
}

// scheduleTurn arms the timer that drives the current seat if it does not
// act: the AI delay for automated seats, the turn timeout for connected
// humans. Each timer captures a fresh token; an intervening action bumps the
// token so the stale timer no-ops when it fires.
func (t *Table) scheduleTurnLocked() {
	t.cancelTurnTimerLocked()
	if t.state != StateInGame || t.phase == PhaseCompleted {
		return
	}
	if !t.hasConnectedHumanLocked() {
		return
	}
	if t.trickPending {
		return
	}
	now := time.Now()
	var wait time.Duration
	if t.lockedUntil.After(now) {
		wait = t.lockedUntil.Sub(now)
	}
	current := t.participants[t.currentTurnSeat]
	t.turnToken++
	token := t.turnToken

	delay := wait + t.cfg.TurnTimeout
	if current.automated() {
		delay = wait + t.cfg.BotTurnDelay
		if current.kind == Human {
			delay = wait + t.cfg.OfflineTurnDelay
		}
	}
	t.turnDeadline = now.Add(delay)
	t.turnTimer = t.sched.Schedule(delay, func() { t.onTurnTimer(token) })
}

// onTurnTimer synthesizes a decision for the seat holding the turn. A stale
// token, an active lockout or a finished table silently discards the timer.
func (t *Table) onTurnTimer(token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token != t.turnToken {
		return
	}
	if time.Now().Before(t.lockedUntil) {
		return
	}
	if t.state != StateInGame || t.phase == PhaseCompleted {
		return
	}
	current := t.participants[t.currentTurnSeat]
	switch t.phase {
	case PhaseBetting:
		t.placeBetLocked(current, t.autoBetLocked(current))
	case PhasePlaying:
		if card, ok := t.chooseCardLocked(current); ok {
			t.playCardLocked(current, card.Key())
		}
	}
}

func (t *Table) cancelTurnTimerLocked() {
	if t.turnTimer != nil {
		t.sched.Cancel(t.turnTimer)
		t.turnTimer = nil
	}
	t.turnDeadline = time.Time{}
}

// scheduleUnlock arms a one-shot notification for when the lockout window
// elapses, so observers refresh even when no action follows.
func (t *Table) scheduleUnlockLocked() {
	if t.unlockTimer != nil {
		t.sched.Cancel(t.unlockTimer)
		t.unlockTimer = nil
	}
	delay := time.Until(t.lockedUntil)
	if delay <= 0 {
		return
	}
	t.unlockTimer = t.sched.Schedule(delay, t.onUnlock)
}

func (t *Table) onUnlock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateInGame || t.phase == PhaseCompleted {
		return
	}
	if time.Now().Before(t.lockedUntil) {
		return
	}
	if len(t.trick) == 0 && len(t.display) > 0 {
		t.display = nil
	}
	t.publishLocked(EventStateChanged)
}

// updateIdleTimer arms the auto-end timer while no human is connected and
// cancels it the instant one reconnects.
func (t *Table) updateIdleTimerLocked() {
	if t.state != StateInGame {
		return
	}
	if t.hasConnectedHumanLocked() {
		if t.idleTimer != nil {
			t.sched.Cancel(t.idleTimer)
			t.idleTimer = nil
		}
		return
	}
	if t.idleTimer == nil {
		t.idleTimer = t.sched.Schedule(t.cfg.IdleEndDelay, t.onIdleEnd)
	}
}

func (t *Table) onIdleEnd() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idleTimer = nil
	if t.state != StateInGame {
		return
	}
	if t.hasConnectedHumanLocked() {
		return
	}
	t.log.Infof("table %d: no humans connected, ending", t.cfg.ID)
	t.publishLocked(EventTableEnded)
}

func (t *Table) hasConnectedHumanLocked() bool {
	for _, p := range t.participants {
		if p.kind == Human && p.connected {
			return true
		}
	}
	return false
}

// SetConnected flags a human seat online or offline and refreshes the
// timers that depend on connectivity.
func (t *Table) SetConnected(p *Participant, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.connected = connected
	t.updateIdleTimerLocked()
	if t.state == StateInGame && t.phase != PhaseCompleted {
		t.scheduleTurnLocked()
	}
	t.publishLocked(EventStateChanged)
}

// SeatOf returns the participant's current seat under the table lock, so
// callers outside the package get a consistent read while seats shift.
func (t *Table) SeatOf(p *Participant) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return p.seat
}

// IsActionLocked reports whether the table is inside a reveal lockout
// window.
func (t *Table) IsActionLocked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Now().Before(t.lockedUntil)
}

// afterChange re-arms the turn and unlock timers and notifies observers.
// Every state-changing path funnels through here.
func (t *Table) afterChangeLocked() {
	t.scheduleTurnLocked()
	t.scheduleUnlockLocked()
	t.publishLocked(EventStateChanged)
}

// Finish retires the table: all timers are cancelled, the timer goroutine
// stops and every participant is detached. It returns the detached
// participants so the caller can record results. No timer fires after
// Finish returns.
func (t *Table) Finish() []*Participant {
	t.mu.Lock()
	t.state = StateCompleted
	t.phase = PhaseCompleted
	t.cancelTurnTimerLocked()
	if t.trickTimer != nil {
		t.sched.Cancel(t.trickTimer)
		t.trickTimer = nil
	}
	if t.unlockTimer != nil {
		t.sched.Cancel(t.unlockTimer)
		t.unlockTimer = nil
	}
	if t.idleTimer != nil {
		t.sched.Cancel(t.idleTimer)
		t.idleTimer = nil
	}
	detached := t.participants
	t.participants = nil
	for _, p := range detached {
		p.detach()
	}
	t.mu.Unlock()
	t.sched.Stop()
	return detached
}
