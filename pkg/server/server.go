package server

import (
	"errors"
	"sync"

	"github.com/decred/slog"

	"github.com/cardtable/ohhell/pkg/game"
	"github.com/cardtable/ohhell/pkg/server/internal/db"
)

var (
	// ErrAlreadySeated is returned when a seated user tries to create or
	// join a second table.
	ErrAlreadySeated = errors.New("already seated at a table")
	// ErrNotSeated is returned for table actions from an unseated user.
	ErrNotSeated = errors.New("not seated at a table")
	// ErrTableNotFound is returned for actions against an unknown table.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableFull is returned when a table cannot take another seat.
	ErrTableFull = errors.New("table is full or already started")
	// ErrRejected is returned when the table refuses an action: out of
	// turn, out of phase, inside a reveal window or an illegal play.
	ErrRejected = errors.New("action not accepted")
)

// User is one authenticated identity. A user may hold several concurrent
// connections (browser tabs); the seat counts as connected while at least one
// remains open.
type User struct {
	ID   string
	Name string

	// Guarded by the owning server's mutex.
	tableID     int
	participant *game.Participant
	clients     map[*Client]struct{}
}

// Config holds the server dependencies and the timing template applied to
// every table it creates.
type Config struct {
	Log slog.Logger
	DB  Database

	// GameLog is handed to each table; falls back to Log when nil.
	GameLog slog.Logger

	// Timing is copied into each new table's config; its ID and Log fields
	// are overwritten per table. Zero durations use the table defaults.
	Timing game.TableConfig
}

// Server owns the table registry, the user registry and the event loop that
// fans table changes out to connected clients.
type Server struct {
	log     slog.Logger
	gameLog slog.Logger
	db      Database
	timing  game.TableConfig

	mu          sync.RWMutex
	users       map[string]*User
	tables      map[int]*game.Table
	history     []*TableEnded
	nextTableID int

	events chan game.Event
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewServer creates the server and starts its event loop.
func NewServer(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	gameLog := cfg.GameLog
	if gameLog == nil {
		gameLog = log
	}
	s := &Server{
		log:     log,
		gameLog: gameLog,
		db:      cfg.DB,
		timing:  cfg.Timing,
		users:   make(map[string]*User),
		tables:  make(map[int]*game.Table),
		events:  make(chan game.Event, 256),
		quit:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Stop shuts down the event loop and finishes every live table. Results of
// unfinished games are not recorded.
func (s *Server) Stop() {
	close(s.quit)
	s.wg.Wait()

	s.mu.Lock()
	tables := make([]*game.Table, 0, len(s.tables))
	for id, tbl := range s.tables {
		tables = append(tables, tbl)
		delete(s.tables, id)
	}
	for _, u := range s.users {
		u.tableID = 0
		u.participant = nil
	}
	s.mu.Unlock()

	for _, tbl := range tables {
		tbl.Finish()
	}
}

// Session returns the user for an identity, creating it on first contact.
// The display name is refreshed on every call.
func (s *Server) Session(id, name string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = &User{ID: id, clients: make(map[*Client]struct{})}
		s.users[id] = u
	}
	if name != "" {
		u.Name = name
	}
	if u.Name == "" {
		u.Name = id
	}
	return u
}

// CreateTable creates a table with the user as its first seat and returns
// the new table's ID.
func (s *Server) CreateTable(u *User) (int, error) {
	s.mu.Lock()
	if u.tableID != 0 {
		s.mu.Unlock()
		return 0, ErrAlreadySeated
	}
	s.nextTableID++
	id := s.nextTableID

	cfg := s.timing
	cfg.ID = id
	cfg.Log = s.gameLog
	tbl := game.NewTable(cfg)
	tbl.SetEventChannel(s.events)
	s.tables[id] = tbl

	p := game.NewHuman(u.Name)
	u.tableID = id
	u.participant = p
	s.mu.Unlock()

	tbl.MarkWaiting()
	if !tbl.AddParticipant(p) {
		// Cannot happen on a fresh table; unwind anyway.
		s.mu.Lock()
		delete(s.tables, id)
		u.tableID = 0
		u.participant = nil
		s.mu.Unlock()
		tbl.Finish()
		return 0, ErrTableFull
	}
	s.log.Infof("user %s created table %d", u.ID, id)
	return id, nil
}

// JoinTable seats the user at an existing table.
func (s *Server) JoinTable(u *User, tableID int) error {
	s.mu.Lock()
	if u.tableID != 0 {
		s.mu.Unlock()
		return ErrAlreadySeated
	}
	tbl, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return ErrTableNotFound
	}
	p := game.NewHuman(u.Name)
	s.mu.Unlock()

	if !tbl.AddParticipant(p) {
		return ErrTableFull
	}
	s.mu.Lock()
	u.tableID = tableID
	u.participant = p
	s.mu.Unlock()
	s.log.Infof("user %s joined table %d", u.ID, tableID)
	return nil
}

// LeaveTable releases the user's seat. Leaving mid-game keeps the seat in
// play as an offline participant; leaving before the game starts vacates the
// seat, and an empty lobby table is retired.
func (s *Server) LeaveTable(u *User) error {
	s.mu.Lock()
	tbl, ok := s.tables[u.tableID]
	p := u.participant
	if !ok || p == nil {
		s.mu.Unlock()
		return ErrNotSeated
	}
	u.tableID = 0
	u.participant = nil
	s.mu.Unlock()

	if tbl.Snapshot().State == game.StateInGame {
		tbl.SetConnected(p, false)
		return nil
	}
	tbl.RemoveParticipant(p)
	if !s.tableHasUsers(tbl.ID()) {
		s.retireTable(tbl.ID())
	}
	return nil
}

// VoteStart records the user's start vote and starts the game once every
// seat has voted.
func (s *Server) VoteStart(u *User) error {
	tbl, p, err := s.seat(u)
	if err != nil {
		return err
	}
	tbl.Vote(p)
	if tbl.AllVoted() {
		tbl.Start()
	}
	return nil
}

// Bet places the user's bet for the round.
func (s *Server) Bet(u *User, amount int) error {
	tbl, p, err := s.seat(u)
	if err != nil {
		return err
	}
	if !tbl.PlaceBet(p, amount) {
		return ErrRejected
	}
	return nil
}

// Play plays the card named by key from the user's hand.
func (s *Server) Play(u *User, cardKey string) error {
	tbl, p, err := s.seat(u)
	if err != nil {
		return err
	}
	if !tbl.PlayCard(p, cardKey) {
		return ErrRejected
	}
	return nil
}

// Stats returns the user's lifetime record.
func (s *Server) Stats(u *User) (*db.PlayerStats, error) {
	return s.db.GetPlayerStats(u.ID)
}

// Leaderboard returns up to limit players ordered by lifetime score.
func (s *Server) Leaderboard(limit int) ([]*db.PlayerStats, error) {
	return s.db.TopPlayers(limit)
}

// TableFor returns the table the user is seated at.
func (s *Server) TableFor(u *User) (*game.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, ok := s.tables[u.tableID]
	return tbl, ok && u.participant != nil
}

func (s *Server) seat(u *User) (*game.Table, *game.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, ok := s.tables[u.tableID]
	if !ok || u.participant == nil {
		return nil, nil, ErrNotSeated
	}
	return tbl, u.participant, nil
}

func (s *Server) tableHasUsers(tableID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.tableID == tableID {
			return true
		}
	}
	return false
}

// run is the event loop: it turns table events into snapshot pushes and
// retires ended tables.
func (s *Server) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			switch ev.Type {
			case game.EventStateChanged:
				s.broadcastTable(ev.TableID)
			case game.EventLobbyChanged:
				s.broadcastLobby()
			case game.EventTableEnded:
				s.retireTable(ev.TableID)
			}
		}
	}
}

// retireTable tears a table down, records results for its human seats and
// tells the affected users. Recording only happens for games that reached
// the final round.
func (s *Server) retireTable(tableID int) {
	s.mu.Lock()
	tbl, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tables, tableID)
	seated := make(map[*game.Participant]*User)
	for _, u := range s.users {
		if u.tableID == tableID {
			seated[u.participant] = u
			u.tableID = 0
			u.participant = nil
		}
	}
	s.mu.Unlock()

	completed := tbl.Snapshot().Phase == game.PhaseCompleted
	detached := tbl.Finish()

	if completed {
		best := 0
		for i, p := range detached {
			if i == 0 || p.Score() > best {
				best = p.Score()
			}
		}
		for _, p := range detached {
			u, ok := seated[p]
			if !ok {
				continue
			}
			err := s.db.RecordGameResult(u.ID, u.Name, p.Score(), p.Score() == best)
			if err != nil {
				s.log.Errorf("failed to record result for %s: %v", u.ID, err)
			}
		}
	}

	s.log.Infof("table %d retired, completed=%v", tableID, completed)
	msg := tableEndedMessage(tableID, completed, detached)
	s.mu.Lock()
	s.history = append(s.history, msg)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.mu.Unlock()
	for _, u := range seated {
		s.sendToUser(u, msg)
	}
	s.broadcastLobby()
}

// maxHistory bounds the in-memory record of ended tables.
const maxHistory = 32

// History returns the most recently ended tables, newest last.
func (s *Server) History() []*TableEnded {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*TableEnded, len(s.history))
	copy(out, s.history)
	return out
}
