package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cardtable/ohhell/pkg/game"
	"github.com/cardtable/ohhell/pkg/server/internal/db"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks are left to the fronting proxy; identity comes from the
	// id query parameter, not from a browser session.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Client is one websocket connection bound to a user. A user may hold
// several clients at once.
type Client struct {
	server *Server
	user   *User
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

// clientAction is the single incoming frame shape; Action selects which of
// the remaining fields matter.
type clientAction struct {
	Action  string `json:"action"`
	TableID int    `json:"tableId"`
	Amount  int    `json:"amount"`
	Card    string `json:"card"`
	Limit   int    `json:"limit"`
}

// ServeWS upgrades an HTTP request to a websocket session. The identity
// comes from the id and name query parameters; id is the stable key for
// statistics and reconnection.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	name := r.URL.Query().Get("name")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade for %s: %v", id, err)
		return
	}
	c := &Client{
		server: s,
		user:   s.Session(id, name),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	s.addClient(c)
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.server.removeClient(c)
		close(c.done)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.log.Debugf("websocket read from %s: %v", c.user.ID, err)
			}
			return
		}
		var act clientAction
		if err := json.Unmarshal(raw, &act); err != nil {
			c.server.sendTo(c, errorMessage("", fmt.Errorf("malformed message")))
			continue
		}
		c.server.dispatch(c, act)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// dispatch routes one client frame to the matching server operation. Errors
// go back to the sender only; successful actions reach everyone through the
// event loop.
func (s *Server) dispatch(c *Client, act clientAction) {
	u := c.user
	var err error
	switch act.Action {
	case "create":
		var id int
		if id, err = s.CreateTable(u); err == nil {
			s.sendTo(c, &Created{Type: msgCreated, TableID: id})
			s.broadcastLobby()
		}
	case "join":
		if err = s.JoinTable(u, act.TableID); err == nil {
			s.broadcastLobby()
		}
	case "leave":
		if err = s.LeaveTable(u); err == nil {
			s.broadcastLobby()
		}
	case "vote":
		err = s.VoteStart(u)
	case "bet":
		err = s.Bet(u, act.Amount)
	case "play":
		err = s.Play(u, act.Card)
	case "list":
		s.sendTo(c, lobbyMessage(s.onlineUsers(), s.listTables()))
	case "history":
		s.sendTo(c, &History{Type: msgHistory, Tables: s.History()})
	case "stats":
		var stats *db.PlayerStats
		if stats, err = s.Stats(u); err == nil {
			s.sendTo(c, &Stats{Type: msgStats, Stats: statsRow(stats)})
		}
	case "leaderboard":
		limit := act.Limit
		if limit <= 0 || limit > 100 {
			limit = 10
		}
		var rows []*db.PlayerStats
		if rows, err = s.Leaderboard(limit); err == nil {
			board := &Leaderboard{Type: msgLeaderboard, Players: make([]StatsRow, 0, len(rows))}
			for _, row := range rows {
				board.Players = append(board.Players, statsRow(row))
			}
			s.sendTo(c, board)
		}
	default:
		err = fmt.Errorf("unknown action %q", act.Action)
	}
	if err != nil {
		s.log.Debugf("action %s from %s failed: %v", act.Action, u.ID, err)
		s.sendTo(c, errorMessage(act.Action, err))
	}
}

// addClient registers a connection. The user's seat flips back to connected
// on its first open connection, and the new client gets the lobby plus the
// current table state.
func (s *Server) addClient(c *Client) {
	u := c.user
	s.mu.Lock()
	first := len(u.clients) == 0
	u.clients[c] = struct{}{}
	tbl := s.tables[u.tableID]
	p := u.participant
	s.mu.Unlock()

	s.log.Debugf("client connected for %s (first=%v)", u.ID, first)
	if tbl != nil && p != nil && first {
		tbl.SetConnected(p, true)
	}
	s.sendTo(c, lobbyMessage(s.onlineUsers(), s.listTables()))
	if tbl != nil && p != nil {
		s.sendTo(c, gameStateMessage(tbl.Snapshot(), tbl.SeatOf(p)))
	}
	if first {
		s.broadcastLobby()
	}
}

// removeClient drops a connection. When the user's last connection closes,
// a mid-game seat goes offline and keeps playing on the turn timer, while a
// lobby seat is vacated immediately.
func (s *Server) removeClient(c *Client) {
	u := c.user
	s.mu.Lock()
	if _, ok := u.clients[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(u.clients, c)
	last := len(u.clients) == 0
	tbl := s.tables[u.tableID]
	p := u.participant
	s.mu.Unlock()

	s.log.Debugf("client disconnected for %s (last=%v)", u.ID, last)
	if !last {
		return
	}
	defer s.broadcastLobby()
	if tbl == nil || p == nil {
		return
	}
	if tbl.Snapshot().State == game.StateInGame {
		tbl.SetConnected(p, false)
		return
	}
	if err := s.LeaveTable(u); err != nil {
		s.log.Warnf("failed to vacate seat for %s: %v", u.ID, err)
	}
}

// sendTo marshals and queues one message for a single client. A client that
// cannot keep up loses frames rather than stalling the server.
func (s *Server) sendTo(c *Client, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Errorf("failed to marshal %T: %v", v, err)
		return
	}
	s.sendRaw(c, raw)
}

func (s *Server) sendRaw(c *Client, raw []byte) {
	select {
	case c.send <- raw:
	default:
		s.log.Warnf("send buffer full for %s, dropping frame", c.user.ID)
	}
}

// sendToUser queues one message for every open connection of a user.
func (s *Server) sendToUser(u *User, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Errorf("failed to marshal %T: %v", v, err)
		return
	}
	s.mu.RLock()
	clients := make([]*Client, 0, len(u.clients))
	for c := range u.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	for _, c := range clients {
		s.sendRaw(c, raw)
	}
}

// broadcastTable pushes a fresh per-viewer snapshot to everyone seated at
// the table.
func (s *Server) broadcastTable(tableID int) {
	type viewer struct {
		p       *game.Participant
		clients []*Client
	}
	s.mu.RLock()
	tbl, ok := s.tables[tableID]
	var viewers []viewer
	if ok {
		for _, u := range s.users {
			if u.tableID != tableID || u.participant == nil || len(u.clients) == 0 {
				continue
			}
			v := viewer{p: u.participant}
			for c := range u.clients {
				v.clients = append(v.clients, c)
			}
			viewers = append(viewers, v)
		}
	}
	s.mu.RUnlock()
	if !ok {
		return
	}

	snap := tbl.Snapshot()
	for _, v := range viewers {
		raw, err := json.Marshal(gameStateMessage(snap, tbl.SeatOf(v.p)))
		if err != nil {
			s.log.Errorf("failed to marshal game state: %v", err)
			return
		}
		for _, c := range v.clients {
			s.sendRaw(c, raw)
		}
	}
}

// broadcastLobby pushes the user and table listing to every connected
// client.
func (s *Server) broadcastLobby() {
	raw, err := json.Marshal(lobbyMessage(s.onlineUsers(), s.listTables()))
	if err != nil {
		s.log.Errorf("failed to marshal lobby: %v", err)
		return
	}
	s.mu.RLock()
	var clients []*Client
	for _, u := range s.users {
		for c := range u.clients {
			clients = append(clients, c)
		}
	}
	s.mu.RUnlock()
	for _, c := range clients {
		s.sendRaw(c, raw)
	}
}

// onlineUsers returns the names of users with at least one open connection,
// sorted for stable listings.
func (s *Server) onlineUsers() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.users))
	for _, u := range s.users {
		if len(u.clients) > 0 {
			names = append(names, u.Name)
		}
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// listTables renders the lobby rows, ordered by table ID.
func (s *Server) listTables() []TableSummary {
	s.mu.RLock()
	tables := make([]*game.Table, 0, len(s.tables))
	for _, tbl := range s.tables {
		tables = append(tables, tbl)
	}
	s.mu.RUnlock()
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID() < tables[j].ID() })

	out := make([]TableSummary, 0, len(tables))
	for _, tbl := range tables {
		snap := tbl.Snapshot()
		row := TableSummary{
			ID:      snap.ID,
			State:   snap.State.String(),
			Seats:   len(snap.Seats),
			Players: make([]string, 0, len(snap.Seats)),
		}
		for _, seat := range snap.Seats {
			row.Players = append(row.Players, seat.Name)
		}
		out = append(out, row)
	}
	return out
}
