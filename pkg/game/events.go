package game

// EventType identifies a table event.
type EventType string

const (
	// EventStateChanged asks observers to push a fresh snapshot to every
	// connected viewer of the table.
	EventStateChanged EventType = "state_changed"
	// EventTableEnded tells the surrounding registry to retire the table.
	EventTableEnded EventType = "table_ended"
	// EventLobbyChanged hints that lobby listings should be refreshed.
	EventLobbyChanged EventType = "lobby_changed"
)

// Event is a table notification delivered to the surrounding process.
type Event struct {
	Type    EventType
	TableID int
}

// SetEventChannel sets the channel table events are published on. Sends are
// non-blocking: if the channel is full the event is dropped.
func (t *Table) SetEventChannel(events chan<- Event) {
	t.mu.Lock()
	t.events = events
	t.mu.Unlock()
}

func (t *Table) publishLocked(eventType EventType) {
	if t.events == nil {
		return
	}
	select {
	case t.events <- Event{Type: eventType, TableID: t.cfg.ID}:
	default:
		t.log.Warnf("event channel full, dropping %s for table %d", eventType, t.cfg.ID)
	}
}
