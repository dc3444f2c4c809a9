package room

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sheinhtuttunlwin/cactus-web-game/internal/game"
)

// Manager owns the room map and the lobby directory. Seat assignment and
// room creation serialize on its lock; play inside a room serializes on
// that room's own context.
type Manager struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	lobbies map[string]*Lobby

	clock   clockwork.Clock
	timings game.Timings
	log     *zap.Logger
}

// NewManager creates a room manager. The clock is shared with every engine
// it creates so tests can drive all room timers from one fake clock.
func NewManager(clock clockwork.Clock, timings game.Timings, log *zap.Logger) *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		lobbies: make(map[string]*Lobby),
		clock:   clock,
		timings: timings,
		log:     log,
	}
}

// Ensure returns the room, creating it on first reference.
func (m *Manager) Ensure(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		return r
	}
	r := newRoom(roomID, m.clock, m.timings, m.log)
	m.rooms[roomID] = r
	m.log.Info("room created", zap.String("room", roomID))
	return r
}

// Get returns the room or nil.
func (m *Manager) Get(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID]
}

// Delete removes the room entry. This is the only way a room dies; dropped
// connections merely release their seat.
func (m *Manager) Delete(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
}

// DropSession releases the session's seat in whichever room holds it. Room
// and round state stay intact for reconnection.
func (m *Manager) DropSession(s Session) {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()
	for _, r := range rooms {
		if r.dropSession(s) {
			return
		}
	}
}
