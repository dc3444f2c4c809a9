package room

import (
	"math/rand"
	"strings"
	"time"
)

const lobbyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const lobbyCodeLength = 6

// LobbyPlayer is one roster entry.
type LobbyPlayer struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// Lobby is a pre-game gathering point. The game core consumes only the code
// (as the room identifier) and the roster's claim order.
type Lobby struct {
	Code       string
	CreatedAt  time.Time
	Settings   MatchSettings
	MaxPlayers int
	players    []LobbyPlayer
}

// LobbyState is a snapshot of a lobby for external reads.
type LobbyState struct {
	LobbyCode  string        `json:"lobbyCode"`
	Settings   MatchSettings `json:"settings"`
	Players    []LobbyPlayer `json:"players"`
	MaxPlayers int           `json:"maxPlayers"`
	IsFull     bool          `json:"isFull"`
}

// CreateLobby registers a new lobby and returns its join code.
func (m *Manager) CreateLobby(settings MatchSettings) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := newLobbyCode()
	for _, taken := m.lobbies[code]; taken; _, taken = m.lobbies[code] {
		code = newLobbyCode()
	}
	maxPlayers := settings.NumberOfPlayers
	if maxPlayers <= 0 {
		maxPlayers = 2
	}
	m.lobbies[code] = &Lobby{
		Code:       code,
		CreatedAt:  m.clock.Now(),
		Settings:   settings,
		MaxPlayers: maxPlayers,
	}
	return code
}

// AddPlayerToLobby appends a roster entry, capacity permitting.
func (m *Manager) AddPlayerToLobby(code, playerID, playerName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[code]
	if !ok || len(l.players) >= l.MaxPlayers {
		return false
	}
	for i, p := range l.players {
		if p.PlayerID == playerID {
			l.players[i].PlayerName = playerName
			return true
		}
	}
	l.players = append(l.players, LobbyPlayer{PlayerID: playerID, PlayerName: playerName})
	return true
}

// LobbyState returns a snapshot of the lobby, or nil if the code is
// unknown.
func (m *Manager) LobbyState(code string) *LobbyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[code]
	if !ok {
		return nil
	}
	players := append([]LobbyPlayer(nil), l.players...)
	return &LobbyState{
		LobbyCode:  l.Code,
		Settings:   l.Settings,
		Players:    players,
		MaxPlayers: l.MaxPlayers,
		IsFull:     len(players) >= l.MaxPlayers,
	}
}

// DeleteLobby removes the lobby entry.
func (m *Manager) DeleteLobby(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lobbies, code)
}

func newLobbyCode() string {
	var b strings.Builder
	for i := 0; i < lobbyCodeLength; i++ {
		b.WriteByte(lobbyCodeAlphabet[rand.Intn(len(lobbyCodeAlphabet))])
	}
	return b.String()
}
