package room

import (
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sheinhtuttunlwin/cactus-web-game/internal/game"
)

// ErrRoomFull is returned when a third connection tries to claim a seat.
var ErrRoomFull = errors.New("room full")

// Session is one connected client, as the room sees it: a per-recipient
// sink for named events. Send must not block; a slow consumer drops frames,
// not the room.
type Session interface {
	Send(event string, data any) bool
}

// Phase is the room lifecycle phase.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhasePlaying Phase = "playing"
	PhaseOver    Phase = "over"
)

// MatchSettings configures a match.
type MatchSettings struct {
	NumberOfRounds  int `json:"numberOfRounds"`
	NumberOfPlayers int `json:"numberOfPlayers"`
}

// MatchInfo is the match-level bookkeeping carried on every round update.
type MatchInfo struct {
	CurrentRound int           `json:"currentRound"`
	TotalScores  map[int]int   `json:"totalScores"`
	Settings     MatchSettings `json:"settings"`
}

// RoundUpdate is the per-seat state push: that seat's projection of the
// round plus the match bookkeeping.
type RoundUpdate struct {
	Phase Phase           `json:"phase"`
	Round *game.RoundView `json:"round"`
	Match MatchInfo       `json:"match"`
}

// RoomUpdate acknowledges a seat claim.
type RoomUpdate struct {
	RoomID   string `json:"roomId"`
	PlayerID int    `json:"playerId"`
}

// Room owns one match: seat-to-session mapping, match bookkeeping and the
// engine holding the live round.
//
// Lock ordering: the engine's lock is taken before the room's. The engine's
// broadcast callback runs under the engine lock and takes r.mu; therefore
// no Room method may call into the engine while holding r.mu.
type Room struct {
	ID string

	mu           sync.Mutex
	phase        Phase
	settings     MatchSettings
	currentRound int
	totalScores  map[int]int
	seats        map[int]Session
	names        map[int]string

	engine *game.Engine
	log    *zap.Logger
}

func newRoom(id string, clock clockwork.Clock, timings game.Timings, log *zap.Logger) *Room {
	r := &Room{
		ID:           id,
		phase:        PhaseSetup,
		settings:     MatchSettings{NumberOfRounds: 1, NumberOfPlayers: 2},
		currentRound: 1,
		totalScores:  map[int]int{game.Seat1: 0, game.Seat2: 0},
		seats:        map[int]Session{game.Seat1: nil, game.Seat2: nil},
		names:        make(map[int]string),
		log:          log.With(zap.String("room", id)),
	}
	r.engine = game.NewEngine(clock, timings, r.log)
	r.engine.SetBroadcast(r.pushRoundUpdate)
	r.engine.SetOnRoundComplete(r.completeRound)
	return r
}

// Engine exposes the round engine serving this room.
func (r *Room) Engine() *game.Engine {
	return r.engine
}

// Join claims the first free seat for the session. The first two distinct
// connections become seats 1 and 2; a third is rejected with ErrRoomFull.
func (r *Room) Join(playerName string, s Session) (int, error) {
	r.mu.Lock()
	seat := game.NoSeat
	for _, candidate := range []int{game.Seat1, game.Seat2} {
		if r.seats[candidate] == nil {
			seat = candidate
			break
		}
	}
	if seat == game.NoSeat {
		r.mu.Unlock()
		return game.NoSeat, ErrRoomFull
	}
	r.seats[seat] = s
	r.names[seat] = playerName
	if r.phase == PhaseSetup {
		r.phase = PhasePlaying
	}
	r.mu.Unlock()
	r.log.Info("seat claimed",
		zap.Int("seat", seat),
		zap.String("player_name", playerName),
	)
	return seat, nil
}

// SeatOf resolves the session's seat, or NoSeat.
func (r *Room) SeatOf(s Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for seat, sess := range r.seats {
		if sess == s {
			return seat
		}
	}
	return game.NoSeat
}

// dropSession clears the session's seat mapping but keeps the room and the
// round alive so a reconnect resumes play. Returns true if a seat was
// cleared.
func (r *Room) dropSession(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for seat, sess := range r.seats {
		if sess == s {
			r.seats[seat] = nil
			r.log.Info("seat released", zap.Int("seat", seat))
			return true
		}
	}
	return false
}

// StartMatch resets the match bookkeeping to the given settings and deals a
// fresh first round.
func (r *Room) StartMatch(settings MatchSettings) {
	r.mu.Lock()
	if settings.NumberOfRounds < 1 {
		settings.NumberOfRounds = 1
	}
	settings.NumberOfPlayers = 2
	r.settings = settings
	r.phase = PhasePlaying
	r.currentRound = 1
	r.totalScores = map[int]int{game.Seat1: 0, game.Seat2: 0}
	r.mu.Unlock()
	r.log.Info("match started", zap.Int("rounds", settings.NumberOfRounds))
	r.engine.Reset()
}

// ResetRound re-deals the current round in place. Timers outstanding
// against the old round die by token/deadline mismatch.
func (r *Room) ResetRound() {
	r.engine.Reset()
}

// BroadcastState re-pushes every seat's projection, e.g. after a re-deal.
func (r *Room) BroadcastState() {
	r.engine.BroadcastNow()
}

// SendStateTo pushes the current round to one seat only, e.g. the initial
// snapshot after a join. A join changes nothing the other seat can see, so
// no broadcast is needed.
func (r *Room) SendStateTo(seat int) {
	view := r.engine.View(seat)
	r.mu.Lock()
	sess := r.seats[seat]
	phase := r.phase
	match := r.matchInfoLocked()
	r.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Send("round_update", RoundUpdate{
		Phase: phase,
		Round: view,
		Match: match,
	})
}

// Snapshot returns the match bookkeeping for external reads.
func (r *Room) Snapshot() (Phase, MatchInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase, r.matchInfoLocked()
}

func (r *Room) matchInfoLocked() MatchInfo {
	scores := make(map[int]int, len(r.totalScores))
	for seat, v := range r.totalScores {
		scores[seat] = v
	}
	return MatchInfo{
		CurrentRound: r.currentRound,
		TotalScores:  scores,
		Settings:     r.settings,
	}
}

// pushRoundUpdate is the engine's broadcast sink: one projection per
// connected seat. Runs under the engine lock.
func (r *Room) pushRoundUpdate(rs *game.RoundState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	phase := r.phase
	match := r.matchInfoLocked()
	for seat, sess := range r.seats {
		if sess == nil {
			continue
		}
		sess.Send("round_update", RoundUpdate{
			Phase: phase,
			Round: game.FilterFor(rs, seat),
			Match: match,
		})
	}
}

// completeRound settles an expired round: lower hand wins and contributes
// zero to its own total on a strict win, ties keep both raw values. Then
// either the next round is dealt or the match ends.
func (r *Room) completeRound(hands map[int][]game.Card) {
	v1 := game.HandValue(hands[game.Seat1])
	v2 := game.HandValue(hands[game.Seat2])
	add1, add2 := v1, v2
	switch {
	case v1 < v2:
		add1 = 0
	case v2 < v1:
		add2 = 0
	}

	r.mu.Lock()
	r.totalScores[game.Seat1] += add1
	r.totalScores[game.Seat2] += add2
	r.currentRound++
	matchOver := r.currentRound > r.settings.NumberOfRounds
	if matchOver {
		r.phase = PhaseOver
	}
	round := r.currentRound
	r.mu.Unlock()

	r.log.Info("round settled",
		zap.Int("seat1_hand", v1),
		zap.Int("seat2_hand", v2),
		zap.Int("seat1_added", add1),
		zap.Int("seat2_added", add2),
		zap.Bool("match_over", matchOver),
	)
	if matchOver {
		r.engine.BroadcastNow()
		return
	}
	r.log.Info("dealing next round", zap.Int("round", round))
	r.engine.Reset()
}
