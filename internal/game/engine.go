package game

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Timings holds the wall-clock budgets of the round. They are absolute
// deadlines computed from the clock, never counted ticks, so a slow tick
// cadence cannot stretch an effective duration.
type Timings struct {
	PowerDuration    time.Duration
	RevealDuration   time.Duration
	FinalStackWindow time.Duration
	SwapAnimDuration time.Duration
	SwapTickInterval time.Duration
}

// DefaultTimings are the budgets the original table rules use.
func DefaultTimings() Timings {
	return Timings{
		PowerDuration:    10 * time.Second,
		RevealDuration:   4 * time.Second,
		FinalStackWindow: 10 * time.Second,
		SwapAnimDuration: 360 * time.Millisecond,
		SwapTickInterval: 40 * time.Millisecond,
	}
}

// Stack rejections that warrant user-visible feedback. Every other
// precondition violation in this package is a silent no-op.
var (
	ErrNothingToStackOn = errors.New("no discard card to stack on")
	ErrLastCard         = errors.New("cannot stack your last card")
)

// Engine is the sole authority over one room's RoundState. All player
// actions and every deferred timer callback serialize on its mutex, so no
// two intents ever interleave mid-mutation. Rooms are independent.
//
// After every mutation the engine invokes broadcast while still holding the
// lock, so viewers observe mutations causally ordered. The callback must
// only read the state (via FilterFor) and must never call back into the
// engine.
type Engine struct {
	mu    sync.Mutex
	round *RoundState

	clock   clockwork.Clock
	timings Timings
	log     *zap.Logger

	// broadcast pushes per-viewer projections of the given state. Called
	// under the engine lock.
	broadcast func(*RoundState)
	// onRoundComplete receives copies of both final hands once the
	// final-stack window has expired. Called without the engine lock held;
	// it may call back into the engine (e.g. Reset).
	onRoundComplete func(hands map[int][]Card)
}

// NewEngine creates an engine with a freshly dealt round.
func NewEngine(clock clockwork.Clock, timings Timings, log *zap.Logger) *Engine {
	e := &Engine{
		clock:   clock,
		timings: timings,
		log:     log,
		round:   NewRoundState(),
	}
	return e
}

// SetBroadcast installs the projection sink. See the field doc for the
// locking contract.
func (e *Engine) SetBroadcast(fn func(*RoundState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcast = fn
}

// SetOnRoundComplete installs the round-completion hook.
func (e *Engine) SetOnRoundComplete(fn func(hands map[int][]Card)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRoundComplete = fn
}

// Reset replaces the round with a freshly dealt one. Outstanding timers from
// the previous round die by token/deadline mismatch against the new state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round = NewRoundState()
	e.log.Info("round dealt",
		zap.Int("deck", len(e.round.Deck)),
		zap.Int("current_player", e.round.CurrentPlayer),
	)
	e.broadcastLocked()
}

// View returns the projection of the current round for one viewer.
func (e *Engine) View(viewer int) *RoundView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FilterFor(e.round, viewer)
}

// BroadcastNow re-broadcasts the current state without mutating it, e.g.
// after a seat joins.
func (e *Engine) BroadcastNow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcastLocked()
}

func (e *Engine) broadcastLocked() {
	if e.broadcast != nil {
		e.broadcast(e.round)
	}
}

// Draw moves the top deck card into the current player's pending slot. The
// turn does not change.
func (e *Engine) Draw(playerID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.CurrentPlayer != playerID {
		return
	}
	if r.RoundOver || r.FinalStackExpired || r.animating() {
		return
	}
	if p.PendingCard != nil || p.SwappingWithDiscard {
		return
	}
	if len(r.Deck) == 0 {
		return
	}
	c := r.drawFromDeck()
	p.PendingCard = &c
	e.broadcastLocked()
}

// DiscardPending pushes the pending card onto the discard pile and ends the
// turn. Discarding a 6/7/8, 9/10/J or Q arms the matching power for the
// discarding seat instead of ending silently.
func (e *Engine) DiscardPending(playerID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.CurrentPlayer != playerID {
		return
	}
	if r.FinalStackExpired || r.animating() {
		return
	}
	if p.PendingCard == nil {
		return
	}
	discarded := *p.PendingCard
	p.PendingCard = nil
	r.DiscardPile = append(r.DiscardPile, discarded)
	r.HasStackedThisRound = false
	if kind := PowerForRank(discarded.Rank); kind != PowerNone {
		e.grantPower(playerID, kind, discarded.Rank)
	}
	e.endTurn(playerID)
	e.broadcastLocked()
}

// SwapWithHand exchanges the pending card with the hand card at index; the
// displaced hand card goes to the discard pile. Ends the turn.
func (e *Engine) SwapWithHand(playerID, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.CurrentPlayer != playerID {
		return
	}
	if r.RoundOver || r.FinalStackExpired || r.animating() {
		return
	}
	if p.PendingCard == nil || index < 0 || index >= len(p.Hand) {
		return
	}
	replaced := p.Hand[index]
	p.Hand[index] = *p.PendingCard
	p.PendingCard = nil
	r.DiscardPile = append(r.DiscardPile, replaced)
	r.HasStackedThisRound = false
	e.endTurn(playerID)
	e.broadcastLocked()
}

// SwapWithDiscard exchanges the hand card at index with the top of the
// discard pile in place, so the top-of-discard identity changes. Ends the
// turn.
func (e *Engine) SwapWithDiscard(playerID, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.CurrentPlayer != playerID {
		return
	}
	if r.RoundOver || r.FinalStackExpired || r.animating() {
		return
	}
	if len(r.DiscardPile) == 0 || index < 0 || index >= len(p.Hand) {
		return
	}
	top := r.discardTop()
	r.DiscardPile[len(r.DiscardPile)-1] = p.Hand[index]
	p.Hand[index] = top
	p.SwappingWithDiscard = false
	r.HasStackedThisRound = false
	e.endTurn(playerID)
	e.broadcastLocked()
}

// ToggleSwapWithDiscard flips the seat's discard-swap mode. Blocked while a
// pending card is held; drawing and discard-swap mode are mutually
// exclusive.
func (e *Engine) ToggleSwapWithDiscard(playerID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.CurrentPlayer != playerID {
		return
	}
	if r.RoundOver || r.FinalStackExpired || r.animating() {
		return
	}
	if p.PendingCard != nil {
		return
	}
	p.SwappingWithDiscard = !p.SwappingWithDiscard
	e.broadcastLocked()
}

// Stack sheds the hand card at index onto the discard pile if its rank
// matches the discard top, or draws up to two penalty cards if it does not.
// Stacking is a global interrupt: either seat may stack at any time,
// including during the final-stack window, and the turn never changes.
// Only one successful stack is allowed per discard event.
//
// The two returned errors are the user-facing rejections; every other
// precondition failure is a silent no-op.
func (e *Engine) Stack(playerID, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok {
		return nil
	}
	if r.FinalStackExpired || r.animating() {
		return nil
	}
	if len(r.DiscardPile) == 0 {
		return ErrNothingToStackOn
	}
	if len(p.Hand) <= 1 {
		return ErrLastCard
	}
	if r.HasStackedThisRound {
		return nil
	}
	if index < 0 || index >= len(p.Hand) {
		return nil
	}
	handCard := p.Hand[index]
	if handCard.Rank == r.discardTop().Rank {
		p.Hand = append(p.Hand[:index], p.Hand[index+1:]...)
		r.DiscardPile = append(r.DiscardPile, handCard)
		r.HasStackedThisRound = true
		e.log.Debug("stack matched",
			zap.Int("player", playerID),
			zap.String("rank", string(handCard.Rank)),
		)
	} else {
		for i := 0; i < 2 && len(r.Deck) > 0; i++ {
			p.Hand = append(p.Hand, r.drawFromDeck())
		}
	}
	e.broadcastLocked()
	return nil
}

// CallCactus records the caller. The turn does not change; the round ends
// when a seat other than the caller next completes a turn-ending action.
// Once a caller is set, further calls are ignored.
func (e *Engine) CallCactus(playerID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	if _, ok := r.Players[playerID]; !ok {
		return
	}
	if r.RoundOver || r.CactusCalledBy != NoSeat {
		return
	}
	r.CactusCalledBy = playerID
	e.log.Info("cactus called", zap.Int("player", playerID))
	e.broadcastLocked()
}

// endTurn flips the turn pointer and resolves the Cactus consequence: the
// round is forced over the first time a seat other than the caller finishes
// a turn-ending action. The caller's own turn completing keeps the round
// alive for one more ply.
func (e *Engine) endTurn(finisher int) {
	r := e.round
	if r.RoundOver {
		return
	}
	r.CurrentPlayer = opponentOf(r.CurrentPlayer)
	if r.CactusCalledBy != NoSeat && r.CactusCalledBy != finisher {
		r.RoundOver = true
		e.startFinalStackWindow()
	}
}

// startFinalStackWindow opens the fixed post-round stacking budget and
// schedules its expiry. Caller holds the lock.
func (e *Engine) startFinalStackWindow() {
	r := e.round
	deadline := e.clock.Now().Add(e.timings.FinalStackWindow)
	r.FinalStackExpiresAt = deadline
	r.FinalStackExpired = false
	e.log.Info("final stack window open", zap.Time("expires_at", deadline))
	e.clock.AfterFunc(e.timings.FinalStackWindow, func() {
		e.expireFinalStackWindow(deadline)
	})
}

// expireFinalStackWindow closes the window scheduled for the given deadline.
// A reset or re-deal leaves a stale deadline behind, in which case this
// fires as a no-op.
func (e *Engine) expireFinalStackWindow(deadline time.Time) {
	e.mu.Lock()
	r := e.round
	if r.FinalStackExpired || !r.FinalStackExpiresAt.Equal(deadline) {
		e.mu.Unlock()
		return
	}
	r.FinalStackExpired = true
	e.log.Info("final stack window expired")
	e.broadcastLocked()
	hands := map[int][]Card{
		Seat1: append([]Card(nil), r.Players[Seat1].Hand...),
		Seat2: append([]Card(nil), r.Players[Seat2].Hand...),
	}
	done := e.onRoundComplete
	e.mu.Unlock()
	if done != nil {
		done(hands)
	}
}
