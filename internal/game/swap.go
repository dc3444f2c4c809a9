package game

import "go.uber.org/zap"

// SwapAnySelect drives the two-step swap-any selection. The first selection
// is recorded; re-selecting the same card cancels; a second, different
// selection starts the animated two-phase commit. Requires an unexpired
// Swap-Any grant on either seat. Either seat may select cards — the holder
// chooses which two cards cross, their owners included.
func (e *Engine) SwapAnySelect(playerID, cardIndex, cardID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	if _, ok := r.Players[playerID]; !ok {
		return
	}
	if r.FinalStackExpired || r.animating() {
		return
	}
	holder := e.swapAnyHolder()
	if holder == nil || !e.powerUsable(holder, PowerSwapAny) {
		return
	}
	sel := SwapSelection{PlayerID: playerID, CardIndex: cardIndex, CardID: cardID}
	if r.SwapFirstCard == nil {
		r.SwapFirstCard = &sel
		e.broadcastLocked()
		return
	}
	if r.SwapFirstCard.PlayerID == playerID && r.SwapFirstCard.CardIndex == cardIndex {
		r.SwapFirstCard = nil
		e.broadcastLocked()
		return
	}
	e.startSwapAnimation(*r.SwapFirstCard, sel)
}

// swapAnyHolder returns the seat currently holding Swap-Any, or nil.
// Caller holds the lock.
func (e *Engine) swapAnyHolder() *PlayerState {
	for _, seat := range []int{Seat1, Seat2} {
		if p := e.round.Players[seat]; p.ActivePower == PowerSwapAny {
			return p
		}
	}
	return nil
}

// startSwapAnimation opens the animation window. The record is installed
// immediately so the interrupt-exclusion holds from the first instant, not
// from the first tick. Caller holds the lock.
func (e *Engine) startSwapAnimation(from, to SwapSelection) {
	e.round.SwapAnimation = &SwapAnimation{
		From:     from,
		To:       to,
		Start:    e.clock.Now(),
		Duration: e.timings.SwapAnimDuration,
	}
	e.log.Info("swap animation started",
		zap.Int("from_player", from.PlayerID), zap.Int("from_index", from.CardIndex),
		zap.Int("to_player", to.PlayerID), zap.Int("to_index", to.CardIndex),
	)
	e.broadcastLocked()
	go e.runSwapTicker()
}

// runSwapTicker advances the animation on a fixed cadence until it
// completes. Progress is a pure function of elapsed time, so the cadence
// only affects how often viewers are refreshed, never the outcome.
func (e *Engine) runSwapTicker() {
	ticker := e.clock.NewTicker(e.timings.SwapTickInterval)
	defer ticker.Stop()
	for range ticker.Chan() {
		if e.stepSwapAnimation() {
			return
		}
	}
}

// stepSwapAnimation recomputes progress and applies the two stateful
// transitions: the midpoint commit (exactly once, latched by Swapped) and
// the completion cleanup. Returns true when the animation is finished or
// gone.
func (e *Engine) stepSwapAnimation() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	sa := r.SwapAnimation
	if sa == nil {
		return true
	}
	elapsed := e.clock.Now().Sub(sa.Start)
	progress := float64(elapsed) / float64(sa.Duration)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	sa.Progress = progress
	if progress >= 0.5 && !sa.Swapped {
		sa.Swapped = true
		sa.Done = true
		e.safeSwap(sa.From, sa.To)
	}
	finished := progress >= 1
	if finished {
		r.SwapAnimation = nil
		r.SwapFirstCard = nil
	}
	e.broadcastLocked()
	return finished
}

// safeSwap exchanges the two selected cards in place. Hands may have
// changed size since selection (a stack penalty draws cards mid-animation),
// so both seats, both indices and both card identities are re-validated;
// any violation makes the whole swap a no-op rather than corrupting state.
// Caller holds the lock.
func (e *Engine) safeSwap(from, to SwapSelection) {
	r := e.round
	pa, okA := r.Players[from.PlayerID]
	pb, okB := r.Players[to.PlayerID]
	if !okA || !okB {
		return
	}
	if from.CardIndex < 0 || from.CardIndex >= len(pa.Hand) {
		return
	}
	if to.CardIndex < 0 || to.CardIndex >= len(pb.Hand) {
		return
	}
	cardA := pa.Hand[from.CardIndex]
	cardB := pb.Hand[to.CardIndex]
	if cardA.ID != from.CardID || cardB.ID != to.CardID {
		return
	}
	pa.Hand[from.CardIndex] = cardB
	pb.Hand[to.CardIndex] = cardA
	// The grant is cleared from whichever seat holds it; holder and
	// selector are independent.
	for _, p := range r.Players {
		if p.ActivePower == PowerSwapAny {
			p.clearPower()
		}
	}
	e.log.Info("swap committed",
		zap.Int("card_a", cardA.ID),
		zap.Int("card_b", cardB.ID),
	)
}
