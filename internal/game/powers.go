package game

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// grantPower arms a power on the seat and schedules its token-guarded
// expiry. Granting always supersedes whatever grant was active before; the
// superseded grant's timer dies on token mismatch. Caller holds the lock.
func (e *Engine) grantPower(playerID int, kind PowerKind, source Rank) {
	p := e.round.Players[playerID]
	token := uuid.New()
	p.ActivePower = kind
	p.ActivePowerToken = token
	p.ActivePowerExpiresAt = e.clock.Now().Add(e.timings.PowerDuration)
	p.ActivePowerLabel = source
	e.log.Info("power granted",
		zap.Int("player", playerID),
		zap.String("power", string(kind)),
		zap.String("source_rank", string(source)),
	)
	e.clock.AfterFunc(e.timings.PowerDuration, func() {
		e.expirePower(playerID, token)
	})
}

// expirePower clears the grant identified by token. If the seat's current
// token differs — the grant was consumed, superseded or the round was
// re-dealt — the timer fires as a no-op.
func (e *Engine) expirePower(playerID int, token uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.round.Players[playerID]
	if !ok || p.ActivePowerToken != token {
		return
	}
	e.log.Info("power expired",
		zap.Int("player", playerID),
		zap.String("power", string(p.ActivePower)),
	)
	p.clearPower()
	e.broadcastLocked()
}

// powerUsable re-validates a grant at consumption time: the token must be
// present and the deadline not yet reached. An action arriving after the
// logical expiry is rejected even if the deferred cleanup has not fired.
func (e *Engine) powerUsable(p *PlayerState, kind PowerKind) bool {
	if p.ActivePower != kind || p.ActivePowerToken == uuid.Nil {
		return false
	}
	return e.clock.Now().Before(p.ActivePowerExpiresAt)
}

// ActivateSelfPeek reveals one of the caller's own cards to the caller for
// the reveal duration and consumes the Self-Peek power.
func (e *Engine) ActivateSelfPeek(playerID, cardID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.FinalStackExpired {
		return
	}
	if !e.powerUsable(p, PowerSelfPeek) || !handHasCard(p.Hand, cardID) {
		return
	}
	p.clearPower()
	e.startReveal(playerID, playerID, cardID)
	e.broadcastLocked()
}

// ActivateOpponentPeek reveals one of the target's cards to the activator
// for the reveal duration and consumes the Opponent-Peek power.
func (e *Engine) ActivateOpponentPeek(playerID, targetPlayerID, cardID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.round
	p, ok := r.Players[playerID]
	if !ok || r.FinalStackExpired {
		return
	}
	target, ok := r.Players[targetPlayerID]
	if !ok {
		return
	}
	if !e.powerUsable(p, PowerOpponentPeek) || !handHasCard(target.Hand, cardID) {
		return
	}
	p.clearPower()
	e.startReveal(targetPlayerID, playerID, cardID)
	e.broadcastLocked()
}

// startReveal sets the reveal triple on the owning seat and schedules the
// deadline-guarded clear. Caller holds the lock.
func (e *Engine) startReveal(ownerID, revealedBy, cardID int) {
	owner := e.round.Players[ownerID]
	deadline := e.clock.Now().Add(e.timings.RevealDuration)
	owner.RevealedCardID = cardID
	owner.RevealedBy = revealedBy
	owner.CardRevealExpiresAt = deadline
	e.log.Info("card revealed",
		zap.Int("owner", ownerID),
		zap.Int("revealed_by", revealedBy),
		zap.Int("card_id", cardID),
	)
	e.clock.AfterFunc(e.timings.RevealDuration, func() {
		e.expireReveal(ownerID, deadline)
	})
}

// expireReveal clears the reveal scheduled for the given deadline. A newer
// reveal or a manual close leaves a different deadline behind and turns the
// stale timer into a no-op.
func (e *Engine) expireReveal(ownerID int, deadline time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.round.Players[ownerID]
	if !ok || !p.CardRevealExpiresAt.Equal(deadline) {
		return
	}
	p.clearReveal()
	e.broadcastLocked()
}

// CloseReveal manually clears the seat's reveal ahead of its deadline.
// Idempotent.
func (e *Engine) CloseReveal(playerID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.round.Players[playerID]
	if !ok {
		return
	}
	p.clearReveal()
	e.broadcastLocked()
}

func handHasCard(hand []Card, cardID int) bool {
	for _, c := range hand {
		if c.ID == cardID {
			return true
		}
	}
	return false
}
