package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grant arms a power on the seat the way a triggering discard would.
func grant(e *Engine, playerID int, kind PowerKind, source Rank) {
	e.mu.Lock()
	e.grantPower(playerID, kind, source)
	e.mu.Unlock()
}

func TestPowerExpires(t *testing.T) {
	e, clock := newTestEngine(t)
	setRound(e, fixtureRound(t))

	grant(e, Seat1, PowerSelfPeek, "7")
	withRound(e, func(r *RoundState) {
		require.Equal(t, PowerSelfPeek, r.Players[Seat1].ActivePower)
	})

	clock.Advance(DefaultTimings().PowerDuration)

	require.Eventually(t, func() bool {
		var kind PowerKind
		withRound(e, func(r *RoundState) {
			kind = r.Players[Seat1].ActivePower
		})
		return kind == PowerNone
	}, time.Second, 10*time.Millisecond)
}

func TestPowerRegrantSurvivesStaleTimer(t *testing.T) {
	e, clock := newTestEngine(t)
	setRound(e, fixtureRound(t))
	d := DefaultTimings().PowerDuration

	grant(e, Seat1, PowerSelfPeek, "7")
	var firstToken uuid.UUID
	withRound(e, func(r *RoundState) {
		firstToken = r.Players[Seat1].ActivePowerToken
	})

	clock.Advance(d / 2)
	grant(e, Seat1, PowerOpponentPeek, "9")
	withRound(e, func(r *RoundState) {
		assert.NotEqual(t, firstToken, r.Players[Seat1].ActivePowerToken)
	})

	// The first grant's timer fires now but its token no longer matches.
	clock.Advance(d / 2)
	require.Never(t, func() bool {
		var kind PowerKind
		withRound(e, func(r *RoundState) {
			kind = r.Players[Seat1].ActivePower
		})
		return kind == PowerNone
	}, 200*time.Millisecond, 20*time.Millisecond)

	// The second grant still dies at its own deadline.
	clock.Advance(d / 2)
	require.Eventually(t, func() bool {
		var kind PowerKind
		withRound(e, func(r *RoundState) {
			kind = r.Players[Seat1].ActivePower
		})
		return kind == PowerNone
	}, time.Second, 10*time.Millisecond)
}

func TestSelfPeek(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	target := r.Players[Seat1].Hand[0]

	grant(e, Seat1, PowerSelfPeek, "6")
	e.ActivateSelfPeek(Seat1, target.ID)

	withRound(e, func(r *RoundState) {
		p := r.Players[Seat1]
		assert.Equal(t, target.ID, p.RevealedCardID)
		assert.Equal(t, Seat1, p.RevealedBy)
		assert.False(t, p.CardRevealExpiresAt.IsZero())
		assert.Equal(t, PowerNone, p.ActivePower, "activation consumes the power")
	})
}

func TestSelfPeekWrongCard(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	opponentCard := r.Players[Seat2].Hand[0]

	grant(e, Seat1, PowerSelfPeek, "6")
	e.ActivateSelfPeek(Seat1, opponentCard.ID)

	withRound(e, func(r *RoundState) {
		p := r.Players[Seat1]
		assert.Equal(t, NoCard, p.RevealedCardID)
		assert.Equal(t, PowerSelfPeek, p.ActivePower, "failed activation keeps the power")
	})
}

func TestOpponentPeek(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	target := r.Players[Seat2].Hand[3]

	grant(e, Seat1, PowerOpponentPeek, "J")
	e.ActivateOpponentPeek(Seat1, Seat2, target.ID)

	withRound(e, func(r *RoundState) {
		// The reveal lives on the target seat, attributed to the activator.
		p2 := r.Players[Seat2]
		assert.Equal(t, target.ID, p2.RevealedCardID)
		assert.Equal(t, Seat1, p2.RevealedBy)
		assert.Equal(t, PowerNone, r.Players[Seat1].ActivePower)
	})
}

func TestActivateWithWrongPowerKind(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	target := r.Players[Seat2].Hand[0]

	grant(e, Seat1, PowerSelfPeek, "6")
	e.ActivateOpponentPeek(Seat1, Seat2, target.ID)

	withRound(e, func(r *RoundState) {
		assert.Equal(t, NoCard, r.Players[Seat2].RevealedCardID)
		assert.Equal(t, PowerSelfPeek, r.Players[Seat1].ActivePower)
	})
}

func TestActivateAfterDeadline(t *testing.T) {
	e, clock := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	target := r.Players[Seat1].Hand[0]

	grant(e, Seat1, PowerSelfPeek, "6")
	// Move past the logical deadline without relying on the cleanup timer
	// having run.
	withRound(e, func(r *RoundState) {
		r.Players[Seat1].ActivePowerExpiresAt = clock.Now().Add(-time.Millisecond)
	})

	e.ActivateSelfPeek(Seat1, target.ID)

	withRound(e, func(r *RoundState) {
		assert.Equal(t, NoCard, r.Players[Seat1].RevealedCardID)
	})
}

func TestRevealExpires(t *testing.T) {
	e, clock := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	target := r.Players[Seat1].Hand[0]

	grant(e, Seat1, PowerSelfPeek, "8")
	e.ActivateSelfPeek(Seat1, target.ID)

	clock.Advance(DefaultTimings().RevealDuration)

	require.Eventually(t, func() bool {
		var id int
		withRound(e, func(r *RoundState) {
			id = r.Players[Seat1].RevealedCardID
		})
		return id == NoCard
	}, time.Second, 10*time.Millisecond)
}

func TestCloseRevealIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	target := r.Players[Seat1].Hand[0]

	grant(e, Seat1, PowerSelfPeek, "8")
	e.ActivateSelfPeek(Seat1, target.ID)

	e.CloseReveal(Seat1)
	e.CloseReveal(Seat1)

	withRound(e, func(r *RoundState) {
		p := r.Players[Seat1]
		assert.Equal(t, NoCard, p.RevealedCardID)
		assert.Equal(t, NoSeat, p.RevealedBy)
		assert.True(t, p.CardRevealExpiresAt.IsZero())
	})
}

func TestCloseRevealDefusesExpiryTimer(t *testing.T) {
	e, clock := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)

	grant(e, Seat1, PowerSelfPeek, "8")
	e.ActivateSelfPeek(Seat1, r.Players[Seat1].Hand[0].ID)
	e.CloseReveal(Seat1)

	// Start a second reveal, then let the first reveal's timer fire. Its
	// captured deadline no longer matches, so the new reveal survives.
	grant(e, Seat1, PowerSelfPeek, "6")
	clock.Advance(time.Second)
	e.ActivateSelfPeek(Seat1, r.Players[Seat1].Hand[1].ID)
	clock.Advance(DefaultTimings().RevealDuration - time.Second)

	require.Never(t, func() bool {
		var id int
		withRound(e, func(r *RoundState) {
			id = r.Players[Seat1].RevealedCardID
		})
		return id == NoCard
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestGrantSupersedes(t *testing.T) {
	e, _ := newTestEngine(t)
	setRound(e, fixtureRound(t))

	grant(e, Seat1, PowerSelfPeek, "6")
	grant(e, Seat1, PowerSwapAny, "Q")

	withRound(e, func(r *RoundState) {
		p := r.Players[Seat1]
		assert.Equal(t, PowerSwapAny, p.ActivePower, "a seat holds at most one power")
		assert.Equal(t, Rank("Q"), p.ActivePowerLabel)
	})
}
