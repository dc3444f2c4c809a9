package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapAnySelectRequiresGrant(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)

	e.SwapAnySelect(Seat1, 0, r.Players[Seat1].Hand[0].ID)

	withRound(e, func(r *RoundState) {
		assert.Nil(t, r.SwapFirstCard)
	})
}

func TestSwapAnySelectAndCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	first := r.Players[Seat1].Hand[1]

	grant(e, Seat1, PowerSwapAny, "Q")

	e.SwapAnySelect(Seat1, 1, first.ID)
	withRound(e, func(r *RoundState) {
		require.NotNil(t, r.SwapFirstCard)
		assert.Equal(t, Seat1, r.SwapFirstCard.PlayerID)
		assert.Equal(t, 1, r.SwapFirstCard.CardIndex)
		assert.Nil(t, r.SwapAnimation)
	})

	// Re-selecting the same card cancels.
	e.SwapAnySelect(Seat1, 1, first.ID)
	withRound(e, func(r *RoundState) {
		assert.Nil(t, r.SwapFirstCard)
	})
}

func TestSwapAnyCommitsAtMidpoint(t *testing.T) {
	e, clock := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	a := r.Players[Seat1].Hand[0]
	b := r.Players[Seat2].Hand[2]

	grant(e, Seat2, PowerSwapAny, "Q")

	e.SwapAnySelect(Seat1, 0, a.ID)
	e.SwapAnySelect(Seat2, 2, b.ID)

	withRound(e, func(r *RoundState) {
		require.NotNil(t, r.SwapAnimation)
		assert.False(t, r.SwapAnimation.Swapped)
	})

	// Before the midpoint nothing has moved.
	clock.Advance(DefaultTimings().SwapAnimDuration / 4)
	e.stepSwapAnimation()
	withRound(e, func(r *RoundState) {
		assert.False(t, r.SwapAnimation.Swapped)
		assert.Equal(t, a.ID, r.Players[Seat1].Hand[0].ID)
	})

	// At the midpoint the cards cross, exactly once, and the grant is gone.
	clock.Advance(DefaultTimings().SwapAnimDuration / 4)
	e.stepSwapAnimation()
	withRound(e, func(r *RoundState) {
		require.NotNil(t, r.SwapAnimation)
		assert.True(t, r.SwapAnimation.Swapped)
		assert.Equal(t, b.ID, r.Players[Seat1].Hand[0].ID)
		assert.Equal(t, a.ID, r.Players[Seat2].Hand[2].ID)
		assert.Equal(t, PowerNone, r.Players[Seat2].ActivePower)
	})

	// A later tick must not swap back.
	e.stepSwapAnimation()
	withRound(e, func(r *RoundState) {
		assert.Equal(t, b.ID, r.Players[Seat1].Hand[0].ID)
	})

	// Completion clears the animation and the selection.
	clock.Advance(DefaultTimings().SwapAnimDuration / 2)
	finished := e.stepSwapAnimation()
	assert.True(t, finished)
	withRound(e, func(r *RoundState) {
		assert.Nil(t, r.SwapAnimation)
		assert.Nil(t, r.SwapFirstCard)
	})
}

func TestSwapAnimationBlocksActions(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	a := r.Players[Seat1].Hand[0]
	b := r.Players[Seat2].Hand[0]

	grant(e, Seat1, PowerSwapAny, "Q")
	e.SwapAnySelect(Seat1, 0, a.ID)
	e.SwapAnySelect(Seat2, 0, b.ID)

	withRound(e, func(r *RoundState) {
		require.NotNil(t, r.SwapAnimation)
	})

	e.Draw(Seat1)
	require.NoError(t, e.Stack(Seat2, 0))
	e.CallCactus(Seat1)

	withRound(e, func(r *RoundState) {
		assert.Nil(t, r.Players[Seat1].PendingCard)
		assert.Len(t, r.Players[Seat2].Hand, 4)
		// Calling cactus is not a card mutation and stays allowed.
		assert.Equal(t, Seat1, r.CactusCalledBy)
	})
}

func TestSafeSwapStaleSelection(t *testing.T) {
	e, clock := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	a := r.Players[Seat1].Hand[0]
	b := r.Players[Seat2].Hand[0]

	grant(e, Seat1, PowerSwapAny, "Q")
	e.SwapAnySelect(Seat1, 0, a.ID)
	e.SwapAnySelect(Seat2, 0, b.ID)

	// The selected slot changes identity under the animation.
	replacement := testCard(t, "3", SuitDiamonds)
	withRound(e, func(r *RoundState) {
		r.Players[Seat1].Hand[0] = replacement
	})

	clock.Advance(DefaultTimings().SwapAnimDuration)
	e.stepSwapAnimation()

	withRound(e, func(r *RoundState) {
		assert.Equal(t, replacement.ID, r.Players[Seat1].Hand[0].ID)
		assert.Equal(t, b.ID, r.Players[Seat2].Hand[0].ID)
	})
}

func TestSwapAnySelectBlockedAfterWindowExpiry(t *testing.T) {
	e, _ := newTestEngine(t)
	r := fixtureRound(t)
	r.FinalStackExpired = true
	setRound(e, r)

	grant(e, Seat1, PowerSwapAny, "Q")
	e.SwapAnySelect(Seat1, 0, r.Players[Seat1].Hand[0].ID)

	withRound(e, func(r *RoundState) {
		assert.Nil(t, r.SwapFirstCard)
	})
}

func TestSwapTickerFinishes(t *testing.T) {
	e, clock := newTestEngine(t)
	r := fixtureRound(t)
	setRound(e, r)
	a := r.Players[Seat1].Hand[0]
	b := r.Players[Seat2].Hand[0]

	grant(e, Seat1, PowerSwapAny, "Q")
	e.SwapAnySelect(Seat1, 0, a.ID)
	e.SwapAnySelect(Seat2, 0, b.ID)

	// Drive the ticker through the whole animation.
	timings := DefaultTimings()
	for elapsed := time.Duration(0); elapsed <= timings.SwapAnimDuration; elapsed += timings.SwapTickInterval {
		clock.Advance(timings.SwapTickInterval)
	}

	require.Eventually(t, func() bool {
		var done bool
		withRound(e, func(r *RoundState) {
			done = r.SwapAnimation == nil
		})
		return done
	}, time.Second, 10*time.Millisecond)

	withRound(e, func(r *RoundState) {
		assert.Equal(t, b.ID, r.Players[Seat1].Hand[0].ID)
		assert.Equal(t, a.ID, r.Players[Seat2].Hand[0].ID)
	})
}
