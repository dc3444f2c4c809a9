package game

import (
	"time"

	"github.com/google/uuid"
)

// Seats are fixed: a room always has exactly seat 1 and seat 2.
const (
	Seat1 = 1
	Seat2 = 2
)

// NoSeat marks "no seat" in fields that optionally name one.
const NoSeat = 0

// NoCard marks "no card" in fields that optionally hold a card ID.
const NoCard = -1

// HandSize is the number of cards dealt to each seat.
const HandSize = 4

// PowerKind identifies a timed special ability granted by discarding a
// pending card of a triggering rank.
type PowerKind string

const (
	PowerNone         PowerKind = ""
	PowerSelfPeek     PowerKind = "SELF_PEEK"
	PowerOpponentPeek PowerKind = "OPPONENT_PEEK"
	PowerSwapAny      PowerKind = "SWAP_ANY"
)

// PowerForRank maps a discarded rank to the power it grants, or PowerNone.
func PowerForRank(r Rank) PowerKind {
	switch r {
	case "6", "7", "8":
		return PowerSelfPeek
	case "9", "10", "J":
		return PowerOpponentPeek
	case "Q":
		return PowerSwapAny
	}
	return PowerNone
}

// PlayerState is one seat's slice of the round. ActivePowerToken guards the
// deferred expiry: a stale timer whose captured token no longer matches must
// not clear a newer grant.
type PlayerState struct {
	Hand                []Card
	PendingCard         *Card
	SwappingWithDiscard bool

	ActivePower          PowerKind
	ActivePowerToken     uuid.UUID
	ActivePowerExpiresAt time.Time
	ActivePowerLabel     Rank

	RevealedCardID      int
	RevealedBy          int
	CardRevealExpiresAt time.Time
}

func newPlayerState(hand []Card) *PlayerState {
	return &PlayerState{Hand: hand, RevealedCardID: NoCard}
}

// clearPower drops the seat's active power grant.
func (p *PlayerState) clearPower() {
	p.ActivePower = PowerNone
	p.ActivePowerToken = uuid.Nil
	p.ActivePowerExpiresAt = time.Time{}
	p.ActivePowerLabel = ""
}

// clearReveal drops the seat's temporary card reveal.
func (p *PlayerState) clearReveal() {
	p.RevealedCardID = NoCard
	p.RevealedBy = NoSeat
	p.CardRevealExpiresAt = time.Time{}
}

// SwapSelection designates one card for the swap-any exchange.
type SwapSelection struct {
	PlayerID  int `json:"playerId"`
	CardIndex int `json:"cardIndex"`
	CardID    int `json:"cardId"`
}

// SwapAnimation is the in-flight record of a swap-any exchange. The actual
// card exchange commits exactly once, at the first tick where Progress
// reaches 0.5; Swapped latches that commit.
type SwapAnimation struct {
	From     SwapSelection
	To       SwapSelection
	Start    time.Time
	Duration time.Duration
	Progress float64
	Swapped  bool
	Done     bool
}

// RoundState is the single source of truth for one round of play. It is
// exclusively owned by the engine serving its room; nothing else mutates it.
type RoundState struct {
	Deck        []Card // top of the deck is the end of the slice
	DiscardPile []Card // top of the pile is the end of the slice
	Players     map[int]*PlayerState

	CurrentPlayer       int
	HasStackedThisRound bool

	SwapFirstCard *SwapSelection
	SwapAnimation *SwapAnimation

	CactusCalledBy      int
	RoundOver           bool
	FinalStackExpiresAt time.Time
	FinalStackExpired   bool
}

// NewRoundState deals a fresh round: shuffled deck, four cards per seat, one
// card on the discard pile, seat 1 to act.
func NewRoundState() *RoundState {
	deck := NewShuffledDeck()
	take := func(n int) []Card {
		cut := len(deck) - n
		taken := append([]Card(nil), deck[cut:]...)
		deck = deck[:cut]
		return taken
	}
	r := &RoundState{
		Players: map[int]*PlayerState{
			Seat1: newPlayerState(take(HandSize)),
			Seat2: newPlayerState(take(HandSize)),
		},
		CurrentPlayer:  Seat1,
		CactusCalledBy: NoSeat,
	}
	r.DiscardPile = take(1)
	r.Deck = deck
	return r
}

// discardTop returns the top of the discard pile. Valid only when the pile
// is non-empty.
func (r *RoundState) discardTop() Card {
	return r.DiscardPile[len(r.DiscardPile)-1]
}

// drawFromDeck removes and returns the top deck card.
func (r *RoundState) drawFromDeck() Card {
	c := r.Deck[len(r.Deck)-1]
	r.Deck = r.Deck[:len(r.Deck)-1]
	return c
}

// animating reports whether a swap-any animation is in flight. While it is,
// every other mutating action in the room is refused.
func (r *RoundState) animating() bool {
	return r.SwapAnimation != nil
}

// opponentOf returns the other seat.
func opponentOf(seat int) int {
	if seat == Seat1 {
		return Seat2
	}
	return Seat1
}
