package game

import "time"

// CardView is a card as one viewer sees it. A masked card carries only its
// identity and color; rank and suit are withheld.
type CardView struct {
	ID    int   `json:"id"`
	Rank  Rank  `json:"rank,omitempty"`
	Suit  Suit  `json:"suit,omitempty"`
	Color Color `json:"color"`
}

// PlayerView is one seat as projected for a viewer. Timestamps are unix
// milliseconds so clients compare them against their own clock.
type PlayerView struct {
	Hand                 []CardView `json:"hand"`
	PendingCard          *CardView  `json:"pendingCard,omitempty"`
	SwappingWithDiscard  bool       `json:"swappingWithDiscard"`
	ActivePower          PowerKind  `json:"activePower,omitempty"`
	ActivePowerExpiresAt int64      `json:"activePowerExpiresAt,omitempty"`
	ActivePowerLabel     Rank       `json:"activePowerLabel,omitempty"`
	RevealedCardID       *int       `json:"revealedCardId,omitempty"`
	RevealedBy           int        `json:"revealedBy,omitempty"`
	CardRevealExpiresAt  int64      `json:"cardRevealExpiresAt,omitempty"`
}

// SwapAnimationView mirrors the in-flight swap record.
type SwapAnimationView struct {
	From     SwapSelection `json:"from"`
	To       SwapSelection `json:"to"`
	Start    int64         `json:"start"`
	Duration int64         `json:"duration"`
	Progress float64       `json:"progress"`
	Done     bool          `json:"done"`
}

// RoundView is a per-viewer projection of a RoundState. The deck is
// projected as a count only; its contents are nobody's business until
// drawn.
type RoundView struct {
	DeckCount           int                `json:"deckCount"`
	DiscardPile         []CardView         `json:"discardPile"`
	Players             map[int]PlayerView `json:"players"`
	CurrentPlayer       int                `json:"currentPlayer"`
	HasStackedThisRound bool               `json:"hasStackedThisRound"`
	SwapFirstCard       *SwapSelection     `json:"swapFirstCard,omitempty"`
	SwapAnimation       *SwapAnimationView `json:"swapAnimation,omitempty"`
	CactusCalledBy      int                `json:"cactusCalledBy,omitempty"`
	RoundOver           bool               `json:"roundOver"`
	FinalStackExpiresAt int64              `json:"finalStackExpiresAt,omitempty"`
	FinalStackExpired   bool               `json:"finalStackExpired"`
}

// FilterFor projects the round for one viewer. The viewer's own seat passes
// through in full. The opponent's cards — hand and pending — are reduced to
// {id, color} unless a card is the opponent's revealed card and the viewer
// is the seat it was revealed to. Once the final-stack window has expired
// there is nothing left to hide and the projection is unmasked.
//
// FilterFor never mutates the RoundState and is re-derivable per viewer
// from the same snapshot.
func FilterFor(r *RoundState, viewer int) *RoundView {
	if r == nil {
		return nil
	}
	v := &RoundView{
		DeckCount:           len(r.Deck),
		DiscardPile:         fullCards(r.DiscardPile),
		Players:             make(map[int]PlayerView, len(r.Players)),
		CurrentPlayer:       r.CurrentPlayer,
		HasStackedThisRound: r.HasStackedThisRound,
		CactusCalledBy:      r.CactusCalledBy,
		RoundOver:           r.RoundOver,
		FinalStackExpiresAt: unixMilli(r.FinalStackExpiresAt),
		FinalStackExpired:   r.FinalStackExpired,
	}
	if r.SwapFirstCard != nil {
		sel := *r.SwapFirstCard
		v.SwapFirstCard = &sel
	}
	if sa := r.SwapAnimation; sa != nil {
		v.SwapAnimation = &SwapAnimationView{
			From:     sa.From,
			To:       sa.To,
			Start:    unixMilli(sa.Start),
			Duration: sa.Duration.Milliseconds(),
			Progress: sa.Progress,
			Done:     sa.Done,
		}
	}
	for seat, p := range r.Players {
		masked := seat != viewer && !r.FinalStackExpired
		v.Players[seat] = projectPlayer(p, viewer, masked)
	}
	return v
}

func projectPlayer(p *PlayerState, viewer int, masked bool) PlayerView {
	pv := PlayerView{
		SwappingWithDiscard:  p.SwappingWithDiscard,
		ActivePower:          p.ActivePower,
		ActivePowerExpiresAt: unixMilli(p.ActivePowerExpiresAt),
		ActivePowerLabel:     p.ActivePowerLabel,
		RevealedBy:           p.RevealedBy,
		CardRevealExpiresAt:  unixMilli(p.CardRevealExpiresAt),
	}
	if p.RevealedCardID != NoCard {
		id := p.RevealedCardID
		pv.RevealedCardID = &id
	}
	pv.Hand = make([]CardView, len(p.Hand))
	for i, c := range p.Hand {
		if masked && !(c.ID == p.RevealedCardID && p.RevealedBy == viewer) {
			pv.Hand[i] = maskedCard(c)
		} else {
			pv.Hand[i] = fullCard(c)
		}
	}
	if p.PendingCard != nil {
		var cv CardView
		if masked {
			cv = maskedCard(*p.PendingCard)
		} else {
			cv = fullCard(*p.PendingCard)
		}
		pv.PendingCard = &cv
	}
	return pv
}

func fullCard(c Card) CardView {
	return CardView{ID: c.ID, Rank: c.Rank, Suit: c.Suit, Color: c.Color}
}

func maskedCard(c Card) CardView {
	return CardView{ID: c.ID, Color: c.Color}
}

func fullCards(cards []Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = fullCard(c)
	}
	return out
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
