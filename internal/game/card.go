package game

import "math/rand"

// Suit is one of the four French suits, stored as its glyph so the wire
// format matches what clients render directly.
type Suit string

const (
	SuitSpades   Suit = "♠"
	SuitHearts   Suit = "♥"
	SuitDiamonds Suit = "♦"
	SuitClubs    Suit = "♣"
)

var suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Rank is a card rank, "A" through "K". Numeric ranks keep their decimal
// string form ("2".."10").
type Rank string

var ranks = []Rank{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Color is derived from the suit and is the only identity information a
// masked card keeps.
type Color string

const (
	ColorRed   Color = "red"
	ColorBlack Color = "black"
)

// Card is an immutable card. ID is unique within a deck and stays stable as
// the card moves between deck, hands and the discard pile.
type Card struct {
	ID    int   `json:"id"`
	Rank  Rank  `json:"rank"`
	Suit  Suit  `json:"suit"`
	Color Color `json:"color"`
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// NewDeck returns the 52 unique cards in a fixed order, IDs 0..51.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	id := 0
	for _, suit := range suits {
		color := ColorBlack
		if suit == SuitHearts || suit == SuitDiamonds {
			color = ColorRed
		}
		for _, rank := range ranks {
			deck = append(deck, Card{ID: id, Rank: rank, Suit: suit, Color: color})
			id++
		}
	}
	return deck
}

// NewShuffledDeck returns a freshly shuffled deck. The top of the deck is the
// end of the slice.
func NewShuffledDeck() []Card {
	deck := NewDeck()
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
