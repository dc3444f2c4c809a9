package game

import "strconv"

// CardValue returns the point value of a single card. Aces are 1, numeric
// cards their face value, jacks and queens 10. Kings are 10 in the black
// suits and 0 in the red ones.
func CardValue(c Card) int {
	if v, err := strconv.Atoi(string(c.Rank)); err == nil {
		return v
	}
	switch c.Rank {
	case "A":
		return 1
	case "J", "Q":
		return 10
	case "K":
		if c.Color == ColorRed {
			return 0
		}
		return 10
	}
	return 0
}

// HandValue returns the total point value of a hand. Lower is better.
func HandValue(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += CardValue(c)
	}
	return total
}
