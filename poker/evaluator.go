package poker

import (
	"errors"
	"fmt"
	"slices"
)

// Category enumerates hand categories ordered from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// categoryBand separates categories; the largest tiebreak (five aces
// weighted base 15) stays below it.
const categoryBand = 1_000_000

// HandRank is the strength of a 5-card hand. Higher values are stronger and
// any two hands compare by plain integer comparison.
type HandRank int

// Category returns the category encoded in the rank.
func (r HandRank) Category() Category {
	return Category(r / categoryBand)
}

// String returns the category name.
func (r HandRank) String() string {
	return r.Category().String()
}

// ErrInvalidHandSize matches every *InvalidHandSizeError.
var ErrInvalidHandSize = errors.New("invalid hand size")

// InvalidHandSizeError reports a card count the evaluator cannot score.
type InvalidHandSizeError struct {
	Got  int
	Want int
}

func (e *InvalidHandSizeError) Error() string {
	return fmt.Sprintf("invalid hand size: got %d cards, want %d", e.Got, e.Want)
}

// Is makes errors.Is(err, ErrInvalidHandSize) hold.
func (e *InvalidHandSizeError) Is(target error) bool {
	return target == ErrInvalidHandSize
}

// BestHand is the strongest 5-card selection out of a larger set.
type BestHand struct {
	Cards []Card
	Rank  HandRank
}

// Name returns the category name of the hand.
func (b BestHand) Name() string {
	return b.Rank.String()
}

// EvaluateHand scores exactly five cards.
func EvaluateHand(cards []Card) (HandRank, error) {
	if len(cards) != 5 {
		return 0, &InvalidHandSizeError{Got: len(cards), Want: 5}
	}
	var hand [5]Card
	copy(hand[:], cards)
	return evaluate5(hand), nil
}

// FindBestHand scores all 21 five-card combinations of seven cards and
// returns the first one with the maximum rank.
func FindBestHand(cards []Card) (BestHand, error) {
	if len(cards) != 7 {
		return BestHand{}, &InvalidHandSizeError{Got: len(cards), Want: 7}
	}

	best := BestHand{Rank: -1}
	var combo [5]Card
	for a := 0; a < 3; a++ {
		for b := a + 1; b < 4; b++ {
			for c := b + 1; c < 5; c++ {
				for d := c + 1; d < 6; d++ {
					for e := d + 1; e < 7; e++ {
						combo = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						if rank := evaluate5(combo); rank > best.Rank {
							best = BestHand{Cards: slices.Clone(combo[:]), Rank: rank}
						}
					}
				}
			}
		}
	}
	return best, nil
}

func evaluate5(hand [5]Card) HandRank {
	slices.SortFunc(hand[:], func(a, b Card) int {
		return int(a.Rank) - int(b.Rank)
	})

	flush := true
	for _, c := range hand[1:] {
		if c.Suit != hand[0].Suit {
			flush = false
			break
		}
	}
	high, straight := straightHigh(hand)

	var counts [Ace + 1]int
	for _, c := range hand {
		counts[c.Rank]++
	}
	// Ranks ordered by group size then rank, both descending: the order in
	// which they decide ties.
	ordered := make([]Rank, 0, 5)
	shape := make([]int, 0, 5)
	for n := 4; n >= 1; n-- {
		for r := Ace; r >= Two; r-- {
			if counts[r] == n {
				ordered = append(ordered, r)
				shape = append(shape, n)
			}
		}
	}

	switch {
	case straight && flush && high == Ace:
		return band(RoyalFlush, high)
	case straight && flush:
		return band(StraightFlush, high)
	case shape[0] == 4:
		return band(FourOfAKind, ordered...)
	case shape[0] == 3 && shape[1] == 2:
		return band(FullHouse, ordered...)
	case flush:
		return band(Flush, ordered...)
	case straight:
		return band(Straight, high)
	case shape[0] == 3:
		return band(ThreeOfAKind, ordered...)
	case shape[0] == 2 && shape[1] == 2:
		return band(TwoPair, ordered...)
	case shape[0] == 2:
		return band(OnePair, ordered...)
	default:
		return band(HighCard, ordered...)
	}
}

// straightHigh expects cards sorted ascending. The wheel (A-2-3-4-5) is a
// five-high straight.
func straightHigh(hand [5]Card) (Rank, bool) {
	if hand[0].Rank == Two && hand[1].Rank == Three && hand[2].Rank == Four &&
		hand[3].Rank == Five && hand[4].Rank == Ace {
		return Five, true
	}
	for i := 1; i < 5; i++ {
		if hand[i].Rank != hand[i-1].Rank+1 {
			return 0, false
		}
	}
	return hand[4].Rank, true
}

func band(c Category, ranks ...Rank) HandRank {
	tiebreak := 0
	for _, r := range ranks {
		tiebreak = tiebreak*15 + int(r)
	}
	return HandRank(int(c)*categoryBand + tiebreak)
}
