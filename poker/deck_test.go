package poker

import (
	"errors"
	rand "math/rand/v2"
	"slices"
	"testing"
)

func newTestRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestNewDeckOrder(t *testing.T) {
	t.Parallel()

	d := NewDeck(newTestRNG(1))
	if d.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Remaining())
	}

	cards := d.Cards()
	if cards[0] != NewCard(Two, Clubs) {
		t.Errorf("expected first card 2c, got %v", cards[0])
	}
	if cards[51] != NewCard(Ace, Spades) {
		t.Errorf("expected last card As, got %v", cards[51])
	}
}

func TestDeckShuffleIsPermutation(t *testing.T) {
	t.Parallel()

	d := NewDeck(newTestRNG(42))
	d.Shuffle()

	seen := make(map[Card]bool, 52)
	for _, c := range d.Cards() {
		if !c.Valid() {
			t.Fatalf("invalid card %v in deck", c)
		}
		if seen[c] {
			t.Fatalf("duplicate card %v after shuffle", c)
		}
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Fatalf("expected 52 distinct cards, got %d", len(seen))
	}
}

func TestDeckShuffleRarelyIdentity(t *testing.T) {
	t.Parallel()

	rng := newTestRNG(7)
	ordered := NewDeck(rng).Cards()

	identical := 0
	for range 1000 {
		d := NewDeck(rng)
		d.Shuffle()
		if slices.Equal(d.Cards(), ordered) {
			identical++
		}
	}
	// 1/52! per shuffle; anything above zero means the shuffle is broken.
	if identical > 0 {
		t.Errorf("shuffle returned the initial order %d times", identical)
	}
}

func TestDeckDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	a := NewDeck(newTestRNG(99))
	b := NewDeck(newTestRNG(99))
	a.Shuffle()
	b.Shuffle()
	if !slices.Equal(a.Cards(), b.Cards()) {
		t.Error("same seed produced different shuffles")
	}
}

func TestDeckDrawUntilEmpty(t *testing.T) {
	t.Parallel()

	d := NewDeck(newTestRNG(3))
	d.Shuffle()

	drawn := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		c, err := d.Draw()
		if err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		if drawn[c] {
			t.Fatalf("card %v drawn twice", c)
		}
		drawn[c] = true
	}

	if _, err := d.Draw(); !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("expected ErrEmptyDeck, got %v", err)
	}
}

func TestDeckDrawPopsFromEnd(t *testing.T) {
	t.Parallel()

	d := NewDeck(nil)
	c, err := d.Draw()
	if err != nil {
		t.Fatal(err)
	}
	if c != NewCard(Ace, Spades) {
		t.Errorf("expected As from unshuffled deck, got %v", c)
	}

	if _, err := d.DrawN(52); !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("expected ErrEmptyDeck drawing 52 from 51, got %v", err)
	}
	if d.Remaining() != 51 {
		t.Errorf("failed DrawN should not consume cards, %d remaining", d.Remaining())
	}
}

func TestDeckClone(t *testing.T) {
	t.Parallel()

	d := NewDeck(newTestRNG(5))
	d.Shuffle()
	clone := d.Clone()
	if _, err := clone.Draw(); err != nil {
		t.Fatal(err)
	}
	if d.Remaining() != 52 || clone.Remaining() != 51 {
		t.Errorf("clone shares state: original %d clone %d", d.Remaining(), clone.Remaining())
	}
}
