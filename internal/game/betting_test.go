package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// newStreet opens a street over players p0..pn-1 in acting order.
func newStreet(street Street, n, first int) *BettingRound {
	players := make([]BettingRoundPlayer, n)
	for i := range players {
		players[i] = BettingRoundPlayer{ID: fmt.Sprintf("p%d", i), RoundPlayerID: fmt.Sprintf("rp%d", i), Position: i}
	}
	return NewBettingRound("br", "round", street, players, first, seqIDs("action"))
}

// newPreflop seeds [10, 20] blinds for p0 and p1; the next seat acts first.
func newPreflop(n int) *BettingRound {
	br := newStreet(Preflop, n, 2%n)
	br.SeedBlinds([]int64{10, 20})
	return br
}

func TestSeedBlinds(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	require.Len(t, br.Actions, 2)
	assert.Equal(t, Blind, br.Actions[0].Type)
	assert.Equal(t, "p0", br.Actions[0].BettingRoundPlayerID)
	assert.Equal(t, int64(20), br.Actions[1].Amount)
	assert.Equal(t, []int{1, 2}, []int{br.Actions[0].Sequence, br.Actions[1].Sequence})

	// Posting a blind is not a turn.
	for _, p := range br.Players {
		assert.False(t, p.HasActed, p.ID)
	}
	assert.Equal(t, "p2", br.ActiveID)
}

func TestContributionFormula(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	assert.Equal(t, int64(20), br.RequiredContribution())
	assert.Equal(t, int64(10), br.Contribution("p0"))
	assert.Equal(t, int64(10), br.AmountToCall("p0"))
	assert.Equal(t, int64(0), br.AmountToCall("p1"))
	assert.Equal(t, int64(20), br.AmountToCall("p2"))

	_, err := br.HandlePlayerAction("p2", []Intent{{Type: Call, Amount: 20}, {Type: Raise, Amount: 40}}, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(60), br.RequiredContribution())
	assert.Equal(t, int64(50), br.AmountToCall("p0"))
	assert.Equal(t, int64(40), br.AmountToCall("p1"))
	assert.Equal(t, int64(0), br.AmountToCall("p2"))
}

func TestBlindsDoNotCountAfterPreflop(t *testing.T) {
	t.Parallel()

	br := newStreet(Flop, 2, 0)
	br.SeedBlinds([]int64{10, 20})
	assert.Equal(t, int64(0), br.RequiredContribution())
}

func TestCallAmountMustMatch(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	_, err := br.HandlePlayerAction("p2", []Intent{{Type: Call, Amount: 15}}, 20)
	require.ErrorIs(t, err, ErrInvalidCallAmount)
	assert.Len(t, br.Actions, 2)

	res, err := br.HandlePlayerAction("p2", []Intent{{Type: Call, Amount: 20}}, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Committed)
	assert.False(t, res.Raised)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, 3, res.Actions[0].Sequence)
}

func TestCheckRequiresNothingOwed(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	_, err := br.HandlePlayerAction("p2", []Intent{{Type: Check}}, 20)
	require.ErrorIs(t, err, ErrInvalidAction)

	flop := newStreet(Flop, 3, 0)
	_, err = flop.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.NoError(t, err)
}

func TestRaiseMinimum(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	_, err := br.HandlePlayerAction("p2", []Intent{{Type: Call, Amount: 20}, {Type: Raise, Amount: 10}}, 20)
	require.ErrorIs(t, err, ErrInvalidRaiseAmount)

	_, err = br.HandlePlayerAction("p2", []Intent{{Type: Call, Amount: 20}, {Type: Raise, Amount: 40}}, 20)
	require.NoError(t, err)
	br.RotateActivePlayer()

	// The last raise sets the bar.
	assert.Equal(t, int64(40), br.MinRaise(20))
	_, err = br.HandlePlayerAction("p0", []Intent{{Type: Call, Amount: 50}, {Type: Raise, Amount: 30}}, 20)
	require.ErrorIs(t, err, ErrInvalidRaiseAmount)
}

func TestRaiseReopensAction(t *testing.T) {
	t.Parallel()

	br := newStreet(Flop, 3, 0)
	for _, id := range []string{"p0", "p1"} {
		_, err := br.HandlePlayerAction(id, []Intent{{Type: Check}}, 20)
		require.NoError(t, err)
		br.RotateActivePlayer()
	}
	p0, _ := br.Player("p0")
	require.True(t, p0.HasActed)

	res, err := br.HandlePlayerAction("p2", []Intent{{Type: Call, Amount: 0}, {Type: Raise, Amount: 40}}, 20)
	require.NoError(t, err)
	assert.True(t, res.Raised)
	assert.Equal(t, int64(40), res.Committed)

	for _, p := range br.Players {
		assert.Equal(t, p.ID == "p2", p.HasActed, p.ID)
	}

	next, ok := br.RotateActivePlayer()
	require.True(t, ok)
	assert.Equal(t, "p0", next)
}

func TestCallDoesNotReopenAction(t *testing.T) {
	t.Parallel()

	br := newStreet(Flop, 3, 0)
	_, err := br.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.NoError(t, err)
	br.RotateActivePlayer()
	_, err = br.HandlePlayerAction("p1", []Intent{{Type: Call, Amount: 0}}, 20)
	require.NoError(t, err)

	p0, _ := br.Player("p0")
	assert.True(t, p0.HasActed)
}

func TestNotActivePlayer(t *testing.T) {
	t.Parallel()

	br := newStreet(Flop, 3, 0)
	_, err := br.HandlePlayerAction("p1", []Intent{{Type: Check}}, 20)
	require.ErrorIs(t, err, ErrNotActivePlayer)

	// No acting twice without the turn moving on.
	_, err = br.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.NoError(t, err)
	br.RotateActivePlayer()
	_, err = br.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.ErrorIs(t, err, ErrNotActivePlayer)
}

func TestActionShape(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		intents []Intent
	}{
		{"empty", nil},
		{"raise alone", []Intent{{Type: Raise, Amount: 40}}},
		{"blind", []Intent{{Type: Blind, Amount: 20}}},
		{"check then raise", []Intent{{Type: Check}, {Type: Raise, Amount: 40}}},
		{"raise then call", []Intent{{Type: Raise, Amount: 40}, {Type: Call}}},
		{"three actions", []Intent{{Type: Call}, {Type: Raise, Amount: 40}, {Type: Raise, Amount: 40}}},
		{"negative call", []Intent{{Type: Call, Amount: -10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := newStreet(Flop, 2, 0)
			_, err := br.HandlePlayerAction("p0", tt.intents, 20)
			require.ErrorIs(t, err, ErrInvalidAction)
			assert.Empty(t, br.Actions)
		})
	}
}

func TestFoldShortCircuits(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	res, err := br.HandlePlayerAction("p2", []Intent{{Type: Fold, Amount: 999}}, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Committed)
	assert.Equal(t, int64(0), res.Actions[0].Amount)

	p2, _ := br.Player("p2")
	assert.True(t, p2.HasFolded)
	assert.Len(t, br.ActivePlayers(), 2)
}

func TestRotateFinishesStreet(t *testing.T) {
	t.Parallel()

	br := newStreet(Turn, 2, 0)
	_, err := br.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.NoError(t, err)
	next, ok := br.RotateActivePlayer()
	require.True(t, ok)
	require.Equal(t, "p1", next)

	_, err = br.HandlePlayerAction("p1", []Intent{{Type: Check}}, 20)
	require.NoError(t, err)
	_, ok = br.RotateActivePlayer()
	assert.False(t, ok)
	assert.True(t, br.Finished)
	assert.Empty(t, br.ActiveID)

	_, err = br.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.ErrorIs(t, err, ErrRoundFinished)
}

func TestRotateSkipsFolded(t *testing.T) {
	t.Parallel()

	br := newStreet(Flop, 3, 0)
	br.Players[1].HasFolded = true
	_, err := br.HandlePlayerAction("p0", []Intent{{Type: Check}}, 20)
	require.NoError(t, err)

	next, ok := br.RotateActivePlayer()
	require.True(t, ok)
	assert.Equal(t, "p2", next)
}

func TestBettingRoundClone(t *testing.T) {
	t.Parallel()

	br := newPreflop(3)
	clone := br.Clone()
	_, err := clone.HandlePlayerAction("p2", []Intent{{Type: Fold}}, 20)
	require.NoError(t, err)

	assert.Len(t, br.Actions, 2)
	p2, _ := br.Player("p2")
	assert.False(t, p2.HasFolded)
}
