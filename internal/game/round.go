package game

import (
	rand "math/rand/v2"
	"slices"

	"github.com/lox/holdemtables/poker"
)

// cardsPerStreet is how many community cards are dealt to open each street.
var cardsPerStreet = [...]int{Preflop: 0, Flop: 3, Turn: 1, River: 1}

// Award is one winner's share of the pot.
type Award struct {
	RoundPlayerID string
	PlayerID      string
	Amount        int64
	HandName      string
	Rank          poker.HandRank
	BestCards     []poker.Card
}

// RoundResult describes how a hand ended.
type RoundResult struct {
	RoundID  string
	Pot      int64
	Showdown bool
	Awards   []Award
}

// Round is one hand, from the shuffle to the payout. Players are held in
// acting order: first seat left of the button through to the button.
type Round struct {
	ID               string
	TableID          string
	Pot              int64
	Finished         bool
	CommunityCards   []poker.Card
	Players          []RoundPlayer
	BettingRounds    []*BettingRound
	DealerPositionID string
	Result           *RoundResult

	chipUnit int64
	deck     *poker.Deck
	newID    func() string
}

// NewRound deals a hand at the table. The dealer must already be set. Blinds
// are seeded into the preflop street but stacks are left to the caller.
func NewRound(t *Table, rng *rand.Rand) (*Round, error) {
	dealer, ok := t.dealerPosition()
	if !ok {
		return nil, withTable(newError(CodeNoDealer, t.ID, "no dealer seat"), t.ID)
	}

	order := t.actingOrder(dealer.Position)
	if len(order) < 2 {
		return nil, withTable(newError(CodeNotReady, t.ID, "%d players eligible", len(order)), t.ID)
	}

	r := &Round{
		ID:               t.newID(),
		TableID:          t.ID,
		DealerPositionID: dealer.ID,
		chipUnit:         t.ChipUnit,
		deck:             poker.NewDeck(rng),
		newID:            t.newID,
	}
	r.deck.Shuffle()

	for _, seat := range order {
		p := t.Players[seat.PlayerID]
		cards, err := r.deck.DrawN(2)
		if err != nil {
			return nil, err
		}
		r.Players = append(r.Players, RoundPlayer{
			ID:           t.newID(),
			PlayerID:     p.ID,
			Position:     seat.Position,
			InitialStack: p.Stack,
			HoleCards:    [2]poker.Card{cards[0], cards[1]},
		})
	}

	preflop := r.openStreet(Preflop, r.Players, len(t.Blinds))
	for _, a := range preflop.SeedBlinds(t.Blinds) {
		r.Pot += a.Amount
	}
	return r, nil
}

func (r *Round) openStreet(street Street, players []RoundPlayer, first int) *BettingRound {
	brps := make([]BettingRoundPlayer, 0, len(players))
	for _, rp := range players {
		brps = append(brps, BettingRoundPlayer{
			ID:            r.newID(),
			RoundPlayerID: rp.ID,
			Position:      rp.Position,
		})
	}
	br := NewBettingRound(r.newID(), r.ID, street, brps, first%len(brps), r.newID)
	r.BettingRounds = append(r.BettingRounds, br)
	return br
}

// ActiveBettingRound returns the current street, finished or not.
func (r *Round) ActiveBettingRound() *BettingRound {
	if len(r.BettingRounds) == 0 {
		return nil
	}
	return r.BettingRounds[len(r.BettingRounds)-1]
}

// Player returns the round player with the given id.
func (r *Round) Player(id string) (*RoundPlayer, bool) {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i], true
		}
	}
	return nil, false
}

// PlayerFor returns the round player dealt in for a table player.
func (r *Round) PlayerFor(playerID string) (*RoundPlayer, bool) {
	for i := range r.Players {
		if r.Players[i].PlayerID == playerID {
			return &r.Players[i], true
		}
	}
	return nil, false
}

// AddToPot commits chips to the pot.
func (r *Round) AddToPot(amount int64) error {
	if amount < 0 {
		return newError(CodeInvalidAction, r.ID, "pot cannot shrink by %d", -amount)
	}
	r.Pot += amount
	return nil
}

// ProceedToNextBettingRound deals the next street once the current one is
// finished. After the river it runs the showdown and returns the result.
func (r *Round) ProceedToNextBettingRound() (*BettingRound, *RoundResult, error) {
	if r.Finished {
		return nil, nil, newError(CodeRoundFinished, r.ID, "hand is over")
	}
	current := r.ActiveBettingRound()
	if !current.Finished {
		return nil, nil, newError(CodeInvalidAction, current.ID, "%s betting is still open", current.Street)
	}
	if len(current.ActivePlayers()) < 2 {
		return nil, nil, newError(CodeInvalidAction, current.ID, "fewer than two players remain")
	}

	if current.Street == River {
		result, err := r.Showdown()
		return nil, result, err
	}

	next := current.Street + 1
	cards, err := r.deck.DrawN(cardsPerStreet[next])
	if err != nil {
		return nil, nil, err
	}
	r.CommunityCards = append(r.CommunityCards, cards...)

	remaining := make([]RoundPlayer, 0, len(r.Players))
	for _, brp := range current.ActivePlayers() {
		rp, _ := r.Player(brp.RoundPlayerID)
		remaining = append(remaining, *rp)
	}
	return r.openStreet(next, remaining, 0), nil, nil
}

// Showdown evaluates every remaining hand and splits the pot between the
// best. Ties share in chip units and the odd chips go to the tied winner
// earliest in acting order.
func (r *Round) Showdown() (*RoundResult, error) {
	if r.Finished {
		return nil, newError(CodeRoundFinished, r.ID, "hand is over")
	}
	if len(r.CommunityCards) != 5 {
		return nil, newError(CodeInvalidAction, r.ID, "showdown with %d community cards", len(r.CommunityCards))
	}

	var (
		winners []Award
		best    = poker.HandRank(-1)
	)
	for _, brp := range r.ActiveBettingRound().ActivePlayers() {
		rp, _ := r.Player(brp.RoundPlayerID)
		seven := append(slices.Clone(rp.HoleCards[:]), r.CommunityCards...)
		hand, err := poker.FindBestHand(seven)
		if err != nil {
			return nil, err
		}
		rp.HandName = hand.Name()

		award := Award{
			RoundPlayerID: rp.ID,
			PlayerID:      rp.PlayerID,
			HandName:      hand.Name(),
			Rank:          hand.Rank,
			BestCards:     hand.Cards,
		}
		switch {
		case hand.Rank > best:
			best = hand.Rank
			winners = []Award{award}
		case hand.Rank == best:
			winners = append(winners, award)
		}
	}

	r.split(winners)
	return r.finish(winners, true), nil
}

// AwardToLastPlayer ends the hand when everyone else has folded.
func (r *Round) AwardToLastPlayer() (*RoundResult, error) {
	if r.Finished {
		return nil, newError(CodeRoundFinished, r.ID, "hand is over")
	}
	active := r.ActiveBettingRound().ActivePlayers()
	if len(active) != 1 {
		return nil, newError(CodeInvalidAction, r.ID, "%d players remain", len(active))
	}

	rp, _ := r.Player(active[0].RoundPlayerID)
	winners := []Award{{RoundPlayerID: rp.ID, PlayerID: rp.PlayerID, Amount: r.Pot}}
	return r.finish(winners, false), nil
}

// split divides the pot between winners, who arrive in acting order.
func (r *Round) split(winners []Award) {
	unit := max(r.chipUnit, 1)
	n := int64(len(winners))
	share := r.Pot / n / unit * unit
	for i := range winners {
		winners[i].Amount = share
	}
	winners[0].Amount += r.Pot - share*n
}

func (r *Round) finish(winners []Award, showdown bool) *RoundResult {
	for _, w := range winners {
		rp, _ := r.Player(w.RoundPlayerID)
		rp.IsWinner = true
		rp.Winnings = w.Amount
	}
	r.ActiveBettingRound().Finish()
	r.Finished = true
	r.Result = &RoundResult{
		RoundID:  r.ID,
		Pot:      r.Pot,
		Showdown: showdown,
		Awards:   winners,
	}
	return r.Result
}

// Clone returns a deep copy. The clone draws from its own copy of the deck.
func (r *Round) Clone() *Round {
	c := *r
	c.CommunityCards = slices.Clone(r.CommunityCards)
	c.Players = slices.Clone(r.Players)
	c.BettingRounds = make([]*BettingRound, len(r.BettingRounds))
	for i, br := range r.BettingRounds {
		c.BettingRounds[i] = br.Clone()
	}
	if r.Result != nil {
		res := *r.Result
		res.Awards = slices.Clone(r.Result.Awards)
		c.Result = &res
	}
	c.deck = r.deck.Clone()
	return &c
}
