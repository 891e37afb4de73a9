package store

import (
	"slices"
	"time"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/poker"
)

// GameRecord is a table with its seats and the players sitting in them.
type GameRecord struct {
	ID        string
	Config    game.Config
	Players   []game.Player
	Positions []game.TablePosition
	CreatedAt time.Time
}

// BettingRoundRecord is a street and the players in it.
type BettingRoundRecord struct {
	ID      string
	RoundID string
	Street  game.Street
	Players []game.BettingRoundPlayer
}

// RoundRecord is everything written when a hand is dealt: the round, its
// players, the preflop street with the blinds, the blind deductions and the
// button move.
type RoundRecord struct {
	TableID          string
	RoundID          string
	DealerPositionID string
	PreviousDealerID string
	Players          []game.RoundPlayer
	BettingRound     BettingRoundRecord
	Blinds           []game.Action
	StackDeltas      map[string]int64 // by player id
	Pot              int64
	StartedAt        time.Time
}

// AwardRecord credits a winner.
type AwardRecord struct {
	RoundPlayerID string
	PlayerID      string
	Amount        int64
	HandName      string
}

// RoundResultRecord closes a hand.
type RoundResultRecord struct {
	Showdown bool
	Awards   []AwardRecord
}

// ActionCommit is everything one accepted action writes.
type ActionCommit struct {
	TableID        string
	RoundID        string
	BettingRoundID string
	Actions        []game.Action
	StreetPlayers  []game.BettingRoundPlayer // flags after the action
	PlayerID       string
	StackDelta     int64
	Pot            int64

	// Set when the action closed the street.
	FinishBettingRound bool

	// Set when the next street was dealt.
	NewBettingRound *BettingRoundRecord
	CommunityCards  []poker.Card

	// Set when the hand ended.
	Result *RoundResultRecord
}

// NewGameRecord captures a freshly created table.
func NewGameRecord(t *game.Table, now time.Time) GameRecord {
	rec := GameRecord{
		ID:        t.ID,
		Config:    t.Config(),
		Positions: slices.Clone(t.Positions),
		CreatedAt: now,
	}
	for _, p := range t.Players {
		rec.Players = append(rec.Players, *p)
	}
	return rec
}

// NewRoundRecord captures a dealt hand.
func NewRoundRecord(start *game.RoundStart, before map[string]int64, now time.Time) RoundRecord {
	r := start.Round
	br := r.ActiveBettingRound()
	rec := RoundRecord{
		TableID:          r.TableID,
		RoundID:          r.ID,
		DealerPositionID: start.Dealer.Dealer.ID,
		PreviousDealerID: start.Dealer.PreviousID,
		Players:          slices.Clone(r.Players),
		BettingRound:     newBettingRoundRecord(br),
		Blinds:           slices.Clone(start.Blinds),
		StackDeltas:      make(map[string]int64, len(start.Stacks)),
		Pot:              r.Pot,
		StartedAt:        now,
	}
	for id, stack := range start.Stacks {
		rec.StackDeltas[id] = stack - before[id]
	}
	return rec
}

// NewActionCommit captures an action outcome.
func NewActionCommit(out *game.Outcome) ActionCommit {
	c := ActionCommit{
		TableID:            out.TableID,
		RoundID:            out.Round.ID,
		BettingRoundID:     out.BettingRound.ID,
		Actions:            slices.Clone(out.Actions),
		StreetPlayers:      slices.Clone(out.BettingRound.Players),
		PlayerID:           out.PlayerID,
		StackDelta:         -out.Committed,
		Pot:                out.Pot,
		FinishBettingRound: out.StreetFinished,
		CommunityCards:     slices.Clone(out.Dealt),
	}
	if out.NewBettingRound != nil {
		rec := newBettingRoundRecord(out.NewBettingRound)
		c.NewBettingRound = &rec
	}
	if out.Result != nil {
		res := &RoundResultRecord{Showdown: out.Result.Showdown}
		for _, a := range out.Result.Awards {
			res.Awards = append(res.Awards, AwardRecord{
				RoundPlayerID: a.RoundPlayerID,
				PlayerID:      a.PlayerID,
				Amount:        a.Amount,
				HandName:      a.HandName,
			})
		}
		c.Result = res
	}
	return c
}

func newBettingRoundRecord(br *game.BettingRound) BettingRoundRecord {
	return BettingRoundRecord{
		ID:      br.ID,
		RoundID: br.RoundID,
		Street:  br.Street,
		Players: slices.Clone(br.Players),
	}
}

// Stacks snapshots every player's stack by player id.
func Stacks(t *game.Table) map[string]int64 {
	out := make(map[string]int64, len(t.Players))
	for id, p := range t.Players {
		out[id] = p.Stack
	}
	return out
}
