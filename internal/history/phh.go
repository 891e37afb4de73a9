// Package history records finished hands in the Poker Hand History (PHH)
// TOML format.
package history

import (
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/poker"
)

// HandHistory is a single hand in PHH form. Players are numbered p1..pN in
// acting order, so p1 posts the small blind.
type HandHistory struct {
	Variant           string   `toml:"variant"`
	Table             string   `toml:"table,omitempty"`
	SeatCount         int      `toml:"seat_count,omitempty"`
	Seats             []int    `toml:"seats,omitempty"`
	Antes             []int64  `toml:"antes"`
	BlindsOrStraddles []int64  `toml:"blinds_or_straddles"`
	MinBet            int64    `toml:"min_bet"`
	StartingStacks    []int64  `toml:"starting_stacks"`
	FinishingStacks   []int64  `toml:"finishing_stacks,omitempty"`
	Winnings          []int64  `toml:"winnings,omitempty"`
	Actions           []string `toml:"actions"`
	Players           []string `toml:"players,omitempty"`
	HandID            string   `toml:"hand"`
	Time              string   `toml:"time,omitempty"`
	TimeZone          string   `toml:"time_zone,omitempty"`
	Day               int      `toml:"day,omitempty"`
	Month             int      `toml:"month,omitempty"`
	Year              int      `toml:"year,omitempty"`
}

// Encode writes the hand history as PHH TOML.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("history: hand is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// Decode reads a PHH TOML hand.
func Decode(r io.Reader) (*HandHistory, error) {
	var hand HandHistory
	if _, err := toml.NewDecoder(r).Decode(&hand); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &hand, nil
}

// FromRound converts a finished hand. t is the table after the payout; it
// supplies names and finishing stacks.
func FromRound(t *game.Table, round *game.Round, at time.Time) (*HandHistory, error) {
	if round.Result == nil {
		return nil, fmt.Errorf("history: hand %s has not finished", round.ID)
	}

	n := len(round.Players)
	at = at.UTC()
	hand := &HandHistory{
		Variant:           "NT",
		Table:             t.Name,
		SeatCount:         len(t.Positions),
		Seats:             make([]int, n),
		Antes:             make([]int64, n),
		BlindsOrStraddles: make([]int64, n),
		MinBet:            t.BigBlind(),
		StartingStacks:    make([]int64, n),
		FinishingStacks:   make([]int64, n),
		Winnings:          make([]int64, n),
		Players:           make([]string, n),
		HandID:            round.ID,
		Time:              at.Format(time.TimeOnly),
		TimeZone:          "UTC",
		Day:               at.Day(),
		Month:             int(at.Month()),
		Year:              at.Year(),
	}

	seat := make(map[string]int, n) // round player id -> index
	for i, rp := range round.Players {
		seat[rp.ID] = i
		hand.Seats[i] = rp.Position + 1
		hand.StartingStacks[i] = rp.InitialStack
		hand.Actions = append(hand.Actions, fmt.Sprintf("d dh p%d %s", i+1, cards(rp.HoleCards[:])))
		if p, ok := t.Players[rp.PlayerID]; ok {
			hand.Players[i] = p.Username
			hand.FinishingStacks[i] = p.Stack
		}
	}
	for _, award := range round.Result.Awards {
		hand.Winnings[seat[award.RoundPlayerID]] += award.Amount
	}

	dealt := 0
	for _, br := range round.BettingRounds {
		if br.Street != game.Preflop {
			count := streetCards[br.Street]
			hand.Actions = append(hand.Actions, "d db "+cards(round.CommunityCards[dealt:dealt+count]))
			dealt += count
		}
		hand.Actions = append(hand.Actions, streetActions(br, seat, hand.BlindsOrStraddles)...)
	}

	if round.Result.Showdown {
		last := round.ActiveBettingRound()
		for _, brp := range last.ActivePlayers() {
			i := seat[brp.RoundPlayerID]
			rp := round.Players[i]
			hand.Actions = append(hand.Actions, fmt.Sprintf("p%d sm %s", i+1, cards(rp.HoleCards[:])))
		}
	}
	return hand, nil
}

var streetCards = map[game.Street]int{game.Flop: 3, game.Turn: 1, game.River: 1}

// streetActions renders one street. Blinds are not actions in PHH; they are
// recorded in blinds. A raise is stored as a call plus the increment, which
// PHH writes as a single completion to the street total.
func streetActions(br *game.BettingRound, seat map[string]int, blinds []int64) []string {
	player := make(map[string]int, len(br.Players)) // betting round player id -> index
	for _, brp := range br.Players {
		player[brp.ID] = seat[brp.RoundPlayerID]
	}

	var out []string
	committed := make(map[string]int64, len(br.Players))
	for i, a := range br.Actions {
		p := player[a.BettingRoundPlayerID]
		committed[a.BettingRoundPlayerID] += a.Amount

		switch a.Type {
		case game.Blind:
			blinds[p] += a.Amount
		case game.Check:
			out = append(out, fmt.Sprintf("p%d cc", p+1))
		case game.Call:
			if i+1 < len(br.Actions) && br.Actions[i+1].Type == game.Raise &&
				br.Actions[i+1].BettingRoundPlayerID == a.BettingRoundPlayerID {
				continue
			}
			out = append(out, fmt.Sprintf("p%d cc", p+1))
		case game.Raise:
			out = append(out, fmt.Sprintf("p%d cbr %d", p+1, committed[a.BettingRoundPlayerID]))
		case game.Fold:
			out = append(out, fmt.Sprintf("p%d f", p+1))
		}
	}
	return out
}

func cards(cs []poker.Card) string {
	var s string
	for _, c := range cs {
		s += c.String()
	}
	return s
}
