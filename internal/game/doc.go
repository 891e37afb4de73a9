// Package game implements the Texas Hold'em table state machine.
//
// The aggregate is Table, which owns the seats, the players and the Round in
// progress. A Round deals one hand and holds a BettingRound per street; the
// BettingRound keeps the append-only action log from which every contribution
// and amount to call is derived.
//
// # Basic Usage
//
//	t, _ := game.NewTable("", game.Config{
//	    Blinds: []int64{10, 20}, MinPlayers: 2, MaxPlayers: 6, Seats: 6,
//	    ChipUnit: 10, MinBuyIn: 400, MaxBuyIn: 2000,
//	})
//	t.Join(game.Player{UserID: "alice", Stack: 1000}, t.Positions[0].ID)
//	t.Join(game.Player{UserID: "bob", Stack: 1000}, t.Positions[1].ID)
//	start, _ := t.StartRound(rng)
//	out, _ := t.Act(start.Round.ActiveBettingRound().ActiveID,
//	    []game.Intent{{Type: game.Call, Amount: 10}})
//
// # Copy on Write
//
// Act and StartRound mutate the table they are called on. Callers that need
// to store a change before it becomes visible work on a Clone and swap it in
// once the Outcome has been committed.
//
// # Identities
//
// A user has a Player per table, a RoundPlayer per hand and a
// BettingRoundPlayer per street. Registry keeps the links between them in
// both directions.
package game
