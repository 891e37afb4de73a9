package game

import (
	"fmt"
	"maps"
	rand "math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/lox/holdemtables/poker"
)

// Config holds the fixed rules of a table.
type Config struct {
	Name       string
	Blinds     []int64 // small to big
	MinPlayers int
	MaxPlayers int
	Seats      int
	ChipUnit   int64
	Rake       float64 // recorded, never deducted
	MinBuyIn   int64
	MaxBuyIn   int64
}

// Validate checks the rules are internally consistent.
func (c Config) Validate() error {
	switch {
	case len(c.Blinds) == 0:
		return fmt.Errorf("at least one blind is required")
	case c.ChipUnit <= 0:
		return fmt.Errorf("chip unit must be positive")
	case c.MinPlayers < 2 || c.MinPlayers < len(c.Blinds):
		return fmt.Errorf("min players %d too small for %d blinds", c.MinPlayers, len(c.Blinds))
	case c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("max players %d below min players %d", c.MaxPlayers, c.MinPlayers)
	case c.Seats < c.MaxPlayers:
		return fmt.Errorf("%d seats cannot hold %d players", c.Seats, c.MaxPlayers)
	case c.MaxBuyIn < c.MinBuyIn:
		return fmt.Errorf("max buy-in %d below min buy-in %d", c.MaxBuyIn, c.MinBuyIn)
	}

	prev := int64(0)
	for i, b := range c.Blinds {
		if b <= 0 || b < prev || b%c.ChipUnit != 0 {
			return fmt.Errorf("blind %d (%d) must be positive, ascending and a multiple of %d", i, b, c.ChipUnit)
		}
		prev = b
	}
	if c.MinBuyIn < prev {
		return fmt.Errorf("min buy-in %d below big blind %d", c.MinBuyIn, prev)
	}
	return nil
}

// Option configures a Table during creation.
type Option func(*Table)

// WithIDGenerator replaces the uuid generator used for every entity the
// table creates.
func WithIDGenerator(fn func() string) Option {
	return func(t *Table) {
		t.newID = fn
	}
}

// Table is the aggregate for one table: seats, players and the hand in
// progress. Round is nil while the table waits for players.
type Table struct {
	ID         string
	Name       string
	Blinds     []int64
	MinPlayers int
	MaxPlayers int
	ChipUnit   int64
	Rake       float64
	MinBuyIn   int64
	MaxBuyIn   int64
	Players    map[string]*Player // by player id
	Positions  []TablePosition    // indexed by Position
	Round      *Round

	newID func() string
}

// NewTable creates an empty table with cfg.Seats inactive seats.
func NewTable(id string, cfg Config, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		ID:         id,
		Name:       cfg.Name,
		Blinds:     slices.Clone(cfg.Blinds),
		MinPlayers: cfg.MinPlayers,
		MaxPlayers: cfg.MaxPlayers,
		ChipUnit:   cfg.ChipUnit,
		Rake:       cfg.Rake,
		MinBuyIn:   cfg.MinBuyIn,
		MaxBuyIn:   cfg.MaxBuyIn,
		Players:    make(map[string]*Player),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}

	t.Positions = make([]TablePosition, cfg.Seats)
	for i := range t.Positions {
		t.Positions[i] = TablePosition{ID: t.newID(), Position: i}
	}
	return t, nil
}

// RestoreTable rebuilds a waiting table from previously committed records.
func RestoreTable(id string, cfg Config, players []Player, positions []TablePosition, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(positions) != cfg.Seats {
		return nil, newError(CodeInvalidAction, id, "%d positions for %d seats", len(positions), cfg.Seats)
	}

	t, err := NewTable(id, cfg, opts...)
	if err != nil {
		return nil, err
	}
	for _, tp := range positions {
		if tp.Position < 0 || tp.Position >= len(t.Positions) {
			return nil, newError(CodeInvalidAction, tp.ID, "position %d out of range", tp.Position)
		}
		t.Positions[tp.Position] = tp
	}
	for _, p := range players {
		t.Players[p.ID] = &p
	}
	return t, nil
}

// BigBlind is the largest forced bet and the minimum raise.
func (t *Table) BigBlind() int64 {
	return t.Blinds[len(t.Blinds)-1]
}

// PlayerByUser returns the player seated for the user.
func (t *Table) PlayerByUser(userID string) (*Player, bool) {
	for _, p := range t.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

// Position returns the seat with the given id.
func (t *Table) Position(id string) (*TablePosition, bool) {
	for i := range t.Positions {
		if t.Positions[i].ID == id {
			return &t.Positions[i], true
		}
	}
	return nil, false
}

// eligible reports whether the seat can be dealt into the next hand.
func (t *Table) eligible(tp TablePosition) bool {
	if !tp.IsActive || tp.PlayerID == "" {
		return false
	}
	p, ok := t.Players[tp.PlayerID]
	return ok && p.Stack >= t.BigBlind()
}

// EligiblePlayers counts seated players who can cover the big blind.
func (t *Table) EligiblePlayers() int {
	n := 0
	for _, tp := range t.Positions {
		if t.eligible(tp) {
			n++
		}
	}
	return n
}

// IsReadyToStart returns true if no hand is running and enough players can
// be dealt in.
func (t *Table) IsReadyToStart() bool {
	if t.Round != nil {
		return false
	}
	n := t.EligiblePlayers()
	return n >= t.MinPlayers && n <= t.MaxPlayers
}

// Join seats a player and activates the seat. The player's stack is the
// buy-in.
func (t *Table) Join(player Player, positionID string) (*Player, TablePosition, error) {
	if _, ok := t.PlayerByUser(player.UserID); ok {
		return nil, TablePosition{}, withTable(newError(CodeAlreadySeated, player.UserID, "user already seated"), t.ID)
	}
	tp, ok := t.Position(positionID)
	if !ok {
		return nil, TablePosition{}, withTable(newError(CodeEntityNotFound, positionID, "unknown position"), t.ID)
	}
	if !tp.Available() {
		return nil, TablePosition{}, withTable(newError(CodePositionUnavailable, positionID, "seat %d is taken", tp.Position), t.ID)
	}
	if len(t.Players) >= t.MaxPlayers {
		return nil, TablePosition{}, withTable(newError(CodePositionUnavailable, positionID, "table is full"), t.ID)
	}
	if player.Stack < t.MinBuyIn || player.Stack > t.MaxBuyIn || player.Stack%t.ChipUnit != 0 {
		return nil, TablePosition{}, withTable(newError(CodeInvalidBuyIn, player.UserID,
			"buy-in %d outside [%d, %d] or not a multiple of %d", player.Stack, t.MinBuyIn, t.MaxBuyIn, t.ChipUnit), t.ID)
	}

	if player.ID == "" {
		player.ID = t.newID()
	}
	p := &player
	t.Players[p.ID] = p
	tp.IsActive = true
	tp.PlayerID = p.ID
	return p, *tp, nil
}

// Leave frees the user's seat and returns the departing player, whose stack
// is the cash-out. Players dealt into the running hand must wait for it to
// end.
func (t *Table) Leave(userID string) (Player, TablePosition, error) {
	p, ok := t.PlayerByUser(userID)
	if !ok {
		return Player{}, TablePosition{}, withTable(newError(CodeEntityNotFound, userID, "user not seated"), t.ID)
	}
	if t.Round != nil {
		if _, dealt := t.Round.PlayerFor(p.ID); dealt {
			return Player{}, TablePosition{}, withTable(newError(CodePlayerInHand, p.ID, "hand %s in progress", t.Round.ID), t.ID)
		}
	}

	var freed TablePosition
	for i := range t.Positions {
		if t.Positions[i].PlayerID == p.ID {
			// The dealer flag stays so the button keeps moving from here.
			t.Positions[i].IsActive = false
			t.Positions[i].PlayerID = ""
			freed = t.Positions[i]
		}
	}
	delete(t.Players, p.ID)
	return *p, freed, nil
}

// DealerChange records a button move.
type DealerChange struct {
	PreviousID string // empty when the table had no dealer
	Dealer     TablePosition
}

func (t *Table) dealerPosition() (TablePosition, bool) {
	for _, tp := range t.Positions {
		if tp.IsDealer {
			return tp, true
		}
	}
	return TablePosition{}, false
}

// RotateDealer moves the button to the next seat clockwise that can be dealt
// in, or to a random such seat when there is no dealer yet. When nobody can
// cover the big blind it falls back to any active seat.
func (t *Table) RotateDealer(rng *rand.Rand) (DealerChange, error) {
	candidate := t.eligible
	if t.EligiblePlayers() == 0 {
		candidate = func(tp TablePosition) bool { return tp.IsActive }
	}
	var seats []int
	for i, tp := range t.Positions {
		if candidate(tp) {
			seats = append(seats, i)
		}
	}
	if len(seats) == 0 {
		return DealerChange{}, withTable(newError(CodeNoActivePositions, t.ID, "no active seats"), t.ID)
	}

	next := -1
	prev, hasDealer := t.dealerPosition()
	if hasDealer {
		n := len(t.Positions)
		for i := 1; i <= n; i++ {
			idx := (prev.Position + i) % n
			if candidate(t.Positions[idx]) {
				next = idx
				break
			}
		}
	} else {
		pick := rand.IntN
		if rng != nil {
			pick = rng.IntN
		}
		next = seats[pick(len(seats))]
	}

	var change DealerChange
	if hasDealer {
		change.PreviousID = prev.ID
		t.Positions[prev.Position].IsDealer = false
	}
	t.Positions[next].IsDealer = true
	change.Dealer = t.Positions[next]
	return change, nil
}

// actingOrder lists the eligible seats starting left of the dealer and
// ending with the dealer.
func (t *Table) actingOrder(dealer int) []TablePosition {
	n := len(t.Positions)
	order := make([]TablePosition, 0, n)
	for i := 1; i <= n; i++ {
		tp := t.Positions[(dealer+i)%n]
		if t.eligible(tp) {
			order = append(order, tp)
		}
	}
	return order
}

// RoundStart describes a newly dealt hand.
type RoundStart struct {
	Round  *Round
	Dealer DealerChange
	Blinds []Action
	Stacks map[string]int64 // blind posters' stacks after posting, by player id
}

// StartRound moves the button, deals a hand and takes the blinds.
func (t *Table) StartRound(rng *rand.Rand) (*RoundStart, error) {
	if t.Round != nil {
		return nil, withTable(newError(CodeRoundInProgress, t.Round.ID, "hand already running"), t.ID)
	}
	if !t.IsReadyToStart() {
		return nil, withTable(newError(CodeNotReady, t.ID, "%d eligible players, need %d to %d",
			t.EligiblePlayers(), t.MinPlayers, t.MaxPlayers), t.ID)
	}

	change, err := t.RotateDealer(rng)
	if err != nil {
		return nil, err
	}
	round, err := NewRound(t, rng)
	if err != nil {
		return nil, err
	}

	preflop := round.ActiveBettingRound()
	start := &RoundStart{
		Round:  round,
		Dealer: change,
		Blinds: slices.Clone(preflop.Actions),
		Stacks: make(map[string]int64),
	}
	for _, a := range start.Blinds {
		p, err := t.playerFor(round, preflop, a.BettingRoundPlayerID)
		if err != nil {
			return nil, err
		}
		if err := p.Deduct(a.Amount); err != nil {
			return nil, withTable(err, t.ID)
		}
		start.Stacks[p.ID] = p.Stack
	}

	t.Round = round
	return start, nil
}

func (t *Table) playerFor(round *Round, br *BettingRound, brpID string) (*Player, error) {
	brp, ok := br.Player(brpID)
	if !ok {
		return nil, withTable(newError(CodeEntityNotFound, brpID, "unknown betting round player"), t.ID)
	}
	rp, ok := round.Player(brp.RoundPlayerID)
	if !ok {
		return nil, withTable(newError(CodeEntityNotFound, brp.RoundPlayerID, "unknown round player"), t.ID)
	}
	p, ok := t.Players[rp.PlayerID]
	if !ok {
		return nil, withTable(newError(CodeEntityNotFound, rp.PlayerID, "unknown player"), t.ID)
	}
	return p, nil
}

// Outcome is everything one accepted action changed.
type Outcome struct {
	TableID         string
	Round           *Round
	BettingRound    *BettingRound // the street acted on
	Actor           BettingRoundPlayer
	PlayerID        string
	UserID          string
	Actions         []Action
	Committed       int64
	Stack           int64 // actor's stack after the action
	Pot             int64
	NextActiveID    string
	StreetFinished  bool
	NewBettingRound *BettingRound
	Dealt           []poker.Card
	Result          *RoundResult
	Stacks          map[string]int64 // stacks after payout, by player id
}

// HandEnded returns true if the action finished the hand.
func (o *Outcome) HandEnded() bool {
	return o.Result != nil
}

// Act applies an action for the betting round player on turn. Act mutates
// the table even when it fails, so callers act on a Clone and keep it only
// once the outcome is stored.
func (t *Table) Act(bettingRoundPlayerID string, intents []Intent) (*Outcome, error) {
	if t.Round == nil || t.Round.Finished {
		return nil, withTable(newError(CodeNoActiveRound, t.ID, "no hand in progress"), t.ID)
	}
	round := t.Round
	br := round.ActiveBettingRound()
	if _, ok := br.Player(bettingRoundPlayerID); !ok {
		return nil, withTable(newError(CodeNotActivePlayer, bettingRoundPlayerID, "not in the %s betting round", br.Street), t.ID)
	}
	player, err := t.playerFor(round, br, bettingRoundPlayerID)
	if err != nil {
		return nil, err
	}

	result, err := br.HandlePlayerAction(bettingRoundPlayerID, intents, t.BigBlind())
	if err != nil {
		return nil, withTable(err, t.ID)
	}
	if err := t.checkStakes(round, br, bettingRoundPlayerID, player, result); err != nil {
		return nil, withTable(err, t.ID)
	}

	if err := player.Deduct(result.Committed); err != nil {
		return nil, withTable(err, t.ID)
	}
	if err := round.AddToPot(result.Committed); err != nil {
		return nil, withTable(err, t.ID)
	}

	actor, _ := br.Player(bettingRoundPlayerID)
	out := &Outcome{
		TableID:      t.ID,
		Round:        round,
		BettingRound: br,
		Actor:        actor,
		PlayerID:     player.ID,
		UserID:       player.UserID,
		Actions:      result.Actions,
		Committed:    result.Committed,
		Stack:        player.Stack,
	}

	switch {
	case len(br.ActivePlayers()) == 1:
		res, err := round.AwardToLastPlayer()
		if err != nil {
			return nil, withTable(err, t.ID)
		}
		out.StreetFinished = true
		t.payout(out, res)

	default:
		if next, ok := br.RotateActivePlayer(); ok {
			out.NextActiveID = next
			break
		}
		out.StreetFinished = true

		dealtBefore := len(round.CommunityCards)
		nbr, res, err := round.ProceedToNextBettingRound()
		if err != nil {
			return nil, withTable(err, t.ID)
		}
		if res != nil {
			t.payout(out, res)
			break
		}
		out.NewBettingRound = nbr
		out.NextActiveID = nbr.ActiveID
		out.Dealt = slices.Clone(round.CommunityCards[dealtBefore:])
	}

	out.Pot = round.Pot
	return out, nil
}

// checkStakes enforces table stakes. Nobody commits more than they hold and
// a raise may not ask any opponent for more than they can still pay, so a
// hand never needs a side pot.
func (t *Table) checkStakes(round *Round, br *BettingRound, actorID string, actor *Player, result ActionResult) error {
	if result.Committed > actor.Stack {
		return newError(CodeInsufficientStack, actor.ID, "stack %d cannot cover %d", actor.Stack, result.Committed)
	}
	for _, a := range result.Actions {
		if a.Amount%t.ChipUnit == 0 {
			continue
		}
		if a.Type == Raise {
			return newError(CodeInvalidRaiseAmount, actorID, "raise %d is not a multiple of %d", a.Amount, t.ChipUnit)
		}
		return newError(CodeInvalidCallAmount, actorID, "%s %d is not a multiple of %d", a.Type, a.Amount, t.ChipUnit)
	}
	if !result.Raised {
		return nil
	}

	for _, brp := range br.ActivePlayers() {
		if brp.ID == actorID {
			continue
		}
		p, err := t.playerFor(round, br, brp.ID)
		if err != nil {
			return err
		}
		if owed := br.AmountToCall(brp.ID); owed > p.Stack {
			return newError(CodeInvalidRaiseAmount, actorID, "raise asks %s for %d, stack is %d", p.Username, owed, p.Stack)
		}
	}
	return nil
}

func (t *Table) payout(out *Outcome, res *RoundResult) {
	out.Result = res
	out.Stacks = make(map[string]int64, len(res.Awards))
	for _, a := range res.Awards {
		if p, ok := t.Players[a.PlayerID]; ok {
			p.Credit(a.Amount)
			out.Stacks[p.ID] = p.Stack
			if p.ID == out.PlayerID {
				out.Stack = p.Stack
			}
		}
	}
	t.Round = nil
}

// AmountOwed returns what the betting round player must put in to continue.
func (t *Table) AmountOwed(bettingRoundPlayerID string) (int64, error) {
	if t.Round == nil {
		return 0, withTable(newError(CodeNoActiveRound, t.ID, "no hand in progress"), t.ID)
	}
	br := t.Round.ActiveBettingRound()
	if _, ok := br.Player(bettingRoundPlayerID); !ok {
		return 0, withTable(newError(CodeEntityNotFound, bettingRoundPlayerID, "unknown betting round player"), t.ID)
	}
	return br.AmountToCall(bettingRoundPlayerID), nil
}

// Config returns the table's rules.
func (t *Table) Config() Config {
	return Config{
		Name:       t.Name,
		Blinds:     slices.Clone(t.Blinds),
		MinPlayers: t.MinPlayers,
		MaxPlayers: t.MaxPlayers,
		Seats:      len(t.Positions),
		ChipUnit:   t.ChipUnit,
		Rake:       t.Rake,
		MinBuyIn:   t.MinBuyIn,
		MaxBuyIn:   t.MaxBuyIn,
	}
}

// Clone returns a deep copy that can be mutated independently.
func (t *Table) Clone() *Table {
	c := *t
	c.Blinds = slices.Clone(t.Blinds)
	c.Positions = slices.Clone(t.Positions)
	c.Players = maps.Clone(t.Players)
	for id, p := range c.Players {
		cp := *p
		c.Players[id] = &cp
	}
	if t.Round != nil {
		c.Round = t.Round.Clone()
	}
	return &c
}
