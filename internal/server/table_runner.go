package server

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/store"
)

// RunnerConfig holds the timing rules shared by every table runner.
type RunnerConfig struct {
	ActionTimeout time.Duration // zero disables the turn timer
	NextHandDelay time.Duration
	AutoStart     bool
	History       HandRecorder // optional
}

// HandRecorder keeps a copy of every finished hand.
type HandRecorder interface {
	RecordHand(t *game.Table, round *game.Round, at time.Time) error
}

// JoinRequest asks for a seat. An empty PositionID takes the first free seat.
type JoinRequest struct {
	UserID     string
	Username   string
	PositionID string
	BuyIn      int64
}

// Actor identifies who is acting, either by user or directly by betting
// round player.
type Actor struct {
	UserID               string
	BettingRoundPlayerID string
}

// TableRunner owns one table. Every mutation runs under its mutex, including
// the persistence call, and is applied to a clone that replaces the live
// table only after the store accepted it.
type TableRunner struct {
	mu       sync.Mutex
	table    *game.Table
	repo     store.Repository
	registry *game.Registry
	emitter  game.Emitter
	clock    quartz.Clock
	rng      *rand.Rand
	config   RunnerConfig
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	turnTimer *quartz.Timer
	turnToken uint64
	nextHand  *quartz.Timer
	stopped   bool
}

// NewTableRunner wraps a table that has already been stored.
func NewTableRunner(table *game.Table, repo store.Repository, registry *game.Registry, emitter game.Emitter,
	clock quartz.Clock, rng *rand.Rand, config RunnerConfig, logger *log.Logger,
) *TableRunner {
	ctx, cancel := context.WithCancel(context.Background())
	for _, p := range table.Players {
		registry.RegisterPlayer(table.ID, p.UserID, p.ID)
	}
	return &TableRunner{
		table:    table,
		repo:     repo,
		registry: registry,
		emitter:  emitter,
		clock:    clock,
		rng:      rng,
		config:   config,
		logger:   logger.WithPrefix("table").With("table", table.ID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ID returns the table id.
func (r *TableRunner) ID() string {
	return r.table.ID
}

// Table returns a copy of the current table state.
func (r *TableRunner) Table() *game.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Clone()
}

// Join seats a user and starts a hand if the table became ready.
func (r *TableRunner) Join(ctx context.Context, req JoinRequest) (game.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	positionID := req.PositionID
	if positionID == "" {
		for _, tp := range r.table.Positions {
			if tp.Available() {
				positionID = tp.ID
				break
			}
		}
	}

	next := r.table.Clone()
	p, tp, err := next.Join(game.Player{UserID: req.UserID, Username: req.Username, Stack: req.BuyIn}, positionID)
	if err != nil {
		return game.Player{}, err
	}
	if err := r.repo.SeatPlayer(ctx, next.ID, *p, tp); err != nil {
		return game.Player{}, fmt.Errorf("error storing seat: %w", err)
	}
	r.table = next
	r.registry.RegisterPlayer(next.ID, p.UserID, p.ID)

	r.logger.Info("Player joined", "user", p.UserID, "position", tp.Position, "stack", p.Stack)
	r.emitter.Broadcast(next.ID, game.PlayerJoined{
		TableID:    next.ID,
		UserID:     p.UserID,
		PlayerID:   p.ID,
		Username:   p.Username,
		PositionID: tp.ID,
		Position:   tp.Position,
		Stack:      p.Stack,
	})

	r.scheduleNextHand()
	return *p, nil
}

// Leave frees the user's seat. The returned player's stack is their cash-out.
func (r *TableRunner) Leave(ctx context.Context, userID string) (game.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.table.Clone()
	p, tp, err := next.Leave(userID)
	if err != nil {
		return game.Player{}, err
	}
	if err := r.repo.UnseatPlayer(ctx, next.ID, p.ID, tp); err != nil {
		return game.Player{}, fmt.Errorf("error storing departure: %w", err)
	}
	r.table = next
	r.registry.UnregisterPlayer(p.ID)

	r.logger.Info("Player left", "user", userID, "cash_out", p.Stack)
	r.emitter.Broadcast(next.ID, game.PlayerLeft{
		TableID:    next.ID,
		UserID:     userID,
		PlayerID:   p.ID,
		PositionID: tp.ID,
		CashOut:    p.Stack,
	})
	return p, nil
}

// InitiateNewRound moves the button and deals a hand.
func (r *TableRunner) InitiateNewRound(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initiateNewRound(ctx)
}

func (r *TableRunner) initiateNewRound(ctx context.Context) error {
	if r.nextHand != nil {
		r.nextHand.Stop()
		r.nextHand = nil
	}

	next := r.table.Clone()
	before := store.Stacks(next)
	start, err := next.StartRound(r.rng)
	if err != nil {
		if errors.Is(err, game.ErrNotReady) {
			r.emitter.Broadcast(next.ID, game.NotReadyToStart{
				TableID:    next.ID,
				Players:    next.EligiblePlayers(),
				MinPlayers: next.MinPlayers,
				MaxPlayers: next.MaxPlayers,
			})
		}
		return err
	}
	if err := r.repo.CreateRound(ctx, store.NewRoundRecord(start, before, r.clock.Now())); err != nil {
		return fmt.Errorf("error storing round: %w", err)
	}
	r.table = next
	r.registry.RegisterRound(start.Round)

	round := start.Round
	preflop := round.ActiveBettingRound()
	r.logger.Info("Hand started", "round", round.ID, "players", len(round.Players), "pot", round.Pot)

	dealer, _ := next.Position(start.Dealer.Dealer.ID)
	r.emitter.Broadcast(next.ID, game.DealerRotated{
		TableID:            next.ID,
		PreviousPositionID: start.Dealer.PreviousID,
		PositionID:         dealer.ID,
		Position:           dealer.Position,
	})
	r.emitter.Broadcast(next.ID, game.RoundStarted{
		TableID:          next.ID,
		RoundID:          round.ID,
		BettingRoundID:   preflop.ID,
		DealerPositionID: round.DealerPositionID,
		Players:          r.seats(preflop),
		Blinds:           game.Summarize(start.Blinds),
		Pot:              round.Pot,
		ActiveID:         preflop.ActiveID,
	})
	for _, brp := range preflop.Players {
		rp, _ := round.Player(brp.RoundPlayerID)
		r.emitter.SendToUser(next.Players[rp.PlayerID].UserID, game.RoundCardsDealt{
			TableID:              next.ID,
			RoundID:              round.ID,
			RoundPlayerID:        rp.ID,
			BettingRoundPlayerID: brp.ID,
			HoleCards:            rp.HoleCards[:],
		})
	}

	r.armTurnTimer(preflop.ActiveID)
	return nil
}

// HandlePlayerAction applies an action for the player on turn.
func (r *TableRunner) HandlePlayerAction(ctx context.Context, actor Actor, intents []game.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	brpID := actor.BettingRoundPlayerID
	if brpID == "" {
		var err error
		if brpID, err = r.registry.ResolveUser(r.table.ID, actor.UserID); err != nil {
			return err
		}
	}
	_, err := r.act(ctx, brpID, intents, false)
	return err
}

// handlePlayerActionTimeout plays for a player whose turn timer expired:
// CHECK when they owe nothing, FOLD otherwise. Tokens from replaced timers
// are ignored.
func (r *TableRunner) handlePlayerActionTimeout(token uint64, brpID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || token != r.turnToken || r.turnTimer == nil {
		return
	}
	r.turnTimer = nil

	owed, err := r.table.AmountOwed(brpID)
	if err != nil {
		r.logger.Debug("Timeout for finished turn", "betting_round_player", brpID, "error", err)
		return
	}
	intent := game.Intent{Type: game.Check}
	if owed > 0 {
		intent = game.Intent{Type: game.Fold}
	}

	r.logger.Info("Player timed out", "betting_round_player", brpID, "action", intent.Type)
	if _, err := r.act(r.ctx, brpID, []game.Intent{intent}, true); err != nil {
		r.logger.Error("Failed to apply timeout action", "betting_round_player", brpID, "error", err)
		r.armTurnTimer(brpID)
	}
}

func (r *TableRunner) act(ctx context.Context, brpID string, intents []game.Intent, timedOut bool) (*game.Outcome, error) {
	next := r.table.Clone()
	out, err := next.Act(brpID, intents)
	if err != nil {
		return nil, err
	}
	if err := r.repo.CommitAction(ctx, store.NewActionCommit(out)); err != nil {
		return nil, fmt.Errorf("error storing action: %w", err)
	}
	r.stopTurnTimer()
	r.table = next

	if out.NewBettingRound != nil {
		r.registry.RegisterBettingRound(out.NewBettingRound)
	}

	r.logger.Debug("Action accepted", "user", out.UserID, "actions", len(out.Actions), "committed", out.Committed, "pot", out.Pot)
	if timedOut {
		r.emitter.Broadcast(next.ID, game.PlayerTimedOut{
			TableID:              next.ID,
			UserID:               out.UserID,
			BettingRoundPlayerID: brpID,
			Action:               intents[0].Type.String(),
		})
	}
	r.emitter.Broadcast(next.ID, game.PlayerActionSuccess{
		TableID:              next.ID,
		RoundID:              out.Round.ID,
		BettingRoundID:       out.BettingRound.ID,
		UserID:               out.UserID,
		BettingRoundPlayerID: brpID,
		Actions:              game.Summarize(out.Actions),
		Stack:                out.Stack,
		Pot:                  out.Pot,
		NextActiveID:         out.NextActiveID,
		BettingRoundFinished: out.StreetFinished,
	})

	switch {
	case out.HandEnded():
		r.emitter.Broadcast(next.ID, r.roundEnded(out))
		r.registry.UnregisterRound(out.Round)
		r.logger.Info("Hand ended", "round", out.Round.ID, "pot", out.Result.Pot, "showdown", out.Result.Showdown)
		if h := r.config.History; h != nil {
			if err := h.RecordHand(next, out.Round, r.clock.Now()); err != nil {
				r.logger.Warn("Failed to record hand history", "round", out.Round.ID, "error", err)
			}
		}
		r.scheduleNextHand()

	case out.NewBettingRound != nil:
		nbr := out.NewBettingRound
		r.emitter.Broadcast(next.ID, game.BettingRoundStarted{
			TableID:        next.ID,
			RoundID:        out.Round.ID,
			BettingRoundID: nbr.ID,
			Street:         nbr.Street.String(),
			CommunityCards: out.Round.CommunityCards,
			Players:        r.seats(nbr),
			ActiveID:       nbr.ActiveID,
		})
		r.armTurnTimer(nbr.ActiveID)

	default:
		r.armTurnTimer(out.NextActiveID)
	}
	return out, nil
}

func (r *TableRunner) roundEnded(out *game.Outcome) game.RoundEnded {
	round := out.Round
	ev := game.RoundEnded{
		TableID:        r.table.ID,
		RoundID:        round.ID,
		Pot:            out.Result.Pot,
		Showdown:       out.Result.Showdown,
		CommunityCards: round.CommunityCards,
	}
	for _, a := range out.Result.Awards {
		w := game.Winner{
			PlayerID:  a.PlayerID,
			Amount:    a.Amount,
			Stack:     out.Stacks[a.PlayerID],
			HandName:  a.HandName,
			BestCards: a.BestCards,
		}
		if p, ok := r.table.Players[a.PlayerID]; ok {
			w.UserID = p.UserID
		}
		ev.Winners = append(ev.Winners, w)
	}
	if out.Result.Showdown {
		for _, brp := range round.ActiveBettingRound().ActivePlayers() {
			rp, _ := round.Player(brp.RoundPlayerID)
			ev.Shown = append(ev.Shown, game.ShownHand{
				PlayerID:  rp.PlayerID,
				HoleCards: rp.HoleCards[:],
				HandName:  rp.HandName,
			})
		}
	}
	return ev
}

func (r *TableRunner) seats(br *game.BettingRound) []game.SeatSummary {
	round := r.table.Round
	out := make([]game.SeatSummary, 0, len(br.Players))
	for _, brp := range br.Players {
		rp, _ := round.Player(brp.RoundPlayerID)
		p := r.table.Players[rp.PlayerID]
		out = append(out, game.SeatSummary{
			PlayerID:             p.ID,
			UserID:               p.UserID,
			RoundPlayerID:        rp.ID,
			BettingRoundPlayerID: brp.ID,
			Position:             brp.Position,
			Stack:                p.Stack,
		})
	}
	return out
}

func (r *TableRunner) armTurnTimer(brpID string) {
	r.stopTurnTimer()
	if r.config.ActionTimeout <= 0 || r.stopped {
		return
	}
	r.turnToken++
	token := r.turnToken
	r.turnTimer = r.clock.AfterFunc(r.config.ActionTimeout, func() {
		r.handlePlayerActionTimeout(token, brpID)
	}, "turn")
}

func (r *TableRunner) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turnToken++
}

func (r *TableRunner) scheduleNextHand() {
	if !r.config.AutoStart || r.stopped || r.nextHand != nil || !r.table.IsReadyToStart() {
		return
	}
	r.nextHand = r.clock.AfterFunc(r.config.NextHandDelay, r.startNextHand, "next-hand")
}

func (r *TableRunner) startNextHand() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHand = nil
	if r.stopped || !r.table.IsReadyToStart() {
		return
	}
	if err := r.initiateNewRound(r.ctx); err != nil {
		r.logger.Error("Failed to start hand", "error", err)
		r.scheduleNextHand()
	}
}

// Resume schedules a hand for a restored table that is already ready to
// start.
func (r *TableRunner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduleNextHand()
}

// Stop cancels pending timers. A hand in progress stays where it is.
func (r *TableRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	r.stopTurnTimer()
	if r.nextHand != nil {
		r.nextHand.Stop()
		r.nextHand = nil
	}
	r.cancel()
}
