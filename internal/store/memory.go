package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/poker"
)

type memoryRound struct {
	record    RoundRecord
	streets   []BettingRoundRecord
	finished  map[string]bool // betting round ids
	actions   []game.Action
	pot       int64
	community []poker.Card
	result    *RoundResultRecord
}

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	games  map[string]*GameRecord
	rounds map[string]*memoryRound
	mu     sync.RWMutex
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games:  make(map[string]*GameRecord),
		rounds: make(map[string]*memoryRound),
	}
}

// CreateGame stores a new table
func (r *MemoryRepository) CreateGame(ctx context.Context, g GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[g.ID]; exists {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	r.games[g.ID] = cloneGame(g)
	return nil
}

// SeatPlayer adds the player and occupies their seat
func (r *MemoryRepository) SeatPlayer(ctx context.Context, tableID string, p game.Player, pos game.TablePosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[tableID]
	if !ok {
		return fmt.Errorf("game %s: %w", tableID, ErrNotFound)
	}
	idx := slices.IndexFunc(g.Positions, func(tp game.TablePosition) bool { return tp.ID == pos.ID })
	if idx < 0 {
		return fmt.Errorf("position %s: %w", pos.ID, ErrNotFound)
	}
	if slices.ContainsFunc(g.Players, func(existing game.Player) bool { return existing.ID == p.ID }) {
		return fmt.Errorf("player %s already seated", p.ID)
	}

	g.Players = append(g.Players, p)
	g.Positions[idx] = pos
	return nil
}

// UnseatPlayer removes the player and frees their seat
func (r *MemoryRepository) UnseatPlayer(ctx context.Context, tableID, playerID string, pos game.TablePosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[tableID]
	if !ok {
		return fmt.Errorf("game %s: %w", tableID, ErrNotFound)
	}
	pi := slices.IndexFunc(g.Players, func(p game.Player) bool { return p.ID == playerID })
	if pi < 0 {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	si := slices.IndexFunc(g.Positions, func(tp game.TablePosition) bool { return tp.ID == pos.ID })
	if si < 0 {
		return fmt.Errorf("position %s: %w", pos.ID, ErrNotFound)
	}

	g.Players = slices.Delete(g.Players, pi, pi+1)
	g.Positions[si] = pos
	return nil
}

// LoadGame returns a copy of the table
func (r *MemoryRepository) LoadGame(ctx context.Context, tableID string) (*GameRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[tableID]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", tableID, ErrNotFound)
	}
	return cloneGame(*g), nil
}

// ListGames returns every table, oldest first
func (r *MemoryRepository) ListGames(ctx context.Context) ([]GameRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]GameRecord, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, *cloneGame(*g))
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

// CreateRound stores a dealt hand, its blinds and the button move
func (r *MemoryRepository) CreateRound(ctx context.Context, rec RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[rec.TableID]
	if !ok {
		return fmt.Errorf("game %s: %w", rec.TableID, ErrNotFound)
	}
	if _, exists := r.rounds[rec.RoundID]; exists {
		return fmt.Errorf("round %s already exists", rec.RoundID)
	}
	if err := checkDeltas(g, rec.StackDeltas); err != nil {
		return err
	}
	dealer := slices.IndexFunc(g.Positions, func(tp game.TablePosition) bool { return tp.ID == rec.DealerPositionID })
	if dealer < 0 {
		return fmt.Errorf("dealer position %s: %w", rec.DealerPositionID, ErrNotFound)
	}

	for i := range g.Positions {
		g.Positions[i].IsDealer = i == dealer
	}
	applyDeltas(g, rec.StackDeltas)
	r.rounds[rec.RoundID] = &memoryRound{
		record:   rec,
		streets:  []BettingRoundRecord{rec.BettingRound},
		finished: make(map[string]bool),
		actions:  slices.Clone(rec.Blinds),
		pot:      rec.Pot,
	}
	return nil
}

// CommitAction stores an accepted action and everything it changed
func (r *MemoryRepository) CommitAction(ctx context.Context, c ActionCommit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[c.TableID]
	if !ok {
		return fmt.Errorf("game %s: %w", c.TableID, ErrNotFound)
	}
	round, ok := r.rounds[c.RoundID]
	if !ok {
		return fmt.Errorf("round %s: %w", c.RoundID, ErrNotFound)
	}
	if round.result != nil {
		return fmt.Errorf("round %s is already finished", c.RoundID)
	}
	street := slices.IndexFunc(round.streets, func(br BettingRoundRecord) bool { return br.ID == c.BettingRoundID })
	if street < 0 {
		return fmt.Errorf("betting round %s: %w", c.BettingRoundID, ErrNotFound)
	}

	deltas := map[string]int64{c.PlayerID: c.StackDelta}
	if c.Result != nil {
		for _, a := range c.Result.Awards {
			deltas[a.PlayerID] += a.Amount
		}
	}
	if err := checkDeltas(g, deltas); err != nil {
		return err
	}

	applyDeltas(g, deltas)
	round.actions = append(round.actions, c.Actions...)
	round.streets[street].Players = slices.Clone(c.StreetPlayers)
	round.pot = c.Pot
	if c.FinishBettingRound {
		round.finished[c.BettingRoundID] = true
	}
	if c.NewBettingRound != nil {
		round.streets = append(round.streets, *c.NewBettingRound)
		round.community = append(round.community, c.CommunityCards...)
	}
	if c.Result != nil {
		res := *c.Result
		res.Awards = slices.Clone(c.Result.Awards)
		round.result = &res
	}
	return nil
}

// Actions returns the action log of a hand in commit order
func (r *MemoryRepository) Actions(roundID string) []game.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if round, ok := r.rounds[roundID]; ok {
		return slices.Clone(round.actions)
	}
	return nil
}

// Result returns how a hand ended, or nil while it is running
func (r *MemoryRepository) Result(roundID string) *RoundResultRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if round, ok := r.rounds[roundID]; ok && round.result != nil {
		res := *round.result
		return &res
	}
	return nil
}

// Close is a no-op for the memory repository
func (r *MemoryRepository) Close() error {
	return nil
}

func checkDeltas(g *GameRecord, deltas map[string]int64) error {
	for id, delta := range deltas {
		idx := slices.IndexFunc(g.Players, func(p game.Player) bool { return p.ID == id })
		if idx < 0 {
			return fmt.Errorf("player %s: %w", id, ErrNotFound)
		}
		if g.Players[idx].Stack+delta < 0 {
			return fmt.Errorf("player %s stack %d cannot absorb %d", id, g.Players[idx].Stack, delta)
		}
	}
	return nil
}

func applyDeltas(g *GameRecord, deltas map[string]int64) {
	for i := range g.Players {
		g.Players[i].Stack += deltas[g.Players[i].ID]
	}
}

func cloneGame(g GameRecord) *GameRecord {
	g.Config.Blinds = slices.Clone(g.Config.Blinds)
	g.Players = slices.Clone(g.Players)
	g.Positions = slices.Clone(g.Positions)
	return &g
}
