package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/store"
)

// ManagerConfig wires the collaborators every table runner shares.
type ManagerConfig struct {
	Repository   store.Repository
	Registry     *game.Registry
	Emitter      game.Emitter
	Clock        quartz.Clock
	Runner       RunnerConfig
	Seed         int64 // zero shuffles from fresh entropy
	TableOptions []game.Option
}

// GameCreated announces a table stored by another process.
type GameCreated struct {
	Game store.GameRecord
}

// GameSummary holds lightweight metadata for clients.
type GameSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	Seats      int    `json:"seats"`
	Players    int    `json:"players"`
	MinBuyIn   int64  `json:"buy_in_min"`
	MaxBuyIn   int64  `json:"buy_in_max"`
	InHand     bool   `json:"in_hand"`
}

// GameManager tracks the tables running in this process.
type GameManager struct {
	logger *log.Logger
	config ManagerConfig
	mu     sync.RWMutex
	games  map[string]*TableRunner
}

// NewGameManager constructs an empty game manager.
func NewGameManager(config ManagerConfig, logger *log.Logger) *GameManager {
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	return &GameManager{
		logger: logger.WithPrefix("game-manager"),
		config: config,
		games:  make(map[string]*TableRunner),
	}
}

// CreateGame creates and stores a new table.
func (gm *GameManager) CreateGame(ctx context.Context, cfg game.Config) (*TableRunner, error) {
	table, err := game.NewTable("", cfg, gm.config.TableOptions...)
	if err != nil {
		return nil, err
	}
	if err := gm.config.Repository.CreateGame(ctx, store.NewGameRecord(table, gm.config.Clock.Now())); err != nil {
		return nil, fmt.Errorf("error storing game: %w", err)
	}

	runner := gm.register(table)
	gm.logger.Info("Game created", "table", table.ID, "name", table.Name)
	return runner, nil
}

// Hydrate starts a runner for a table that was stored elsewhere. Tables
// already running here are returned as they are.
func (gm *GameManager) Hydrate(ev GameCreated) (*TableRunner, error) {
	if runner, ok := gm.GetGame(ev.Game.ID); ok {
		return runner, nil
	}
	table, err := game.RestoreTable(ev.Game.ID, ev.Game.Config, ev.Game.Players, ev.Game.Positions, gm.config.TableOptions...)
	if err != nil {
		return nil, fmt.Errorf("error restoring game %s: %w", ev.Game.ID, err)
	}

	runner := gm.register(table)
	runner.Resume()
	gm.logger.Info("Game hydrated", "table", table.ID, "name", table.Name, "players", len(table.Players))
	return runner, nil
}

// LoadAll hydrates every stored table.
func (gm *GameManager) LoadAll(ctx context.Context) error {
	games, err := gm.config.Repository.ListGames(ctx)
	if err != nil {
		return fmt.Errorf("error listing games: %w", err)
	}
	for _, g := range games {
		if _, err := gm.Hydrate(GameCreated{Game: g}); err != nil {
			return err
		}
	}
	return nil
}

func (gm *GameManager) register(table *game.Table) *TableRunner {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if existing, ok := gm.games[table.ID]; ok {
		return existing
	}
	runner := NewTableRunner(table, gm.config.Repository, gm.config.Registry, gm.config.Emitter,
		gm.config.Clock, randutil.ForTable(gm.config.Seed, table.ID), gm.config.Runner, gm.logger)
	gm.games[table.ID] = runner
	return runner
}

// GetGame retrieves a table runner by ID.
func (gm *GameManager) GetGame(id string) (*TableRunner, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	runner, ok := gm.games[id]
	return runner, ok
}

// ListGames returns a snapshot of running tables ordered by name.
func (gm *GameManager) ListGames() []GameSummary {
	gm.mu.RLock()
	runners := make([]*TableRunner, 0, len(gm.games))
	for _, runner := range gm.games {
		runners = append(runners, runner)
	}
	gm.mu.RUnlock()

	summaries := make([]GameSummary, 0, len(runners))
	for _, runner := range runners {
		t := runner.Table()
		summaries = append(summaries, GameSummary{
			ID:         t.ID,
			Name:       t.Name,
			SmallBlind: t.Blinds[0],
			BigBlind:   t.BigBlind(),
			MinPlayers: t.MinPlayers,
			MaxPlayers: t.MaxPlayers,
			Seats:      len(t.Positions),
			Players:    len(t.Players),
			MinBuyIn:   t.MinBuyIn,
			MaxBuyIn:   t.MaxBuyIn,
			InHand:     t.Round != nil,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Name == summaries[j].Name {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// StopAll stops every runner's timers.
func (gm *GameManager) StopAll() {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for _, runner := range gm.games {
		runner.Stop()
	}
}
