package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/poker"
)

// SQLite table schemas
const (
	createGamesTableSQL = `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		blinds TEXT NOT NULL,  -- JSON array, small to big
		min_players INTEGER NOT NULL,
		max_players INTEGER NOT NULL,
		seats INTEGER NOT NULL,
		chip_unit INTEGER NOT NULL,
		rake REAL NOT NULL DEFAULT 0,
		buy_in_min INTEGER NOT NULL,
		buy_in_max INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`

	createPlayersTableSQL = `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL,
		stack INTEGER NOT NULL CHECK (stack >= 0),
		seated BOOLEAN NOT NULL DEFAULT 1,
		FOREIGN KEY (table_id) REFERENCES games(id)
	);
	CREATE INDEX IF NOT EXISTS idx_players_table ON players(table_id)`

	createPositionsTableSQL = `
	CREATE TABLE IF NOT EXISTS table_positions (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 0,
		is_dealer BOOLEAN NOT NULL DEFAULT 0,
		player_id TEXT,
		FOREIGN KEY (table_id) REFERENCES games(id),
		UNIQUE (table_id, position)
	)`

	createRoundsTableSQL = `
	CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		dealer_position_id TEXT NOT NULL,
		pot INTEGER NOT NULL,
		community_cards TEXT NOT NULL DEFAULT '',
		finished BOOLEAN NOT NULL DEFAULT 0,
		showdown BOOLEAN NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		FOREIGN KEY (table_id) REFERENCES games(id)
	);
	CREATE INDEX IF NOT EXISTS idx_rounds_table ON rounds(table_id)`

	createRoundPlayersTableSQL = `
	CREATE TABLE IF NOT EXISTS round_players (
		id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		initial_stack INTEGER NOT NULL,
		hole_cards TEXT NOT NULL,
		is_winner BOOLEAN NOT NULL DEFAULT 0,
		winnings INTEGER NOT NULL DEFAULT 0,
		hand_name TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
	)`

	createBettingRoundsTableSQL = `
	CREATE TABLE IF NOT EXISTS betting_rounds (
		id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL,
		street TEXT NOT NULL,
		finished BOOLEAN NOT NULL DEFAULT 0,
		FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
	)`

	createBettingRoundPlayersTableSQL = `
	CREATE TABLE IF NOT EXISTS betting_round_players (
		id TEXT PRIMARY KEY,
		betting_round_id TEXT NOT NULL,
		round_player_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		has_acted BOOLEAN NOT NULL DEFAULT 0,
		has_folded BOOLEAN NOT NULL DEFAULT 0,
		FOREIGN KEY (betting_round_id) REFERENCES betting_rounds(id) ON DELETE CASCADE
	)`

	createActionsTableSQL = `
	CREATE TABLE IF NOT EXISTS betting_round_actions (
		id TEXT PRIMARY KEY,
		betting_round_id TEXT NOT NULL,
		betting_round_player_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		FOREIGN KEY (betting_round_id) REFERENCES betting_rounds(id) ON DELETE CASCADE,
		UNIQUE (betting_round_id, sequence)
	)`
)

var schema = []string{
	createGamesTableSQL,
	createPlayersTableSQL,
	createPositionsTableSQL,
	createRoundsTableSQL,
	createRoundPlayersTableSQL,
	createBettingRoundsTableSQL,
	createBettingRoundPlayersTableSQL,
	createActionsTableSQL,
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating schema: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// withTx runs fn in a transaction, committing only if it succeeds
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// CreateGame stores a new table and its seats
func (r *SQLiteRepository) CreateGame(ctx context.Context, g GameRecord) error {
	blinds, err := json.Marshal(g.Config.Blinds)
	if err != nil {
		return fmt.Errorf("error encoding blinds: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO games (id, name, blinds, min_players, max_players, seats, chip_unit, rake, buy_in_min, buy_in_max, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.Config.Name, string(blinds), g.Config.MinPlayers, g.Config.MaxPlayers, g.Config.Seats,
			g.Config.ChipUnit, g.Config.Rake, g.Config.MinBuyIn, g.Config.MaxBuyIn, g.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("error creating game: %w", err)
		}

		for _, tp := range g.Positions {
			if err := insertPosition(ctx, tx, g.ID, tp); err != nil {
				return err
			}
		}
		for _, p := range g.Players {
			if err := insertPlayer(ctx, tx, g.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeatPlayer adds the player and occupies their seat
func (r *SQLiteRepository) SeatPlayer(ctx context.Context, tableID string, p game.Player, pos game.TablePosition) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertPlayer(ctx, tx, tableID, p); err != nil {
			return err
		}
		return updatePosition(ctx, tx, tableID, pos)
	})
}

// UnseatPlayer marks the player as gone and frees their seat
func (r *SQLiteRepository) UnseatPlayer(ctx context.Context, tableID, playerID string, pos game.TablePosition) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE players SET seated = 0 WHERE id = ? AND table_id = ? AND seated = 1`, playerID, tableID)
		if err != nil {
			return fmt.Errorf("error unseating player: %w", err)
		}
		if err := expectOne(res, "player "+playerID); err != nil {
			return err
		}
		return updatePosition(ctx, tx, tableID, pos)
	})
}

// LoadGame reads a table with its seated players
func (r *SQLiteRepository) LoadGame(ctx context.Context, tableID string) (*GameRecord, error) {
	var (
		g      GameRecord
		blinds string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, blinds, min_players, max_players, seats, chip_unit, rake, buy_in_min, buy_in_max, created_at
		FROM games WHERE id = ?`, tableID).Scan(
		&g.ID, &g.Config.Name, &blinds, &g.Config.MinPlayers, &g.Config.MaxPlayers, &g.Config.Seats,
		&g.Config.ChipUnit, &g.Config.Rake, &g.Config.MinBuyIn, &g.Config.MaxBuyIn, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game %s: %w", tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("error getting game: %w", err)
	}
	if err := json.Unmarshal([]byte(blinds), &g.Config.Blinds); err != nil {
		return nil, fmt.Errorf("error decoding blinds: %w", err)
	}

	if g.Players, err = r.loadPlayers(ctx, tableID); err != nil {
		return nil, err
	}
	if g.Positions, err = r.loadPositions(ctx, tableID); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *SQLiteRepository) loadPlayers(ctx context.Context, tableID string) ([]game.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, username, stack FROM players
		WHERE table_id = ? AND seated = 1 ORDER BY rowid`, tableID)
	if err != nil {
		return nil, fmt.Errorf("error getting players: %w", err)
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.Stack); err != nil {
			return nil, fmt.Errorf("error scanning player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *SQLiteRepository) loadPositions(ctx context.Context, tableID string) ([]game.TablePosition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, position, is_active, is_dealer, COALESCE(player_id, '') FROM table_positions
		WHERE table_id = ? ORDER BY position`, tableID)
	if err != nil {
		return nil, fmt.Errorf("error getting positions: %w", err)
	}
	defer rows.Close()

	var positions []game.TablePosition
	for rows.Next() {
		var tp game.TablePosition
		if err := rows.Scan(&tp.ID, &tp.Position, &tp.IsActive, &tp.IsDealer, &tp.PlayerID); err != nil {
			return nil, fmt.Errorf("error scanning position: %w", err)
		}
		positions = append(positions, tp)
	}
	return positions, rows.Err()
}

// ListGames returns every table, oldest first
func (r *SQLiteRepository) ListGames(ctx context.Context) ([]GameRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM games ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing games: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning game id: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	games := make([]GameRecord, 0, len(ids))
	for _, id := range ids {
		g, err := r.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, nil
}

// CreateRound stores a dealt hand, its blinds and the button move in one
// transaction
func (r *SQLiteRepository) CreateRound(ctx context.Context, rec RoundRecord) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rounds (id, table_id, dealer_position_id, pot, started_at)
			VALUES (?, ?, ?, ?, ?)`,
			rec.RoundID, rec.TableID, rec.DealerPositionID, rec.Pot, rec.StartedAt.UTC())
		if err != nil {
			return fmt.Errorf("error creating round: %w", err)
		}

		for _, rp := range rec.Players {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO round_players (id, round_id, player_id, position, initial_stack, hole_cards)
				VALUES (?, ?, ?, ?, ?, ?)`,
				rp.ID, rec.RoundID, rp.PlayerID, rp.Position, rp.InitialStack, poker.FormatCards(rp.HoleCards[:]))
			if err != nil {
				return fmt.Errorf("error creating round player: %w", err)
			}
		}

		if err := insertBettingRound(ctx, tx, rec.BettingRound); err != nil {
			return err
		}
		if err := insertActions(ctx, tx, rec.BettingRound.ID, rec.Blinds); err != nil {
			return err
		}
		for playerID, delta := range rec.StackDeltas {
			if err := applyStackDelta(ctx, tx, playerID, delta); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE table_positions SET is_dealer = (id = ?) WHERE table_id = ?`,
			rec.DealerPositionID, rec.TableID); err != nil {
			return fmt.Errorf("error moving dealer: %w", err)
		}
		return nil
	})
}

// CommitAction stores an accepted action and everything it changed in one
// transaction
func (r *SQLiteRepository) CommitAction(ctx context.Context, c ActionCommit) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertActions(ctx, tx, c.BettingRoundID, c.Actions); err != nil {
			return err
		}
		for _, brp := range c.StreetPlayers {
			_, err := tx.ExecContext(ctx, `UPDATE betting_round_players SET has_acted = ?, has_folded = ? WHERE id = ?`,
				brp.HasActed, brp.HasFolded, brp.ID)
			if err != nil {
				return fmt.Errorf("error updating betting round player: %w", err)
			}
		}
		if err := applyStackDelta(ctx, tx, c.PlayerID, c.StackDelta); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `UPDATE rounds SET pot = ? WHERE id = ? AND finished = 0`, c.Pot, c.RoundID)
		if err != nil {
			return fmt.Errorf("error updating pot: %w", err)
		}
		if err := expectOne(res, "open round "+c.RoundID); err != nil {
			return err
		}

		if c.FinishBettingRound {
			if _, err := tx.ExecContext(ctx, `UPDATE betting_rounds SET finished = 1 WHERE id = ?`, c.BettingRoundID); err != nil {
				return fmt.Errorf("error finishing betting round: %w", err)
			}
		}

		if c.NewBettingRound != nil {
			if err := insertBettingRound(ctx, tx, *c.NewBettingRound); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE rounds SET community_cards = TRIM(community_cards || ' ' || ?) WHERE id = ?`,
				poker.FormatCards(c.CommunityCards), c.RoundID)
			if err != nil {
				return fmt.Errorf("error dealing community cards: %w", err)
			}
		}

		if c.Result != nil {
			return finishRound(ctx, tx, c.RoundID, *c.Result)
		}
		return nil
	})
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func finishRound(ctx context.Context, tx *sql.Tx, roundID string, res RoundResultRecord) error {
	if _, err := tx.ExecContext(ctx, `UPDATE rounds SET finished = 1, showdown = ? WHERE id = ?`, res.Showdown, roundID); err != nil {
		return fmt.Errorf("error finishing round: %w", err)
	}
	for _, a := range res.Awards {
		_, err := tx.ExecContext(ctx, `
			UPDATE round_players SET is_winner = 1, winnings = ?, hand_name = ? WHERE id = ?`,
			a.Amount, a.HandName, a.RoundPlayerID)
		if err != nil {
			return fmt.Errorf("error recording winner: %w", err)
		}
		if err := applyStackDelta(ctx, tx, a.PlayerID, a.Amount); err != nil {
			return err
		}
	}
	return nil
}

func insertPlayer(ctx context.Context, tx *sql.Tx, tableID string, p game.Player) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (id, table_id, user_id, username, stack) VALUES (?, ?, ?, ?, ?)`,
		p.ID, tableID, p.UserID, p.Username, p.Stack)
	if err != nil {
		return fmt.Errorf("error creating player: %w", err)
	}
	return nil
}

func insertPosition(ctx context.Context, tx *sql.Tx, tableID string, tp game.TablePosition) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO table_positions (id, table_id, position, is_active, is_dealer, player_id)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))`,
		tp.ID, tableID, tp.Position, tp.IsActive, tp.IsDealer, tp.PlayerID)
	if err != nil {
		return fmt.Errorf("error creating position: %w", err)
	}
	return nil
}

func updatePosition(ctx context.Context, tx *sql.Tx, tableID string, tp game.TablePosition) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE table_positions SET is_active = ?, is_dealer = ?, player_id = NULLIF(?, '')
		WHERE id = ? AND table_id = ?`,
		tp.IsActive, tp.IsDealer, tp.PlayerID, tp.ID, tableID)
	if err != nil {
		return fmt.Errorf("error updating position: %w", err)
	}
	return expectOne(res, "position "+tp.ID)
}

func insertBettingRound(ctx context.Context, tx *sql.Tx, br BettingRoundRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO betting_rounds (id, round_id, street) VALUES (?, ?, ?)`,
		br.ID, br.RoundID, br.Street.String())
	if err != nil {
		return fmt.Errorf("error creating betting round: %w", err)
	}
	for _, brp := range br.Players {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO betting_round_players (id, betting_round_id, round_player_id, position, has_acted, has_folded)
			VALUES (?, ?, ?, ?, ?, ?)`,
			brp.ID, br.ID, brp.RoundPlayerID, brp.Position, brp.HasActed, brp.HasFolded)
		if err != nil {
			return fmt.Errorf("error creating betting round player: %w", err)
		}
	}
	return nil
}

func insertActions(ctx context.Context, tx *sql.Tx, bettingRoundID string, actions []game.Action) error {
	for _, a := range actions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO betting_round_actions (id, betting_round_id, betting_round_player_id, type, amount, sequence)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, bettingRoundID, a.BettingRoundPlayerID, a.Type.String(), a.Amount, a.Sequence)
		if err != nil {
			return fmt.Errorf("error creating action: %w", err)
		}
	}
	return nil
}

func applyStackDelta(ctx context.Context, tx *sql.Tx, playerID string, delta int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE players SET stack = stack + ? WHERE id = ? AND stack + ? >= 0`,
		delta, playerID, delta)
	if err != nil {
		return fmt.Errorf("error updating stack: %w", err)
	}
	return expectOne(res, "player "+playerID)
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// ActionLog returns the actions of a hand in commit order
func (r *SQLiteRepository) ActionLog(ctx context.Context, roundID string) ([]game.Action, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.type, a.amount, a.sequence, a.betting_round_player_id
		FROM betting_round_actions a
		JOIN betting_rounds b ON b.id = a.betting_round_id
		WHERE b.round_id = ?
		ORDER BY b.rowid, a.sequence`, roundID)
	if err != nil {
		return nil, fmt.Errorf("error getting actions: %w", err)
	}
	defer rows.Close()

	var actions []game.Action
	for rows.Next() {
		var (
			a     game.Action
			kind  string
			valid bool
		)
		if err := rows.Scan(&a.ID, &kind, &a.Amount, &a.Sequence, &a.BettingRoundPlayerID); err != nil {
			return nil, fmt.Errorf("error scanning action: %w", err)
		}
		if a.Type, valid = game.ParseActionType(kind); !valid {
			return nil, fmt.Errorf("unknown action type %q", kind)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
