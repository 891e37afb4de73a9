package store

import (
	"context"
	"errors"

	"github.com/lox/holdemtables/internal/game"
)

//go:generate mockgen -source=$GOFILE -destination=mock/repository.go -package=mock

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository stores tables and the hands played at them. Every method is
// atomic: either all of its records are written or none are.
type Repository interface {
	// Tables and seats
	CreateGame(ctx context.Context, g GameRecord) error
	SeatPlayer(ctx context.Context, tableID string, p game.Player, pos game.TablePosition) error
	UnseatPlayer(ctx context.Context, tableID, playerID string, pos game.TablePosition) error
	LoadGame(ctx context.Context, tableID string) (*GameRecord, error)
	ListGames(ctx context.Context) ([]GameRecord, error)

	// Hands
	CreateRound(ctx context.Context, r RoundRecord) error
	CommitAction(ctx context.Context, c ActionCommit) error

	// Close closes any resources used by the repository
	Close() error
}
