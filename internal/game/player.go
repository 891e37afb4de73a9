package game

import "github.com/lox/holdemtables/poker"

// Player is a user's identity at one table for the table's lifetime.
type Player struct {
	ID       string
	UserID   string
	Username string
	Stack    int64
}

// Deduct removes chips from the stack. It never lets the stack go negative.
func (p *Player) Deduct(amount int64) error {
	if amount < 0 {
		return newError(CodeInvalidAction, p.ID, "cannot deduct negative amount %d", amount)
	}
	if amount > p.Stack {
		return newError(CodeInsufficientStack, p.ID, "stack %d cannot cover %d", p.Stack, amount)
	}
	p.Stack -= amount
	return nil
}

// Credit adds chips to the stack.
func (p *Player) Credit(amount int64) {
	p.Stack += amount
}

// TablePosition is a fixed seat at the table.
type TablePosition struct {
	ID       string
	Position int
	IsActive bool
	IsDealer bool
	PlayerID string // empty when unoccupied
}

// Available returns true if nobody sits in or holds the seat
func (tp TablePosition) Available() bool {
	return !tp.IsActive && tp.PlayerID == ""
}

// RoundPlayer is a player's participation in one hand.
type RoundPlayer struct {
	ID           string
	PlayerID     string
	Position     int
	InitialStack int64
	HoleCards    [2]poker.Card
	IsWinner     bool
	Winnings     int64
	HandName     string
}
