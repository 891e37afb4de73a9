package game

import "github.com/lox/holdemtables/poker"

// Event is a domain event emitted by a table.
type Event interface {
	EventName() string
}

// Emitter delivers events to observers. Broadcast reaches everyone watching a
// table; SendToUser reaches one user and is the only route for hole cards.
type Emitter interface {
	Broadcast(tableID string, e Event)
	SendToUser(userID string, e Event)
}

// Event names as they appear on the wire.
const (
	EventPlayerJoined        = "PLAYER_JOINED"
	EventPlayerLeft          = "PLAYER_LEFT"
	EventDealerRotated       = "DEALER_ROTATED"
	EventNotReadyToStart     = "NOT_READY_TO_START"
	EventRoundStarted        = "ROUND_STARTED"
	EventRoundCardsDealt     = "ROUND_CARDS_DEALT"
	EventPlayerActionSuccess = "PLAYER_ACTION_SUCCESS"
	EventBettingRoundStarted = "BETTING_ROUND_STARTED"
	EventPlayerTimedOut      = "PLAYER_TIMED_OUT"
	EventRoundEnded          = "ROUND_ENDED"
)

// PlayerJoined is broadcast when a user takes a seat.
type PlayerJoined struct {
	TableID    string `json:"table_id"`
	UserID     string `json:"user_id"`
	PlayerID   string `json:"player_id"`
	Username   string `json:"username"`
	PositionID string `json:"position_id"`
	Position   int    `json:"position"`
	Stack      int64  `json:"stack"`
}

func (e PlayerJoined) EventName() string { return EventPlayerJoined }

// PlayerLeft is broadcast when a user gives up their seat.
type PlayerLeft struct {
	TableID    string `json:"table_id"`
	UserID     string `json:"user_id"`
	PlayerID   string `json:"player_id"`
	PositionID string `json:"position_id"`
	CashOut    int64  `json:"cash_out"`
}

func (e PlayerLeft) EventName() string { return EventPlayerLeft }

// DealerRotated is broadcast when the button moves.
type DealerRotated struct {
	TableID            string `json:"table_id"`
	PreviousPositionID string `json:"previous_position_id,omitempty"`
	PositionID         string `json:"position_id"`
	Position           int    `json:"position"`
}

func (e DealerRotated) EventName() string { return EventDealerRotated }

// NotReadyToStart is broadcast when a hand cannot be dealt.
type NotReadyToStart struct {
	TableID    string `json:"table_id"`
	Players    int    `json:"players"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
}

func (e NotReadyToStart) EventName() string { return EventNotReadyToStart }

// SeatSummary is a public view of a player dealt into a hand.
type SeatSummary struct {
	PlayerID             string `json:"player_id"`
	UserID               string `json:"user_id"`
	RoundPlayerID        string `json:"round_player_id"`
	BettingRoundPlayerID string `json:"betting_round_player_id"`
	Position             int    `json:"position"`
	Stack                int64  `json:"stack"`
}

// ActionSummary is the public view of an accepted action.
type ActionSummary struct {
	Type                 string `json:"type"`
	Amount               int64  `json:"amount"`
	Sequence             int    `json:"sequence"`
	BettingRoundPlayerID string `json:"betting_round_player_id"`
}

// Summarize converts actions for the wire.
func Summarize(actions []Action) []ActionSummary {
	out := make([]ActionSummary, len(actions))
	for i, a := range actions {
		out[i] = ActionSummary{
			Type:                 a.Type.String(),
			Amount:               a.Amount,
			Sequence:             a.Sequence,
			BettingRoundPlayerID: a.BettingRoundPlayerID,
		}
	}
	return out
}

// RoundStarted is broadcast when a hand is dealt. It never carries hole
// cards.
type RoundStarted struct {
	TableID          string          `json:"table_id"`
	RoundID          string          `json:"round_id"`
	BettingRoundID   string          `json:"betting_round_id"`
	DealerPositionID string          `json:"dealer_position_id"`
	Players          []SeatSummary   `json:"players"`
	Blinds           []ActionSummary `json:"blinds"`
	Pot              int64           `json:"pot"`
	ActiveID         string          `json:"active_id"`
}

func (e RoundStarted) EventName() string { return EventRoundStarted }

// RoundCardsDealt is sent privately to the owner of the hole cards.
type RoundCardsDealt struct {
	TableID              string       `json:"table_id"`
	RoundID              string       `json:"round_id"`
	RoundPlayerID        string       `json:"round_player_id"`
	BettingRoundPlayerID string       `json:"betting_round_player_id"`
	HoleCards            []poker.Card `json:"hole_cards"`
}

func (e RoundCardsDealt) EventName() string { return EventRoundCardsDealt }

// PlayerActionSuccess is broadcast after an action is stored and applied.
type PlayerActionSuccess struct {
	TableID              string          `json:"table_id"`
	RoundID              string          `json:"round_id"`
	BettingRoundID       string          `json:"betting_round_id"`
	UserID               string          `json:"user_id"`
	BettingRoundPlayerID string          `json:"betting_round_player_id"`
	Actions              []ActionSummary `json:"actions"`
	Stack                int64           `json:"stack"`
	Pot                  int64           `json:"pot"`
	NextActiveID         string          `json:"next_active_id,omitempty"`
	BettingRoundFinished bool            `json:"betting_round_finished"`
}

func (e PlayerActionSuccess) EventName() string { return EventPlayerActionSuccess }

// BettingRoundStarted is broadcast when a new street opens.
type BettingRoundStarted struct {
	TableID        string        `json:"table_id"`
	RoundID        string        `json:"round_id"`
	BettingRoundID string        `json:"betting_round_id"`
	Street         string        `json:"street"`
	CommunityCards []poker.Card  `json:"community_cards"`
	Players        []SeatSummary `json:"players"`
	ActiveID       string        `json:"active_id"`
}

func (e BettingRoundStarted) EventName() string { return EventBettingRoundStarted }

// PlayerTimedOut is broadcast when the turn timer plays for a user.
type PlayerTimedOut struct {
	TableID              string `json:"table_id"`
	UserID               string `json:"user_id"`
	BettingRoundPlayerID string `json:"betting_round_player_id"`
	Action               string `json:"action"`
}

func (e PlayerTimedOut) EventName() string { return EventPlayerTimedOut }

// Winner is the public view of an award.
type Winner struct {
	PlayerID  string       `json:"player_id"`
	UserID    string       `json:"user_id"`
	Amount    int64        `json:"amount"`
	Stack     int64        `json:"stack"`
	HandName  string       `json:"hand_name,omitempty"`
	BestCards []poker.Card `json:"best_cards,omitempty"`
}

// ShownHand is a hole card reveal at showdown.
type ShownHand struct {
	PlayerID  string       `json:"player_id"`
	HoleCards []poker.Card `json:"hole_cards"`
	HandName  string       `json:"hand_name"`
}

// RoundEnded is broadcast when the pot has been paid.
type RoundEnded struct {
	TableID        string       `json:"table_id"`
	RoundID        string       `json:"round_id"`
	Pot            int64        `json:"pot"`
	Showdown       bool         `json:"showdown"`
	CommunityCards []poker.Card `json:"community_cards"`
	Winners        []Winner     `json:"winners"`
	Shown          []ShownHand  `json:"shown,omitempty"`
}

func (e RoundEnded) EventName() string { return EventRoundEnded }
