package server

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lox/holdemtables/internal/game"
)

// MessageType represents a WebSocket message type with type safety
type MessageType string

// Client to server messages
const (
	MessageTypeAuth         MessageType = "auth"
	MessageTypeJoinTable    MessageType = "join_table"
	MessageTypeLeaveTable   MessageType = "leave_table"
	MessageTypeListTables   MessageType = "list_tables"
	MessageTypePlayerAction MessageType = "player_action"
)

// Server to client messages. Table events use their event name as the type.
const (
	MessageTypeError        MessageType = "error"
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableList    MessageType = "table_list"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// NewEventMessage wraps a table event.
func NewEventMessage(e game.Event) (*Message, error) {
	return NewMessage(MessageType(e.EventName()), e)
}

// Client → Server Messages

type AuthData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type JoinTableData struct {
	TableID    string `json:"table_id"`
	PositionID string `json:"position_id,omitempty"`
	BuyIn      int64  `json:"buy_in"`
}

type LeaveTableData struct {
	TableID string `json:"table_id"`
}

type ActionData struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount,omitempty"`
}

type PlayerActionData struct {
	TableID string       `json:"table_id"`
	Actions []ActionData `json:"actions"`
}

// Intents converts the wire actions. Unknown action names are rejected.
func (d PlayerActionData) Intents() ([]game.Intent, error) {
	intents := make([]game.Intent, 0, len(d.Actions))
	for _, a := range d.Actions {
		t, ok := game.ParseActionType(strings.ToUpper(a.Type))
		if !ok {
			return nil, &game.GameError{Code: game.CodeInvalidAction, Message: "unknown action " + a.Type, TableID: d.TableID}
		}
		intents = append(intents, game.Intent{Type: t, Amount: a.Amount})
	}
	return intents, nil
}

// Server → Client Messages

type AuthResponseData struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableJoinedData struct {
	TableID    string `json:"table_id"`
	PlayerID   string `json:"player_id"`
	PositionID string `json:"position_id"`
	Stack      int64  `json:"stack"`
}

type TableLeftData struct {
	TableID string `json:"table_id"`
	CashOut int64  `json:"cash_out"`
}

type TableListData struct {
	Tables []GameSummary `json:"tables"`
}

// Error codes for failures that are not table rule violations
const (
	ErrorCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrorCodeUnknownType      = "UNKNOWN_MESSAGE_TYPE"
	ErrorCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrorCodeTableNotFound    = "TABLE_NOT_FOUND"
	ErrorCodeInternal         = "INTERNAL_ERROR"
)

// ErrorDataFrom maps an error onto the wire. Table rule violations keep
// their code; anything else is reported as internal.
func ErrorDataFrom(err error) ErrorData {
	var ge *game.GameError
	if errors.As(err, &ge) {
		return ErrorData{Code: string(ge.Code), Message: ge.Message}
	}
	return ErrorData{Code: ErrorCodeInternal, Message: err.Error()}
}
