// Package wire defines the client-facing JSON frame shapes and the thin
// encode/decode boundary around them. It never touches the store or
// session packages directly; it only describes what a frame looks like
// on the socket.
package wire

import (
	"encoding/json"
	"fmt"

	"igoserver/internal/igo"
)

// IncomingType enumerates the client-to-server message kinds.
type IncomingType string

const (
	NewGame     IncomingType = "new_game"
	JoinGame    IncomingType = "join_game"
	GameAction  IncomingType = "game_action"
	ChatMessage IncomingType = "chat_message"
)

// IncomingMessage is the envelope every client frame arrives in:
// {"type": ..., ...fields}. Payload is re-parsed into the concrete
// request type once Type is known.
type IncomingMessage struct {
	Type    IncomingType    `json:"type"`
	Payload json.RawMessage `json:"-"`
}

// UnmarshalJSON captures Type normally but keeps the whole object
// available as Payload so handlers can decode their own required
// fields out of it (the fields live alongside "type", not nested).
func (m *IncomingMessage) UnmarshalJSON(data []byte) error {
	var head struct {
		Type IncomingType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("wire: decoding incoming frame: %w", err)
	}
	m.Type = head.Type
	m.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// NewGameRequest is the body of a new_game frame.
type NewGameRequest struct {
	Vs    string  `json:"vs"`
	Color string  `json:"color"`
	Size  int     `json:"size"`
	Komi  float64 `json:"komi"`
}

// JoinGameRequest is the body of a join_game frame.
type JoinGameRequest struct {
	Key      string `json:"key"`
	AISecret string `json:"ai_secret,omitempty"`
}

// GameActionRequest is the body of a game_action frame.
type GameActionRequest struct {
	Key        string         `json:"key"`
	ActionType igo.ActionType `json:"action_type"`
	Coords     *igo.Coords    `json:"coords,omitempty"`
}

// ChatMessageRequest is the body of a chat_message frame.
type ChatMessageRequest struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// OutgoingType enumerates the server-to-client message kinds.
type OutgoingType string

const (
	NewGameResponse    OutgoingType = "new_game_response"
	JoinGameResponse   OutgoingType = "join_game_response"
	GameActionResponse OutgoingType = "game_action_response"
	GameStatus         OutgoingType = "game_status"
	Chat               OutgoingType = "chat"
	OpponentConnected  OutgoingType = "opponent_connected"
	Error              OutgoingType = "error"
)

// OutgoingMessage is the envelope every server frame is sent in:
// {"messageType": ..., "data": ...}.
type OutgoingMessage struct {
	MessageType OutgoingType `json:"messageType"`
	Data        any          `json:"data"`
}

// Keys carries both player keys of a game. It has no ai_secret field:
// secrets never cross the client-facing wire.
type Keys struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// NewGameResponseData is the new_game_response payload.
type NewGameResponseData struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation"`
	Keys        *Keys  `json:"keys,omitempty"`
	YourColor   string `json:"yourColor,omitempty"`
}

// JoinGameResponseData is the join_game_response payload.
type JoinGameResponseData struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation"`
	Keys        *Keys  `json:"keys,omitempty"`
	YourColor   string `json:"yourColor,omitempty"`
}

// GameActionResponseData is the game_action_response payload.
type GameActionResponseData struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation"`
}

// ChatEntry is one entry of a chat thread as sent to the client.
type ChatEntry struct {
	Timestamp string `json:"timestamp"`
	Color     string `json:"color"`
	Message   string `json:"message"`
	ID        int64  `json:"id"`
}

// ChatData is the chat payload.
type ChatData struct {
	Thread     []ChatEntry `json:"thread"`
	IsComplete bool        `json:"isComplete"`
}

// OpponentConnectedData is the opponent_connected payload.
type OpponentConnectedData struct {
	OpponentConnected bool `json:"opponentConnected"`
}

// ErrorData is the error payload.
type ErrorData struct {
	ErrorMessage string `json:"errorMessage"`
}
