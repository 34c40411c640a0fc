package igo

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType enumerates the moves a client can submit via a game_action
// frame.
type ActionType string

const (
	PlaceStone        ActionType = "place_stone"
	PassTurn          ActionType = "pass_turn"
	MarkDead          ActionType = "mark_dead"
	RequestDraw       ActionType = "request_draw"
	Resign            ActionType = "resign"
	RequestTallyScore ActionType = "request_tally_score"
	Accept            ActionType = "accept"
	Reject            ActionType = "reject"
)

func (t ActionType) valid() bool {
	switch t {
	case PlaceStone, PassTurn, MarkDead, RequestDraw, Resign, RequestTallyScore, Accept, Reject:
		return true
	default:
		return false
	}
}

// Action is one entry in a game's action stack: the unit of state
// transition, and the basis of the Game's version (len(ActionStack)).
type Action struct {
	Color     Color
	Type      ActionType
	Timestamp time.Time
	Coords    *Coords
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Color     Color      `json:"color"`
		Type      ActionType `json:"type"`
		Timestamp time.Time  `json:"timestamp"`
		Coords    *Coords    `json:"coords,omitempty"`
	}{a.Color, a.Type, a.Timestamp, a.Coords})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var shape struct {
		Color     Color      `json:"color"`
		Type      ActionType `json:"type"`
		Timestamp time.Time  `json:"timestamp"`
		Coords    *Coords    `json:"coords,omitempty"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("igo: decoding action: %w", err)
	}
	if !shape.Type.valid() {
		return fmt.Errorf("igo: invalid action type %q", shape.Type)
	}
	a.Color, a.Type, a.Timestamp, a.Coords = shape.Color, shape.Type, shape.Timestamp, shape.Coords
	return nil
}
