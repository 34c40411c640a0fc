// Package igo implements the Go (board game) rule engine: legal moves,
// captures, ko, territory scoring, and serialization of game state. It is
// the external collaborator the session and store layers treat as a
// contract; its job is correctness of the board logic, not the session
// or persistence design.
package igo

import (
	"encoding/json"
	"fmt"
)

// Color identifies a player's stones, or the absence of one on a Point.
type Color int

const (
	None Color = iota
	White
	Black
)

// Inverse returns the opposing player color. Calling it on None panics,
// since it has no opponent.
func (c Color) Inverse() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		panic("igo: Inverse called on None color")
	}
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// shortCode is the single-character form used in the wire board
// representation ("" | "w" | "b").
func (c Color) shortCode() string {
	switch c {
	case White:
		return "w"
	case Black:
		return "b"
	default:
		return ""
	}
}

func colorFromShortCode(s string) (Color, error) {
	switch s {
	case "":
		return None, nil
	case "w":
		return White, nil
	case "b":
		return Black, nil
	default:
		return None, fmt.Errorf("igo: invalid color short code %q", s)
	}
}

// ParseColor parses the long-form names used in incoming client frames
// ("white" | "black").
func ParseColor(s string) (Color, error) {
	switch s {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	default:
		return None, fmt.Errorf("igo: invalid color %q", s)
	}
}

func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = None
		return nil
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
