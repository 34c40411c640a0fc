package igo

import (
	"encoding/json"
	"fmt"
)

// Point is a single intersection on the board. MarkedDead and Counted are
// only meaningful during the scoring phase: a stone group agreed dead is
// marked, and a point is Counted once territory scanning has attributed it
// to a color (recorded in CountsFor).
type Point struct {
	Color      Color
	MarkedDead bool
	Counted    bool
	CountsFor  Color
}

// MarshalJSON renders a Point as the wire 4-tuple
// [colorShort, markedDead, counted, countsForShort].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Color.shortCode(), p.MarkedDead, p.Counted, p.CountsFor.shortCode()})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var tuple [4]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("igo: decoding point: %w", err)
	}

	var colorShort, countsForShort string
	if err := json.Unmarshal(tuple[0], &colorShort); err != nil {
		return fmt.Errorf("igo: decoding point color: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &p.MarkedDead); err != nil {
		return fmt.Errorf("igo: decoding point markedDead: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &p.Counted); err != nil {
		return fmt.Errorf("igo: decoding point counted: %w", err)
	}
	if err := json.Unmarshal(tuple[3], &countsForShort); err != nil {
		return fmt.Errorf("igo: decoding point countsFor: %w", err)
	}

	color, err := colorFromShortCode(colorShort)
	if err != nil {
		return err
	}
	countsFor, err := colorFromShortCode(countsForShort)
	if err != nil {
		return err
	}
	p.Color = color
	p.CountsFor = countsFor
	return nil
}
