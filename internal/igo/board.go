package igo

import (
	"encoding/json"
	"fmt"
)

// Coords is a zero-indexed (row, col) board position.
type Coords [2]int

// Board is a square grid of Points, indexed points[row][col].
type Board struct {
	Size   int
	Points [][]Point
}

// NewBoard returns an empty board of the given size.
func NewBoard(size int) *Board {
	points := make([][]Point, size)
	for i := range points {
		points[i] = make([]Point, size)
	}
	return &Board{Size: size, Points: points}
}

// Clone deep-copies the board. Used before speculative moves so captures,
// suicide checks, and ko comparisons never mutate the board being tested
// against. This is the single most expensive operation in the engine when
// boards are large; a structural-sharing optimization is deferred unless
// profiling calls for it.
func (b *Board) Clone() *Board {
	clone := &Board{Size: b.Size, Points: make([][]Point, b.Size)}
	for i, row := range b.Points {
		clone.Points[i] = append([]Point(nil), row...)
	}
	return clone
}

func (b *Board) inBounds(c Coords) bool {
	return c[0] >= 0 && c[0] < b.Size && c[1] >= 0 && c[1] < b.Size
}

func (b *Board) at(c Coords) Point {
	return b.Points[c[0]][c[1]]
}

func (b *Board) set(c Coords, p Point) {
	b.Points[c[0]][c[1]] = p
}

func (b *Board) neighbors(c Coords) []Coords {
	candidates := []Coords{
		{c[0] - 1, c[1]},
		{c[0] + 1, c[1]},
		{c[0], c[1] - 1},
		{c[0], c[1] + 1},
	}
	out := make([]Coords, 0, 4)
	for _, n := range candidates {
		if b.inBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// group returns every coordinate connected to start by same-colored
// adjacency, and whether the group has at least one liberty (an adjacent
// empty point).
func (b *Board) group(start Coords) (members []Coords, hasLiberty bool) {
	color := b.at(start).Color
	seen := map[Coords]bool{start: true}
	stack := []Coords{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		members = append(members, cur)

		for _, n := range b.neighbors(cur) {
			np := b.at(n)
			if np.Color == None {
				hasLiberty = true
				continue
			}
			if np.Color == color && !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return members, hasLiberty
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Size   int       `json:"size"`
		Points [][]Point `json:"points"`
	}{Size: b.Size, Points: b.Points})
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var shape struct {
		Size   int       `json:"size"`
		Points [][]Point `json:"points"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("igo: decoding board: %w", err)
	}
	b.Size = shape.Size
	b.Points = shape.Points
	return nil
}
