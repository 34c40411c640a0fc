package igo

import (
	"encoding/json"
	"fmt"
)

// Status is the coarse phase of a Game.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusScoring    Status = "scoring"
	StatusCompleted  Status = "completed"
)

// Game is the authoritative rule-engine state for one match: board,
// action stack (whose length is the Game's version per the store layer's
// optimistic-concurrency contract), status, komi, prisoners, whose turn it
// is, territory once scored, any outstanding request, and the final result
// once completed.
type Game struct {
	board          *Board
	status         Status
	komi           float64
	prisoners      map[Color]int
	turn           Color
	territory      map[Color]int
	pendingRequest *Request
	result         *Result
	actionStack    []Action
	koForbidden    *Coords
}

// NewGame constructs a fresh game on an empty size x size board. Black
// moves first, as is conventional.
func NewGame(size int, komi float64) *Game {
	return &Game{
		board:     NewBoard(size),
		status:    StatusInProgress,
		komi:      komi,
		prisoners: map[Color]int{White: 0, Black: 0},
		turn:      Black,
		territory: map[Color]int{},
	}
}

func (g *Game) Version() int        { return len(g.actionStack) }
func (g *Game) Board() *Board       { return g.board }
func (g *Game) Status() Status      { return g.status }
func (g *Game) Komi() float64       { return g.komi }
func (g *Game) Turn() Color         { return g.turn }
func (g *Game) Result() *Result     { return g.result }
func (g *Game) PendingRequest() *Request {
	return g.pendingRequest
}

func (g *Game) Prisoners(c Color) int { return g.prisoners[c] }
func (g *Game) Territory(c Color) int { return g.territory[c] }

// LastMove returns the coordinates of the most recent place_stone action,
// if any action has been taken and the most recent one was a placement.
func (g *Game) LastMove() *Coords {
	if len(g.actionStack) == 0 {
		return nil
	}
	last := g.actionStack[len(g.actionStack)-1]
	if last.Type != PlaceStone {
		return nil
	}
	return last.Coords
}

// TakeAction applies a single client-submitted action, returning whether it
// was accepted and, if not, a human-readable reason suitable for a
// game_action_response.
func (g *Game) TakeAction(a Action) (bool, string) {
	if g.status == StatusCompleted {
		return false, "the game is over"
	}
	switch a.Type {
	case PlaceStone:
		return g.placeStone(a)
	case PassTurn:
		return g.passTurn(a)
	case MarkDead:
		return g.markDead(a)
	case RequestDraw:
		return g.request(a, DrawRequest)
	case RequestTallyScore:
		return g.request(a, TallyScoreRequest)
	case Resign:
		return g.resign(a)
	case Accept:
		return g.respond(a, true)
	case Reject:
		return g.respond(a, false)
	default:
		return false, fmt.Sprintf("unknown action type %q", a.Type)
	}
}

func (g *Game) placeStone(a Action) (bool, string) {
	if g.status != StatusInProgress {
		return false, "the game is not in progress"
	}
	if a.Color != g.turn {
		return false, fmt.Sprintf("it isn't %s's turn", a.Color)
	}
	if a.Coords == nil {
		return false, "place_stone requires coords"
	}
	c := *a.Coords
	if !g.board.inBounds(c) {
		return false, "coords are out of bounds"
	}
	if g.board.at(c).Color != None {
		return false, "point is already occupied"
	}

	trial := g.board.Clone()
	trial.set(c, Point{Color: a.Color})

	opponent := a.Color.Inverse()
	var captured []Coords
	for _, n := range trial.neighbors(c) {
		if trial.at(n).Color != opponent {
			continue
		}
		members, hasLiberty := trial.group(n)
		if !hasLiberty {
			for _, m := range members {
				trial.set(m, Point{})
			}
			captured = append(captured, members...)
		}
	}

	ownGroup, ownLiberty := trial.group(c)
	if !ownLiberty {
		return false, "illegal move: suicide"
	}

	if g.koForbidden != nil && *g.koForbidden == c {
		return false, "illegal move: recapture violates the ko rule"
	}

	g.board = trial
	g.turn = opponent
	g.prisoners[a.Color] += len(captured)
	g.actionStack = append(g.actionStack, a)

	if len(captured) == 1 && len(ownGroup) == 1 {
		koPoint := captured[0]
		g.koForbidden = &koPoint
	} else {
		g.koForbidden = nil
	}
	return true, ""
}

func (g *Game) passTurn(a Action) (bool, string) {
	if g.status != StatusInProgress {
		return false, "the game is not in progress"
	}
	if a.Color != g.turn {
		return false, fmt.Sprintf("it isn't %s's turn", a.Color)
	}

	lastWasPass := len(g.actionStack) > 0 && g.actionStack[len(g.actionStack)-1].Type == PassTurn
	g.actionStack = append(g.actionStack, a)
	g.koForbidden = nil

	if lastWasPass {
		g.status = StatusScoring
		g.computeTerritory()
	} else {
		g.turn = a.Color.Inverse()
	}
	return true, ""
}

// markDead marks one group as dead and opens a mark_dead request for
// the opponent to accept or reject. Only one group can be marked at a
// time; the marks take effect (or are undone) in resolveMarkedDead.
func (g *Game) markDead(a Action) (bool, string) {
	if g.status != StatusScoring {
		return false, "marking dead stones requires the scoring phase"
	}
	if g.pendingRequest != nil {
		return false, "a request is already pending"
	}
	if a.Coords == nil {
		return false, "mark_dead requires coords"
	}
	c := *a.Coords
	if !g.board.inBounds(c) {
		return false, "coords are out of bounds"
	}
	if g.board.at(c).Color == None {
		return false, "point is empty"
	}

	members, _ := g.board.group(c)
	for _, m := range members {
		p := g.board.at(m)
		p.MarkedDead = true
		g.board.set(m, p)
	}
	g.pendingRequest = &Request{Kind: MarkDeadRequest, Requester: a.Color}
	g.actionStack = append(g.actionStack, a)
	return true, ""
}

func (g *Game) request(a Action, kind RequestKind) (bool, string) {
	if kind == TallyScoreRequest && g.status != StatusScoring {
		return false, "tallying score requires the scoring phase"
	}
	if kind == DrawRequest && g.status != StatusInProgress {
		return false, "draws may only be requested while the game is in progress"
	}
	if g.pendingRequest != nil {
		return false, "a request is already pending"
	}
	g.pendingRequest = &Request{Kind: kind, Requester: a.Color}
	g.actionStack = append(g.actionStack, a)
	return true, ""
}

func (g *Game) resign(a Action) (bool, string) {
	g.status = StatusCompleted
	g.result = &Result{Outcome: OutcomeResignation, Winner: a.Color.Inverse()}
	g.actionStack = append(g.actionStack, a)
	return true, ""
}

func (g *Game) respond(a Action, approve bool) (bool, string) {
	if g.pendingRequest == nil {
		return false, "no request is pending"
	}
	if a.Color == g.pendingRequest.Requester {
		return false, "cannot respond to your own request"
	}

	req := *g.pendingRequest
	g.pendingRequest = nil
	g.actionStack = append(g.actionStack, a)

	switch req.Kind {
	case DrawRequest:
		if approve {
			g.status = StatusCompleted
			g.result = &Result{Outcome: OutcomeDraw, Winner: None}
		}
	case TallyScoreRequest:
		if approve {
			g.finalizeScore()
		}
	case MarkDeadRequest:
		g.resolveMarkedDead(approve)
	}
	return true, ""
}

// resolveMarkedDead settles the one group currently marked dead. An
// accepted mark removes the stones and credits them to the opponent's
// prisoner count; a rejected mark unmarks them and returns the game to
// play so the dispute is resolved on the board.
func (g *Game) resolveMarkedDead(approve bool) {
	var markedColor Color
	marked := 0
	for i := 0; i < g.board.Size; i++ {
		for j := 0; j < g.board.Size; j++ {
			c := Coords{i, j}
			p := g.board.at(c)
			if !p.MarkedDead {
				continue
			}
			markedColor = p.Color
			p.MarkedDead = false
			if approve {
				p.Color = None
			}
			g.board.set(c, p)
			marked++
		}
	}
	if marked == 0 {
		return
	}
	if approve {
		g.prisoners[markedColor.Inverse()] += marked
		g.computeTerritory()
	} else {
		g.status = StatusInProgress
	}
}

func (g *Game) finalizeScore() {
	g.computeTerritory()
	scoreWhite := float64(g.territory[White]+g.prisoners[White]) + g.komi
	scoreBlack := float64(g.territory[Black] + g.prisoners[Black])

	winner := None
	outcome := OutcomeScore
	switch {
	case scoreWhite > scoreBlack:
		winner = White
	case scoreBlack > scoreWhite:
		winner = Black
	default:
		outcome = OutcomeDraw
	}

	g.status = StatusCompleted
	g.result = &Result{
		Outcome:    outcome,
		Winner:     winner,
		ScoreWhite: scoreWhite,
		ScoreBlack: scoreBlack,
	}
}

// gameBlob is the canonical on-the-wire and on-disk shape of a Game:
// the single serializable representation used both as the database blob
// and as the basis of the client-facing game_status payload (see
// StatusData).
type gameBlob struct {
	Board          *Board         `json:"board"`
	Status         Status         `json:"status"`
	Komi           float64        `json:"komi"`
	Prisoners      map[string]int `json:"prisoners"`
	Turn           Color          `json:"turn"`
	Territory      map[string]int `json:"territory"`
	PendingRequest *Request       `json:"pendingRequest"`
	Result         *Result        `json:"result"`
	ActionStack    []Action       `json:"actionStack"`
	KoForbidden    *Coords        `json:"koForbidden,omitempty"`
}

func (g Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameBlob{
		Board:  g.board,
		Status: g.status,
		Komi:   g.komi,
		Prisoners: map[string]int{
			"white": g.prisoners[White],
			"black": g.prisoners[Black],
		},
		Turn: g.turn,
		Territory: map[string]int{
			"white": g.territory[White],
			"black": g.territory[Black],
		},
		PendingRequest: g.pendingRequest,
		Result:         g.result,
		ActionStack:    g.actionStack,
		KoForbidden:    g.koForbidden,
	})
}

func (g *Game) UnmarshalJSON(data []byte) error {
	var blob gameBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("igo: decoding game: %w", err)
	}
	g.board = blob.Board
	g.status = blob.Status
	g.komi = blob.Komi
	g.prisoners = map[Color]int{White: blob.Prisoners["white"], Black: blob.Prisoners["black"]}
	g.turn = blob.Turn
	g.territory = map[Color]int{White: blob.Territory["white"], Black: blob.Territory["black"]}
	g.pendingRequest = blob.PendingRequest
	g.result = blob.Result
	g.actionStack = blob.ActionStack
	g.koForbidden = blob.KoForbidden
	return nil
}

// StatusData is the client-visible projection of a Game plus the
// store-tracked time played, matching the wire game_status payload shape.
type StatusData struct {
	Board          *Board   `json:"board"`
	Status         Status   `json:"status"`
	Komi           float64  `json:"komi"`
	Prisoners      Tally    `json:"prisoners"`
	Turn           Color    `json:"turn"`
	Territory      Tally    `json:"territory"`
	PendingRequest *Request `json:"pendingRequest"`
	Result         *Result  `json:"result"`
	LastMove       *Coords  `json:"lastMove"`
	TimePlayed     float64  `json:"timePlayed"`
}

// Tally is the {white, black} shape used for prisoners and territory in
// the wire protocol.
type Tally struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// StatusPayload builds the outgoing game_status payload for this game at
// the given accumulated play time.
func (g *Game) StatusPayload(timePlayed float64) StatusData {
	return StatusData{
		Board:          g.board,
		Status:         g.status,
		Komi:           g.komi,
		Prisoners:      Tally{White: g.prisoners[White], Black: g.prisoners[Black]},
		Turn:           g.turn,
		Territory:      Tally{White: g.territory[White], Black: g.territory[Black]},
		PendingRequest: g.pendingRequest,
		Result:         g.result,
		LastMove:       g.LastMove(),
		TimePlayed:     timePlayed,
	}
}
