package igo

// RequestKind distinguishes the proposals that require the opponent's
// accept/reject before taking effect: the two request_* actions plus
// mark_dead, which negotiates which stones are dead the same way.
type RequestKind string

const (
	DrawRequest       RequestKind = "draw"
	TallyScoreRequest RequestKind = "tally_score"
	MarkDeadRequest   RequestKind = "mark_dead"
)

// Request is the single outstanding proposal awaiting the opponent's
// accept/reject, if any.
type Request struct {
	Kind      RequestKind `json:"kind"`
	Requester Color       `json:"requester"`
}
