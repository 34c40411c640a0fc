// Package session implements the Session Manager: per-connection state
// and the translation between client wire frames and Store Gateway
// operations, plus the store's notification callbacks back to sockets.
package session

import (
	"context"
	"sync"

	"igoserver/internal/igo"
	"igoserver/internal/wire"
)

// Sender delivers one outgoing frame to a single live connection. It is
// implemented by the socket-handling code in the server package so this
// package never imports a websocket library directly.
type Sender interface {
	Send(ctx context.Context, msg wire.OutgoingMessage) error
}

// ChatThread is the in-memory, per-session chat state: either the
// complete history or a tail appended incrementally.
type ChatThread struct {
	Entries    []wire.ChatEntry
	IsComplete bool
}

func (t *ChatThread) replace(entries []wire.ChatEntry) {
	t.Entries = entries
	t.IsComplete = true
}

func (t *ChatThread) extend(entries []wire.ChatEntry) {
	t.Entries = append(t.Entries, entries...)
}

// ClientSession is exclusively owned by its socket's handler goroutine,
// except for the fields the notification callbacks update; those
// updates are serialized by the session's own mu.
type ClientSession struct {
	mu sync.Mutex

	Key               string
	Color             igo.Color
	Game              *igo.Game
	TimePlayed        float64
	Chat              ChatThread
	OpponentConnected bool

	sender Sender
}

func newSession(key string, color igo.Color, sender Sender) *ClientSession {
	return &ClientSession{
		Key:    key,
		Color:  color,
		Chat:   ChatThread{IsComplete: true},
		sender: sender,
	}
}
