package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"

	"igoserver/internal/wire"
)

// wsSender adapts a single websocket connection to session.Sender. The
// coder/websocket Conn forbids concurrent writers, and both the read
// loop's direct replies and the store's notification callbacks write to
// the same socket, so every write is serialized through writeMu.
type wsSender struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (s *wsSender) Send(ctx context.Context, msg wire.OutgoingMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}
