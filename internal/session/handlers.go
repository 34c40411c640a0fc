package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"igoserver/internal/ailaunch"
	"igoserver/internal/igo"
	"igoserver/internal/store"
	"igoserver/internal/wire"
)

// HandleFrame decodes one incoming frame and dispatches it. A
// ProtocolError (malformed frame, missing field) is replied as an error
// frame with the connection left open, never a return error the caller
// must close over.
func (m *Manager) HandleFrame(ctx context.Context, conn *Connection, raw []byte) {
	var msg wire.IncomingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.sendError(ctx, conn, fmt.Sprintf("malformed frame: %v", err))
		return
	}

	switch msg.Type {
	case wire.NewGame:
		m.handleNewGame(ctx, conn, msg.Payload)
	case wire.JoinGame:
		m.handleJoinGame(ctx, conn, msg.Payload)
	case wire.GameAction:
		m.handleGameAction(ctx, conn, msg.Payload)
	case wire.ChatMessage:
		m.handleChatMessage(ctx, conn, msg.Payload)
	default:
		m.sendError(ctx, conn, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (m *Manager) sendError(ctx context.Context, conn *Connection, text string) {
	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.Error, Data: wire.ErrorData{ErrorMessage: text}})
}

func (m *Manager) handleNewGame(ctx context.Context, conn *Connection, payload json.RawMessage) {
	var req wire.NewGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(ctx, conn, "malformed new_game frame")
		return
	}

	color, err := igo.ParseColor(req.Color)
	if err != nil {
		m.sendError(ctx, conn, err.Error())
		return
	}
	if req.Vs != "human" && req.Vs != "computer" {
		m.sendError(ctx, conn, fmt.Sprintf("invalid vs %q", req.Vs))
		return
	}

	oldKey := conn.currentKey()
	game := igo.NewGame(req.Size, req.Komi)
	blob, err := json.Marshal(game)
	if err != nil {
		m.sendError(ctx, conn, "internal error encoding new game")
		return
	}

	var aiColors []string
	if req.Vs == "computer" {
		aiColors = []string{color.Inverse().String()}
	}

	keys, creatorKey, aiSecrets, err := m.st.WriteNewGame(ctx, blob, color.String(), aiColors, oldKey)
	if err != nil {
		m.sendError(ctx, conn, err.Error())
		return
	}

	if oldKey != "" {
		m.unregister(oldKey)
	}

	s := newSession(creatorKey, color, conn.Sender)
	s.Game = game
	m.register(s)
	conn.setSession(s)

	opponentColor := color.Inverse().String()
	var opponentKey string
	explanation := "game created"
	if req.Vs == "human" {
		if color == igo.White {
			opponentKey = keys.Black
		} else {
			opponentKey = keys.White
		}
		explanation = fmt.Sprintf("game created; share key %s with your opponent", opponentKey)
	}

	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{
		MessageType: wire.NewGameResponse,
		Data: wire.NewGameResponseData{
			Success:     true,
			Explanation: explanation,
			Keys:        &wire.Keys{White: keys.White, Black: keys.Black},
			YourColor:   color.String(),
		},
	})
	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.GameStatus, Data: game.StatusPayload(0)})
	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.Chat, Data: wire.ChatData{IsComplete: true}})
	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.OpponentConnected, Data: wire.OpponentConnectedData{OpponentConnected: false}})

	if req.Vs == "computer" && m.ai != nil {
		secret := aiSecrets[opponentColor]
		oppKey := keys.White
		if color == igo.White {
			oppKey = keys.Black
		}
		go m.launchAI(oppKey, secret, nil)
	}
}

func (m *Manager) handleJoinGame(ctx context.Context, conn *Connection, payload json.RawMessage) {
	var req wire.JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(ctx, conn, "malformed join_game frame")
		return
	}

	if conn.currentKey() == req.Key {
		_ = conn.Sender.Send(ctx, wire.OutgoingMessage{
			MessageType: wire.JoinGameResponse,
			Data:        wire.JoinGameResponseData{Success: false, Explanation: "already playing"},
		})
		return
	}

	oldKey := conn.currentKey()
	result, keys, err := m.st.JoinGame(ctx, req.Key, oldKey, req.AISecret)
	if err != nil {
		m.sendError(ctx, conn, err.Error())
		return
	}

	explanation := ""
	switch result {
	case store.JoinDNE:
		explanation = "not found"
	case store.JoinInUse:
		explanation = "someone else is already playing"
	case store.JoinAIOnly:
		explanation = "designated computer player"
	case store.JoinSuccess:
		explanation = "joined"
	}

	if result != store.JoinSuccess {
		_ = conn.Sender.Send(ctx, wire.OutgoingMessage{
			MessageType: wire.JoinGameResponse,
			Data:        wire.JoinGameResponseData{Success: false, Explanation: explanation},
		})
		return
	}

	if oldKey != "" {
		m.unregister(oldKey)
	}

	color := igo.White
	if keys.Black == req.Key {
		color = igo.Black
	}

	s := newSession(req.Key, color, conn.Sender)
	m.register(s)
	conn.setSession(s)

	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{
		MessageType: wire.JoinGameResponse,
		Data: wire.JoinGameResponseData{
			Success:     true,
			Explanation: explanation,
			Keys:        &wire.Keys{White: keys.White, Black: keys.Black},
			YourColor:   color.String(),
		},
	})

	if err := m.st.TriggerUpdateAll(ctx, req.Key); err != nil {
		m.sendError(ctx, conn, err.Error())
	}

	if secret, opponentKey, hasAI, err := m.st.OpponentAISecret(ctx, req.Key); err == nil && hasAI && m.ai != nil {
		joinedKey := req.Key
		go m.launchAI(opponentKey, secret, m.previousSessionFor(context.Background(), joinedKey))
	}
}

// previousSessionFor builds the AI Launcher's reconnection hint for the
// AI opponent of the key that just (re)joined: the human on the other
// end of that join is connected by definition, so the only thing left
// to check is whether the game itself is already over.
func (m *Manager) previousSessionFor(ctx context.Context, key string) *ailaunch.PreviousSession {
	blob, _, err := m.st.GameStatus(ctx, key)
	if err != nil {
		return nil
	}
	var g igo.Game
	if err := json.Unmarshal(blob, &g); err != nil {
		return nil
	}
	return &ailaunch.PreviousSession{
		GameComplete:      g.Status() == igo.StatusCompleted,
		OpponentConnected: true,
	}
}

func (m *Manager) handleGameAction(ctx context.Context, conn *Connection, payload json.RawMessage) {
	var req wire.GameActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(ctx, conn, "malformed game_action frame")
		return
	}

	key := conn.currentKey()
	if key == "" || key != req.Key {
		log.Printf("session: dropping game_action on %s for key %q not owned by this socket", conn.ID, req.Key)
		return
	}

	s := m.lookup(key)
	if s == nil {
		m.sendError(ctx, conn, "no active game for this key")
		return
	}

	s.mu.Lock()
	if s.Game == nil {
		s.mu.Unlock()
		m.sendError(ctx, conn, "no active game for this key")
		return
	}
	action := igo.Action{Color: s.Color, Type: req.ActionType, Coords: req.Coords}
	ok, reason := s.Game.TakeAction(withTimestamp(action))
	s.mu.Unlock()

	if !ok {
		_ = conn.Sender.Send(ctx, wire.OutgoingMessage{
			MessageType: wire.GameActionResponse,
			Data:        wire.GameActionResponseData{Success: false, Explanation: reason},
		})
		return
	}

	s.mu.Lock()
	blob, err := json.Marshal(s.Game)
	newVersion := s.Game.Version()
	s.mu.Unlock()
	if err != nil {
		m.sendError(ctx, conn, "internal error encoding game")
		return
	}

	timePlayed, wrote, err := m.st.WriteGame(ctx, key, blob, newVersion)
	if err != nil {
		m.sendError(ctx, conn, err.Error())
		return
	}
	if !wrote {
		_ = conn.Sender.Send(ctx, wire.OutgoingMessage{
			MessageType: wire.GameActionResponse,
			Data:        wire.GameActionResponseData{Success: false, Explanation: "preempted"},
		})
		return
	}

	s.mu.Lock()
	s.TimePlayed = timePlayed
	g := s.Game
	s.mu.Unlock()

	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.GameActionResponse, Data: wire.GameActionResponseData{Success: true}})
	_ = conn.Sender.Send(ctx, wire.OutgoingMessage{MessageType: wire.GameStatus, Data: g.StatusPayload(timePlayed)})
}

func (m *Manager) handleChatMessage(ctx context.Context, conn *Connection, payload json.RawMessage) {
	var req wire.ChatMessageRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		m.sendError(ctx, conn, "malformed chat_message frame")
		return
	}

	key := conn.currentKey()
	if key == "" || key != req.Key {
		log.Printf("session: dropping chat_message on %s for key %q not owned by this socket", conn.ID, req.Key)
		return
	}
	s := m.lookup(key)
	if s == nil {
		return
	}

	if _, err := m.st.WriteChat(ctx, key, s.Color.String(), req.Message); err != nil {
		m.sendError(ctx, conn, err.Error())
	}
}

// HandleClose unsubscribes the connection's key, if any, and removes
// its session record. Unsubscribe runs in its own goroutine and retries
// internally until it succeeds or ctx expires: socket teardown passes a
// background context (the release must outlive the request), while the
// shutdown sweep passes its deadline context so Drain can bound the
// wait. Detaching the session first makes a second close a no-op.
func (m *Manager) HandleClose(ctx context.Context, conn *Connection) {
	s := conn.takeSession()
	if s == nil {
		return
	}
	m.unregister(s.Key)
	m.unsubWG.Add(1)
	go func() {
		defer m.unsubWG.Done()
		m.st.Unsubscribe(ctx, s.Key, false)
	}()
}

func withTimestamp(a igo.Action) igo.Action {
	a.Timestamp = time.Now()
	return a
}

func (m *Manager) launchAI(key, secret string, prev *ailaunch.PreviousSession) {
	if m.ai == nil {
		return
	}
	// Launch retries internally with AISleep backoff; a returned error
	// only happens for context cancellation, which has no caller to tell.
	_ = m.ai.Launch(context.Background(), ailaunch.KeyPair{PlayerKey: key, AISecret: secret}, false, prev)
}
