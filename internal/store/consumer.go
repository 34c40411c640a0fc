package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// runListener drains pgconn.Notification off the dedicated LISTEN
// connection and turns each into an update on s.queue. It never
// interprets payloads itself; that's the consumer's job. On any error
// it exits and lets runReconnect take over, acting as the connection's
// termination hook.
func (s *Store) runListener(ctx context.Context) {
	for {
		notification, err := s.listener.WaitForNotification(ctx)
		if err != nil {
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			default:
			}
			s.log.Warn().Err(err).Msg("listener connection lost, reconnecting")
			s.runReconnect(ctx)
			return
		}
		s.dispatchNotification(notification)
	}
}

func (s *Store) dispatchNotification(n *pgconn.Notification) {
	kind, key, ok := parseChannel(n.Channel)
	if !ok {
		return
	}
	select {
	case s.queue <- update{kind: kind, key: key, payload: n.Payload}:
	case <-s.done:
	}
}

// parseChannel recovers (kind, key) from a channel name built by
// channelsFor. None of the three prefixes is a prefix of another, so
// the order of the checks doesn't matter.
func parseChannel(channel string) (updateKind, string, bool) {
	switch {
	case strings.HasPrefix(channel, "game_status_"):
		return updateGameStatus, strings.TrimPrefix(channel, "game_status_"), true
	case strings.HasPrefix(channel, "chat_"):
		return updateChat, strings.TrimPrefix(channel, "chat_"), true
	case strings.HasPrefix(channel, "opponent_connected_"):
		return updateOpponentConnected, strings.TrimPrefix(channel, "opponent_connected_"), true
	default:
		return 0, "", false
	}
}

// runConsumer is the single dispatcher goroutine for all update kinds:
// it drains s.queue and, per entry, re-reads authoritative state and
// invokes the registered callback.
func (s *Store) runConsumer(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case u := <-s.queue:
			s.handleUpdate(ctx, u)
		}
	}
}

func (s *Store) handleUpdate(ctx context.Context, u update) {
	s.mu.Lock()
	known := s.registry[u.key]
	s.mu.Unlock()
	if !known {
		s.log.Warn().Str("key", u.key).Msg("notification for unregistered key dropped")
		return
	}

	switch u.kind {
	case updateGameStatus:
		s.handleGameStatus(ctx, u.key)
	case updateChat:
		s.handleChat(ctx, u.key, u.payload, false)
	case updateOpponentConnected:
		s.handleOpponentConnected(ctx, u.key, u.payload)
	}
}

func (s *Store) handleGameStatus(ctx context.Context, key string) {
	if !s.coalesceAcquire(ctx, "game_status", key) {
		return
	}
	blob, timePlayed, err := s.readGameStatus(ctx, key)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("reading game status for notification")
		return
	}
	if s.callbacks.OnGameStatus != nil {
		s.callbacks.OnGameStatus(key, blob, timePlayed)
	}
}

func (s *Store) readGameStatus(ctx context.Context, key string) ([]byte, float64, error) {
	var blob []byte
	var timePlayed float64
	err := s.pool.QueryRow(ctx, `SELECT blob, time_played FROM get_game_status($1)`, key).Scan(&blob, &timePlayed)
	return blob, timePlayed, err
}

func (s *Store) handleChat(ctx context.Context, key, payload string, forceComplete bool) {
	var afterID int64
	isComplete := payload == "" || forceComplete
	if !isComplete {
		id, err := strconv.ParseInt(payload, 10, 64)
		if err == nil {
			afterID = id
		}
	}

	messages, err := s.readChatSince(ctx, key, afterID, isComplete)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("reading chat for notification")
		return
	}
	if s.callbacks.OnChat != nil {
		s.callbacks.OnChat(key, ChatUpdate{Messages: messages, IsComplete: isComplete})
	}
}

func (s *Store) readChatSince(ctx context.Context, key string, afterID int64, all bool) ([]ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, game_id, timestamp, color, text FROM get_chat_updates($1, $2, $3)`, key, afterID, all)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.GameID, &m.Timestamp, &m.Color, &m.Text); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) handleOpponentConnected(ctx context.Context, key, payload string) {
	var connected bool
	switch payload {
	case "true":
		connected = true
	case "false":
		connected = false
	default:
		if !s.coalesceAcquire(ctx, "opponent_connected", key) {
			return
		}
		v, err := s.readOpponentConnected(ctx, key)
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("reading opponent_connected for notification")
			return
		}
		connected = v
	}
	if s.callbacks.OnOpponentConnected != nil {
		s.callbacks.OnOpponentConnected(key, connected)
	}
}

func (s *Store) readOpponentConnected(ctx context.Context, key string) (bool, error) {
	var connected bool
	err := s.pool.QueryRow(ctx, `SELECT get_opponent_connected($1)`, key).Scan(&connected)
	return connected, err
}
