package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// runReconnect is the recovery task spawned when the dedicated LISTEN
// connection's termination hook fires. It loops acquiring a fresh
// connection, re-subscribes every key still in the registry under the
// same lock that guards subscribe/unsubscribe, and then, per key,
// re-reads game status, chat and opponent state directly and hands them
// to the callbacks, so sessions refresh state that may have changed
// while the connection was down. Chat threads are retransmitted as
// complete (handleChat's forceComplete) so clients replace rather than
// append entries they may already hold.
func (s *Store) runReconnect(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, err := pgx.Connect(ctx, s.cfg.DatabaseURL)
		if err != nil {
			s.log.Warn().Err(err).Msg("reconnect attempt failed")
			select {
			case <-s.done:
				return
			case <-time.After(DBUnavailableSleep):
				continue
			}
		}

		s.mu.Lock()
		s.listener = conn
		keys := make([]string, 0, len(s.registry))
		for key := range s.registry {
			keys = append(keys, key)
		}
		for _, key := range keys {
			for _, ch := range channelsFor(key) {
				_, _ = conn.Exec(ctx, "LISTEN "+quoteIdent(ch))
			}
		}
		s.mu.Unlock()

		s.log.Info().Int("keys", len(keys)).Msg("listener reconnected, resubscribed")

		for _, key := range keys {
			s.handleGameStatus(ctx, key)
			s.handleChat(ctx, key, "", true)
			if v, err := s.readOpponentConnected(ctx, key); err == nil && s.callbacks.OnOpponentConnected != nil {
				s.callbacks.OnOpponentConnected(key, v)
			}
		}

		go s.runListener(ctx)
		return
	}
}
