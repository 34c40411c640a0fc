package store

import (
	"context"
	"time"
)

// WriteNewGame inserts a fresh Game and its two PlayerKey rows via the
// new_game stored procedure, subscribes the creator's three channels,
// and returns both keys. aiColors names which colors are AI-designated;
// creatorColor must not be among them.
func (s *Store) WriteNewGame(ctx context.Context, gameBlob []byte, creatorColor string, aiColors []string, unsubscribeKey string) (Keys, string, map[string]string, error) {
	for _, c := range aiColors {
		if c == creatorColor {
			return Keys{}, "", nil, &InvalidArgumentError{Msg: "creator color cannot also be an AI color"}
		}
	}

	whiteKey, err := generateKey()
	if err != nil {
		return Keys{}, "", nil, wrapStorage("generate key", err)
	}
	blackKey, err := generateKey()
	if err != nil {
		return Keys{}, "", nil, wrapStorage("generate key", err)
	}

	aiSecrets := make(map[string]string, len(aiColors))
	var whiteAISecret, blackAISecret *string
	for _, c := range aiColors {
		secret, err := generateKey()
		if err != nil {
			return Keys{}, "", nil, wrapStorage("generate ai secret", err)
		}
		aiSecrets[c] = secret
		if c == "white" {
			whiteAISecret = &secret
		} else if c == "black" {
			blackAISecret = &secret
		}
	}

	var unsubArg any
	if unsubscribeKey != "" {
		unsubArg = unsubscribeKey
	}

	_, err = s.pool.Exec(ctx,
		`SELECT new_game($1, $2, $3, $4, $5, $6, $7, $8)`,
		whiteKey, blackKey, gameBlob, nullableString(creatorColor), whiteAISecret, blackAISecret, s.identity.String(), unsubArg,
	)
	if err != nil {
		return Keys{}, "", nil, wrapStorage("write new game", err)
	}

	creatorKey := whiteKey
	if creatorColor == "black" {
		creatorKey = blackKey
	}
	if creatorColor != "" {
		s.subscribe(ctx, creatorKey)
	}

	return Keys{White: whiteKey, Black: blackKey}, creatorKey, aiSecrets, nil
}

// JoinGame attaches the caller's server identity to key if it is free,
// via the join_game stored procedure.
func (s *Store) JoinGame(ctx context.Context, key, unsubscribeKey, aiSecret string) (JoinResult, Keys, error) {
	var unsubArg, secretArg any
	if unsubscribeKey != "" {
		unsubArg = unsubscribeKey
	}
	if aiSecret != "" {
		secretArg = aiSecret
	}

	var result string
	var whiteKey, blackKey *string
	err := s.pool.QueryRow(ctx,
		`SELECT result, white_key, black_key FROM join_game($1, $2, $3, $4)`,
		key, s.identity.String(), secretArg, unsubArg,
	).Scan(&result, &whiteKey, &blackKey)
	if err != nil {
		return "", Keys{}, wrapStorage("join game", err)
	}

	jr := JoinResult(result)
	if jr == JoinSuccess {
		s.subscribe(ctx, key)
		return jr, Keys{White: deref(whiteKey), Black: deref(blackKey)}, nil
	}
	return jr, Keys{}, nil
}

// OpponentAISecret returns the AI secret of key's sibling key, if any.
// It is a plain lookup rather than a stored procedure: it isn't part
// of the external database contract, just an internal authorization
// detail the Session Manager needs to decide whether to invoke the AI
// Launcher after a join.
func (s *Store) OpponentAISecret(ctx context.Context, key string) (secret string, opponentKey string, hasAI bool, err error) {
	var aiSecret *string
	err = s.pool.QueryRow(ctx,
		`SELECT o.key, o.ai_secret FROM player_keys k
		 JOIN player_keys o ON o.key = k.opponent_key WHERE k.key = $1`, key,
	).Scan(&opponentKey, &aiSecret)
	if err != nil {
		return "", "", false, wrapStorage("read opponent ai secret", err)
	}
	if aiSecret == nil {
		return "", opponentKey, false, nil
	}
	return *aiSecret, opponentKey, true, nil
}

// GameStatus reads key's current game blob and time played directly,
// without going through the notification path. The Session Manager
// uses it to decide whether a just-joined AI opponent needs relaunching
// (a completed game has no need to reconnect its AI player).
func (s *Store) GameStatus(ctx context.Context, key string) ([]byte, float64, error) {
	blob, timePlayed, err := s.readGameStatus(ctx, key)
	if err != nil {
		return nil, 0, wrapStorage("read game status", err)
	}
	return blob, timePlayed, nil
}

// TriggerUpdateAll synthesizes an empty-payload NOTIFY on all three of
// key's channels, so a just-subscribed caller's callbacks populate its
// cache from authoritative state.
func (s *Store) TriggerUpdateAll(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `SELECT trigger_update_all($1)`, key); err != nil {
		return wrapStorage("trigger update all", err)
	}
	return nil
}

// WriteGame performs the optimistic-concurrency write via the
// write_game stored procedure: it succeeds only if newVersion is
// exactly stored.version + 1.
func (s *Store) WriteGame(ctx context.Context, key string, gameBlob []byte, newVersion int) (timePlayed float64, ok bool, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT ok, time_played FROM write_game($1, $2, $3)`,
		key, gameBlob, newVersion,
	).Scan(&ok, &timePlayed)
	if err != nil {
		return 0, false, wrapStorage("write game", err)
	}
	return timePlayed, ok, nil
}

// WriteChat appends a chat row via the write_chat stored procedure,
// which also notifies both keys' chat channels.
func (s *Store) WriteChat(ctx context.Context, key string, color string, text string) (bool, error) {
	var notified bool
	var newID *int64
	err := s.pool.QueryRow(ctx,
		`SELECT notified, new_id FROM write_chat($1, $2, $3)`,
		key, color, text,
	).Scan(&notified, &newID)
	if err != nil {
		return false, wrapStorage("write chat", err)
	}
	return notified, nil
}

// Unsubscribe is the one operation that may not fail: it loops with
// DBUnavailableSleep backoff until the release succeeds, because
// failing permanently leaks ownership of a key. listenersOnly skips the
// database release and only tears down the in-process LISTEN callbacks,
// used when a reconnect races an unsubscribe that already committed.
func (s *Store) Unsubscribe(ctx context.Context, key string, listenersOnly bool) bool {
	released := false
	if !listenersOnly {
		for {
			var err error
			released, err = s.unsubscribeOnce(ctx, key)
			if err == nil {
				break
			}
			s.log.Warn().Err(err).Str("key", key).Msg("unsubscribe retrying")
			select {
			case <-ctx.Done():
				return false
			case <-time.After(DBUnavailableSleep):
			}
		}
	}

	s.mu.Lock()
	delete(s.registry, key)
	if s.listener != nil {
		for _, ch := range channelsFor(key) {
			_, _ = s.listener.Exec(ctx, "UNLISTEN "+quoteIdent(ch))
		}
	}
	s.mu.Unlock()
	return released
}

// unsubscribeOnce makes a single release attempt via the unsubscribe
// stored function. new_game/join_game apply their own unsubscribeKey
// argument inside their stored procedures; this standalone path is only
// reached from Unsubscribe's retry loop.
func (s *Store) unsubscribeOnce(ctx context.Context, key string) (bool, error) {
	var released bool
	err := s.pool.QueryRow(ctx, `SELECT unsubscribe($1, $2)`, key, s.identity.String()).Scan(&released)
	return released, err
}

func (s *Store) subscribe(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry[key] {
		return
	}
	s.registry[key] = true
	if s.listener == nil {
		return
	}
	for _, ch := range channelsFor(key) {
		_, _ = s.listener.Exec(ctx, "LISTEN "+quoteIdent(ch))
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
