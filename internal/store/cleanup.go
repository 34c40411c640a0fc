package store

import (
	"context"
)

// cleanupOrphaned releases every PlayerKey this server's identity
// still holds from a previous run (rows orphaned by a crash),
// crediting the Game's time_played for any row whose release brings
// players_connected to zero. do_cleanup is a stored procedure so the
// whole sweep commits atomically.
func (s *Store) cleanupOrphaned(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "CALL do_cleanup($1)", s.identity.String())
	if err != nil {
		return wrapStorage("cleanup", err)
	}
	return nil
}
