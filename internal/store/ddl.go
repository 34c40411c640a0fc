package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// runDDL applies the goose migrations in s.cfg.DDLPath. goose wants a
// database/sql handle, so this borrows pgx's stdlib adapter rather than
// opening a second driver for one-time use.
func (s *Store) runDDL(ctx context.Context) error {
	path := s.cfg.DDLPath
	if path == "" {
		path = "db/migrations"
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, path); err != nil {
		return fmt.Errorf("store: applying migrations: %w", err)
	}
	return nil
}
