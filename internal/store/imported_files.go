package store

import (
	"context"
	"database/sql"
	"time"
)

// ImportedFileHash returns the sha256 recorded for a question file, or ""
// if the file was never imported.
func (s *Store) ImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT sha256 FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the sha256 of an imported question file.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imported_files (path, sha256, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET sha256 = excluded.sha256, imported_at = excluded.imported_at`,
		path, hash, now.UTC(),
	)
	return err
}
