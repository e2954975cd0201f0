package artifactstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lingocast/internal/cache"
)

// Get returns the payload stored for key. Expired rows are reported as absent.
func (s *Store) Get(ctx context.Context, key cache.ArtifactKey) ([]byte, bool, error) {
	ctx = ensureContext(ctx)
	var payload []byte
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload FROM artifacts WHERE video_id = ? AND language = ? AND expires_at > ?",
			key.VideoID, key.Language, s.now().UnixMilli(),
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get artifact %s: %w", key, err)
	}
	return payload, true, nil
}

// Put stores payload under key, replacing any existing row.
func (s *Store) Put(ctx context.Context, key cache.ArtifactKey, payload []byte) error {
	ctx = ensureContext(ctx)
	now := s.now()
	err := s.withWriteLock(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO artifacts (video_id, language, payload, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (video_id, language) DO UPDATE SET
				payload = excluded.payload,
				created_at = excluded.created_at,
				expires_at = excluded.expires_at`,
			key.VideoID, key.Language, payload, now.UnixMilli(), now.Add(s.ttl).UnixMilli(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (s *Store) Delete(ctx context.Context, key cache.ArtifactKey) error {
	ctx = ensureContext(ctx)
	err := s.withWriteLock(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			"DELETE FROM artifacts WHERE video_id = ? AND language = ?", key.VideoID, key.Language)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	return nil
}

// Prune removes expired rows and returns how many were deleted.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, "DELETE FROM artifacts WHERE expires_at <= ?", s.now().UnixMilli())
}

// Clear removes every row and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, "DELETE FROM artifacts")
}

// Count returns the number of unexpired rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM artifacts WHERE expires_at > ?", s.now().UnixMilli(),
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count artifacts: %w", err)
	}
	return count, nil
}

func (s *Store) deleteWhere(ctx context.Context, query string, args ...any) (int64, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := s.withWriteLock(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	return affected, nil
}
