package artifactstore

import "time"

// SetClock overrides the store's time source.
func SetClock(s *Store, now func() time.Time) {
	s.now = now
}

// ForceSchemaVersion rewrites the recorded schema version.
func ForceSchemaVersion(s *Store, version int) error {
	_, err := s.db.Exec("UPDATE schema_version SET version = ?", version)
	return err
}
