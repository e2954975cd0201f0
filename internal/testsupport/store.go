package testsupport

import (
	"testing"

	"lingocast/internal/artifactstore"
	"lingocast/internal/config"
)

// MustOpenArtifactStore opens an artifactstore.Store for tests and registers cleanup.
func MustOpenArtifactStore(t testing.TB, cfg *config.Config) *artifactstore.Store {
	t.Helper()

	store, err := artifactstore.Open(cfg)
	if err != nil {
		t.Fatalf("artifactstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
