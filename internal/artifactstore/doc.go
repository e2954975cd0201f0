// Package artifactstore persists learning artifacts in SQLite so a restarted
// process can serve previously enriched transcripts without repeating
// inference.
//
// Rows are keyed by (video_id, language) and hold the artifact as an opaque
// JSON payload with an expiry. Expired rows are ignored on read and removed by
// Prune. Writers take an advisory file lock next to the database so several
// lingocast processes sharing a cache directory do not interleave writes;
// within one process the last Put for a key wins.
//
// The database is a cache, not an archive. Schema changes bump schemaVersion;
// users run `lingocast cache clear` to adopt a new schema.
package artifactstore
