// Package services defines shared utilities consumed by the caption sources,
// the inference client, and the enrichment pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, languages, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (network, parse, exhausted sources, AI failure).
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
