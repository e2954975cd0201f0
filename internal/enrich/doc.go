// Package enrich turns timed caption entries into learning artifacts.
//
// ProcessTranscript runs four stages: correction, segmentation, per-sentence
// analysis, and insight aggregation. Every inference-backed step has a
// deterministic fallback, so callers always receive a structurally valid
// Artifact; degraded fields (identity translations, rule-based complexity,
// table-matched phrases) signal best-effort enrichment. Model output is
// decoded and validated strictly against the expected shape, and any
// mismatch selects the fallback.
//
// Sentences are analyzed one at a time with a configurable pause between
// them; within a sentence, phrase extraction, complexity grading, and (for
// non-English input) translation run concurrently and fall back
// independently.
//
// Artifacts are cached by (video id, language) in memory and, when a Store is
// configured, in SQLite. Phrase, complexity, and translation results are
// cached by a digest of their inputs. Cached artifacts are never mutated;
// callers receive deep copies.
package enrich
