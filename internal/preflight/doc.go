// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths lingocast depends on.
//
// The CLI "lingocast status" command runs RunAll and renders each Result.
// Failures are informational: caption sources fail over and enrichment falls
// back to heuristics, so only a missing cache directory blocks processing.
package preflight
