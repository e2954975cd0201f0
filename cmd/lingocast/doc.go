// Package main hosts the lingocast CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto pipeline.Service
// operations: caption and metadata lookups against the configured sources,
// transcript enrichment, single-sentence tools, cache maintenance, readiness
// checks, and configuration scaffolding. Every data command accepts --json for
// machine-readable output; the default rendering uses tables.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through a command or flag here.
package main
