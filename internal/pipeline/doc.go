// Package pipeline assembles the caption sources, inference client, batch
// queue, caches, and enrichment stages into one Service.
//
// A Service is built once from configuration and shared by concurrent callers.
// Source operations accept either a bare video id or any supported URL shape.
package pipeline
