// Package batch runs bulk requests through a single FIFO worker in bounded,
// paced chunks.
//
// Exactly one job is active at a time. A job's requests are split into chunks
// of ChunkSize; the requests in a chunk run concurrently and every one of them
// settles before the next chunk starts. Consecutive chunk starts are at least
// ChunkDelay apart, and the worker waits Cooldown after a job before picking
// up the next one. Every request yields exactly one Outcome, in submission
// order; a failing request never cancels its siblings. Cancelling a
// submission stops its job at the next chunk boundary and settles the
// requests that never ran with the context error.
package batch
