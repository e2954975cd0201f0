// Package llm provides a chat-completion client for the enrichment pipeline.
//
// # Task Routing
//
// Every call names a TaskType (transcript_fix, sentence_split,
// phrase_extract, translation, analysis, learning_tips). The client maps the
// task to a model through a table built once at construction from the
// built-in defaults and [llm.models] overrides; unknown tasks use the default
// model.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Invoke: send messages for a task, receive generated text.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: tolerant decoding of fenced or prefixed JSON output.
//
// # Retry Behaviour
//
// Up to 3 attempts share one budget. A 429 waits attempt x 2s before the next
// attempt; network errors, timeouts, 408/5xx responses, and empty content
// wait attempt x 1s. Other 4xx responses fail immediately. Every terminal
// failure is marked services.ErrAIProcessing (and services.ErrRateLimited
// when the last response was a 429). Context cancellation aborts retries.
//
// A client-side golang.org/x/time/rate limiter spaces requests when
// requests_per_second is configured.
//
// # Fallback
//
// A client without an API key reports Enabled() == false and fails every
// Invoke with ErrAIProcessing without network I/O. Callers substitute their
// deterministic heuristics in that case.
package llm
