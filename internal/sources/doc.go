// Package sources resolves video metadata and captions from an ordered list of
// interchangeable Invidious/Piped-compatible instances.
//
// A single Resolver is shared by concurrent callers. Its cursor points at the
// instance tried first; a request that fails against one instance advances
// the cursor and moves on until every instance has been attempted once, after
// which it reports services.ErrAllSourcesExhausted. Caption extraction has a
// second tier: when the HTTP family fails, a subprocess Extractor (yt-dlp) is
// consulted. Outside production mode, exhaustion of metadata and caption
// lookups degrades to deterministic synthetic records so local development
// keeps working offline.
//
// Every exported method returns canonical structures (VideoDetails,
// VideoSummary, Page, Availability, transcript entries); provider-specific
// response shapes never leak past this package.
package sources
