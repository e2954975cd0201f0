package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"lingocast/internal/batch"
	"lingocast/internal/cache"
	"lingocast/internal/language"
	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/services/llm"
	"lingocast/internal/transcript"
)

// SourceLanguage is the language of the captions the pipeline studies. The
// language of an artifact key is the learner's translation target.
const SourceLanguage = "en"

const (
	defaultArtifactCacheSize = 256
	defaultContentCacheSize  = 2048
	defaultCacheTTL          = 24 * time.Hour
)

// Inference is the subset of the llm client used by the pipeline.
type Inference interface {
	Enabled() bool
	Invoke(ctx context.Context, task llm.TaskType, messages []llm.Message, maxTokens int) (string, error)
}

// ArtifactStore persists encoded artifacts across restarts.
type ArtifactStore interface {
	Get(ctx context.Context, key cache.ArtifactKey) ([]byte, bool, error)
	Put(ctx context.Context, key cache.ArtifactKey, payload []byte) error
	Delete(ctx context.Context, key cache.ArtifactKey) error
}

// Config wires an Enricher.
type Config struct {
	Inference         Inference
	Store             ArtifactStore
	Queue             *batch.Queue
	SentenceDelay     time.Duration
	ArtifactCacheSize int
	ContentCacheSize  int
	CacheTTL          time.Duration
	Logger            *slog.Logger
	Now               func() time.Time
}

// Enricher runs the enrichment pipeline and owns its caches.
type Enricher struct {
	ai            Inference
	store         ArtifactStore
	queue         *batch.Queue
	sentenceDelay time.Duration
	logger        *slog.Logger
	now           func() time.Time

	artifacts    *cache.LRU[cache.ArtifactKey, *Artifact]
	phrases      *cache.LRU[cache.ContentKey, []Phrase]
	complexities *cache.LRU[cache.ContentKey, Complexity]
	translations *cache.LRU[cache.ContentKey, string]
}

// New constructs an Enricher. A nil Inference behaves like a disabled client.
func New(cfg Config) *Enricher {
	artifactSize := cfg.ArtifactCacheSize
	if artifactSize <= 0 {
		artifactSize = defaultArtifactCacheSize
	}
	contentSize := cfg.ContentCacheSize
	if contentSize <= 0 {
		contentSize = defaultContentCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Enricher{
		ai:            cfg.Inference,
		store:         cfg.Store,
		queue:         cfg.Queue,
		sentenceDelay: max(cfg.SentenceDelay, 0),
		logger:        logging.NewComponentLogger(cfg.Logger, "enrich"),
		now:           now,
		artifacts:     cache.New[cache.ArtifactKey, *Artifact](artifactSize, ttl),
		phrases:       cache.New[cache.ContentKey, []Phrase](contentSize, ttl),
		complexities:  cache.New[cache.ContentKey, Complexity](contentSize, ttl),
		translations:  cache.New[cache.ContentKey, string](contentSize, ttl),
	}
}

// ArtifactKey builds the cache key used for videoID and lang.
func ArtifactKey(videoID, lang string) cache.ArtifactKey {
	return cache.ArtifactKey{VideoID: strings.TrimSpace(videoID), Language: normalizeLanguage(lang)}
}

func normalizeLanguage(lang string) string {
	if normalized := language.Normalize(lang); normalized != "" {
		return normalized
	}
	if trimmed := strings.ToLower(strings.TrimSpace(lang)); trimmed != "" {
		return trimmed
	}
	return "en"
}

// ProcessTranscript enriches entries into an Artifact for (videoID, lang).
// A cached artifact short-circuits all inference. Once started the pipeline
// ignores caller cancellation and runs to completion; only an empty videoID
// is reported as an error.
func (e *Enricher) ProcessTranscript(ctx context.Context, entries []transcript.Entry, videoID, lang string) (*Artifact, error) {
	return e.process(ctx, entries, videoID, lang, false)
}

// ProcessPlaceholder enriches a placeholder transcript. The artifact is
// flagged synthetic and bypasses both cache tiers so real captions replace
// it once a source recovers.
func (e *Enricher) ProcessPlaceholder(ctx context.Context, entries []transcript.Entry, videoID, lang string) (*Artifact, error) {
	return e.process(ctx, entries, videoID, lang, true)
}

func (e *Enricher) process(ctx context.Context, entries []transcript.Entry, videoID, lang string, synthetic bool) (*Artifact, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, services.Wrap(services.ErrValidation, "enrich", "process transcript", "video id is required", nil)
	}
	key := ArtifactKey(videoID, lang)
	ctx = services.WithLanguage(services.WithVideoID(context.WithoutCancel(ctx), key.VideoID), key.Language)
	logger := logging.WithContext(ctx, e.logger)

	if !synthetic {
		if cached, ok := e.lookup(ctx, key, logger); ok {
			return cached, nil
		}
	}

	started := time.Now()
	artifact := e.build(ctx, entries, key, logger)
	artifact.Synthetic = synthetic
	if !synthetic {
		e.artifacts.Set(key, artifact)
		e.persist(ctx, key, artifact, logger)
	}

	logger.Info("transcript enriched",
		logging.Int("entries", len(entries)),
		logging.Int("sentences", artifact.Insights.TotalSentences),
		logging.Int("phrases", artifact.Insights.TotalPhrases),
		logging.Bool("degraded", artifact.Degraded),
		logging.Bool("synthetic", synthetic),
		logging.Duration("elapsed", time.Since(started)),
	)
	return artifact.Clone(), nil
}

// Cached returns the artifact for (videoID, lang) when either cache tier holds
// it.
func (e *Enricher) Cached(ctx context.Context, videoID, lang string) (*Artifact, bool) {
	key := ArtifactKey(videoID, lang)
	if key.VideoID == "" {
		return nil, false
	}
	ctx = services.WithLanguage(services.WithVideoID(ctx, key.VideoID), key.Language)
	return e.lookup(ctx, key, logging.WithContext(ctx, e.logger))
}

func (e *Enricher) lookup(ctx context.Context, key cache.ArtifactKey, logger *slog.Logger) (*Artifact, bool) {
	if cached, ok := e.artifacts.Get(key); ok {
		logger.Debug("artifact cache hit")
		return cached.Clone(), true
	}
	if artifact, ok := e.loadPersisted(ctx, key, logger); ok && !artifact.Synthetic {
		e.artifacts.Set(key, artifact)
		return artifact.Clone(), true
	}
	return nil, false
}

// Invalidate drops the cached artifact for (videoID, lang) from every tier.
func (e *Enricher) Invalidate(ctx context.Context, videoID, lang string) error {
	key := ArtifactKey(videoID, lang)
	e.artifacts.Delete(key)
	if e.store == nil {
		return nil
	}
	return e.store.Delete(ctx, key)
}

// CacheStats reports in-memory artifact cache counters.
func (e *Enricher) CacheStats() cache.Stats {
	return e.artifacts.Stats()
}

// PurgeMemory drops every in-memory cache entry.
func (e *Enricher) PurgeMemory() {
	e.artifacts.Purge()
	e.phrases.Purge()
	e.complexities.Purge()
	e.translations.Purge()
}

func (e *Enricher) loadPersisted(ctx context.Context, key cache.ArtifactKey, logger *slog.Logger) (*Artifact, bool) {
	if e.store == nil {
		return nil, false
	}
	payload, ok, err := e.store.Get(ctx, key)
	if err != nil {
		logging.Fallback(logger, "artifact store read failed", "artifact_store_read_failed", err,
			logging.String(logging.FieldImpact, "artifact will be rebuilt"),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		logger.Warn("discarding undecodable persisted artifact", logging.Error(err))
		return nil, false
	}
	logger.Debug("artifact store hit")
	return &artifact, true
}

func (e *Enricher) persist(ctx context.Context, key cache.ArtifactKey, artifact *Artifact, logger *slog.Logger) {
	if e.store == nil {
		return
	}
	payload, err := json.Marshal(artifact)
	if err != nil {
		logger.Warn("encode artifact failed", logging.Error(err))
		return
	}
	if err := e.store.Put(ctx, key, payload); err != nil {
		logging.Fallback(logger, "artifact store write failed", "artifact_store_write_failed", err,
			logging.String(logging.FieldImpact, "artifact will be recomputed after restart"),
		)
	}
}

// build runs the stages. A systemic failure, including a panic outside the
// per-sentence sub-calls, yields the passthrough artifact. Sub-call panics
// fall back per sentence.
func (e *Enricher) build(ctx context.Context, entries []transcript.Entry, key cache.ArtifactKey, logger *slog.Logger) (artifact *Artifact) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("enrichment pipeline panicked; using passthrough",
				logging.Any("panic", r),
				logging.String(logging.FieldEventType, "pipeline_passthrough"),
			)
			artifact = e.passthrough(entries, key)
		}
	}()

	if err := validateEntries(entries); err != nil {
		logging.Fallback(logger, "entries unusable; using passthrough", "pipeline_passthrough", err)
		return e.passthrough(entries, key)
	}

	raw := transcript.JoinText(entries)
	corrected := e.correct(services.WithStage(ctx, "correction"), raw, SourceLanguage)
	segments := e.segment(services.WithStage(ctx, "segmentation"), entries, corrected, SourceLanguage)
	if len(segments) == 0 {
		logging.Fallback(logger, "segmentation produced no sentences; using passthrough", "pipeline_passthrough", nil)
		return e.passthrough(entries, key)
	}

	analysisCtx := services.WithStage(ctx, "analysis")
	sentences := make([]Sentence, len(segments))
	for i, seg := range segments {
		if i > 0 {
			e.pause(analysisCtx)
		}
		sentences[i] = e.analyzeSentence(analysisCtx, i, seg, key.Language)
	}

	return &Artifact{
		VideoID:     key.VideoID,
		Language:    key.Language,
		Sentences:   sentences,
		Insights:    computeInsights(sentences),
		ProcessedAt: e.now().UTC(),
	}
}

// passthrough maps each entry to one unenriched sentence.
func (e *Enricher) passthrough(entries []transcript.Entry, key cache.ArtifactKey) *Artifact {
	sentences := make([]Sentence, 0, len(entries))
	for _, entry := range entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		sentences = append(sentences, newSentence(len(sentences), segment{
			Text:     text,
			Start:    finiteNonNegative(entry.Start),
			Duration: finiteNonNegative(entry.Duration),
		}, text, []Phrase{}, basicComplexity()))
	}
	return &Artifact{
		VideoID:     key.VideoID,
		Language:    key.Language,
		Sentences:   sentences,
		Insights:    computeInsights(sentences),
		ProcessedAt: e.now().UTC(),
		Degraded:    true,
	}
}

var errNoEntries = errors.New("no caption entries")

// validateEntries rejects sequences the stages cannot work with.
func validateEntries(entries []transcript.Entry) error {
	if len(entries) == 0 {
		return errNoEntries
	}
	hasText := false
	prev := 0.0
	for i, entry := range entries {
		if !isFinite(entry.Start) || !isFinite(entry.Duration) || entry.Start < 0 || entry.Duration < 0 {
			return fmt.Errorf("entry %d has invalid timing (start=%v duration=%v)", i, entry.Start, entry.Duration)
		}
		if i > 0 && entry.Start < prev {
			return fmt.Errorf("entry %d starts before entry %d", i, i-1)
		}
		prev = entry.Start
		if strings.TrimSpace(entry.Text) != "" {
			hasText = true
		}
	}
	if !hasText {
		return errNoEntries
	}
	return nil
}

func (e *Enricher) pause(ctx context.Context) {
	if e.sentenceDelay <= 0 {
		return
	}
	timer := time.NewTimer(e.sentenceDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteNonNegative(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}
