package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingocast/internal/artifactstore"
	"lingocast/internal/batch"
	"lingocast/internal/cache"
	"lingocast/internal/config"
	"lingocast/internal/enrich"
	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/services/llm"
	"lingocast/internal/sources"
	"lingocast/internal/transcript"
	"lingocast/internal/videoid"
	"lingocast/internal/ytdlp"
)

// Option customizes Service construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
	runner     ytdlp.CommandRunner
	llmOptions []llm.Option
	now        func() time.Time
}

// WithHTTPClient overrides the client used for caption source requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithCommandRunner overrides how the yt-dlp subprocess is executed.
func WithCommandRunner(runner ytdlp.CommandRunner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

// WithLLMOptions forwards options to the inference client.
func WithLLMOptions(opts ...llm.Option) Option {
	return func(o *options) {
		o.llmOptions = append(o.llmOptions, opts...)
	}
}

// WithClock overrides the artifact timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Service exposes caption acquisition and enrichment.
type Service struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *sources.Resolver
	ai       *llm.Client
	queue    *batch.Queue
	store    *artifactstore.Store
	enricher *enrich.Enricher

	closeOnce sync.Once
	closeErr  error
}

// CacheStatus summarizes both artifact cache tiers.
type CacheStatus struct {
	Memory    cache.Stats
	Persisted int
	StorePath string
}

// New builds a Service from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	resolverCfg := sources.Config{
		Instances:  cfg.Sources.Instances,
		UserAgent:  cfg.Sources.UserAgent,
		Timeout:    cfg.SourceTimeout(),
		Production: cfg.Sources.Production,
		HTTPClient: o.httpClient,
		Logger:     logger,
	}
	if cfg.Extractor.Enabled {
		resolverCfg.Extractor = ytdlp.New(ytdlp.Config{
			Binary:     cfg.Extractor.Binary,
			ScratchDir: cfg.Paths.ScratchDir,
			Timeout:    cfg.ExtractorTimeout(),
			Logger:     logger,
			Runner:     o.runner,
		})
	}
	resolver, err := sources.New(resolverCfg)
	if err != nil {
		return nil, err
	}

	llmCfg := cfg.GetLLM()
	llmOpts := append([]llm.Option{llm.WithLogger(logger)}, o.llmOptions...)
	ai := llm.NewClient(llm.Config{
		APIKey:            llmCfg.APIKey,
		BaseURL:           llmCfg.BaseURL,
		DefaultModel:      llmCfg.DefaultModel,
		Referer:           llmCfg.Referer,
		Title:             llmCfg.Title,
		TimeoutSeconds:    llmCfg.TimeoutSeconds,
		RequestsPerSecond: llmCfg.RequestsPerSecond,
		Models:            llmCfg.Models,
	}, llmOpts...)

	var store *artifactstore.Store
	if cfg.Pipeline.PersistArtifacts {
		store, err = artifactstore.Open(cfg)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "open artifact store", err)
		}
	}

	queue := batch.New(batch.Config{
		ChunkSize:  cfg.Batch.ChunkSize,
		ChunkDelay: pacing(cfg.Batch.ChunkDelayMillis),
		Cooldown:   pacing(cfg.Batch.CooldownMillis),
		Logger:     logger,
	})

	enrichCfg := enrich.Config{
		Inference:         ai,
		Queue:             queue,
		SentenceDelay:     time.Duration(cfg.Pipeline.SentenceDelayMillis) * time.Millisecond,
		ArtifactCacheSize: cfg.Pipeline.ArtifactCacheSize,
		ContentCacheSize:  cfg.Pipeline.ContentCacheSize,
		CacheTTL:          cfg.CacheTTL(),
		Logger:            logger,
		Now:               o.now,
	}
	if store != nil {
		enrichCfg.Store = store
	}

	svc := &Service{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		resolver: resolver,
		ai:       ai,
		queue:    queue,
		store:    store,
		enricher: enrich.New(enrichCfg),
	}
	svc.logger.Debug("pipeline ready",
		logging.Int("instances", len(resolver.Instances())),
		logging.Bool("production", resolver.Production()),
		logging.Bool("inference_enabled", ai.Enabled()),
		logging.Bool("persist_artifacts", store != nil),
		logging.Bool("extractor_enabled", cfg.Extractor.Enabled),
	)
	return svc, nil
}

// pacing maps a configured delay to the batch queue convention, where zero
// selects the default and a negative value disables pacing.
func pacing(millis int) time.Duration {
	if millis <= 0 {
		return -1
	}
	return time.Duration(millis) * time.Millisecond
}

// Close stops the batch worker and closes the artifact store.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.queue.Close()
		if s.store != nil {
			s.closeErr = s.store.Close()
		}
	})
	return s.closeErr
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// InferenceEnabled reports whether model calls will be attempted.
func (s *Service) InferenceEnabled() bool {
	return s.ai.Enabled()
}

// withRequest tags ctx with a correlation id unless one is already present.
func withRequest(ctx context.Context) context.Context {
	if _, ok := services.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return services.WithRequestID(ctx, uuid.NewString())
}

// ExtractVideoID returns the video id referenced by urlOrID.
func (s *Service) ExtractVideoID(urlOrID string) (string, bool) {
	return videoid.Extract(urlOrID)
}

// resolveID accepts a URL or bare id. Unrecognized input is passed through so
// the resolver reports the validation error.
func resolveID(urlOrID string) string {
	if id, ok := videoid.Extract(urlOrID); ok {
		return id
	}
	return strings.TrimSpace(urlOrID)
}

// GetVideoDetails returns normalized metadata for a video.
func (s *Service) GetVideoDetails(ctx context.Context, urlOrID string) (sources.VideoDetails, error) {
	return s.resolver.GetVideoDetails(withRequest(ctx), resolveID(urlOrID))
}

// ExtractCaptions returns the timed caption entries for a video.
func (s *Service) ExtractCaptions(ctx context.Context, urlOrID, lang string) ([]transcript.Entry, error) {
	return s.resolver.ExtractCaptions(withRequest(ctx), resolveID(urlOrID), lang)
}

// CheckTranscriptAvailability reports which caption tracks a video offers.
func (s *Service) CheckTranscriptAvailability(ctx context.Context, urlOrID string) (sources.Availability, error) {
	return s.resolver.CheckTranscriptAvailability(withRequest(ctx), resolveID(urlOrID))
}

// SearchVideos runs a keyword search across the configured sources.
func (s *Service) SearchVideos(ctx context.Context, query string, opts sources.ListOptions) (sources.Page, error) {
	return s.resolver.SearchVideos(withRequest(ctx), query, opts)
}

// GetChannelVideos lists a channel's uploads.
func (s *Service) GetChannelVideos(ctx context.Context, channelID string, opts sources.ListOptions) (sources.Page, error) {
	return s.resolver.GetChannelVideos(withRequest(ctx), channelID, opts)
}

// GetPlaylistItems lists the videos in a playlist.
func (s *Service) GetPlaylistItems(ctx context.Context, playlistID string, opts sources.ListOptions) (sources.Page, error) {
	return s.resolver.GetPlaylistItems(withRequest(ctx), playlistID, opts)
}

// ProcessTranscript enriches already acquired caption entries.
func (s *Service) ProcessTranscript(ctx context.Context, entries []transcript.Entry, videoID, lang string) (*enrich.Artifact, error) {
	return s.enricher.ProcessTranscript(withRequest(ctx), entries, videoID, lang)
}

// ProcessVideo acquires the English captions for a video and enriches them
// for a learner of lang. A cached artifact is returned without contacting any
// source.
func (s *Service) ProcessVideo(ctx context.Context, urlOrID, lang string) (*enrich.Artifact, error) {
	ctx = withRequest(ctx)
	id, ok := videoid.Extract(urlOrID)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "process video", "no video id in "+strings.TrimSpace(urlOrID), nil)
	}
	if artifact, ok := s.enricher.Cached(ctx, id, lang); ok {
		return artifact, nil
	}
	started := time.Now()
	captions, err := s.resolver.FetchCaptions(ctx, id, enrich.SourceLanguage)
	if err != nil {
		return nil, err
	}
	process := s.enricher.ProcessTranscript
	if captions.Synthetic {
		process = s.enricher.ProcessPlaceholder
	}
	artifact, err := process(ctx, captions.Entries, id, lang)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithVideoID(ctx, id), s.logger).Info("video processed",
		logging.Int("entries", len(captions.Entries)),
		logging.Int("sentences", len(artifact.Sentences)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return artifact, nil
}

// GetPhraseBreakdown returns the detailed view of one sentence.
func (s *Service) GetPhraseBreakdown(ctx context.Context, sentenceID string, sentences []enrich.Sentence) (enrich.Breakdown, error) {
	return s.enricher.GetPhraseBreakdown(withRequest(ctx), sentenceID, sentences)
}

// FixTranscript restores punctuation and casing in text.
func (s *Service) FixTranscript(ctx context.Context, text, lang string) (string, error) {
	return s.enricher.FixTranscript(withRequest(ctx), text, lang)
}

// TranslateText translates text into target.
func (s *Service) TranslateText(ctx context.Context, text, target, hint string) (string, error) {
	return s.enricher.TranslateText(withRequest(ctx), text, target, hint)
}

// TranslateBatch translates texts through the batch queue.
func (s *Service) TranslateBatch(ctx context.Context, texts []string, target string) ([]batch.Outcome, error) {
	return s.enricher.TranslateBatch(withRequest(ctx), texts, target)
}

// AnalyzeComplexity grades text.
func (s *Service) AnalyzeComplexity(ctx context.Context, text string) (enrich.Complexity, error) {
	return s.enricher.AnalyzeComplexity(withRequest(ctx), text)
}

// ExtractPhrases lists learnable phrases in text.
func (s *Service) ExtractPhrases(ctx context.Context, text, hint string) ([]enrich.Phrase, error) {
	return s.enricher.ExtractPhrases(withRequest(ctx), text, hint)
}

// Invalidate drops the cached artifact for a video and language.
func (s *Service) Invalidate(ctx context.Context, urlOrID, lang string) error {
	return s.enricher.Invalidate(ctx, resolveID(urlOrID), lang)
}

// ClearCache drops every cached artifact and content result. It returns the
// number of persisted artifacts removed.
func (s *Service) ClearCache(ctx context.Context) (int64, error) {
	s.enricher.PurgeMemory()
	if s.store == nil {
		return 0, nil
	}
	return s.store.Clear(ctx)
}

// PruneCache removes expired persisted artifacts.
func (s *Service) PruneCache(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.Prune(ctx)
}

// CacheStatus reports artifact cache counters.
func (s *Service) CacheStatus(ctx context.Context) (CacheStatus, error) {
	status := CacheStatus{Memory: s.enricher.CacheStats()}
	if s.store == nil {
		return status, nil
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return status, err
	}
	status.Persisted = count
	status.StorePath = s.store.Path()
	return status, nil
}
