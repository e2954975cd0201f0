package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"lingocast/internal/language"
	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/transcript"
	"lingocast/internal/videoid"
)

const fallbackLanguage = "en"

// Track is one caption track advertised for a video.
type Track struct {
	Label         string `json:"label"`
	Language      string `json:"language"`
	URL           string `json:"url"`
	AutoGenerated bool   `json:"auto_generated"`
}

// Availability summarizes which captions exist for a video.
type Availability struct {
	VideoID          string   `json:"video_id"`
	Available        bool     `json:"available"`
	Languages        []string `json:"languages"`
	HasAutoGenerated bool     `json:"has_auto_generated"`
	Synthetic        bool     `json:"synthetic,omitempty"`
}

type rawTrack struct {
	Label         string `json:"label"`
	LanguageCode  string `json:"languageCode"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	URL           string `json:"url"`
	AutoGenerated bool   `json:"autoGenerated"`
}

type trackEnvelope struct {
	Captions  []rawTrack `json:"captions"`
	Subtitles []rawTrack `json:"subtitles"`
}

// ListTracks returns the caption tracks the source family advertises for id.
// Invidious answers with "captions", Piped with the "subtitles" of a stream.
func (r *Resolver) ListTracks(ctx context.Context, id string) ([]Track, error) {
	if !videoid.Valid(id) {
		return nil, services.Wrap(services.ErrValidation, "sources", "list tracks", "invalid video id "+quoteID(id), nil)
	}
	body, _, err := r.request(ctx, route{
		invidious: "/api/v1/captions/" + url.PathEscape(id),
		piped:     "/streams/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}
	var envelope trackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, services.Wrap(services.ErrParse, "sources", "list tracks", "decode response", err)
	}
	raw := envelope.Captions
	if len(raw) == 0 {
		raw = envelope.Subtitles
	}
	tracks := make([]Track, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		label := firstNonEmpty(item.Label, item.Name)
		code := firstNonEmpty(item.LanguageCode, item.Code)
		if normalized := language.Normalize(code); normalized != "" {
			code = normalized
		}
		tracks = append(tracks, Track{
			Label:         label,
			Language:      code,
			URL:           item.URL,
			AutoGenerated: item.AutoGenerated || strings.Contains(strings.ToLower(label), "auto-generated"),
		})
	}
	return tracks, nil
}

// SelectTrack picks the track for lang, else English, else the first track.
// Within one language a manual track wins over an auto-generated one.
func SelectTrack(tracks []Track, lang string) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}
	for _, want := range []string{lang, fallbackLanguage} {
		if want == "" {
			continue
		}
		var auto *Track
		for i := range tracks {
			if !language.Matches(tracks[i].Language, want) {
				continue
			}
			if !tracks[i].AutoGenerated {
				return tracks[i], true
			}
			if auto == nil {
				auto = &tracks[i]
			}
		}
		if auto != nil {
			return *auto, true
		}
	}
	return tracks[0], true
}

// Captions is the result of caption acquisition. Synthetic is set when the
// entries are the development placeholder rather than real captions.
type Captions struct {
	Entries   []transcript.Entry
	Synthetic bool
}

// ExtractCaptions returns timed entries for id in lang. The HTTP source family
// is tried first, then the subprocess extractor. Outside production mode a
// synthetic transcript is returned when both fail.
func (r *Resolver) ExtractCaptions(ctx context.Context, id, lang string) ([]transcript.Entry, error) {
	captions, err := r.FetchCaptions(ctx, id, lang)
	if err != nil {
		return nil, err
	}
	return captions.Entries, nil
}

// FetchCaptions is ExtractCaptions reporting whether the placeholder
// transcript was served.
func (r *Resolver) FetchCaptions(ctx context.Context, id, lang string) (Captions, error) {
	if !videoid.Valid(id) {
		return Captions{}, services.Wrap(services.ErrValidation, "sources", "captions", "invalid video id "+quoteID(id), nil)
	}
	lang = normalizeRequestedLanguage(lang)
	logger := r.logger.With(
		logging.String(logging.FieldVideoID, id),
		logging.String(logging.FieldLanguage, lang),
	)

	entries, err := r.captionsFromSources(ctx, id, lang)
	if err == nil {
		return Captions{Entries: entries}, nil
	}
	if ctx.Err() != nil {
		return Captions{}, err
	}
	failures := []error{err}
	logger.Warn("source captions unavailable",
		logging.Error(err),
		logging.String(logging.FieldEventType, "captions_source_failed"),
		logging.String(logging.FieldErrorHint, "falling back to subprocess extractor"),
	)

	if r.extractor != nil {
		extracted, exErr := r.extractor.Extract(ctx, id, lang)
		if exErr == nil {
			logger.Info("captions recovered via extractor", logging.Int("entries", len(extracted)))
			return Captions{Entries: extracted}, nil
		}
		failures = append(failures, exErr)
		logger.Warn("extractor failed",
			logging.Error(exErr),
			logging.String(logging.FieldEventType, "captions_extractor_failed"),
		)
	}

	exhausted := services.Wrap(services.ErrAllSourcesExhausted, "sources", "captions", "source family and extractor failed", errors.Join(failures...))
	if r.production {
		return Captions{}, exhausted
	}
	logging.Fallback(logger, "serving synthetic captions", "synthetic_fallback", exhausted,
		logging.String(logging.FieldImpact, "placeholder transcript returned"),
	)
	return Captions{Entries: syntheticEntries(), Synthetic: true}, nil
}

func (r *Resolver) captionsFromSources(ctx context.Context, id, lang string) ([]transcript.Entry, error) {
	tracks, err := r.ListTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	track, ok := SelectTrack(tracks, lang)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "sources", "captions", "no caption tracks listed", nil)
	}
	body, err := r.fetchTrack(ctx, track)
	if err != nil {
		return nil, err
	}
	entries, err := transcript.Parse(body, transcript.FormatAuto)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrParse, "sources", "captions", fmt.Sprintf("track %q has no cues", track.Label), nil)
	}
	return entries, nil
}

func (r *Resolver) fetchTrack(ctx context.Context, track Track) ([]byte, error) {
	parsed, err := url.Parse(track.URL)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "sources", "captions", "invalid track url", err)
	}
	if parsed.IsAbs() {
		return r.getAbsolute(ctx, track.URL)
	}
	return r.RequestWithFailover(ctx, parsed.Path, parsed.Query())
}

// CheckTranscriptAvailability reports which caption languages exist for id.
func (r *Resolver) CheckTranscriptAvailability(ctx context.Context, id string) (Availability, error) {
	tracks, err := r.ListTracks(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrAllSourcesExhausted) && !r.production {
			logging.Fallback(r.logger, "all sources failed; reporting synthetic availability", "synthetic_fallback", err,
				logging.String(logging.FieldVideoID, id),
			)
			return Availability{VideoID: id, Available: true, Languages: []string{fallbackLanguage}, Synthetic: true}, nil
		}
		return Availability{}, err
	}
	codes := make([]string, 0, len(tracks))
	auto := false
	for _, track := range tracks {
		codes = append(codes, track.Language)
		auto = auto || track.AutoGenerated
	}
	languages := language.NormalizeList(codes)
	return Availability{
		VideoID:          id,
		Available:        len(tracks) > 0,
		Languages:        languages,
		HasAutoGenerated: auto,
	}, nil
}

func normalizeRequestedLanguage(lang string) string {
	if normalized := language.Normalize(lang); normalized != "" {
		return normalized
	}
	return fallbackLanguage
}
