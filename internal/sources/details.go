package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/videoid"
)

// GetVideoDetails resolves metadata for id. Outside production mode source
// exhaustion yields a synthetic record instead of an error.
func (r *Resolver) GetVideoDetails(ctx context.Context, id string) (VideoDetails, error) {
	if !videoid.Valid(id) {
		return VideoDetails{}, services.Wrap(services.ErrValidation, "sources", "video details", "invalid video id "+quoteID(id), nil)
	}
	body, _, err := r.request(ctx, route{
		invidious: "/api/v1/videos/" + url.PathEscape(id),
		piped:     "/streams/" + url.PathEscape(id),
	})
	if err != nil {
		if errors.Is(err, services.ErrAllSourcesExhausted) && !r.production {
			logging.Fallback(r.logger, "all sources failed; serving synthetic video details", "synthetic_fallback", err,
				logging.String(logging.FieldVideoID, id),
				logging.String(logging.FieldImpact, "placeholder metadata returned"),
			)
			return syntheticDetails(id), nil
		}
		return VideoDetails{}, err
	}
	var raw rawVideo
	if err := json.Unmarshal(body, &raw); err != nil {
		return VideoDetails{}, services.Wrap(services.ErrParse, "sources", "video details", "decode response", err)
	}
	details := raw.details(id)
	if details.Title == "" {
		return VideoDetails{}, services.Wrap(services.ErrParse, "sources", "video details", "response missing title", nil)
	}
	return details, nil
}

func quoteID(id string) string {
	return "\"" + id + "\""
}
