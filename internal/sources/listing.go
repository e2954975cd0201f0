package sources

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"lingocast/internal/services"
)

const defaultMaxResults = 20

// listingEnvelope covers the object-shaped listing responses: Invidious
// channel and playlist payloads and Piped search, channel, and playlist
// payloads.
type listingEnvelope struct {
	Videos         []rawVideo `json:"videos"`
	Items          []rawVideo `json:"items"`
	RelatedStreams []rawVideo `json:"relatedStreams"`
	Continuation   string     `json:"continuation"`
	NextPage       string     `json:"nextpage"`
}

func (e listingEnvelope) entries() []rawVideo {
	switch {
	case len(e.Videos) > 0:
		return e.Videos
	case len(e.Items) > 0:
		return e.Items
	default:
		return e.RelatedStreams
	}
}

func (e listingEnvelope) token() string {
	return firstNonEmpty(e.Continuation, e.NextPage)
}

// pipedPage routes a Piped listing: the first page at path, later pages at
// /nextpage<path> with the opaque token.
func pipedPage(path string, query url.Values, token string) (string, url.Values) {
	if token == "" {
		return path, query
	}
	next := url.Values{}
	for k, v := range query {
		next[k] = v
	}
	next.Set("nextpage", token)
	return "/nextpage" + path, next
}

// SearchVideos runs a full-text video search.
func (r *Resolver) SearchVideos(ctx context.Context, query string, opts ListOptions) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, services.Wrap(services.ErrValidation, "sources", "search", "query is empty", nil)
	}
	page := 1
	if n, err := strconv.Atoi(opts.Token); err == nil && n > 0 {
		page = n
	}
	rt := route{
		invidious:      "/api/v1/search",
		invidiousQuery: url.Values{"q": {query}, "type": {"video"}, "page": {strconv.Itoa(page)}},
	}
	rt.piped, rt.pipedQuery = pipedPage("/search", url.Values{"q": {query}, "filter": {"videos"}}, opts.Token)
	body, served, err := r.request(ctx, rt)
	if err != nil {
		return Page{}, err
	}
	result, err := decodeListing(body, limitOf(opts))
	if err != nil {
		return Page{}, services.Wrap(services.ErrParse, "sources", "search", "decode response", err)
	}
	if served.API == APIInvidious && result.NextToken == "" && len(result.Items) > 0 {
		result.NextToken = strconv.Itoa(page + 1)
	}
	return result, nil
}

// GetChannelVideos lists the uploads of a channel.
func (r *Resolver) GetChannelVideos(ctx context.Context, channelID string, opts ListOptions) (Page, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Page{}, services.Wrap(services.ErrValidation, "sources", "channel videos", "channel id is empty", nil)
	}
	rt := route{invidious: "/api/v1/channels/" + url.PathEscape(channelID) + "/videos"}
	if opts.Token != "" {
		rt.invidiousQuery = url.Values{"continuation": {opts.Token}}
	}
	rt.piped, rt.pipedQuery = pipedPage("/channel/"+url.PathEscape(channelID), nil, opts.Token)
	body, _, err := r.request(ctx, rt)
	if err != nil {
		return Page{}, err
	}
	result, err := decodeListing(body, limitOf(opts))
	if err != nil {
		return Page{}, services.Wrap(services.ErrParse, "sources", "channel videos", "decode response", err)
	}
	return result, nil
}

// GetPlaylistItems lists the videos of a playlist.
func (r *Resolver) GetPlaylistItems(ctx context.Context, playlistID string, opts ListOptions) (Page, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return Page{}, services.Wrap(services.ErrValidation, "sources", "playlist items", "playlist id is empty", nil)
	}
	rt := route{invidious: "/api/v1/playlists/" + url.PathEscape(playlistID)}
	if opts.Token != "" {
		rt.invidiousQuery = url.Values{"page": {opts.Token}}
	}
	rt.piped, rt.pipedQuery = pipedPage("/playlists/"+url.PathEscape(playlistID), nil, opts.Token)
	body, _, err := r.request(ctx, rt)
	if err != nil {
		return Page{}, err
	}
	result, err := decodeListing(body, limitOf(opts))
	if err != nil {
		return Page{}, services.Wrap(services.ErrParse, "sources", "playlist items", "decode response", err)
	}
	return result, nil
}

// decodeListing accepts a bare array (Invidious search) or an envelope.
func decodeListing(body []byte, limit int) (Page, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var raw []rawVideo
		if err := json.Unmarshal(body, &raw); err != nil {
			return Page{}, err
		}
		return Page{Items: summarize(raw, limit)}, nil
	}
	var envelope listingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Page{}, err
	}
	return Page{Items: summarize(envelope.entries(), limit), NextToken: envelope.token()}, nil
}

func limitOf(opts ListOptions) int {
	if opts.MaxResults > 0 {
		return opts.MaxResults
	}
	return defaultMaxResults
}
