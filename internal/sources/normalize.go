package sources

import (
	"strings"

	"lingocast/internal/videoid"
)

// VideoDetails is the canonical video metadata record.
type VideoDetails struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Channel         string `json:"channel,omitempty"`
	ChannelID       string `json:"channel_id,omitempty"`
	ViewCount       int64  `json:"view_count"`
	LikeCount       int64  `json:"like_count"`
	Synthetic       bool   `json:"synthetic,omitempty"`
}

// VideoSummary is one canonical entry in a search, channel, or playlist listing.
type VideoSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Channel         string `json:"channel,omitempty"`
	ChannelID       string `json:"channel_id,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
	ViewCount       int64  `json:"view_count"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
}

// Page is a bounded slice of listing results. NextToken is whatever the
// serving instance handed back and is only meaningful to that provider.
type Page struct {
	Items     []VideoSummary `json:"items"`
	NextToken string         `json:"next_token,omitempty"`
}

// ListOptions bounds a listing request.
type ListOptions struct {
	MaxResults int
	Token      string
}

type rawThumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
}

// rawVideo accepts both the Invidious and the Piped field names.
type rawVideo struct {
	Type          string         `json:"type"`
	VideoID       string         `json:"videoId"`
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Author        string         `json:"author"`
	AuthorID      string         `json:"authorId"`
	Uploader      string         `json:"uploader"`
	UploaderName  string         `json:"uploaderName"`
	UploaderURL   string         `json:"uploaderUrl"`
	LengthSeconds int64          `json:"lengthSeconds"`
	Duration      int64          `json:"duration"`
	ViewCount     int64          `json:"viewCount"`
	Views         int64          `json:"views"`
	LikeCount     int64          `json:"likeCount"`
	Likes         int64          `json:"likes"`
	Thumbnails    []rawThumbnail `json:"videoThumbnails"`
	ThumbnailURL  string         `json:"thumbnailUrl"`
	Thumbnail     string         `json:"thumbnail"`
}

func (v rawVideo) id() string {
	if videoid.Valid(v.VideoID) {
		return v.VideoID
	}
	if id, ok := videoid.Extract(v.URL); ok {
		return id
	}
	if strings.HasPrefix(v.URL, "/watch") {
		if id, ok := videoid.Extract("https://www.youtube.com" + v.URL); ok {
			return id
		}
	}
	return ""
}

func (v rawVideo) channel() string {
	return firstNonEmpty(v.Author, v.Uploader, v.UploaderName)
}

func (v rawVideo) channelID() string {
	if v.AuthorID != "" {
		return v.AuthorID
	}
	if idx := strings.LastIndex(v.UploaderURL, "/channel/"); idx >= 0 {
		return v.UploaderURL[idx+len("/channel/"):]
	}
	return ""
}

func (v rawVideo) duration() int64 {
	return nonNegative(firstPositive(v.LengthSeconds, v.Duration))
}

func (v rawVideo) views() int64 {
	return nonNegative(firstPositive(v.ViewCount, v.Views))
}

func (v rawVideo) likes() int64 {
	return nonNegative(firstPositive(v.LikeCount, v.Likes))
}

// thumbnail prefers the widest Invidious thumbnail, then Piped's fields.
func (v rawVideo) thumbnail() string {
	best := ""
	bestWidth := -1
	for _, thumb := range v.Thumbnails {
		if thumb.URL == "" {
			continue
		}
		if thumb.Width > bestWidth {
			best = thumb.URL
			bestWidth = thumb.Width
		}
	}
	return firstNonEmpty(best, v.ThumbnailURL, v.Thumbnail)
}

func (v rawVideo) details(id string) VideoDetails {
	if found := v.id(); found != "" {
		id = found
	}
	return VideoDetails{
		ID:              id,
		Title:           strings.TrimSpace(v.Title),
		Description:     strings.TrimSpace(v.Description),
		DurationSeconds: v.duration(),
		ThumbnailURL:    v.thumbnail(),
		Channel:         v.channel(),
		ChannelID:       v.channelID(),
		ViewCount:       v.views(),
		LikeCount:       v.likes(),
	}
}

func (v rawVideo) summary() (VideoSummary, bool) {
	if v.Type != "" && v.Type != "video" && v.Type != "stream" {
		return VideoSummary{}, false
	}
	id := v.id()
	if id == "" {
		return VideoSummary{}, false
	}
	return VideoSummary{
		ID:              id,
		Title:           strings.TrimSpace(v.Title),
		Channel:         v.channel(),
		ChannelID:       v.channelID(),
		DurationSeconds: v.duration(),
		ViewCount:       v.views(),
		ThumbnailURL:    v.thumbnail(),
	}, true
}

func summarize(raw []rawVideo, limit int) []VideoSummary {
	items := make([]VideoSummary, 0, len(raw))
	for _, video := range raw {
		if limit > 0 && len(items) >= limit {
			break
		}
		if summary, ok := video.summary(); ok {
			items = append(items, summary)
		}
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstPositive(values ...int64) int64 {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

func nonNegative(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
