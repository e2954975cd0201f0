// Package videoid extracts YouTube video identifiers from URLs and bare ids.
package videoid

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	idRe      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	pathIDRe  = regexp.MustCompile(`^/(?:embed|shorts|live|v|e)/([A-Za-z0-9_-]{11})(?:[/?#]|$)`)
	shortHost = "youtu.be"
)

// Valid reports whether id has the shape of a video identifier.
func Valid(id string) bool {
	return idRe.MatchString(id)
}

// Extract returns the video id referenced by urlOrID. It accepts a bare
// 11-character id and the watch, short-link, embed, shorts, and live URL
// shapes. The boolean is false when no id can be found.
func Extract(urlOrID string) (string, bool) {
	candidate := strings.TrimSpace(urlOrID)
	if candidate == "" {
		return "", false
	}
	if Valid(candidate) {
		return candidate, true
	}
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == shortHost:
		id := strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)[0]
		if Valid(id) {
			return id, true
		}
	case host == "youtube.com" || host == "music.youtube.com" || host == "youtube-nocookie.com":
		if parsed.Path == "/watch" {
			if id := parsed.Query().Get("v"); Valid(id) {
				return id, true
			}
			return "", false
		}
		if match := pathIDRe.FindStringSubmatch(parsed.Path); match != nil {
			return match[1], true
		}
	}
	return "", false
}
