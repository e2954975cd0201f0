package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"lingocast/internal/services"
	"lingocast/internal/transcript"
)

const testVideoID = "dQw4w9WgXcQ"

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newCountingServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func failing(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "unavailable", http.StatusBadGateway)
}

func newTestResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return r
}

func TestRequestWithFailoverReturnsThirdSource(t *testing.T) {
	a := newCountingServer(t, failing)
	b := newCountingServer(t, failing)
	c := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"title":"from C"}`)
	})
	r := newTestResolver(t, Config{Instances: []string{a.URL, b.URL, c.URL}})

	body, err := r.RequestWithFailover(context.Background(), "/api/v1/videos/x", nil)
	if err != nil {
		t.Fatalf("RequestWithFailover returned error: %v", err)
	}
	if string(body) != `{"title":"from C"}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got := r.Cursor(); got != 2 {
		t.Fatalf("expected cursor 2, got %d", got)
	}
	total := a.hits.Load() + b.hits.Load() + c.hits.Load()
	if total != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", total)
	}
}

func TestRequestWithFailoverExhausted(t *testing.T) {
	a := newCountingServer(t, failing)
	b := newCountingServer(t, failing)
	r := newTestResolver(t, Config{Instances: []string{a.URL, b.URL}})

	_, err := r.RequestWithFailover(context.Background(), "/x", nil)
	if !errors.Is(err, services.ErrAllSourcesExhausted) {
		t.Fatalf("expected ErrAllSourcesExhausted, got %v", err)
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected last network error in chain, got %v", err)
	}
	if a.hits.Load() != 1 || b.hits.Load() != 1 {
		t.Fatalf("expected one attempt per source, got %d/%d", a.hits.Load(), b.hits.Load())
	}
	if got := r.Cursor(); got != 0 {
		t.Fatalf("expected cursor to wrap back to 0, got %d", got)
	}
}

func TestRotateWrapsAround(t *testing.T) {
	r := newTestResolver(t, Config{Instances: []string{"http://a", "http://b", "http://c"}})
	for i := 0; i < 4; i++ {
		r.Rotate()
	}
	if got := r.Cursor(); got != 1 {
		t.Fatalf("expected cursor 1 after 4 rotations, got %d", got)
	}
}

func TestNewRequiresInstances(t *testing.T) {
	if _, err := New(Config{Instances: []string{" ", ""}}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGetVideoDetailsNormalizesInvidious(t *testing.T) {
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/videos/"+testVideoID {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{
			"videoId":"dQw4w9WgXcQ","title":"Never Gonna","lengthSeconds":212,
			"author":"Rick","authorId":"UC123","viewCount":1000,"likeCount":50,
			"videoThumbnails":[{"quality":"default","url":"http://img/small","width":120},{"quality":"high","url":"http://img/big","width":480}]
		}`)
	})
	r := newTestResolver(t, Config{Instances: []string{srv.URL}, Production: true})

	details, err := r.GetVideoDetails(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("GetVideoDetails returned error: %v", err)
	}
	want := VideoDetails{ID: testVideoID, Title: "Never Gonna", DurationSeconds: 212, ThumbnailURL: "http://img/big", Channel: "Rick", ChannelID: "UC123", ViewCount: 1000, LikeCount: 50}
	if details != want {
		t.Fatalf("unexpected details\n got %+v\nwant %+v", details, want)
	}
}

func TestGetVideoDetailsNormalizesPiped(t *testing.T) {
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams/"+testVideoID {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"title":"Piped Title","duration":90,"uploader":"Someone","uploaderUrl":"/channel/UCabc","views":7,"likes":-1,"thumbnailUrl":"http://thumb"}`)
	})
	r := newTestResolver(t, Config{Instances: []string{"piped+" + srv.URL}, Production: true})

	details, err := r.GetVideoDetails(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("GetVideoDetails returned error: %v", err)
	}
	if details.Title != "Piped Title" || details.DurationSeconds != 90 || details.Channel != "Someone" || details.ChannelID != "UCabc" {
		t.Fatalf("unexpected details %+v", details)
	}
	if details.LikeCount != 0 || details.ViewCount != 7 || details.ThumbnailURL != "http://thumb" {
		t.Fatalf("unexpected counters %+v", details)
	}
}

func TestGetVideoDetailsExhaustion(t *testing.T) {
	down := newCountingServer(t, failing)

	prod := newTestResolver(t, Config{Instances: []string{down.URL}, Production: true})
	if _, err := prod.GetVideoDetails(context.Background(), testVideoID); !errors.Is(err, services.ErrAllSourcesExhausted) {
		t.Fatalf("expected ErrAllSourcesExhausted in production, got %v", err)
	}

	dev := newTestResolver(t, Config{Instances: []string{down.URL}})
	first, err := dev.GetVideoDetails(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("expected synthetic details, got error %v", err)
	}
	if first.Title == "" || first.DurationSeconds < 0 || !first.Synthetic {
		t.Fatalf("invalid synthetic record %+v", first)
	}
	second, _ := dev.GetVideoDetails(context.Background(), testVideoID)
	if first != second {
		t.Fatalf("synthetic record not deterministic: %+v vs %+v", first, second)
	}
}

func TestGetVideoDetailsRejectsInvalidID(t *testing.T) {
	r := newTestResolver(t, Config{Instances: []string{"http://127.0.0.1:1"}})
	if _, err := r.GetVideoDetails(context.Background(), "short"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSelectTrack(t *testing.T) {
	tracks := []Track{
		{Label: "Deutsch", Language: "de", URL: "/de"},
		{Label: "English (auto-generated)", Language: "en", URL: "/en-auto", AutoGenerated: true},
		{Label: "English", Language: "en", URL: "/en"},
		{Label: "Español", Language: "es", URL: "/es"},
	}
	tests := []struct {
		lang string
		want string
	}{
		{"es", "/es"},
		{"es-MX", "/es"},
		{"fr", "/en"},
		{"en", "/en"},
	}
	for _, tt := range tests {
		got, ok := SelectTrack(tracks, tt.lang)
		if !ok || got.URL != tt.want {
			t.Fatalf("SelectTrack(%q) = %+v, want %s", tt.lang, got, tt.want)
		}
	}
	got, ok := SelectTrack(tracks[:1], "fr")
	if !ok || got.URL != "/de" {
		t.Fatalf("expected first track fallback, got %+v", got)
	}
	if _, ok := SelectTrack(nil, "en"); ok {
		t.Fatal("expected no track for empty list")
	}
}

const sampleTrackVTT = "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nHola mundo.\n\n00:00:02.000 --> 00:00:05.000\nEsto es una prueba\n"

func TestExtractCaptionsFromSources(t *testing.T) {
	var contentQuery string
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/captions/"+testVideoID && r.URL.Query().Get("label") == "":
			fmt.Fprint(w, `{"captions":[{"label":"English","languageCode":"en","url":"/api/v1/captions/dQw4w9WgXcQ?label=English"},{"label":"Spanish","languageCode":"es","url":"/api/v1/captions/dQw4w9WgXcQ?label=Spanish"}]}`)
		case r.URL.Path == "/api/v1/captions/"+testVideoID:
			contentQuery = r.URL.Query().Get("label")
			fmt.Fprint(w, sampleTrackVTT)
		default:
			http.NotFound(w, r)
		}
	})
	r := newTestResolver(t, Config{Instances: []string{srv.URL}, Production: true})

	entries, err := r.ExtractCaptions(context.Background(), testVideoID, "es")
	if err != nil {
		t.Fatalf("ExtractCaptions returned error: %v", err)
	}
	if contentQuery != "Spanish" {
		t.Fatalf("expected Spanish track, fetched %q", contentQuery)
	}
	if len(entries) != 2 || entries[1].Text != "Esto es una prueba" || entries[1].Duration != 3 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

type stubExtractor struct {
	entries []transcript.Entry
	err     error
	calls   int
	lang    string
}

func (s *stubExtractor) Extract(_ context.Context, _ string, lang string) ([]transcript.Entry, error) {
	s.calls++
	s.lang = lang
	return s.entries, s.err
}

func TestExtractCaptionsFallsBackToExtractor(t *testing.T) {
	down := newCountingServer(t, failing)
	extractor := &stubExtractor{entries: []transcript.Entry{{Text: "from yt-dlp", Start: 0, Duration: 1}}}
	r := newTestResolver(t, Config{Instances: []string{down.URL}, Production: true, Extractor: extractor})

	entries, err := r.ExtractCaptions(context.Background(), testVideoID, "pt-BR")
	if err != nil {
		t.Fatalf("ExtractCaptions returned error: %v", err)
	}
	if extractor.calls != 1 || extractor.lang != "pt" {
		t.Fatalf("expected one extractor call with pt, got %d (%q)", extractor.calls, extractor.lang)
	}
	if len(entries) != 1 || entries[0].Text != "from yt-dlp" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestExtractCaptionsExhaustion(t *testing.T) {
	down := newCountingServer(t, failing)
	extractor := &stubExtractor{err: services.Wrap(services.ErrExternalTool, "ytdlp", "run", "", errors.New("exit 1"))}

	prod := newTestResolver(t, Config{Instances: []string{down.URL}, Production: true, Extractor: extractor})
	_, err := prod.ExtractCaptions(context.Background(), testVideoID, "en")
	if !errors.Is(err, services.ErrAllSourcesExhausted) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected exhaustion wrapping extractor failure, got %v", err)
	}

	dev := newTestResolver(t, Config{Instances: []string{down.URL}, Extractor: extractor})
	entries, err := dev.ExtractCaptions(context.Background(), testVideoID, "en")
	if err != nil {
		t.Fatalf("expected synthetic entries, got %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected non-empty synthetic transcript")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Start < entries[i-1].Start {
			t.Fatalf("synthetic entries out of order at %d", i)
		}
	}
	captions, err := dev.FetchCaptions(context.Background(), testVideoID, "en")
	if err != nil || !captions.Synthetic {
		t.Fatalf("expected captions flagged synthetic, got %+v (%v)", captions, err)
	}
}

func TestCheckTranscriptAvailability(t *testing.T) {
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"captions":[{"label":"English (auto-generated)","languageCode":"en","url":"/a"},{"label":"French","languageCode":"fr","url":"/b"},{"label":"English","languageCode":"en-US","url":"/c"}]}`)
	})
	r := newTestResolver(t, Config{Instances: []string{srv.URL}, Production: true})

	availability, err := r.CheckTranscriptAvailability(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("CheckTranscriptAvailability returned error: %v", err)
	}
	if !availability.Available || !availability.HasAutoGenerated {
		t.Fatalf("unexpected availability %+v", availability)
	}
	if strings.Join(availability.Languages, ",") != "en,fr" {
		t.Fatalf("unexpected languages %v", availability.Languages)
	}
}

func TestSearchVideosNormalizesResults(t *testing.T) {
	var gotQuery string
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[
			{"type":"video","videoId":"aaaaaaaaaaa","title":"One","author":"A","lengthSeconds":10,"viewCount":5},
			{"type":"channel","author":"Not a video"},
			{"type":"video","videoId":"bbbbbbbbbbb","title":"Two","author":"B","lengthSeconds":20},
			{"type":"video","videoId":"ccccccccccc","title":"Three","author":"C","lengthSeconds":30}
		]`)
	})
	r := newTestResolver(t, Config{Instances: []string{srv.URL}, Production: true})

	page, err := r.SearchVideos(context.Background(), "spanish lessons", ListOptions{MaxResults: 2})
	if err != nil {
		t.Fatalf("SearchVideos returned error: %v", err)
	}
	if !strings.Contains(gotQuery, "q=spanish+lessons") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "aaaaaaaaaaa" || page.Items[1].Title != "Two" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if page.NextToken != "2" {
		t.Fatalf("expected next token 2, got %q", page.NextToken)
	}
}

func TestSearchVideosPropagatesExhaustion(t *testing.T) {
	down := newCountingServer(t, failing)
	r := newTestResolver(t, Config{Instances: []string{down.URL}})
	if _, err := r.SearchVideos(context.Background(), "x", ListOptions{}); !errors.Is(err, services.ErrAllSourcesExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}

func TestPlaylistItemsNormalizesPiped(t *testing.T) {
	var nextQuery string
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/playlists/PL123":
			fmt.Fprint(w, `{"relatedStreams":[{"url":"/watch?v=aaaaaaaaaaa","title":"First","uploaderName":"Up","duration":61,"views":3,"thumbnail":"http://t"}],"nextpage":"opaque-token"}`)
		case "/nextpage/playlists/PL123":
			nextQuery = r.URL.Query().Get("nextpage")
			fmt.Fprint(w, `{"relatedStreams":[],"nextpage":null}`)
		default:
			http.NotFound(w, r)
		}
	})
	r := newTestResolver(t, Config{Instances: []string{"piped+" + srv.URL}, Production: true})

	page, err := r.GetPlaylistItems(context.Background(), "PL123", ListOptions{})
	if err != nil {
		t.Fatalf("GetPlaylistItems returned error: %v", err)
	}
	want := VideoSummary{ID: "aaaaaaaaaaa", Title: "First", Channel: "Up", DurationSeconds: 61, ViewCount: 3, ThumbnailURL: "http://t"}
	if len(page.Items) != 1 || page.Items[0] != want {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if page.NextToken != "opaque-token" {
		t.Fatalf("expected opaque token passthrough, got %q", page.NextToken)
	}
	if _, err := r.GetPlaylistItems(context.Background(), "PL123", ListOptions{Token: page.NextToken}); err != nil {
		t.Fatalf("GetPlaylistItems next page returned error: %v", err)
	}
	if nextQuery != "opaque-token" {
		t.Fatalf("expected token on the nextpage route, got %q", nextQuery)
	}
}

func TestSearchFailsOverFromInvidiousToPiped(t *testing.T) {
	down := newCountingServer(t, failing)
	var filter string
	piped := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("q") != "go tutorial" {
			http.NotFound(w, r)
			return
		}
		filter = r.URL.Query().Get("filter")
		fmt.Fprint(w, `{"items":[{"url":"/watch?v=bbbbbbbbbbb","title":"Go","uploaderName":"Gopher","duration":30}],"nextpage":"piped-next"}`)
	})
	r := newTestResolver(t, Config{Instances: []string{down.URL, "piped+" + piped.URL}, Production: true})

	page, err := r.SearchVideos(context.Background(), "go tutorial", ListOptions{})
	if err != nil {
		t.Fatalf("SearchVideos returned error: %v", err)
	}
	if filter != "videos" {
		t.Fatalf("expected Piped video filter, got %q", filter)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "bbbbbbbbbbb" || page.NextToken != "piped-next" {
		t.Fatalf("unexpected page %+v", page)
	}
	if down.hits.Load() != 1 {
		t.Fatalf("expected one attempt against the Invidious instance, got %d", down.hits.Load())
	}
}

func TestParseInstance(t *testing.T) {
	tests := []struct {
		raw  string
		want Instance
		ok   bool
	}{
		{"https://inv.example.com/", Instance{Endpoint: "https://inv.example.com", API: APIInvidious}, true},
		{"https://pipedapi.kavin.rocks", Instance{Endpoint: "https://pipedapi.kavin.rocks", API: APIPiped}, true},
		{"piped+http://127.0.0.1:8080", Instance{Endpoint: "http://127.0.0.1:8080", API: APIPiped}, true},
		{"   ", Instance{}, false},
	}
	for _, tt := range tests {
		got, ok := parseInstance(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parseInstance(%q) = %+v, %v; want %+v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestChannelVideosPassesContinuation(t *testing.T) {
	var continuation string
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		continuation = r.URL.Query().Get("continuation")
		fmt.Fprint(w, `{"videos":[{"videoId":"aaaaaaaaaaa","title":"Upload","author":"Chan","authorId":"UCx"}],"continuation":"next"}`)
	})
	r := newTestResolver(t, Config{Instances: []string{srv.URL}, Production: true})

	page, err := r.GetChannelVideos(context.Background(), "UCx", ListOptions{Token: "abc"})
	if err != nil {
		t.Fatalf("GetChannelVideos returned error: %v", err)
	}
	if continuation != "abc" || page.NextToken != "next" || len(page.Items) != 1 || page.Items[0].ChannelID != "UCx" {
		t.Fatalf("unexpected page %+v (continuation %q)", page, continuation)
	}
}
