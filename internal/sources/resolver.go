package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/transcript"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "lingocast"
	maxResponseBytes = 8 << 20
)

// API names the HTTP dialect an instance speaks.
type API string

const (
	APIInvidious API = "invidious"
	APIPiped     API = "piped"
)

// pipedPrefix marks a Piped instance whose host name does not say so.
const pipedPrefix = "piped+"

// Instance is one member of the ordered failover list.
type Instance struct {
	Endpoint string
	API      API
}

// parseInstance reads a configured instance. Hosts containing "piped" and
// entries written as piped+https://host are Piped; the rest are Invidious.
func parseInstance(raw string) (Instance, bool) {
	endpoint := strings.TrimRight(strings.TrimSpace(raw), "/")
	if endpoint == "" {
		return Instance{}, false
	}
	if rest, ok := strings.CutPrefix(endpoint, pipedPrefix); ok {
		return Instance{Endpoint: rest, API: APIPiped}, true
	}
	api := APIInvidious
	if parsed, err := url.Parse(endpoint); err == nil && strings.Contains(strings.ToLower(parsed.Hostname()), "piped") {
		api = APIPiped
	}
	return Instance{Endpoint: endpoint, API: api}, true
}

// route is one logical request expressed in each dialect.
type route struct {
	invidious      string
	invidiousQuery url.Values
	piped          string
	pipedQuery     url.Values
}

// samePath is a route whose path and query do not depend on the dialect.
func samePath(path string, query url.Values) route {
	return route{invidious: path, invidiousQuery: query, piped: path, pipedQuery: query}
}

func (rt route) target(inst Instance) (string, url.Values) {
	if inst.API == APIPiped {
		return rt.piped, rt.pipedQuery
	}
	return rt.invidious, rt.invidiousQuery
}

// Extractor fetches captions without the HTTP source family.
type Extractor interface {
	Extract(ctx context.Context, videoID, language string) ([]transcript.Entry, error)
}

// Config describes a Resolver.
type Config struct {
	Instances  []string
	UserAgent  string
	Timeout    time.Duration
	Production bool
	HTTPClient *http.Client
	Extractor  Extractor
	Logger     *slog.Logger
}

// Resolver performs source requests with automatic failover.
type Resolver struct {
	instances  []Instance
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	production bool
	extractor  Extractor
	logger     *slog.Logger

	mu     sync.Mutex
	cursor int
}

// New constructs a Resolver. At least one instance is required.
func New(cfg Config) (*Resolver, error) {
	instances := make([]Instance, 0, len(cfg.Instances))
	for _, raw := range cfg.Instances {
		if inst, ok := parseInstance(raw); ok {
			instances = append(instances, inst)
		}
	}
	if len(instances) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sources", "init", "no source instances configured", nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Resolver{
		instances:  instances,
		httpClient: client,
		userAgent:  userAgent,
		timeout:    timeout,
		production: cfg.Production,
		extractor:  cfg.Extractor,
		logger:     logging.NewComponentLogger(cfg.Logger, "sources"),
	}, nil
}

// Instances returns a copy of the configured failover list.
func (r *Resolver) Instances() []Instance {
	out := make([]Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Production reports whether synthetic fallbacks are disabled.
func (r *Resolver) Production() bool {
	return r.production
}

// Cursor returns the index of the instance tried first by the next request.
func (r *Resolver) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Rotate advances the cursor to the next instance, wrapping around.
func (r *Resolver) Rotate() {
	r.mu.Lock()
	r.cursor = (r.cursor + 1) % len(r.instances)
	r.mu.Unlock()
}

// advance moves the cursor past idx unless another request already moved it,
// and returns the index this request should try next.
func (r *Resolver) advance(idx int) int {
	next := (idx + 1) % len(r.instances)
	r.mu.Lock()
	if r.cursor == idx {
		r.cursor = next
	}
	r.mu.Unlock()
	return next
}

// RequestWithFailover issues a GET for path against the instance at the
// cursor, moving to the next instance on any network or HTTP failure. Each
// instance is tried at most once per call.
func (r *Resolver) RequestWithFailover(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, _, err := r.request(ctx, samePath(path, query))
	return body, err
}

// request runs rt with failover and also returns the instance that answered.
func (r *Resolver) request(ctx context.Context, rt route) ([]byte, Instance, error) {
	idx := r.Cursor()
	var lastErr error
	var path string
	for attempt := 1; attempt <= len(r.instances); attempt++ {
		instance := r.instances[idx]
		var query url.Values
		path, query = rt.target(instance)
		body, err := r.get(ctx, instance.Endpoint+path, query)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("source request recovered after failover",
					logging.String(logging.FieldSource, instance.Endpoint),
					logging.String("path", path),
					logging.Int("attempt", attempt),
				)
			}
			return body, instance, nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Instance{}, services.Wrap(services.ErrNetwork, "sources", "request", "request canceled", ctxErr)
		}
		r.logger.Warn("source request failed; rotating",
			logging.String(logging.FieldSource, instance.Endpoint),
			logging.String("api", string(instance.API)),
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Error(err),
			logging.String(logging.FieldEventType, "source_failover"),
			logging.String(logging.FieldErrorHint, "instance may be down or rate limiting"),
		)
		idx = r.advance(idx)
	}
	return nil, Instance{}, services.Wrap(
		services.ErrAllSourcesExhausted,
		"sources",
		"request",
		fmt.Sprintf("%d sources failed for %s", len(r.instances), path),
		lastErr,
	)
}

// get performs a single bounded GET and returns the body of a 200 response.
func (r *Resolver) get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	target := rawURL
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sources", "build request", target, err)
	}
	req.Header.Set("Accept", "application/json, text/vtt;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrNetwork, "sources", "get", fmt.Sprintf("timeout after %s", r.timeout), err)
		}
		return nil, services.Wrap(services.ErrNetwork, "sources", "get", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "sources", "read body", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrNetwork, "sources", "get", fmt.Sprintf("%s returned status %d", target, resp.StatusCode), nil)
	}
	return body, nil
}

// getAbsolute fetches a fully qualified URL without failover; track URLs
// handed out by Piped point at a specific proxy host.
func (r *Resolver) getAbsolute(ctx context.Context, rawURL string) ([]byte, error) {
	return r.get(ctx, rawURL, nil)
}
