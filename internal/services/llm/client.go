package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"lingocast/internal/logging"
	"lingocast/internal/services"
)

const (
	defaultHTTPTimeout      = 30 * time.Second
	defaultRetryAttempts    = 3
	defaultRateLimitedDelay = 2 * time.Second
	defaultGenericDelay     = 1 * time.Second
	defaultTemperature      = 0.3
	defaultTopP             = 0.9
	defaultBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
)

// Config captures the runtime settings required to talk to the inference endpoint.
type Config struct {
	APIKey            string
	BaseURL           string
	DefaultModel      string
	Referer           string
	Title             string
	TimeoutSeconds    int
	RequestsPerSecond float64
	Models            map[string]string
}

// DefaultHTTPTimeout returns the default timeout used for inference requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system-role message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User builds a user-role message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg        Config
	models     modelTable
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	retryMaxAttempts int
	rateLimitedDelay time.Duration
	genericDelay     time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the per-attempt backoff units for rate-limited and
// generic failures. The wait before attempt n+1 is n times the unit.
func WithRetryBackoff(rateLimited, generic time.Duration) Option {
	return func(c *Client) {
		c.rateLimitedDelay = rateLimited
		c.genericDelay = generic
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLimiter overrides the client-side request limiter. Nil disables limiting.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithLogger attaches a logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs an inference client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:            strings.TrimSpace(cfg.APIKey),
			BaseURL:           strings.TrimSpace(cfg.BaseURL),
			DefaultModel:      strings.TrimSpace(cfg.DefaultModel),
			Referer:           strings.TrimSpace(cfg.Referer),
			Title:             strings.TrimSpace(cfg.Title),
			TimeoutSeconds:    cfg.TimeoutSeconds,
			RequestsPerSecond: cfg.RequestsPerSecond,
		},
		models:           newModelTable(cfg.DefaultModel, cfg.Models),
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		rateLimitedDelay: defaultRateLimitedDelay,
		genericDelay:     defaultGenericDelay,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	client.logger = logging.NewComponentLogger(client.logger, "llm")
	return client
}

// Enabled reports whether the client has credentials to reach the endpoint.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

// SelectModel returns the model identifier configured for task.
func (c *Client) SelectModel(task TaskType) string {
	if c == nil {
		return ""
	}
	return c.models.lookup(task)
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

type emptyContentError struct {
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("llm request: empty content (finish_reason=%q, response_snippet=%s)", e.FinishReason, e.Snippet)
}

// Invoke sends messages to the model selected for task and returns the
// generated text. Transient failures are retried up to the attempt budget;
// exhaustion yields an error marked with services.ErrAIProcessing.
func (c *Client) Invoke(ctx context.Context, task TaskType, messages []Message, maxTokens int) (string, error) {
	op := string(task)
	if !c.Enabled() {
		return "", services.Wrap(services.ErrAIProcessing, "llm", op, "inference disabled: api key not configured", nil)
	}
	if len(messages) == 0 {
		return "", services.Wrap(services.ErrValidation, "llm", op, "at least one message required", nil)
	}
	payload := chatCompletionRequest{
		Model:       c.SelectModel(task),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: defaultTemperature,
		TopP:        defaultTopP,
	}
	return c.completionContentWithRetry(ctx, payload, op)
}

// HealthCheck issues a small request to verify the API key and default model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return errors.New("llm health: api key required")
	}
	payload := chatCompletionRequest{
		Model: c.models.fallback,
		Messages: []Message{
			System("You must respond with JSON only."),
			User("Respond with {\"ok\":true}"),
		},
		MaxTokens: 16,
	}
	content, err := c.completionContentWithRetry(ctx, payload, "health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest, op string) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", services.Wrap(services.ErrAIProcessing, "llm", op, "rate limiter wait", err)
			}
		}
		completion, body, err := c.sendChatRequestOnce(ctx, payload)
		if err == nil {
			content, finishReason := extractCompletionPayload(completion)
			if content != "" {
				return content, nil
			}
			err = &emptyContentError{FinishReason: finishReason, Snippet: summarizePayloadSnippet(string(body))}
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		c.logger.Debug("retrying inference request",
			logging.String("task", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", services.Wrap(services.ErrAIProcessing, "llm", op, fmt.Sprintf("failed after %d attempts", attempts), lastErr)
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Text); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "")
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, services.Wrap(services.ErrNetwork, "llm", "request", fmt.Sprintf("timeout=%s", c.timeoutDuration()), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, services.Wrap(services.ErrNetwork, "llm", "read body", "", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests {
			return completion, body, services.Wrap(services.ErrRateLimited, "llm", "request", "", statusErr)
		}
		return completion, body, statusErr
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, services.Wrap(services.ErrParse, "llm", "decode response", "", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// retryDelay applies the shared attempt budget: rate-limited responses wait
// attempt x rateLimitedDelay, every other transient failure waits
// attempt x genericDelay. Client errors other than 408/429 are not retried.
func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) {
		return 0, false
	}

	unit := c.genericDelay
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			unit = c.rateLimitedDelay
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode >= http.StatusInternalServerError:
		default:
			return 0, false
		}
	}

	if unit < 0 {
		unit = 0
	}
	return time.Duration(attempt) * unit, true
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
