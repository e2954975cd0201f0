package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingocast/internal/logging"
)

const (
	DefaultChunkSize  = 3
	DefaultChunkDelay = 1000 * time.Millisecond
	DefaultCooldown   = 500 * time.Millisecond
)

// ErrClosed is returned for submissions to, or jobs pending in, a closed queue.
var ErrClosed = errors.New("batch queue closed")

// Request is one unit of work in a job.
type Request struct {
	Label string
	Run   func(ctx context.Context) (string, error)
}

// Outcome is the settled result of one Request.
type Outcome struct {
	Label string
	Value string
	Err   error
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Config tunes the queue. Zero values select the defaults; negative delays
// disable pacing.
type Config struct {
	ChunkSize  int
	ChunkDelay time.Duration
	Cooldown   time.Duration
	Logger     *slog.Logger
}

type job struct {
	id       string
	ctx      context.Context
	requests []Request
	done     chan []Outcome
}

// Queue owns the worker goroutine and its pending jobs.
type Queue struct {
	chunkSize  int
	chunkDelay time.Duration
	cooldown   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	pending []*job
	closed  bool
	notify  chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New starts a queue worker.
func New(cfg Config) *Queue {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	q := &Queue{
		chunkSize:  size,
		chunkDelay: pick(cfg.ChunkDelay, DefaultChunkDelay),
		cooldown:   pick(cfg.Cooldown, DefaultCooldown),
		logger:     logging.NewComponentLogger(cfg.Logger, "batch"),
		notify:     make(chan struct{}, 1),
		quit:       make(chan struct{}),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

func pick(value, fallback time.Duration) time.Duration {
	switch {
	case value < 0:
		return 0
	case value == 0:
		return fallback
	default:
		return value
	}
}

// Submit enqueues requests as one job and blocks until all of them settle.
// The returned slice always has one Outcome per request, in order. When ctx
// is done first, Submit also returns ctx.Err(): a queued job settles at once
// and an active job stops after its running chunk.
func (q *Queue) Submit(ctx context.Context, requests []Request) ([]Outcome, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	j := &job{
		id:       uuid.NewString(),
		ctx:      ctx,
		requests: requests,
		done:     make(chan []Outcome, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	q.pending = append(q.pending, j)
	depth := len(q.pending)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	q.logger.Debug("job queued",
		logging.String(logging.FieldJobID, j.id),
		logging.Int("requests", len(requests)),
		logging.Int("queue_depth", depth),
	)

	select {
	case outcomes := <-j.done:
		return outcomes, nil
	case <-ctx.Done():
		if q.withdraw(j) {
			return settled(j.requests, 0, ctx.Err(), nil), ctx.Err()
		}
		return <-j.done, ctx.Err()
	}
}

// withdraw removes j from the pending list. It reports false once the worker
// or Close has taken the job.
func (q *Queue) withdraw(j *job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.pending {
		if p == j {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// settled fills outcomes from index from onward with err.
func settled(requests []Request, from int, err error, outcomes []Outcome) []Outcome {
	if outcomes == nil {
		outcomes = make([]Outcome, len(requests))
	}
	for i := from; i < len(requests); i++ {
		outcomes[i] = Outcome{Label: requests[i].Label, Err: err}
	}
	return outcomes
}

// Pending returns the number of jobs waiting for the worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the worker after the active job finishes. Jobs still pending
// settle with ErrClosed outcomes.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()
	q.wg.Wait()

	q.mu.Lock()
	abandoned := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, j := range abandoned {
		j.done <- settled(j.requests, 0, ErrClosed, nil)
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for {
		j := q.next()
		if j == nil {
			return
		}
		j.done <- q.run(j)
		if !q.wait(q.cooldown) {
			return
		}
	}
}

// next blocks until a job is available or the queue closes.
func (q *Queue) next() *job {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil
		}
		if len(q.pending) > 0 {
			j := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return j
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.quit:
			return nil
		}
	}
}

// wait sleeps for d unless the queue closes first.
func (q *Queue) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-q.quit:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-q.quit:
		return false
	}
}

// pace waits d between chunks unless the queue closes or the submitter
// gives up.
func (q *Queue) pace(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-q.quit:
	case <-ctx.Done():
	}
}

func (q *Queue) run(j *job) []Outcome {
	outcomes := make([]Outcome, len(j.requests))
	logger := q.logger.With(logging.String(logging.FieldJobID, j.id))
	started := time.Now()
	chunks := 0

	var lastStart time.Time
	for start := 0; start < len(j.requests); start += q.chunkSize {
		end := min(start+q.chunkSize, len(j.requests))
		if chunks > 0 {
			// Closing mid-job still lets the job finish; pacing is skipped.
			if remaining := q.chunkDelay - time.Since(lastStart); remaining > 0 {
				q.pace(j.ctx, remaining)
			}
		}
		if err := j.ctx.Err(); err != nil {
			settled(j.requests, start, err, outcomes)
			logger.Info("job cancelled by submitter",
				logging.Int("unstarted", len(j.requests)-start),
				logging.Error(err),
			)
			break
		}
		lastStart = time.Now()
		chunks++

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = execute(j.ctx, j.requests[i])
			}(i)
		}
		wg.Wait()
		logger.Debug("chunk settled",
			logging.Int("chunk", chunks),
			logging.Int("size", end-start),
		)
	}

	failures := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failures++
		}
	}
	logger.Info("job complete",
		logging.Int("requests", len(outcomes)),
		logging.Int("failures", failures),
		logging.Int("chunks", chunks),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcomes
}

func execute(ctx context.Context, req Request) (outcome Outcome) {
	outcome.Label = req.Label
	defer func() {
		if r := recover(); r != nil {
			outcome.Value = ""
			outcome.Err = fmt.Errorf("request %q panicked: %v", req.Label, r)
		}
	}()
	if req.Run == nil {
		outcome.Err = fmt.Errorf("request %q has no function", req.Label)
		return outcome
	}
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Value, outcome.Err = req.Run(ctx)
	return outcome
}
