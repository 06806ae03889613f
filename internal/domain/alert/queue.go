package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SendFunc delivers one alert on the physician channel.
type SendFunc func(ctx context.Context, a *Alert) error

// Queue decouples alert dispatch from delivery so transport failures
// can be retried without blocking message processing.
type Queue interface {
	Enqueue(ctx context.Context, a *Alert) error
	Close() error
}

// MemoryQueue is an in-process queue with worker goroutines, exponential
// backoff and bounded attempts. A terminally failed alert is logged at
// error level; it is the operator's signal to intervene.
type MemoryQueue struct {
	jobs       chan *Alert
	send       SendFunc
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// MemoryQueueConfig tunes the in-process queue.
type MemoryQueueConfig struct {
	Workers    int
	Buffer     int
	MaxRetries int
	Backoff    time.Duration
}

func NewMemoryQueue(send SendFunc, cfg MemoryQueueConfig, logger zerolog.Logger) *MemoryQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	q := &MemoryQueue{
		jobs:       make(chan *Alert, cfg.Buffer),
		send:       send,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, a *Alert) error {
	select {
	case q.jobs <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for a := range q.jobs {
		q.process(a)
	}
}

func (q *MemoryQueue) process(a *Alert) {
	delay := q.backoff
	for attempt := 1; attempt <= q.maxRetries; attempt++ {
		err := q.send(context.Background(), a)
		if err == nil {
			q.logger.Info().
				Str("assessment_id", a.AssessmentID.String()).
				Str("level", a.Level.String()).
				Msg("physician alert delivered")
			return
		}
		q.logger.Warn().Err(err).
			Str("assessment_id", a.AssessmentID.String()).
			Int("attempt", attempt).
			Int("max_retries", q.maxRetries).
			Msg("alert delivery failed")
		if attempt < q.maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	// A missed critical alert is the worst failure mode this system has.
	q.logger.Error().
		Str("assessment_id", a.AssessmentID.String()).
		Str("patient_id", a.PatientID.String()).
		Str("level", a.Level.String()).
		Msg("alert permanently failed after all retries, manual intervention required")
}

// Close drains in-flight work and stops the workers.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
	return nil
}
