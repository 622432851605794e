// Package queue serializes outbound remote calls and enforces a
// minimum spacing between them, so third-party rate limits are
// respected proactively rather than only after a 429.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned for tasks submitted after Close.
var ErrClosed = errors.New("queue: closed")

// Task is one unit of outbound work.
type Task func(ctx context.Context) (any, error)

type outcome struct {
	value any
	err   error
}

type job struct {
	id   uuid.UUID
	ctx  context.Context
	fn   Task
	done chan outcome
}

// Service runs queued tasks FIFO on a single worker goroutine.
type Service struct {
	jobs    chan *job
	spacing time.Duration
	log     *zap.Logger

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
	wg      sync.WaitGroup
}

// New starts the worker. spacing is the minimum gap between task
// starts; buffer bounds how many tasks may wait.
func New(spacing time.Duration, buffer int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	s := &Service{
		jobs:    make(chan *job, buffer),
		spacing: spacing,
		log:     logger.Named("queue"),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Do enqueues fn and waits for its outcome. A failing task rejects
// only its own caller; later tasks are unaffected.
func (s *Service) Do(ctx context.Context, fn Task) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	// Registering as a sender before releasing the mutex keeps Close
	// from closing the channel while this send is in flight.
	s.senders.Add(1)
	s.mu.Unlock()

	j := &job{id: uuid.New(), ctx: ctx, fn: fn, done: make(chan outcome, 1)}
	select {
	case s.jobs <- j:
		s.senders.Done()
	case <-ctx.Done():
		s.senders.Done()
		return nil, ctx.Err()
	}

	select {
	case out := <-j.done:
		return out.value, out.err
	case <-ctx.Done():
		// The worker will still run (or skip) the task; the caller
		// stops waiting here and the abandoned outcome is dropped.
		return nil, ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to drain.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.senders.Wait()
	close(s.jobs)
	s.wg.Wait()
}

func (s *Service) run() {
	defer s.wg.Done()
	var lastStart time.Time

	for j := range s.jobs {
		if !lastStart.IsZero() {
			if wait := s.spacing - time.Since(lastStart); wait > 0 {
				time.Sleep(wait)
			}
		}

		// A task whose caller already gave up is not worth a remote
		// round trip.
		if err := j.ctx.Err(); err != nil {
			j.done <- outcome{err: err}
			continue
		}

		lastStart = time.Now()
		value, err := j.fn(j.ctx)
		if err != nil {
			s.log.Debug("queued task failed", zap.String("task", j.id.String()), zap.Error(err))
		}
		j.done <- outcome{value: value, err: err}
	}
}
