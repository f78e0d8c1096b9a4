package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChatResult carries the outcome of one drained request back to its
// caller
type ChatResult struct {
	Text string
	Err  error
}

type chatJob struct {
	prompt string
	done   chan ChatResult
}

// ChatQueue serializes calls to the Generator: at most one call in
// flight, a fixed cooldown after each completion before the next call
// starts, and strict FIFO order. The queue is unbounded, a burst just
// accumulates latency, nothing is dropped or reordered.
//
// State machine: idle -> draining(one item) -> cooling down -> idle.
// Enqueue is valid in any state; the busy flag decides whether it has
// to kick off a drain. The mutex guards the slice and the flag
// together so two drains can never start
type ChatQueue struct {
	mu    sync.Mutex
	queue []*chatJob
	busy  bool

	gen      Generator
	cooldown time.Duration
	timeout  time.Duration
}

func NewChatQueue(gen Generator, cooldown, timeout time.Duration) *ChatQueue {
	return &ChatQueue{
		gen:      gen,
		cooldown: cooldown,
		timeout:  timeout,
	}
}

// Enqueue appends a prompt and returns the channel its result will be
// delivered on. The channel is buffered, a caller that walked away
// doesn't block the drain
func (q *ChatQueue) Enqueue(prompt string) <-chan ChatResult {
	job := &chatJob{
		prompt: prompt,
		done:   make(chan ChatResult, 1),
	}

	q.mu.Lock()
	q.queue = append(q.queue, job)
	pending := len(q.queue)

	if !q.busy {
		q.busy = true
		go q.drain()
	}
	q.mu.Unlock()

	if pending > 1 {
		zap.L().Debug("Chat request queued behind others", zap.Int("pending", pending))
	}

	return job.done
}

// Pending returns the number of requests waiting or in flight
func (q *ChatQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *ChatQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		job := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		// The timeout is the only thing standing between a hung
		// upstream call and a permanently stalled lane
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		text, err := q.gen.Generate(ctx, job.prompt)
		cancel()

		if err != nil {
			zap.L().Error("Generation call failed", zap.Error(err))
		}

		job.done <- ChatResult{Text: text, Err: err}

		time.Sleep(q.cooldown)
	}
}
