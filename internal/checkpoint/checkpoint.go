// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint implements the human approval gate between composing
// an evaluation and writing reports. The pipeline worker publishes the
// evaluation and blocks; an approver resolves it, edited or unchanged. A
// timeout or a cancellation releases the worker with the original.
package checkpoint

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// DefaultTimeout bounds the wait when no timeout is configured.
const DefaultTimeout = 600 * time.Second

// ErrNotAwaiting is returned by Resolve when no evaluation is pending.
var ErrNotAwaiting = errors.New("checkpoint is not awaiting approval")

// Phase is the gate's state.
type Phase int

const (
	Idle Phase = iota
	AwaitingApproval
	Resolved
)

func (p Phase) String() string {
	switch p {
	case AwaitingApproval:
		return "awaiting_approval"
	case Resolved:
		return "resolved"
	default:
		return "idle"
	}
}

// Outcome records how the wait ended.
type Outcome int

const (
	Approved Outcome = iota
	Edited
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Edited:
		return "edited"
	case TimedOut:
		return "timed_out"
	default:
		return "cancelled"
	}
}

// Resolution is the result of Await.
type Resolution struct {
	Evaluation types.Evaluation
	Outcome    Outcome
	Waited     time.Duration
}

// Checkpoint is a single-slot rendezvous. One worker awaits at a time.
type Checkpoint struct {
	mu        sync.Mutex
	cond      *sync.Cond
	phase     Phase
	pending   *types.Evaluation
	ready     bool
	cancelled bool

	logger *slog.Logger
}

// New returns an idle checkpoint.
func New(logger *slog.Logger) *Checkpoint {
	c := &Checkpoint{logger: logging.OrDiscard(logger)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Phase returns the current state.
func (c *Checkpoint) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Await publishes eval to the approver and blocks until Resolve is
// called, the timeout elapses, or Cancel is called, whichever comes
// first. publish runs without the lock held so it may call Resolve
// directly. The returned evaluation is the approver's edit when one was
// supplied and eval otherwise.
func (c *Checkpoint) Await(eval types.Evaluation, timeout time.Duration, publish func(types.Evaluation)) Resolution {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()

	c.mu.Lock()
	if c.cancelled {
		c.phase = Resolved
		c.mu.Unlock()
		return Resolution{Evaluation: eval, Outcome: Cancelled}
	}
	c.phase = AwaitingApproval
	c.pending = nil
	c.ready = false
	c.mu.Unlock()

	if publish != nil {
		publish(eval.Clone())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		timedOut = true
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	// Re-check the predicate after every wake-up.
	for !c.ready && !timedOut && !c.cancelled {
		c.cond.Wait()
	}

	c.phase = Resolved
	res := Resolution{Evaluation: eval, Waited: time.Since(start)}
	switch {
	case c.ready && c.pending != nil:
		res.Evaluation = *c.pending
		res.Outcome = Edited
	case c.ready:
		res.Outcome = Approved
	case c.cancelled:
		res.Outcome = Cancelled
		c.logger.Warn("approval wait cancelled, using original evaluation")
	default:
		res.Outcome = TimedOut
		c.logger.Warn("approval timed out, using original evaluation", "timeout", timeout)
	}
	c.pending = nil
	c.ready = false
	return res
}

// Resolve completes a pending approval. A nil edited confirms the
// published evaluation unchanged. Resolving when nothing is pending
// returns ErrNotAwaiting.
func (c *Checkpoint) Resolve(edited *types.Evaluation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != AwaitingApproval || c.ready {
		return ErrNotAwaiting
	}
	if edited != nil {
		e := edited.Clone()
		c.pending = &e
	}
	c.ready = true
	c.cond.Broadcast()
	return nil
}

// Cancel releases a pending wait and makes any later Await return
// immediately with the original evaluation.
func (c *Checkpoint) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.cond.Broadcast()
	c.mu.Unlock()
}
