// Package correlator implements the per-session RPC correlation layer:
// outbound calls are tagged with a freshly minted echo token, and the
// session's receive loop routes inbound Response frames back to the
// waiter registered for that token.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corvidbot/gateway/internal/wire"
)

// ErrClosed is returned to every outstanding and future caller once the
// correlator has been closed (session teardown).
var ErrClosed = errors.New("correlator: session closing")

// ErrTimeout is returned when a call or stream frame does not arrive
// within the configured timeout.
var ErrTimeout = errors.New("correlator: timed out waiting for response")

// Sender writes an encoded action frame to the single outbound
// WebSocket connection. Implementations must serialize concurrent
// writes themselves (see internal/session).
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// waiter is a tagged variant: exactly one of single/stream is non-nil,
// matching the design note to use one type instead of two parallel maps.
type waiter struct {
	single chan wire.ResponseEvent // non-nil for Call
	stream chan wire.ResponseEvent // non-nil for Stream
}

// Correlator owns the token -> waiter map for one session.
type Correlator struct {
	sender  Sender
	timeout time.Duration

	mu     sync.Mutex
	waiters map[string]*waiter
	closed  bool
}

// New creates a Correlator that writes outbound frames via sender and
// bounds single-shot calls and inter-frame stream gaps to timeout.
func New(sender Sender, timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Correlator{
		sender:  sender,
		timeout: timeout,
		waiters: make(map[string]*waiter),
	}
}

// NewToken mints a fresh correlation token.
func NewToken() string { return uuid.NewString() }

// Call mints a token, attaches it to the payload via the provided
// encode function, writes the frame, and awaits a single response with
// the configured timeout. The waiter is always removed before return.
func (c *Correlator) Call(ctx context.Context, encode func(echo string) ([]byte, error)) (*wire.ResponseEvent, error) {
	token := NewToken()
	w := &waiter{single: make(chan wire.ResponseEvent, 1)}

	if err := c.register(token, w); err != nil {
		return nil, err
	}
	defer c.remove(token)

	frame, err := encode(token)
	if err != nil {
		return nil, fmt.Errorf("correlator: encode: %w", err)
	}
	if err := c.sender.Send(ctx, frame); err != nil {
		return nil, fmt.Errorf("correlator: send: %w", err)
	}

	select {
	case resp, ok := <-w.single:
		if !ok {
			return nil, ErrClosed
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.timeout):
		return nil, ErrTimeout
	}
}

// streamBuf bounds the number of unread stream frames buffered per call.
const streamBuf = 32

// Stream mints a token, writes the frame, and returns a channel of
// response frames. The channel is closed after a sentinel, an error
// frame, an idle timeout (measured from the last frame, not call
// start), or context cancellation. The caller must drain the channel
// to completion or cancel ctx to avoid leaking the waiter.
func (c *Correlator) Stream(ctx context.Context, encode func(echo string) ([]byte, error)) (<-chan wire.ResponseEvent, error) {
	token := NewToken()
	w := &waiter{stream: make(chan wire.ResponseEvent, streamBuf)}

	if err := c.register(token, w); err != nil {
		return nil, err
	}

	frame, err := encode(token)
	if err != nil {
		c.remove(token)
		return nil, fmt.Errorf("correlator: encode: %w", err)
	}
	if err := c.sender.Send(ctx, frame); err != nil {
		c.remove(token)
		return nil, fmt.Errorf("correlator: send: %w", err)
	}

	out := make(chan wire.ResponseEvent, streamBuf)
	go c.pumpStream(ctx, token, w, out)
	return out, nil
}

func (c *Correlator) pumpStream(ctx context.Context, token string, w *waiter, out chan<- wire.ResponseEvent) {
	defer close(out)
	defer c.remove(token)

	for {
		select {
		case frame, ok := <-w.stream:
			if !ok {
				return
			}
			out <- frame
			switch frame.Classify() {
			case wire.StreamSentinel, wire.StreamError:
				return
			}
		case <-ctx.Done():
			return
		case <-time.After(c.timeout):
			return
		}
	}
}

// Deliver routes an inbound Response frame to the waiter registered for
// its echo token. A response with an unknown token is dropped: late
// arrivals after a timeout are expected and benign.
func (c *Correlator) Deliver(resp wire.ResponseEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.waiters[resp.Echo]
	if !ok {
		return
	}

	switch {
	case w.single != nil:
		select {
		case w.single <- resp:
		default:
		}
	case w.stream != nil:
		select {
		case w.stream <- resp:
		default:
			// Stream consumer fell behind; drop rather than block deliver.
		}
	}
}

// Close completes every outstanding waiter with ErrClosed and rejects
// any future Call/Stream. Idempotent.
func (c *Correlator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	waiters := c.waiters
	c.waiters = make(map[string]*waiter)
	c.mu.Unlock()

	for _, w := range waiters {
		if w.stream != nil {
			close(w.stream)
		}
		// Single-shot waiters' callers observe ErrClosed via the
		// timeout/ctx select in Call once nothing is ever delivered;
		// closing the channel here lets them return immediately instead.
		if w.single != nil {
			close(w.single)
		}
	}
}

// Pending returns the number of outstanding waiters. Used by tests to
// assert the correlator-completeness invariant.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *Correlator) register(token string, w *waiter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.waiters[token] = w
	return nil
}

func (c *Correlator) remove(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiters, token)
}
