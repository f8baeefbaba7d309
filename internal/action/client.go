// Package action is the typed facade over outbound OneBot-style actions:
// each exported method builds a params object and delegates to call or
// stream, which hand off to the correlator for RPC matching. Methods are
// spread across client.go, message.go, group.go, file.go, album.go,
// account.go, system.go, login.go while remaining one Client type.
package action

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/corvidbot/gateway/internal/correlator"
	"github.com/corvidbot/gateway/internal/journal"
	"github.com/corvidbot/gateway/internal/wire"
)

// selfIDSentinel is the placeholder self_id observed by plugins before
// the login bootstrap response arrives.
const selfIDSentinel = 1

// Client is the session-scoped action surface: one correlator, one
// serialized writer, one journal, shared across every action method.
type Client struct {
	corr    *correlator.Correlator
	sender  correlator.Sender
	journal *journal.Journal

	selfID atomic.Int64
}

// New constructs a Client. journal may be nil in tests that don't need
// self-message side effects.
func New(corr *correlator.Correlator, sender correlator.Sender, j *journal.Journal) *Client {
	c := &Client{corr: corr, sender: sender, journal: j}
	c.selfID.Store(selfIDSentinel)
	return c
}

// SelfID returns the bot's own id, or the sentinel value before the
// login bootstrap response has arrived.
func (c *Client) SelfID() int64 { return c.selfID.Load() }

// SetSelfID updates the id once get_login_info resolves.
func (c *Client) SetSelfID(id int64) { c.selfID.Store(id) }

func (c *Client) call(ctx context.Context, action string, params any) (*wire.ResponseEvent, error) {
	resp, err := c.corr.Call(ctx, func(echo string) ([]byte, error) {
		return wire.EncodeAction(action, params, echo)
	})
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", action, err)
	}
	if cls := resp.Classify(); cls == wire.StreamError {
		return resp, fmt.Errorf("action %s: upstream error: %s", action, resp.Message)
	}
	return resp, nil
}

func (c *Client) stream(ctx context.Context, action string, params any) (<-chan wire.ResponseEvent, error) {
	ch, err := c.corr.Stream(ctx, func(echo string) ([]byte, error) {
		return wire.EncodeAction(action, params, echo)
	})
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", action, err)
	}
	return ch, nil
}

// send issues a fire-and-forget action with no echo (no reply expected).
func (c *Client) send(ctx context.Context, action string, params any) error {
	frame, err := wire.EncodeAction(action, params, "")
	if err != nil {
		return fmt.Errorf("action %s: %w", action, err)
	}
	return c.sender.Send(ctx, frame)
}
