// Package session owns one WebSocket connection's lifetime: the
// session-scoped correlator, action client, and plugin dispatcher, and
// the read loop that decodes inbound frames and routes them to
// dispatch/journal/correlator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/corvidbot/gateway/internal/action"
	"github.com/corvidbot/gateway/internal/correlator"
	"github.com/corvidbot/gateway/internal/dispatch"
	"github.com/corvidbot/gateway/internal/journal"
	"github.com/corvidbot/gateway/internal/plugin"
	"github.com/corvidbot/gateway/internal/wire"
)

// PluginFactory builds the set of plugins for one session, wired to a
// fresh broadcast bus. Called once per accepted connection so plugin
// instances never leak state across sessions.
type PluginFactory func(bus *plugin.Bus) ([]plugin.Plugin, error)

// defaultCorrelatorTimeout is used when Config.CorrelatorTimeout is unset.
const defaultCorrelatorTimeout = 20 * time.Second

// Config bundles a session's external dependencies.
type Config struct {
	ClientID          string
	Journal           *journal.Journal
	Plugins           PluginFactory
	CorrelatorTimeout time.Duration
	Logger            *slog.Logger
}

// Session is one accepted WebSocket connection and everything scoped to
// its lifetime.
type Session struct {
	clientID string
	conn     *websocket.Conn
	logger   *slog.Logger

	writer     *action.SerializedWriter
	corr       *correlator.Correlator
	action     *action.Client
	dispatcher *dispatch.Dispatcher
	journal    *journal.Journal
}

// New constructs a session's components. Returns an error if the
// plugin factory fails or a broadcast cycle is detected — in that case
// the caller must close conn without entering Run.
func New(conn *websocket.Conn, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("client_id", cfg.ClientID)

	bus := plugin.NewBus()
	var plugins []plugin.Plugin
	if cfg.Plugins != nil {
		var err error
		plugins, err = cfg.Plugins(bus)
		if err != nil {
			return nil, fmt.Errorf("session: building plugins: %w", err)
		}
	}

	dispatcher, err := dispatch.New(plugins, logger)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	timeout := cfg.CorrelatorTimeout
	if timeout <= 0 {
		timeout = defaultCorrelatorTimeout
	}

	writer := action.NewSerializedWriter(conn)
	corr := correlator.New(writer, timeout)
	actionClient := action.New(corr, writer, cfg.Journal)

	return &Session{
		clientID:   cfg.ClientID,
		conn:       conn,
		logger:     logger,
		writer:     writer,
		corr:       corr,
		action:     actionClient,
		dispatcher: dispatcher,
		journal:    cfg.Journal,
	}, nil
}

// Action exposes the session's action client, e.g. so plugins can be
// constructed with it as a dependency.
func (s *Session) Action() *action.Client { return s.action }

// Run initiates the login bootstrap and then drives the read loop until
// ctx is cancelled, the connection is closed, or an unhandled error
// occurs. Run always executes the teardown block before returning.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.teardown()

	go func() {
		if _, err := s.action.Bootstrap(ctx); err != nil {
			s.logger.Warn("session: login bootstrap failed", "error", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("session: unexpected close", "error", err)
			} else {
				s.logger.Info("session: connection closed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		s.handleFrame(ctx, data)
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	event, err := wire.DecodeEvent(data)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownDiscriminator) {
			s.logger.Debug("session: unknown event discriminator", "error", err)
		} else {
			s.logger.Debug("session: malformed frame", "error", err)
		}
		return
	}

	if meta, ok := event.(*wire.MetaEvent); ok {
		if meta.MetaEventType == "lifecycle" {
			s.action.SetSelfID(meta.SelfID)
		}
	} else {
		s.logger.Info("session: event received", "variant", event.Variant())
	}

	go s.dispatcher.Dispatch(ctx, event)

	if resp, ok := event.(*wire.ResponseEvent); ok {
		s.corr.Deliver(*resp)
		return
	}

	rec, ok := toRecord(event)
	if !ok {
		return
	}
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, rec); err != nil {
		s.logger.Error("session: journal append failed", "error", err)
	}
}

func toRecord(event wire.Event) (journal.Record, bool) {
	switch e := event.(type) {
	case *wire.MessageEvent:
		return journal.FromMessageEvent(e), true
	case *wire.NoticeEvent:
		return journal.FromNoticeEvent(e), true
	case *wire.MetaEvent:
		return journal.FromMetaEvent(e), true
	case *wire.RequestEvent:
		return journal.FromRequestEvent(e), true
	default:
		return journal.Record{}, false
	}
}

func (s *Session) teardown() {
	s.dispatcher.Drain()
	s.corr.Close()
	_ = s.conn.Close()
}
