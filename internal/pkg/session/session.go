package session

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/log"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Session owns exactly one client socket for its lifetime.
type Session struct {
	id         uuid.UUID
	conn       net.Conn
	registry   *registry.Registry
	outbox     *registry.Outbox
	outboxSize int

	// boundID is the robot id whose registry entry this session created.
	// Empty until the first accepted telemetry.
	boundID string
}

// Cfg configures a Session.
type Cfg func(*Session) error

// WithConn sets the session's socket.
func WithConn(conn net.Conn) Cfg {
	return func(s *Session) error {
		s.conn = conn
		return nil
	}
}

// WithRegistry sets the registry the session feeds.
func WithRegistry(reg *registry.Registry) Cfg {
	return func(s *Session) error {
		s.registry = reg
		return nil
	}
}

// WithOutboxSize sets the outbound queue depth.
func WithOutboxSize(size int) Cfg {
	return func(s *Session) error {
		if size <= 0 {
			return errors.New("outbox size must be positive")
		}
		s.outboxSize = size
		return nil
	}
}

// NewSession creates a new Session with the given configuration.
func NewSession(cfgs ...Cfg) (*Session, error) {
	s := &Session{
		id:         uuid.New(),
		outboxSize: registry.DefaultOutboxSize,
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Session cfg failed")
		}
	}
	if s.conn == nil {
		return nil, errors.New("conn is required")
	}
	if s.registry == nil {
		return nil, errors.New("registry is required")
	}
	s.outbox = registry.NewOutbox(s.outboxSize)
	return s, nil
}

// Run drives both directions of the connection until the client leaves, the
// link breaks, or ctx is cancelled. It returns nil for a clean end (EOF,
// Disconnect, shutdown) and an ErrLinkBroken-wrapped error otherwise.
func (s *Session) Run(ctx context.Context) error {
	fields := logrus.Fields{"session": s.id.String(), "peer": s.conn.RemoteAddr().String()}
	logger.WithFields(fields).Info("session started")

	// Closing the socket is the only way to unblock a pending read when the
	// server shuts down.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	err := s.readLoop(ctx)

	// Exactly one cleanup, on every termination path: drop the registry
	// entry first so dispatch stops targeting this robot, then close the
	// outbox so the writer drains and exits.
	if s.boundID != "" {
		if s.registry.Remove(s.boundID) {
			logger.WithFields(fields).WithField("robot", s.boundID).Info("removed robot")
		}
	}
	s.outbox.Close()
	wg.Wait()
	close(done)
	_ = s.conn.Close()

	logger.WithFields(fields).Info("session ended")
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	dec := wire.NewDecoder(s.conn)
	for {
		msg, err := dec.DecodeClient()
		if errors.Is(err, wire.ErrMalformed) {
			logger.WithField("session", s.id.String()).WithError(err).Warning("skipping malformed message")
			continue
		}
		if errors.Is(err, io.EOF) {
			logger.WithField("session", s.id.String()).Info("connection closed by peer")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return errors.Wrapf(ErrLinkBroken, "read failed: %v", err)
		}
		logger.WithFields(log.ClientMessageToFields(msg)).Debug("received message")
		switch m := msg.(type) {
		case wire.Telemetry:
			s.handleTelemetry(m.State)
		case wire.Disconnect:
			logger.WithField("robot", m.ID).Info("robot sent disconnect")
			return nil
		}
	}
}

func (s *Session) handleTelemetry(state wire.RobotState) {
	created := s.registry.Upsert(state, s.outbox)
	switch {
	case created && s.boundID == "":
		s.boundID = state.ID
		logger.WithField("robot", state.ID).Info("registered robot")
	case created:
		// The robot changed its id. The fresh entry is this session's; the
		// stale one under the old id is too, so drop it.
		logger.WithFields(logrus.Fields{
			"robot":   s.boundID,
			"renamed": state.ID,
		}).Warning("robot changed id, removing stale entry")
		s.registry.Remove(s.boundID)
		s.boundID = state.ID
	case s.boundID != state.ID:
		logger.WithField("robot", state.ID).Warning("telemetry for robot bound to another session")
	}
}

func (s *Session) writeLoop() {
	enc := wire.NewEncoder(s.conn)
	for msg := range s.outbox.Receive() {
		if err := enc.EncodeServer(msg); err != nil {
			logger.WithFields(logrus.Fields{
				"session": s.id.String(),
				"error":   err.Error(),
			}).Warning("link broken, dropping outbound queue")
			_ = s.conn.Close()
			return
		}
	}
}
