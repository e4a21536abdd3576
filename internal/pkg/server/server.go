package server

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/session"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Server accepts robot connections and runs one session per connection.
type Server struct {
	addr       string
	registry   *registry.Registry
	outboxSize int

	mu sync.Mutex
	ln net.Listener
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithAddr sets the listen address.
func WithAddr(addr string) Cfg {
	return func(s *Server) error {
		if addr == "" {
			return errors.New("addr must not be empty")
		}
		s.addr = addr
		return nil
	}
}

// WithRegistry sets the registry shared by all sessions.
func WithRegistry(reg *registry.Registry) Cfg {
	return func(s *Server) error {
		s.registry = reg
		return nil
	}
}

// WithOutboxSize sets the outbound queue depth given to each session.
func WithOutboxSize(size int) Cfg {
	return func(s *Server) error {
		if size <= 0 {
			return errors.New("outbox size must be positive")
		}
		s.outboxSize = size
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	server := &Server{
		outboxSize: registry.DefaultOutboxSize,
	}
	for _, cfg := range cfgs {
		if err := cfg(server); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if server.addr == "" {
		return nil, errors.New("addr is required")
	}
	if server.registry == nil {
		return nil, errors.New("registry is required")
	}
	return server, nil
}

// Addr returns the bound listen address, or "" before ListenAndServe binds.
// Useful when listening on port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// ListenAndServe binds the endpoint and accepts connections until ctx is
// cancelled. Failure to bind is fatal and returned immediately; transient
// accept failures are logged and survived. It waits for every live session
// to finish before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", s.addr)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	logger.WithField("addr", ln.Addr().String()).Info("server listening")

	// Closing the listener is the only way to unblock a pending Accept.
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			logger.WithError(err).Warning("accept failed")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, conn)
		}()
	}
	wg.Wait()
	logger.Info("server stopped")
	return ctx.Err()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sess, err := session.NewSession(
		session.WithConn(conn),
		session.WithRegistry(s.registry),
		session.WithOutboxSize(s.outboxSize),
	)
	if err != nil {
		logger.WithError(err).Error("create session failed")
		_ = conn.Close()
		return
	}
	if err := sess.Run(ctx); err != nil {
		logger.WithError(err).Warning("session ended abnormally")
	}
}
