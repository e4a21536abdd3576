package client

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/log"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultTelemetryInterval is the default cadence for reporting state.
const DefaultTelemetryInterval = 100 * time.Millisecond

// DefaultSpeedLimit is the cap assumed before the hub imposes one.
const DefaultSpeedLimit = 200.0

// Client implements the robot behaviour of the hub protocol.
type Client struct {
	serverAddr string
	interval   time.Duration
	killswitch time.Duration

	mu          sync.Mutex
	state       wire.RobotState
	targetSpeed float64
	speedLimit  float64

	conn net.Conn
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithServerAddr sets the hub address to connect to.
func WithServerAddr(addr string) Cfg {
	return func(c *Client) error {
		if addr == "" {
			return errors.New("server addr must not be empty")
		}
		c.serverAddr = addr
		return nil
	}
}

// WithState sets the robot's initial reported state. The state's speed
// becomes the target speed the robot aims for while active.
func WithState(state wire.RobotState) Cfg {
	return func(c *Client) error {
		if state.ID == "" {
			return errors.New("robot id must not be empty")
		}
		c.state = state
		c.targetSpeed = state.Speed
		return nil
	}
}

// WithTelemetryInterval sets the cadence between telemetry reports.
func WithTelemetryInterval(interval time.Duration) Cfg {
	return func(c *Client) error {
		if interval <= 0 {
			return errors.New("telemetry interval must be positive")
		}
		c.interval = interval
		return nil
	}
}

// WithKillswitch makes the client disconnect voluntarily after the given
// duration. Zero disables it.
func WithKillswitch(after time.Duration) Cfg {
	return func(c *Client) error {
		if after < 0 {
			return errors.New("killswitch must not be negative")
		}
		c.killswitch = after
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{
		interval:   DefaultTelemetryInterval,
		speedLimit: DefaultSpeedLimit,
	}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if client.state.ID == "" {
		return nil, errors.New("state is required")
	}
	return client, nil
}

// Connect establishes the connection to the hub.
func (c *Client) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.serverAddr)
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", c.serverAddr)
	}
	c.conn = conn
	return nil
}

// State returns a copy of the state the client currently reports.
func (c *Client) State() wire.RobotState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reported()
}

// SetPosition moves the robot. Position is caller-controlled; the client
// itself never simulates motion.
func (c *Client) SetPosition(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.X = x
	c.state.Y = y
}

// SetTargetSpeed sets the speed the robot aims for while active. The hub's
// speed limit still caps what is reported.
func (c *Client) SetTargetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetSpeed = speed
}

// reported computes the state to put on the wire. Callers hold c.mu.
func (c *Client) reported() wire.RobotState {
	state := c.state
	if state.Active {
		state.Speed = c.targetSpeed
		if state.Speed > c.speedLimit {
			state.Speed = c.speedLimit
		}
	} else {
		state.Speed = 0
	}
	return state
}

// recv decodes server commands until the link ends. Malformed frames are
// skipped; any read failure ends the stream.
func (c *Client) recv(done <-chan struct{}) chan wire.ServerMessage {
	out := make(chan wire.ServerMessage)
	go func() {
		defer close(out)
		dec := wire.NewDecoder(c.conn)
		for {
			msg, err := dec.DecodeServer()
			if errors.Is(err, wire.ErrMalformed) {
				logger.WithError(err).Warning("skipping malformed message")
				continue
			}
			if err != nil {
				return
			}
			select {
			case out <- msg:
			case <-done:
				return
			}
		}
	}()
	return out
}

// apply updates the local state according to a hub command.
func (c *Client) apply(msg wire.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m := msg.(type) {
	case wire.ForceStop:
		if c.state.Active {
			c.state.Active = false
			c.state.Speed = 0
			logger.WithField("robot", c.state.ID).Warning("force stop received")
		}
	case wire.Resume:
		c.state.Active = true
		logger.WithField("robot", c.state.ID).Info("resume received")
	case wire.SetSpeedLimit:
		c.speedLimit = m.Limit
		logger.WithFields(logrus.Fields{"robot": c.state.ID, "limit": m.Limit}).Info("speed limit received")
	case wire.Warning:
		logger.WithFields(logrus.Fields{"robot": c.state.ID, "text": m.Text}).Warning("server warning")
	}
}

// Run reports telemetry and applies hub commands until ctx is cancelled,
// the killswitch fires, or the hub closes the link. Clean departures send a
// Disconnect frame first and return nil.
func (c *Client) Run(ctx context.Context) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	defer func() { _ = c.conn.Close() }()

	done := make(chan struct{})
	defer close(done)
	in := c.recv(done)

	enc := wire.NewEncoder(c.conn)
	if err := c.sendTelemetry(enc); err != nil {
		return err
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	var killC <-chan time.Time
	if c.killswitch > 0 {
		timer := time.NewTimer(c.killswitch)
		defer timer.Stop()
		killC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return c.leave(enc)
		case <-killC:
			logger.WithField("robot", c.state.ID).Info("killswitch fired, disconnecting")
			return c.leave(enc)
		case msg, ok := <-in:
			if !ok {
				return ErrDisconnected
			}
			logger.WithFields(log.ServerMessageToFields(msg)).Debug("received message")
			c.apply(msg)
		case <-ticker.C:
			if err := c.sendTelemetry(enc); err != nil {
				return err
			}
		}
	}
}

func (c *Client) sendTelemetry(enc *wire.Encoder) error {
	c.mu.Lock()
	state := c.reported()
	c.mu.Unlock()
	if err := enc.EncodeClient(wire.Telemetry{State: state}); err != nil {
		return errors.Wrap(err, "send telemetry failed")
	}
	return nil
}

func (c *Client) leave(enc *wire.Encoder) error {
	c.mu.Lock()
	id := c.state.ID
	c.mu.Unlock()
	// Best effort: the link may already be gone.
	if err := enc.EncodeClient(wire.Disconnect{ID: id}); err != nil {
		logger.WithError(err).Debug("send disconnect failed")
	}
	return nil
}
