// Package dispatch routes server-originated commands to robot sessions:
// targeted delivery by id and broadcast delivery to every live robot.
package dispatch

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Dispatcher delivers ServerMessages into sessions' outbound queues via the
// registry's handles. Delivery is enqueue-only and best-effort: a target
// that is absent, closed, or full is skipped silently.
type Dispatcher struct {
	registry *registry.Registry
}

// Cfg configures a Dispatcher.
type Cfg func(*Dispatcher) error

// WithRegistry sets the registry whose handles the dispatcher delivers through.
func WithRegistry(reg *registry.Registry) Cfg {
	return func(d *Dispatcher) error {
		d.registry = reg
		return nil
	}
}

// NewDispatcher creates a new Dispatcher with the given configuration.
func NewDispatcher(cfgs ...Cfg) (*Dispatcher, error) {
	d := &Dispatcher{}
	for _, cfg := range cfgs {
		if err := cfg(d); err != nil {
			return nil, errors.Wrap(err, "apply Dispatcher cfg failed")
		}
	}
	if d.registry == nil {
		return nil, errors.New("registry is required")
	}
	return d, nil
}

// Send delivers msg to the robot registered under id. It reports false when
// the id is unknown or the enqueue was dropped; neither is an error.
func (d *Dispatcher) Send(id string, msg wire.ServerMessage) bool {
	outbox, ok := d.registry.Outbox(id)
	if !ok {
		logger.WithField("robot", id).Debug("dropping command for unknown robot")
		return false
	}
	if !outbox.Send(msg) {
		logger.WithField("robot", id).Debug("dropping command for terminating robot")
		return false
	}
	return true
}

// Broadcast delivers msg to every live robot and returns the number of
// successful enqueues. Robots that disconnect mid-broadcast are skipped.
func (d *Dispatcher) Broadcast(msg wire.ServerMessage) int {
	delivered := 0
	d.registry.ForEach(func(id string, outbox *registry.Outbox) {
		if outbox.Send(msg) {
			delivered++
		}
	})
	return delivered
}

// StopAll broadcasts an emergency ForceStop to every live robot.
func (d *Dispatcher) StopAll() int {
	n := d.Broadcast(wire.ForceStop{})
	logger.WithField("delivered", n).Info("broadcast emergency stop")
	return n
}

// ResumeAll broadcasts a Resume to every live robot.
func (d *Dispatcher) ResumeAll() int {
	n := d.Broadcast(wire.Resume{})
	logger.WithField("delivered", n).Info("broadcast resume")
	return n
}

// SetSpeedLimit broadcasts a global speed cap to every live robot.
func (d *Dispatcher) SetSpeedLimit(limit float64) int {
	n := d.Broadcast(wire.SetSpeedLimit{Limit: limit})
	logger.WithFields(logrus.Fields{"limit": limit, "delivered": n}).Info("broadcast speed limit")
	return n
}
