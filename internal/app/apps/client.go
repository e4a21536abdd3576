package apps

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/client"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/validate"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ClientAppCfg configures a ClientApp.
type ClientAppCfg interface {
	ApplyClientApp(*ClientApp) error
}

// ClientApp is the demo robot application. It joins the hub with a random
// identity unless one is given on the command line.
type ClientApp struct {
	ServerAddr        string        `validate:"required"`
	TelemetryInterval time.Duration `validate:"required"`
	Killswitch        time.Duration
}

// NewClientApp creates a new ClientApp.
func NewClientApp(cfgs ...ClientAppCfg) (*ClientApp, error) {
	app := &ClientApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyClientApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ClientApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ClientApp failed")
	}
	return app, nil
}

// Run connects a robot to the hub and reports telemetry until ctx is
// cancelled. args is the command line tail: [id [x y]].
func (app *ClientApp) Run(ctx context.Context, args []string) error {
	state := randomState()
	if len(args) > 1 {
		state.ID = args[1]
	}
	if len(args) > 3 {
		var err error
		if state.X, err = strconv.ParseFloat(args[2], 64); err != nil {
			return errors.Wrap(err, "parse x argument failed")
		}
		if state.Y, err = strconv.ParseFloat(args[3], 64); err != nil {
			return errors.Wrap(err, "parse y argument failed")
		}
	}
	logger.WithFields(logrus.Fields{
		"robot": state.ID,
		"x":     state.X,
		"y":     state.Y,
	}).Info("starting robot client")

	c, err := client.NewClient(
		client.WithServerAddr(app.ServerAddr),
		client.WithState(state),
		client.WithTelemetryInterval(app.TelemetryInterval),
		client.WithKillswitch(app.Killswitch),
	)
	if err != nil {
		return errors.Wrap(err, "create client failed")
	}
	if err := c.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect client failed")
	}
	return errors.Wrap(c.Run(ctx), "run client failed")
}

// randomState builds a joining robot's default state: random identity,
// position and heading, target speed 50 and a random display color.
func randomState() wire.RobotState {
	r := rand.New(rand.NewSource(time.Now().UnixNano())) // nolint: gosec // identity jitter, not security
	return wire.RobotState{
		ID:     fmt.Sprintf("Cobot-%d", 100+r.Intn(899)),
		X:      50 + r.Float64()*250,
		Y:      50 + r.Float64()*250,
		Speed:  50,
		Angle:  r.Float64() * 6.28,
		Active: true,
		Color:  [3]uint8{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256))},
	}
}
