package apps

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/api"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/dispatch"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/safety"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/server"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/validate"
)

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the cobot hub application: the robot TCP endpoint, the
// safety monitor and the control API wired over one shared registry.
type ServerApp struct {
	ListenAddr      string        `validate:"required"`
	APIAddr         string        `validate:"required"`
	MonitorInterval time.Duration `validate:"required"`
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Run wires the hub together and serves until ctx is cancelled or a
// component fails. The first component failure cancels the rest.
func (app *ServerApp) Run(ctx context.Context, args []string) error {
	reg := registry.New()
	dis, err := dispatch.NewDispatcher(dispatch.WithRegistry(reg))
	if err != nil {
		return errors.Wrap(err, "create dispatcher failed")
	}
	mon, err := safety.NewMonitor(
		safety.WithRegistry(reg),
		safety.WithDispatcher(dis),
		safety.WithInterval(app.MonitorInterval),
	)
	if err != nil {
		return errors.Wrap(err, "create safety monitor failed")
	}
	hub, err := server.NewServer(
		server.WithAddr(app.ListenAddr),
		server.WithRegistry(reg),
	)
	if err != nil {
		return errors.Wrap(err, "create server failed")
	}
	ctl, err := api.NewServer(
		api.WithAddr(app.APIAddr),
		api.WithRegistry(reg),
		api.WithDispatcher(dis),
		api.WithMonitor(mon),
	)
	if err != nil {
		return errors.Wrap(err, "create control api failed")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, 3)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- errors.Wrapf(err, "run %s failed", name)
				cancel()
			}
		}()
	}
	start("safety monitor", mon.Run)
	start("robot endpoint", hub.ListenAndServe)
	start("control api", ctl.Run)

	<-ctx.Done()
	wg.Wait()
	close(errc)
	return <-errc
}
