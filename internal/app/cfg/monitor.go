package cfg

import (
	"time"

	"github.com/kaushalagrawal2/een1097-assignment2/internal"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/app/apps"
)

// MonitorCfg is configuration for the safety monitor cadence.
type MonitorCfg struct {
	interval time.Duration
}

// NewMonitorCfg creates a new MonitorCfg from the given interval.
func NewMonitorCfg(interval time.Duration) *MonitorCfg {
	return &MonitorCfg{
		interval: interval,
	}
}

// MonitorFromEnv creates a new MonitorCfg from the current environment.
func MonitorFromEnv() *MonitorCfg {
	return NewMonitorCfg(time.Duration(internal.ServerTickerMS) * time.Millisecond)
}

// ApplyServerApp applies the MonitorCfg to a ServerApp.
func (cfg MonitorCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.MonitorInterval = cfg.interval
	return nil
}
