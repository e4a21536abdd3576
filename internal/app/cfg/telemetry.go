package cfg

import (
	"time"

	"github.com/kaushalagrawal2/een1097-assignment2/internal"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/app/apps"
)

// TelemetryCfg is configuration for a client's telemetry cadence and
// optional killswitch.
type TelemetryCfg struct {
	interval   time.Duration
	killswitch time.Duration
}

// NewTelemetryCfg creates a new TelemetryCfg from the given cadences.
// A zero killswitch disables the killswitch.
func NewTelemetryCfg(interval, killswitch time.Duration) *TelemetryCfg {
	return &TelemetryCfg{
		interval:   interval,
		killswitch: killswitch,
	}
}

// TelemetryFromEnv creates a new TelemetryCfg from the current environment.
func TelemetryFromEnv() *TelemetryCfg {
	return NewTelemetryCfg(
		time.Duration(internal.ClientTickerMS)*time.Millisecond,
		time.Duration(internal.ClientKillswitchMS)*time.Millisecond,
	)
}

// ApplyClientApp applies the TelemetryCfg to a ClientApp.
func (cfg TelemetryCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.TelemetryInterval = cfg.interval
	app.Killswitch = cfg.killswitch
	return nil
}
