package safety

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/dispatch"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/geom"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Workspace and rule constants shared with connecting robots.
const (
	// SafeDistance is the minimum allowed center-to-center distance between
	// two robots. Strictly closer forces both to stop.
	SafeDistance = 50.0

	// AdvisoryRatio scales SafeDistance to the advisory-only band.
	AdvisoryRatio = 1.5

	// BoundaryMargin is the distance from a workspace edge strictly inside
	// which a robot is forced to stop.
	BoundaryMargin = 10.0

	// DefaultWidth and DefaultHeight describe the standard workspace.
	DefaultWidth  = 600.0
	DefaultHeight = 400.0

	// DefaultInterval is the cadence between monitor passes.
	DefaultInterval = 100 * time.Millisecond

	// StopWarningText accompanies every forced stop.
	StopWarningText = "Collision/Boundary Risk!"
)

// Pair records two robots inside the advisory band and their distance.
type Pair struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	Distance float64 `json:"distance"`
}

// Report summarizes one monitor pass.
type Report struct {
	Time     time.Time `json:"time"`
	Robots   int       `json:"robots"`
	Flagged  []string  `json:"flagged"`
	Stopped  []string  `json:"stopped"`
	Advisory []Pair    `json:"advisory"`
}

// Monitor scans the registry on a fixed cadence and enforces the proximity
// and boundary rules through the dispatcher.
type Monitor struct {
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	bounds     geom.Bounds
	interval   time.Duration

	mu   sync.RWMutex
	last Report
}

// Cfg configures a Monitor.
type Cfg func(*Monitor) error

// WithRegistry sets the registry the monitor scans.
func WithRegistry(reg *registry.Registry) Cfg {
	return func(m *Monitor) error {
		m.registry = reg
		return nil
	}
}

// WithDispatcher sets the dispatcher used to deliver stop commands.
func WithDispatcher(d *dispatch.Dispatcher) Cfg {
	return func(m *Monitor) error {
		m.dispatcher = d
		return nil
	}
}

// WithBounds sets the workspace dimensions.
func WithBounds(bounds geom.Bounds) Cfg {
	return func(m *Monitor) error {
		if bounds.Width <= 0 || bounds.Height <= 0 {
			return errors.New("bounds must be positive")
		}
		m.bounds = bounds
		return nil
	}
}

// WithInterval sets the cadence between passes.
func WithInterval(interval time.Duration) Cfg {
	return func(m *Monitor) error {
		if interval <= 0 {
			return errors.New("interval must be positive")
		}
		m.interval = interval
		return nil
	}
}

// NewMonitor creates a new Monitor with the given configuration.
func NewMonitor(cfgs ...Cfg) (*Monitor, error) {
	m := &Monitor{
		bounds: geom.Bounds{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		interval: DefaultInterval,
	}
	for _, cfg := range cfgs {
		if err := cfg(m); err != nil {
			return nil, errors.Wrap(err, "apply Monitor cfg failed")
		}
	}
	if m.registry == nil {
		return nil, errors.New("registry is required")
	}
	if m.dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	return m, nil
}

// Bounds returns the workspace dimensions the monitor enforces.
func (m *Monitor) Bounds() geom.Bounds {
	return m.bounds
}

// Interval returns the cadence between passes.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Run executes passes on the configured cadence until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	logger.WithFields(logrus.Fields{
		"interval": m.interval,
		"width":    m.bounds.Width,
		"height":   m.bounds.Height,
	}).Info("safety monitor running")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Pass()
		}
	}
}

// Pass runs one full scan: flag violations, stop active offenders, record
// the Report. Safe to call directly from tests or callers without Run.
func (m *Monitor) Pass() Report {
	snapshot := m.registry.Snapshot()
	flagged := make(map[string]bool)
	var advisory []Pair

	for i := 0; i < len(snapshot); i++ {
		for j := i + 1; j < len(snapshot); j++ {
			a, b := snapshot[i], snapshot[j]
			d := geom.Distance(geom.Point{X: a.X, Y: a.Y}, geom.Point{X: b.X, Y: b.Y})
			switch {
			case d < SafeDistance:
				flagged[a.ID] = true
				flagged[b.ID] = true
			case d < SafeDistance*AdvisoryRatio:
				advisory = append(advisory, Pair{A: a.ID, B: b.ID, Distance: d})
			}
		}
	}

	for _, state := range snapshot {
		if m.bounds.NearEdge(geom.Point{X: state.X, Y: state.Y}, BoundaryMargin) {
			flagged[state.ID] = true
		}
	}

	report := Report{
		Time:   time.Now(),
		Robots: len(snapshot),
	}
	for _, state := range snapshot {
		if !flagged[state.ID] {
			continue
		}
		report.Flagged = append(report.Flagged, state.ID)
		if !state.Active {
			continue
		}
		m.dispatcher.Send(state.ID, wire.ForceStop{})
		m.dispatcher.Send(state.ID, wire.Warning{Text: StopWarningText})
		m.registry.SetInactive(state.ID)
		report.Stopped = append(report.Stopped, state.ID)
		logger.WithField("robot", state.ID).Warn("forced stop")
	}
	report.Advisory = advisory

	m.mu.Lock()
	m.last = report
	m.mu.Unlock()
	return report
}

// LastReport returns the most recent pass Report.
func (m *Monitor) LastReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
