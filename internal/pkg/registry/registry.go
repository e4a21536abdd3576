// Package registry is the authoritative, concurrency-safe store of all live
// robots: latest state, bounded position trail, and the outbound handle used
// to push commands back to each robot's session.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/geom"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

// TrailLength bounds the position history kept per robot. The oldest point
// is evicted first.
const TrailLength = 20

// entry is the server-owned record for one live robot.
type entry struct {
	state    wire.RobotState
	trail    []geom.Point
	lastSeen time.Time
	outbox   *Outbox
}

// Detail is a point-in-time copy of one entry, safe to hold and serialize
// after the lock is released.
type Detail struct {
	State    wire.RobotState `json:"state"`
	Trail    []geom.Point    `json:"trail"`
	LastSeen time.Time       `json:"last_seen"`
}

// Registry maps robot id to its live entry. A single lock guards the whole
// map; callers extract snapshots and compute outside the critical section.
type Registry struct {
	mu     sync.RWMutex
	robots map[string]*entry
	now    func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		robots: make(map[string]*entry),
		now:    time.Now,
	}
}

// Upsert records a telemetry snapshot. A new entry is created for an unseen
// id, binding outbox as its command handle for the entry's whole lifetime;
// an existing entry keeps its original handle and only its state, trail and
// lastSeen are updated. Reports whether the entry was created.
func (r *Registry) Upsert(state wire.RobotState, outbox *Outbox) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.robots[state.ID]
	if !ok {
		e = &entry{outbox: outbox}
		r.robots[state.ID] = e
	}
	e.state = state
	e.lastSeen = r.now()
	e.trail = append(e.trail, geom.Point{X: state.X, Y: state.Y})
	if len(e.trail) > TrailLength {
		e.trail = e.trail[len(e.trail)-TrailLength:]
	}
	return !ok
}

// Remove deletes the entry for id. It reports whether an entry existed;
// removing an absent id is a no-op so racing cleanup paths stay safe.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.robots[id]; !ok {
		return false
	}
	delete(r.robots, id)
	return true
}

// SetInactive marks the entry for id as stopped. The safety monitor calls
// this when it issues a ForceStop so the authoritative state transitions
// immediately, ahead of the client's next telemetry. Reports whether the
// entry existed.
func (r *Registry) SetInactive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.robots[id]
	if !ok {
		return false
	}
	e.state.Active = false
	return true
}

// Get returns a copy of the entry for id, or ErrNotFound.
func (r *Registry) Get(id string) (Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.robots[id]
	if !ok {
		return Detail{}, ErrNotFound
	}
	return e.detail(), nil
}

// Snapshot returns a point-in-time copy of every robot's state, sorted by
// id. Callers compute on the copy without holding the registry lock.
func (r *Registry) Snapshot() []wire.RobotState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make([]wire.RobotState, 0, len(r.robots))
	for _, e := range r.robots {
		states = append(states, e.state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// SnapshotDetail returns a point-in-time deep copy of every entry including
// trails and lastSeen, sorted by id.
func (r *Registry) SnapshotDetail() []Detail {
	r.mu.RLock()
	defer r.mu.RUnlock()
	details := make([]Detail, 0, len(r.robots))
	for _, e := range r.robots {
		details = append(details, e.detail())
	}
	sort.Slice(details, func(i, j int) bool { return details[i].State.ID < details[j].State.ID })
	return details
}

// Outbox returns the command handle for id, if the entry is live.
func (r *Registry) Outbox(id string) (*Outbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.robots[id]
	if !ok {
		return nil, false
	}
	return e.outbox, true
}

// ForEach applies fn to every live entry's id and command handle. Handles
// are copied under the lock and fn runs outside it, so fn may enqueue
// without stalling telemetry ingestion.
func (r *Registry) ForEach(fn func(id string, outbox *Outbox)) {
	r.mu.RLock()
	type target struct {
		id     string
		outbox *Outbox
	}
	targets := make([]target, 0, len(r.robots))
	for id, e := range r.robots {
		targets = append(targets, target{id: id, outbox: e.outbox})
	}
	r.mu.RUnlock()
	for _, t := range targets {
		fn(t.id, t.outbox)
	}
}

// Len returns the number of live robots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.robots)
}

func (e *entry) detail() Detail {
	trail := make([]geom.Point, len(e.trail))
	copy(trail, e.trail)
	return Detail{
		State:    e.state,
		Trail:    trail,
		LastSeen: e.lastSeen,
	}
}
