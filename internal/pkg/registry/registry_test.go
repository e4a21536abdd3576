package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/geom"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

func stateAt(id string, x, y float64) wire.RobotState {
	return wire.RobotState{
		ID:     id,
		X:      x,
		Y:      y,
		Speed:  50,
		Angle:  0,
		Active: true,
		Color:  [3]uint8{200, 100, 50},
	}
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	reg := New()
	ob := NewOutbox(4)

	created := reg.Upsert(stateAt("r1", 10, 10), ob)
	require.True(t, created)
	require.Equal(t, 1, reg.Len())

	created = reg.Upsert(stateAt("r1", 20, 20), ob)
	require.False(t, created)
	require.Equal(t, 1, reg.Len())

	detail, err := reg.Get("r1")
	require.NoError(t, err)
	require.Equal(t, 20.0, detail.State.X)
	require.Len(t, detail.Trail, 2)
}

func TestUpsertNeverDuplicatesID(t *testing.T) {
	reg := New()
	ob := NewOutbox(4)
	for i := 0; i < 50; i++ {
		reg.Upsert(stateAt("r1", float64(i), 0), ob)
	}
	require.Equal(t, 1, reg.Len())
	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "r1", snap[0].ID)
	require.Equal(t, 49.0, snap[0].X)
}

func TestTrailBoundAndFIFO(t *testing.T) {
	reg := New()
	ob := NewOutbox(4)
	for i := 0; i < TrailLength+5; i++ {
		reg.Upsert(stateAt("r1", float64(i), float64(i)), ob)
	}
	detail, err := reg.Get("r1")
	require.NoError(t, err)
	require.Len(t, detail.Trail, TrailLength)

	want := make([]geom.Point, 0, TrailLength)
	for i := 5; i < TrailLength+5; i++ {
		want = append(want, geom.Point{X: float64(i), Y: float64(i)})
	}
	if diff := cmp.Diff(want, detail.Trail); diff != "" {
		t.Errorf("trail mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertKeepsOriginalOutbox(t *testing.T) {
	reg := New()
	first := NewOutbox(4)
	second := NewOutbox(4)

	reg.Upsert(stateAt("r1", 0, 0), first)
	reg.Upsert(stateAt("r1", 1, 1), second)

	ob, ok := reg.Outbox("r1")
	require.True(t, ok)
	require.Same(t, first, ob)
}

func TestRemoveIsIdempotent(t *testing.T) {
	reg := New()
	reg.Upsert(stateAt("r1", 0, 0), NewOutbox(4))

	require.True(t, reg.Remove("r1"))
	require.False(t, reg.Remove("r1"))
	require.Equal(t, 0, reg.Len())

	_, err := reg.Get("r1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetInactive(t *testing.T) {
	reg := New()
	reg.Upsert(stateAt("r1", 0, 0), NewOutbox(4))

	require.True(t, reg.SetInactive("r1"))
	detail, err := reg.Get("r1")
	require.NoError(t, err)
	require.False(t, detail.State.Active)

	require.False(t, reg.SetInactive("missing"))
}

func TestSnapshotSortedAndIsolated(t *testing.T) {
	reg := New()
	ob := NewOutbox(4)
	reg.Upsert(stateAt("charlie", 3, 3), ob)
	reg.Upsert(stateAt("alpha", 1, 1), ob)
	reg.Upsert(stateAt("bravo", 2, 2), ob)

	snap := reg.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{snap[0].ID, snap[1].ID, snap[2].ID})

	// Mutating the snapshot or upserting afterwards must not affect the other.
	snap[0].X = 999
	reg.Upsert(stateAt("alpha", 7, 7), ob)

	fresh := reg.Snapshot()
	require.Equal(t, 7.0, fresh[0].X)
	require.Equal(t, 999.0, snap[0].X)
	require.Equal(t, 1.0, snap[0].Y)
}

func TestSnapshotDetailDeepCopiesTrail(t *testing.T) {
	reg := New()
	ob := NewOutbox(4)
	reg.Upsert(stateAt("r1", 1, 1), ob)
	reg.Upsert(stateAt("r1", 2, 2), ob)

	details := reg.SnapshotDetail()
	require.Len(t, details, 1)
	details[0].Trail[0] = geom.Point{X: -1, Y: -1}

	fromGet, err := reg.Get("r1")
	require.NoError(t, err)
	want := []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}
	if diff := cmp.Diff(want, fromGet.Trail); diff != "" {
		t.Errorf("trail mutated through snapshot (-want +got):\n%s", diff)
	}
}

func TestLastSeenRefreshes(t *testing.T) {
	reg := New()
	current := time.Unix(1000, 0)
	reg.now = func() time.Time { return current }

	reg.Upsert(stateAt("r1", 0, 0), NewOutbox(4))
	first, err := reg.Get("r1")
	require.NoError(t, err)

	current = current.Add(3 * time.Second)
	reg.Upsert(stateAt("r1", 1, 1), nil)
	second, err := reg.Get("r1")
	require.NoError(t, err)

	require.True(t, second.LastSeen.After(first.LastSeen))
	require.Equal(t, 3*time.Second, second.LastSeen.Sub(first.LastSeen))
}

func TestForEachReachesEveryLiveEntry(t *testing.T) {
	reg := New()
	outboxes := make(map[string]*Outbox)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("r%d", i)
		ob := NewOutbox(4)
		outboxes[id] = ob
		reg.Upsert(stateAt(id, float64(i), 0), ob)
	}
	reg.Remove("r3")

	seen := make(map[string]*Outbox)
	reg.ForEach(func(id string, ob *Outbox) {
		seen[id] = ob
	})

	require.Len(t, seen, 4)
	require.NotContains(t, seen, "r3")
	for id, ob := range seen {
		require.Same(t, outboxes[id], ob)
	}
}

func TestOutboxSendReceive(t *testing.T) {
	ob := NewOutbox(2)
	require.True(t, ob.Send(wire.ForceStop{}))
	require.True(t, ob.Send(wire.Warning{Text: "Collision/Boundary Risk!"}))

	require.Equal(t, wire.ForceStop{}, <-ob.Receive())
	require.Equal(t, wire.Warning{Text: "Collision/Boundary Risk!"}, <-ob.Receive())
}

func TestOutboxDropsWhenFull(t *testing.T) {
	ob := NewOutbox(1)
	require.True(t, ob.Send(wire.ForceStop{}))
	require.False(t, ob.Send(wire.Resume{}))

	require.Equal(t, wire.ForceStop{}, <-ob.Receive())
}

func TestOutboxClosedDropsSilently(t *testing.T) {
	ob := NewOutbox(4)
	require.True(t, ob.Send(wire.ForceStop{}))
	ob.Close()
	ob.Close()
	require.False(t, ob.Send(wire.Resume{}))

	// Queued messages still drain, then the channel ends.
	var drained []wire.ServerMessage
	for msg := range ob.Receive() {
		drained = append(drained, msg)
	}
	require.Equal(t, []wire.ServerMessage{wire.ForceStop{}}, drained)
}

func TestOutboxDefaultSize(t *testing.T) {
	ob := NewOutbox(0)
	for i := 0; i < DefaultOutboxSize; i++ {
		require.True(t, ob.Send(wire.Resume{}))
	}
	require.False(t, ob.Send(wire.Resume{}))
}
