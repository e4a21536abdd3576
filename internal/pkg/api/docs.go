// Package api exposes the hub's control and observation surface over HTTP.
//
// The surface mirrors what an operator console needs:
//
// 1. GET /healthz answers liveness probes.
//
// 2. GET /api/robots and GET /api/safety return the registry detail
// snapshot and the latest safety monitor report. Staleness is left to the
// caller to judge from each entry's last_seen timestamp.
//
// 3. POST /api/stop, /api/resume and /api/speed-limit broadcast the
// matching command to every connected robot and report how many robots
// the broadcast reached.
//
// 4. GET /api/watch upgrades to a websocket and pushes a combined
// snapshot frame on the safety monitor's cadence. Watchers that stop
// reading are dropped without affecting robot sessions.
package api
