// Package session owns one robot's full-duplex connection to the hub.
//
// A session performs the following steps:
//	1. Split the socket into an inbound stream and an outbound stream over
//	   the single physical connection.
//	2. Start the outbound loop: block on the session's private outbox, encode
//	   and write each command, flushing immediately. The loop ends when the
//	   outbox closes or a write fails; a failed write is a broken link, so
//	   the loop also closes the socket to unblock the inbound side.
//	3. Run the inbound loop on the accepting goroutine: read one frame at a
//	   time. Telemetry upserts the registry, binding this session's outbox to
//	   the robot's entry on first sight. Disconnect ends the loop
//	   intentionally, as do end-of-stream and read errors. Malformed frames
//	   are logged and skipped; the connection stays open.
//	4. On any termination path, run exactly one cleanup step: remove this
//	   session's registry entry (if one was ever created) and close the
//	   outbox so the outbound loop drains and exits.
//
// Sessions expose no shared mutable state of their own; all cross-session
// communication happens through the registry and each session's outbox.
package session
