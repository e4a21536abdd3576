// Package client implements the robot side of the hub protocol.
//
// The client performs the following steps:
//	1. Connect to the hub over TCP.
//	2. Start a receive loop that decodes server commands from the socket.
//	3. On a fixed cadence, report the robot's current state as a Telemetry
//	   frame. The reported speed is the target speed capped by the
//	   server-imposed limit while active, and zero while stopped.
//	4. Apply received commands to the local state: ForceStop halts the robot,
//	   Resume reactivates it, SetSpeedLimit adjusts the cap, Warning is
//	   logged only.
//	5. On cancellation or when the killswitch fires, send a voluntary
//	   Disconnect frame and close the connection.
//
// The client simulates no motion of its own; position and heading change
// only when the caller sets them. This keeps the package a pure protocol
// adapter that external controllers or simulators can drive.
//
// An optional killswitch interval can be configured to force a disconnect
// after a fixed duration, which is useful for exercising the hub's cleanup
// paths.
package client
