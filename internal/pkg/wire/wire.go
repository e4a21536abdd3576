// Package wire defines the messages exchanged between the hub and its robots
// and the line-delimited JSON framing that carries them.
//
// Every message is one UTF-8 text frame terminated by a single newline. A
// frame is a tagged union: an object carrying a "type" discriminant and, for
// variants with data, a "payload" field. Unknown or extra fields inside a
// documented payload are tolerated so older hubs can talk to newer robots.
package wire

// RobotState is the identity and kinematic snapshot a robot reports in its
// telemetry. The id is chosen by the client and acts as the registry key.
// Angle is in radians, speed in workspace units per second. Color is cosmetic
// and opaque to the hub.
type RobotState struct {
	ID     string   `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Speed  float64  `json:"speed"`
	Angle  float64  `json:"angle"`
	Active bool     `json:"active"`
	Color  [3]uint8 `json:"color"`
}

// ClientMessage is a message sent from a robot to the hub.
type ClientMessage interface {
	clientMessage()
}

// Telemetry carries a full state snapshot. It supersedes any prior state held
// for the same robot id.
type Telemetry struct {
	State RobotState
}

// Disconnect announces the voluntary termination of the robot's session.
type Disconnect struct {
	ID string
}

func (Telemetry) clientMessage()  {}
func (Disconnect) clientMessage() {}

// ServerMessage is a command or advisory sent from the hub to a robot.
type ServerMessage interface {
	serverMessage()
}

// ForceStop orders the robot to halt. It is idempotent: a stopped robot must
// treat a repeated ForceStop as a no-op.
type ForceStop struct{}

// Resume lifts a previous stop order and allows the robot to move again.
type Resume struct{}

// SetSpeedLimit caps the robot's target speed in workspace units per second.
type SetSpeedLimit struct {
	Limit float64
}

// Warning is advisory text. It carries no state change.
type Warning struct {
	Text string
}

func (ForceStop) serverMessage()     {}
func (Resume) serverMessage()        {}
func (SetSpeedLimit) serverMessage() {}
func (Warning) serverMessage()       {}

// Wire discriminants for the message unions.
const (
	TypeTelemetry     = "Telemetry"
	TypeDisconnect    = "Disconnect"
	TypeForceStop     = "ForceStop"
	TypeResume        = "Resume"
	TypeSetSpeedLimit = "SetSpeedLimit"
	TypeWarning       = "Warning"
)
