package client

import "github.com/pkg/errors"

// ErrNotConnected indicates that Run was called before Connect.
var ErrNotConnected = errors.New("not connected")

// ErrDisconnected indicates that the hub closed the link before the client
// chose to leave.
var ErrDisconnected = errors.New("disconnected by server")
