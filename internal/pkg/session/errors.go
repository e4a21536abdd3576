package session

import "github.com/pkg/errors"

// ErrLinkBroken indicates a read or write failure on the session's socket.
// It is terminal for the session and never propagates past it.
var ErrLinkBroken = errors.New("link broken")
