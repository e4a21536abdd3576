package registry

import "github.com/pkg/errors"

// ErrNotFound indicates that no live robot is registered under the requested id.
var ErrNotFound = errors.New("robot not found")
