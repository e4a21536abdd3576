package wire

import "github.com/pkg/errors"

// ErrMalformed indicates a frame that is empty, fails to parse, carries an
// unknown discriminant, or carries a payload that violates the variant
// schema. Readers must treat it as recoverable: skip the frame and keep the
// connection open.
var ErrMalformed = errors.New("malformed message")
