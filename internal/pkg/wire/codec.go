package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// MaxFrameSize bounds a single frame on the wire. A peer that exceeds it is
// misbehaving badly enough that the read error is terminal for the
// connection, unlike an ordinary malformed frame.
const MaxFrameSize = 64 * 1024

// envelope is the on-wire shape of every message: a discriminant plus the
// variant payload. Unit variants omit the payload entirely.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalClient encodes a ClientMessage to one frame, without the trailing
// newline.
func MarshalClient(msg ClientMessage) ([]byte, error) {
	switch m := msg.(type) {
	case Telemetry:
		return marshalEnvelope(TypeTelemetry, m.State)
	case Disconnect:
		return marshalEnvelope(TypeDisconnect, m.ID)
	default:
		return nil, errors.Errorf("unsupported client message %T", msg)
	}
}

// MarshalServer encodes a ServerMessage to one frame, without the trailing
// newline.
func MarshalServer(msg ServerMessage) ([]byte, error) {
	switch m := msg.(type) {
	case ForceStop:
		return marshalEnvelope(TypeForceStop, nil)
	case Resume:
		return marshalEnvelope(TypeResume, nil)
	case SetSpeedLimit:
		return marshalEnvelope(TypeSetSpeedLimit, m.Limit)
	case Warning:
		return marshalEnvelope(TypeWarning, m.Text)
	default:
		return nil, errors.Errorf("unsupported server message %T", msg)
	}
}

func marshalEnvelope(typ string, payload interface{}) ([]byte, error) {
	env := envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s payload failed", typ)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s envelope failed", typ)
	}
	return data, nil
}

// UnmarshalClient decodes one frame back to the originating ClientMessage
// variant. Schema violations are reported as ErrMalformed.
func UnmarshalClient(frame []byte) (ClientMessage, error) {
	env, err := parseEnvelope(frame)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeTelemetry:
		var state RobotState
		if err := unmarshalPayload(env, &state); err != nil {
			return nil, err
		}
		return Telemetry{State: state}, nil
	case TypeDisconnect:
		var id string
		if err := unmarshalPayload(env, &id); err != nil {
			return nil, err
		}
		return Disconnect{ID: id}, nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown client message type %q", env.Type)
	}
}

// UnmarshalServer decodes one frame back to the originating ServerMessage
// variant. Schema violations are reported as ErrMalformed.
func UnmarshalServer(frame []byte) (ServerMessage, error) {
	env, err := parseEnvelope(frame)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeForceStop:
		return ForceStop{}, nil
	case TypeResume:
		return Resume{}, nil
	case TypeSetSpeedLimit:
		var limit float64
		if err := unmarshalPayload(env, &limit); err != nil {
			return nil, err
		}
		return SetSpeedLimit{Limit: limit}, nil
	case TypeWarning:
		var text string
		if err := unmarshalPayload(env, &text); err != nil {
			return nil, err
		}
		return Warning{Text: text}, nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown server message type %q", env.Type)
	}
}

func parseEnvelope(frame []byte) (envelope, error) {
	var env envelope
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return env, errors.Wrap(ErrMalformed, "empty frame")
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, errors.Wrapf(ErrMalformed, "parse frame failed: %v", err)
	}
	if env.Type == "" {
		return env, errors.Wrap(ErrMalformed, "missing type discriminant")
	}
	return env, nil
}

func unmarshalPayload(env envelope, target interface{}) error {
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return errors.Wrapf(ErrMalformed, "%s payload missing", env.Type)
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return errors.Wrapf(ErrMalformed, "parse %s payload failed: %v", env.Type, err)
	}
	return nil
}

// Encoder writes newline-delimited frames to an underlying stream, flushing
// after every message so commands reach the peer immediately.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// EncodeClient writes one ClientMessage frame.
func (e *Encoder) EncodeClient(msg ClientMessage) error {
	frame, err := MarshalClient(msg)
	if err != nil {
		return err
	}
	return e.writeFrame(frame)
}

// EncodeServer writes one ServerMessage frame.
func (e *Encoder) EncodeServer(msg ServerMessage) error {
	frame, err := MarshalServer(msg)
	if err != nil {
		return err
	}
	return e.writeFrame(frame)
}

func (e *Encoder) writeFrame(frame []byte) error {
	if _, err := e.w.Write(frame); err != nil {
		return errors.Wrap(err, "write frame failed")
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write frame delimiter failed")
	}
	return errors.Wrap(e.w.Flush(), "flush frame failed")
}

// Decoder reads newline-delimited frames from an underlying stream.
//
// Decode errors split three ways for the caller: ErrMalformed is recoverable
// (skip the frame), io.EOF is a clean end of stream, anything else is a
// broken link and terminal for the connection.
type Decoder struct {
	s *bufio.Scanner
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxFrameSize)
	return &Decoder{s: s}
}

// Next returns the next raw frame, io.EOF on a clean end of stream, or the
// underlying read error.
func (d *Decoder) Next() ([]byte, error) {
	if !d.s.Scan() {
		if err := d.s.Err(); err != nil {
			return nil, errors.Wrap(err, "read frame failed")
		}
		return nil, io.EOF
	}
	return d.s.Bytes(), nil
}

// DecodeClient reads and decodes the next ClientMessage frame.
func (d *Decoder) DecodeClient() (ClientMessage, error) {
	frame, err := d.Next()
	if err != nil {
		return nil, err
	}
	return UnmarshalClient(frame)
}

// DecodeServer reads and decodes the next ServerMessage frame.
func (d *Decoder) DecodeServer() (ServerMessage, error) {
	frame, err := d.Next()
	if err != nil {
		return nil, err
	}
	return UnmarshalServer(frame)
}
