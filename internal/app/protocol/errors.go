package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every decode failure.
var ErrMalformed = errors.New("protocol: malformed frame")

// Layer identifies which of the two JSON layers of a frame failed to decode.
type Layer int

const (
	// LayerEnvelope is the outer {messageType, data, dataArray} object.
	LayerEnvelope Layer = iota + 1

	// LayerPayload is the nested {from, message} document inside a message frame.
	LayerPayload
)

func (l Layer) String() string {
	switch l {
	case LayerEnvelope:
		return "envelope"
	case LayerPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// DecodeError describes why a frame was rejected.
type DecodeError struct {
	Layer  Layer
	Kind   Kind
	Reason string
	Err    error
}

func malformed(layer Layer, kind Kind, reason string, err error) *DecodeError {
	return &DecodeError{Layer: layer, Kind: kind, Reason: reason, Err: err}
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("protocol: malformed %s", e.Layer)
	if e.Kind != "" {
		msg += fmt.Sprintf(" (%s)", e.Kind)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying JSON error, if any.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports ErrMalformed as a match so callers need not know the concrete type.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}
