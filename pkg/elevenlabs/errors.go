package elevenlabs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the parent of every validation failure.
	ErrInvalidArgument = errors.New("elevenlabs: invalid argument")

	ErrEmptyVoiceID     = fmt.Errorf("%w: voice id is empty", ErrInvalidArgument)
	ErrNilHandler       = fmt.Errorf("%w: clip handler is nil", ErrInvalidArgument)
	ErrEmptyText        = fmt.Errorf("%w: text is empty", ErrInvalidArgument)
	ErrInvalidLatency   = fmt.Errorf("%w: optimize_streaming_latency must be within 0..4", ErrInvalidArgument)
	ErrUnknownFormat    = fmt.Errorf("%w: unknown output format", ErrInvalidArgument)
	ErrNotOpen          = errors.New("elevenlabs: session is not open")
	ErrAlreadyConnected = errors.New("elevenlabs: session already connected")
	ErrMessageTooLarge  = errors.New("elevenlabs: inbound message exceeds size limit")
	ErrInvalidUTF8      = errors.New("elevenlabs: inbound message is not valid UTF-8")
	ErrEmptyResponse    = errors.New("elevenlabs: failed to parse response")
)

// ServerError is reported when the service sends an error message instead
// of audio. It ends the session.
type ServerError struct {
	Kind    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "elevenlabs: server error: " + e.Kind
	}
	return "elevenlabs: server error: " + e.Kind + ": " + e.Message
}
