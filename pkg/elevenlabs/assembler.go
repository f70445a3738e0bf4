package elevenlabs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/harunnryd/voxstream/pkg/transports"
)

// DefaultMaxMessageBytes bounds a single reassembled inbound message.
const DefaultMaxMessageBytes = 16 << 20

// Assembler joins transport fragments into complete logical messages and
// parses them. It is not safe for concurrent use; a session owns exactly one.
type Assembler struct {
	buf bytes.Buffer
	max int
}

// NewAssembler returns an assembler capped at max bytes per message.
// A non-positive max selects DefaultMaxMessageBytes.
func NewAssembler(max int) *Assembler {
	if max <= 0 {
		max = DefaultMaxMessageBytes
	}
	return &Assembler{max: max}
}

// Push appends a fragment. It returns the parsed response when the fragment
// completes a message, and nil while the message is still partial. Any error
// leaves the assembler empty.
func (a *Assembler) Push(f transports.Fragment) (*Response, error) {
	if a.buf.Len()+len(f.Data) > a.max {
		a.Reset()
		return nil, fmt.Errorf("%w (%d bytes)", ErrMessageTooLarge, a.max)
	}
	a.buf.Write(f.Data)
	if !f.Final {
		return nil, nil
	}
	defer a.Reset()
	return ParseResponse(a.buf.Bytes())
}

// Reset drops any partially assembled message.
func (a *Assembler) Reset() { a.buf.Reset() }

// Len reports the number of buffered bytes of the in-progress message.
func (a *Assembler) Len() int { return a.buf.Len() }

// ParseResponse decodes one complete logical message.
func ParseResponse(data []byte) (*Response, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	var resp *Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("elevenlabs: parse response: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}
