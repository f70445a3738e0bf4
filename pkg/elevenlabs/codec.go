package elevenlabs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Flush is a three-valued flag. FlushUnset leaves the field off the wire,
// which is not the same as an explicit false.
type Flush uint8

const (
	FlushUnset Flush = iota
	FlushOff
	FlushOn
)

// FlushOf converts a plain bool to an explicit Flush value.
func FlushOf(b bool) Flush {
	if b {
		return FlushOn
	}
	return FlushOff
}

func (f Flush) String() string {
	switch f {
	case FlushOff:
		return "false"
	case FlushOn:
		return "true"
	default:
		return "unset"
	}
}

func (f Flush) wire() *bool {
	switch f {
	case FlushOff:
		v := false
		return &v
	case FlushOn:
		v := true
		return &v
	default:
		return nil
	}
}

// Message is one outbound logical message. The set of implementations is
// closed: FirstMessage, TextChunk and FinalMessage.
type Message interface {
	kind() string
}

// FirstMessage opens the exchange and carries session-level settings.
type FirstMessage struct {
	VoiceSettings    *VoiceSettings
	GenerationConfig *GenerationConfig
}

// TextChunk carries the next piece of text to synthesize.
type TextChunk struct {
	Text                 string
	Flush                Flush
	TryTriggerGeneration bool
}

// FinalMessage tells the service no more text will follow.
type FinalMessage struct{}

func (FirstMessage) kind() string { return "first" }
func (TextChunk) kind() string    { return "text" }
func (FinalMessage) kind() string { return "final" }

type firstMessageWire struct {
	VoiceSettings    *VoiceSettings    `json:"voice_settings,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

type textChunkWire struct {
	Text                 string `json:"text"`
	TryTriggerGeneration bool   `json:"try_trigger_generation"`
	Flush                *bool  `json:"flush,omitempty"`
}

type finalMessageWire struct {
	Text string `json:"text"`
}

// Encode serializes msg into exactly one text frame.
func Encode(msg Message) ([]byte, error) {
	var wire any
	switch m := msg.(type) {
	case FirstMessage:
		wire = firstMessageWire{VoiceSettings: m.VoiceSettings, GenerationConfig: m.GenerationConfig}
	case *FirstMessage:
		return Encode(*m)
	case TextChunk:
		if m.Text == "" {
			return nil, ErrEmptyText
		}
		wire = textChunkWire{
			Text:                 withDelimiter(m.Text),
			TryTriggerGeneration: m.TryTriggerGeneration,
			Flush:                m.Flush.wire(),
		}
	case *TextChunk:
		return Encode(*m)
	case FinalMessage, *FinalMessage:
		wire = finalMessageWire{}
	default:
		return nil, fmt.Errorf("elevenlabs: unsupported message %T", msg)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wire); err != nil {
		return nil, fmt.Errorf("elevenlabs: encode %s message: %w", msg.kind(), err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// withDelimiter returns text ending in whitespace, appending a space when
// needed. The service uses the trailing delimiter as a word boundary.
func withDelimiter(text string) string {
	r, _ := utf8.DecodeLastRuneInString(text)
	if unicode.IsSpace(r) {
		return text
	}
	return text + " "
}
