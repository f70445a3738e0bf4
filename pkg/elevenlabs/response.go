package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/voxstream/pkg/metrics"
)

// Alignment maps synthesized audio back to the characters it speaks.
type Alignment struct {
	Chars            []string `json:"chars"`
	CharStartTimesMs []int    `json:"charStartTimesMs,omitempty"`
	CharDurationsMs  []int    `json:"charDurationsMs,omitempty"`
}

// Text concatenates the aligned characters in order.
func (a *Alignment) Text() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Chars, "")
}

// Response is one decoded inbound message. A response without audio is a
// valid boundary signal, not an error.
type Response struct {
	Audio               string          `json:"audio,omitempty"`
	AudioBase64         string          `json:"audio_base64,omitempty"`
	AudioBase64Alt      string          `json:"audio_base_64,omitempty"`
	Alignment           *Alignment      `json:"alignment,omitempty"`
	NormalizedAlignment *Alignment      `json:"normalizedAlignment,omitempty"`
	IsFinal             *bool           `json:"isFinal,omitempty"`
	Error               json.RawMessage `json:"error,omitempty"`
	Message             string          `json:"message,omitempty"`
}

// EncodedAudio returns the base64 audio payload, whichever key carried it.
// Blank payloads count as absent.
func (r *Response) EncodedAudio() string {
	for _, a := range []string{r.Audio, r.AudioBase64, r.AudioBase64Alt} {
		if strings.TrimSpace(a) != "" {
			return a
		}
	}
	return ""
}

// HasAudio reports whether the response carries an audio payload.
func (r *Response) HasAudio() bool { return r.EncodedAudio() != "" }

// Final reports the service's completion indicator.
func (r *Response) Final() bool { return r.IsFinal != nil && *r.IsFinal }

func (r *Response) serverError() error {
	raw := strings.TrimSpace(string(r.Error))
	if raw == "" || raw == "null" {
		return nil
	}
	kind := raw
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		kind = s
	}
	return &ServerError{Kind: kind, Message: r.Message}
}

// VoiceClip is one piece of synthesized audio handed to the consumer. The
// consumer owns the clip once it is delivered.
type VoiceClip struct {
	ID       string
	Sequence int
	Voice    Voice
	Audio    []byte
	// Text is the span the audio speaks, rebuilt from Alignment. It is
	// empty when the response carried no alignment.
	Text      string
	Alignment *Alignment
	Final     bool
}

// HasText reports whether the clip carried alignment data.
func (c *VoiceClip) HasText() bool { return c != nil && c.Alignment != nil && c.Alignment.Chars != nil }

// ClipHandler receives every inbound message in arrival order. clip is nil
// for messages that carry no audio. The receive loop waits for the handler
// to return before reading the next frame; a non-nil error ends the session.
type ClipHandler func(ctx context.Context, clip *VoiceClip) error

// dispatcher turns parsed responses into handler invocations.
type dispatcher struct {
	voice    Voice
	handler  ClipHandler
	log      *slog.Logger
	observer metrics.Observer
	tags     map[string]string

	seq       int
	openedAt  time.Time
	firstSeen bool
}

func (d *dispatcher) dispatch(ctx context.Context, resp *Response) error {
	if err := resp.serverError(); err != nil {
		return err
	}
	d.record(metrics.EventMessages, 1)

	encoded := resp.EncodedAudio()
	if encoded == "" {
		d.record(metrics.EventEmptyMessages, 1)
		d.log.Debug("tts message without audio",
			slog.Bool("is_final", resp.Final()))
		return d.invoke(ctx, nil)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("elevenlabs: decode audio: %w", err)
	}
	clip := &VoiceClip{
		ID:       uuid.NewString(),
		Sequence: d.seq,
		Voice:    d.voice,
		Audio:    raw,
		Final:    resp.Final(),
	}
	if resp.Alignment != nil && resp.Alignment.Chars != nil {
		clip.Alignment = resp.Alignment
		clip.Text = resp.Alignment.Text()
	}
	d.seq++

	if !d.firstSeen {
		d.firstSeen = true
		if !d.openedAt.IsZero() {
			d.record(metrics.EventFirstClipLatency, float64(time.Since(d.openedAt).Milliseconds()))
		}
	}
	d.record(metrics.EventClipBytes, float64(len(raw)))
	d.log.Debug("tts audio clip received",
		slog.Int("sequence", clip.Sequence),
		slog.Int("size_bytes", len(raw)),
		slog.Bool("has_text", clip.HasText()))
	return d.invoke(ctx, clip)
}

func (d *dispatcher) invoke(ctx context.Context, clip *VoiceClip) error {
	if err := d.handler(ctx, clip); err != nil {
		return &callbackError{err: err}
	}
	return nil
}

func (d *dispatcher) record(name string, value float64) {
	if d.observer == nil {
		return
	}
	d.observer.RecordEvent(metrics.MetricsEvent{
		Name:  name,
		Time:  time.Now(),
		Value: value,
		Tags:  d.tags,
	})
}

// callbackError marks failures returned by the consumer's handler.
type callbackError struct{ err error }

func (e *callbackError) Error() string { return "elevenlabs: clip handler: " + e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }
