package elevenlabs

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

func TestEncodeTextChunkAlwaysEndsInWhitespace(t *testing.T) {
	inputs := []string{"hello", "hello ", "hello\n", "hi\t", "ends.", "ünïcödé", "日本語", " ", "a", "tab "}
	for _, in := range inputs {
		orig := in
		b, err := Encode(TextChunk{Text: in})
		if err != nil {
			t.Fatalf("encode %q: %v", in, err)
		}
		var wire struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(b, &wire); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		r, _ := utf8.DecodeLastRuneInString(wire.Text)
		if !unicode.IsSpace(r) {
			t.Fatalf("wire text %q does not end in whitespace", wire.Text)
		}
		if !strings.HasPrefix(wire.Text, orig) {
			t.Fatalf("wire text %q lost caller text %q", wire.Text, orig)
		}
		if in != orig {
			t.Fatalf("caller text mutated")
		}
	}
}

func TestEncodeTextChunkWireShape(t *testing.T) {
	b, err := Encode(TextChunk{Text: "hello"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := string(b), `{"text":"hello ","try_trigger_generation":false}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEncodeFlushTriState(t *testing.T) {
	cases := []struct {
		flush Flush
		want  string
	}{
		{FlushUnset, `{"text":"x ","try_trigger_generation":true}`},
		{FlushOff, `{"text":"x ","try_trigger_generation":true,"flush":false}`},
		{FlushOn, `{"text":"x ","try_trigger_generation":true,"flush":true}`},
	}
	for _, tc := range cases {
		b, err := Encode(TextChunk{Text: "x", Flush: tc.flush, TryTriggerGeneration: true})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if string(b) != tc.want {
			t.Fatalf("flush %s: got %s, want %s", tc.flush, b, tc.want)
		}
	}
	if FlushOf(true) != FlushOn || FlushOf(false) != FlushOff {
		t.Fatalf("FlushOf mismatch")
	}
}

func TestEncodeFirstAndFinalMessages(t *testing.T) {
	b, err := Encode(FirstMessage{})
	if err != nil {
		t.Fatalf("encode first: %v", err)
	}
	if string(b) != `{}` {
		t.Fatalf("unexpected bare first message %s", b)
	}

	b, err = Encode(&FirstMessage{
		VoiceSettings:    DefaultVoiceSettings(),
		GenerationConfig: &GenerationConfig{ChunkLengthSchedule: []int{120, 160, 250, 290}},
	})
	if err != nil {
		t.Fatalf("encode first: %v", err)
	}
	var first map[string]any
	if err := json.Unmarshal(b, &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := first["text"]; ok {
		t.Fatalf("first message must not carry text: %s", b)
	}
	vs, _ := first["voice_settings"].(map[string]any)
	if vs["stability"] != 0.5 || vs["similarity_boost"] != 0.8 {
		t.Fatalf("unexpected voice settings: %v", vs)
	}
	if _, ok := vs["style"]; ok {
		t.Fatalf("unset style should be omitted: %v", vs)
	}

	b, err = Encode(FinalMessage{})
	if err != nil {
		t.Fatalf("encode final: %v", err)
	}
	if string(b) != `{"text":""}` {
		t.Fatalf("unexpected final message %s", b)
	}
}

func TestEncodeRejectsEmptyText(t *testing.T) {
	_, err := Encode(TextChunk{})
	if !errors.Is(err, ErrEmptyText) || !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected empty text error, got %v", err)
	}
}

func TestEncodeKeepsMarkupReadable(t *testing.T) {
	b, err := Encode(TextChunk{Text: `<break time="1s"/> & more`})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), `<break time=\"1s\"/> & more `) {
		t.Fatalf("markup escaped: %s", b)
	}
}
