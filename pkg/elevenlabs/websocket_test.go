package elevenlabs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gws "github.com/gorilla/websocket"
	"github.com/harunnryd/voxstream/pkg/transports/websocket"
)

func TestSessionOverWebsocket(t *testing.T) {
	audio := []byte(strings.Repeat("pcm-", 40))
	type handshake struct {
		path, query, key string
		frames           []string
	}
	seen := make(chan handshake, 1)

	up := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		hs := handshake{path: r.URL.Path, query: r.URL.RawQuery, key: r.Header.Get("xi-api-key")}
		for i := 0; i < 3; i++ {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			hs.frames = append(hs.frames, string(msg))
			if i == 1 {
				reply := `{"audio":"` + base64.StdEncoding.EncodeToString(audio) +
					`","alignment":{"chars":["h","i"," "],"charStartTimesMs":[0,10,20],"charDurationsMs":[10,10,10]}}`
				_ = c.WriteMessage(gws.TextMessage, []byte(reply))
			}
		}
		_ = c.WriteMessage(gws.TextMessage, []byte(`{"isFinal":true}`))
		_ = c.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
		seen <- hs
	}))
	defer srv.Close()

	c := newClipCollector()
	s := NewSession(Config{
		BaseURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/text-to-speech",
		APIKey:  "sk_live",
		Voice:   Voice{ID: "voice 1"},
		Handler: c.handle,
		Dialer:  websocket.NewDialer(websocket.Options{ReadChunkSize: 8}),
		Logger:  quietLogger(),
	})
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Submit(ctx, "hi", FlushOn, true); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.wait(t, 1)
	if err := s.Finalize(ctx); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	hs := <-seen
	if hs.path != "/v1/text-to-speech/voice%201/stream-input" && hs.path != "/v1/text-to-speech/voice 1/stream-input" {
		t.Fatalf("unexpected path %s", hs.path)
	}
	if hs.query != "model_id=eleven_monolingual_v1&output_format=mp3_44100_128" || hs.key != "sk_live" {
		t.Fatalf("unexpected handshake %+v", hs)
	}
	want := []string{`{}`, `{"text":"hi ","try_trigger_generation":true,"flush":true}`, `{"text":""}`}
	for i := range want {
		if i >= len(hs.frames) || hs.frames[i] != want[i] {
			t.Fatalf("frames %v, want %v", hs.frames, want)
		}
	}

	c.wait(t, 1)
	clips := c.snapshot()
	if len(clips) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(clips))
	}
	if string(clips[0].Audio) != string(audio) || clips[0].Text != "hi " {
		t.Fatalf("unexpected clip %+v", clips[0])
	}
	if clips[1] != nil {
		t.Fatalf("expected no-audio marker, got %+v", clips[1])
	}
	if s.State() != StateClosed || s.CloseCode() != gws.CloseNormalClosure {
		t.Fatalf("expected normal close, got %s %d", s.State(), s.CloseCode())
	}
}
