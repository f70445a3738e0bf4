package elevenlabs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/voxstream/pkg/errorsx"
	"github.com/harunnryd/voxstream/pkg/transports/mock"
)

func newStreamConfig(tr *mock.Transport) Config {
	return Config{
		Voice:  Voice{ID: "v1"},
		Dialer: mock.NewDialer(tr),
		Logger: quietLogger(),
	}
}

func TestConnectStreamDeliversInOrder(t *testing.T) {
	tr := mock.New()
	sess, stream, err := ConnectStream(context.Background(), newStreamConfig(tr))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	tr.PushMessage(`{"audio":"YQ=="}`)
	tr.PushMessage(`{"isFinal":true}`)
	tr.PushMessage(`{"audio":"Yg=="}`)
	tr.PushClose(1000, "")

	var got []*VoiceClip
	for clip := range stream.Clips() {
		got = append(got, clip)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(got))
	}
	if string(got[0].Audio) != "a" || got[1] != nil || string(got[2].Audio) != "b" {
		t.Fatalf("unexpected deliveries %+v", got)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("expected clean end, got %v", err)
	}
}

func TestConnectStreamBlocksUntilRead(t *testing.T) {
	tr := mock.New()
	sess, stream, err := ConnectStream(context.Background(), newStreamConfig(tr))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	tr.PushMessage(`{"audio":"YQ=="}`)
	tr.PushMessage(`{"audio":"Yg=="}`)
	time.Sleep(30 * time.Millisecond)
	if sess.State() != StateOpen {
		t.Fatalf("expected session to stay open while reader is idle")
	}
	for _, want := range []string{"a", "b"} {
		select {
		case clip := <-stream.Clips():
			if string(clip.Audio) != want {
				t.Fatalf("got %q, want %q", clip.Audio, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("clip %q never delivered", want)
		}
	}
}

func TestConnectStreamReportsFailure(t *testing.T) {
	tr := mock.New()
	_, stream, err := ConnectStream(context.Background(), newStreamConfig(tr))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	tr.PushMessage(`not json`)
	for range stream.Clips() {
	}
	if !errorsx.HasReason(stream.Err(), errorsx.ReasonDecode) {
		t.Fatalf("expected decode failure, got %v", stream.Err())
	}
}

func TestConnectStreamCloseUnblocksDelivery(t *testing.T) {
	tr := mock.New()
	sess, stream, err := ConnectStream(context.Background(), newStreamConfig(tr))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	tr.PushMessage(`{"audio":"YQ=="}`)
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- sess.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("close blocked on an unread clip")
	}
	for range stream.Clips() {
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("expected nil after caller close, got %v", err)
	}
}

func TestConnectStreamValidation(t *testing.T) {
	cfg := newStreamConfig(mock.New())
	cfg.Voice = Voice{}
	_, _, err := ConnectStream(context.Background(), cfg)
	if !errors.Is(err, ErrEmptyVoiceID) {
		t.Fatalf("expected empty voice error, got %v", err)
	}
}
