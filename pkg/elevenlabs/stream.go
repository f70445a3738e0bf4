package elevenlabs

import (
	"context"
	"sync"
)

// ClipStream delivers clips through a channel instead of a callback. The
// channel is unbuffered: the receive loop blocks until the reader takes each
// clip, so a slow reader slows the session down rather than piling up audio.
// A nil value on the channel marks a message that carried no audio.
type ClipStream struct {
	ch   chan *VoiceClip
	once sync.Once
	mu   sync.Mutex
	err  error
}

func newClipStream() *ClipStream {
	return &ClipStream{ch: make(chan *VoiceClip)}
}

// Clips returns the delivery channel. It is closed after the session ends.
func (s *ClipStream) Clips() <-chan *VoiceClip { return s.ch }

// Err returns the session's terminal error once Clips is closed.
func (s *ClipStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ClipStream) handle(ctx context.Context, clip *VoiceClip) error {
	select {
	case s.ch <- clip:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ClipStream) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.ch)
	})
}

// ConnectStream connects a session whose clips are read from the returned
// stream. cfg.Handler is replaced.
func ConnectStream(ctx context.Context, cfg Config) (*Session, *ClipStream, error) {
	stream := newClipStream()
	cfg.Handler = stream.handle
	sess := NewSession(cfg)
	if err := sess.Connect(ctx); err != nil {
		return nil, nil, err
	}
	go func() {
		stream.finish(sess.Wait())
	}()
	return sess, stream, nil
}
