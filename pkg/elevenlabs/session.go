// Package elevenlabs implements the streaming text-to-speech session: text
// goes out incrementally over one duplex connection while synthesized audio
// comes back incrementally and is delivered, in order, to a ClipHandler.
package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/voxstream/pkg/errorsx"
	"github.com/harunnryd/voxstream/pkg/logging"
	"github.com/harunnryd/voxstream/pkg/metrics"
	"github.com/harunnryd/voxstream/pkg/redact"
	"github.com/harunnryd/voxstream/pkg/resilience"
	"github.com/harunnryd/voxstream/pkg/transports"
	"github.com/harunnryd/voxstream/pkg/transports/websocket"
)

const apiKeyHeader = "xi-api-key"

// Config describes one streaming session.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	APIKey  string
	Voice   Voice
	Params  SessionParams

	VoiceSettings    *VoiceSettings
	GenerationConfig *GenerationConfig

	// Handler is required.
	Handler ClipHandler

	// Dialer defaults to a gorilla websocket dialer.
	Dialer transports.Dialer
	// MaxMessageBytes caps one reassembled inbound message.
	MaxMessageBytes int

	Logger   *slog.Logger
	Observer metrics.Observer
}

// Session owns one connection and its receive loop.
//
// Submit and Finalize write under a session lock, so they never interleave
// bytes on the wire, but the order of overlapping Submit calls is whatever
// order they acquire that lock in. Callers that care about text order must
// not issue overlapping Submit calls.
type Session struct {
	cfg  Config
	id   string
	log  *slog.Logger
	sm   *stateMachine
	asm  *Assembler
	disp *dispatcher

	writeMu sync.Mutex

	mu     sync.Mutex
	conn   transports.Transport
	cancel context.CancelFunc

	done        chan struct{}
	loopDone    chan struct{}
	loopStarted atomic.Bool
	termOnce    sync.Once
	err         error
	closing     atomic.Bool
	closeCode   atomic.Int64
}

// NewSession prepares a session. Nothing touches the network until Connect.
func NewSession(cfg Config) *Session {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.NewDialer(websocket.Options{ReadLimit: int64(cfg.MaxMessageBytes)})
	}
	if cfg.Observer == nil {
		cfg.Observer = metrics.NoopObserver{}
	}
	id := uuid.NewString()
	log := logging.NewComponentLogger(cfg.Logger, "elevenlabs_session").With(
		slog.String("session_id", id),
		slog.String("voice_id", cfg.Voice.ID))

	s := &Session{
		cfg:      cfg,
		id:       id,
		log:      log,
		sm:       newStateMachine(),
		asm:      NewAssembler(cfg.MaxMessageBytes),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	s.disp = &dispatcher{
		voice:    cfg.Voice,
		handler:  cfg.Handler,
		log:      log,
		observer: cfg.Observer,
		tags:     map[string]string{"voice_id": cfg.Voice.ID, "session_id": id},
	}
	s.sm.AddListener(StateListenerFunc(func(ev StateChange) {
		log.Debug("tts session state",
			slog.String("from", ev.FromState.String()),
			slog.String("to", ev.ToState.String()),
			slog.String("reason", ev.Reason))
	}))
	return s
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Voice() Voice { return s.cfg.Voice }
func (s *Session) State() State { return s.sm.State() }

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// AddListener registers a listener for state changes.
func (s *Session) AddListener(l StateListener) { s.sm.AddListener(l) }

// CloseCode returns the close code sent by the peer, or 0.
func (s *Session) CloseCode() int { return int(s.closeCode.Load()) }

// Err returns the terminal error once the session has ended. An orderly
// close by the peer or by Close leaves it nil.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the session has terminated and its receive loop has
// exited, then returns Err.
func (s *Session) Wait() error {
	<-s.done
	<-s.loopDone
	return s.err
}

func (s *Session) validate() error {
	if !s.cfg.Voice.valid() {
		return ErrEmptyVoiceID
	}
	if s.cfg.Handler == nil {
		return ErrNilHandler
	}
	return s.cfg.Params.Validate()
}

// Connect opens the connection, starts the receive loop and sends the first
// message. It returns once the first message is handed to the transport and
// does not wait for a server reply. ctx also governs the receive loop:
// cancelling it closes the session.
func (s *Session) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.validate(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonInvalidArgument)
	}
	if err := s.sm.Transition(StateConnecting, "connect"); err != nil {
		return errorsx.Wrap(fmt.Errorf("%w: %v", ErrAlreadyConnected, err), errorsx.ReasonState)
	}

	target := StreamURL(s.cfg.BaseURL, s.cfg.Voice.ID, s.cfg.Params)
	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set(apiKeyHeader, s.cfg.APIKey)
	}
	s.log.Debug("connecting to ElevenLabs",
		slog.String("url", redact.URL(target)),
		slog.String("model_id", s.cfg.Params.model()),
		slog.String("output_format", s.cfg.Params.format().String()))

	conn, err := s.cfg.Dialer.Dial(ctx, target, header)
	if err != nil {
		reason := errorsx.ReasonConnect
		if resilience.IsRateLimit(err) {
			reason = errorsx.ReasonRateLimit
		}
		err = errorsx.Wrap(fmt.Errorf("elevenlabs: connect: %w", err), reason)
		s.log.Error("failed to connect to ElevenLabs", slog.String("error", err.Error()))
		close(s.loopDone)
		s.terminate(StateFailed, err, "dial failed")
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	s.writeMu.Lock()
	if err := s.sm.Transition(StateOpen, "connected"); err != nil {
		s.writeMu.Unlock()
		close(s.loopDone)
		cancel()
		_ = conn.Close()
		err = errorsx.Wrap(fmt.Errorf("%w: %v", ErrNotOpen, err), errorsx.ReasonState)
		s.terminate(StateFailed, err, "open rejected")
		return err
	}
	s.disp.openedAt = time.Now()
	s.loopStarted.Store(true)
	go s.receiveLoop(loopCtx)

	payload, err := Encode(FirstMessage{
		VoiceSettings:    s.cfg.VoiceSettings,
		GenerationConfig: s.cfg.GenerationConfig,
	})
	if err == nil {
		err = conn.WriteText(ctx, payload)
	}
	s.writeMu.Unlock()
	if err != nil {
		err = errorsx.Wrap(fmt.Errorf("elevenlabs: send first message: %w", err), errorsx.ReasonSend)
		s.terminate(StateFailed, err, "first message failed")
		<-s.loopDone
		return err
	}

	s.log.Info("connected to ElevenLabs",
		slog.String("model_id", s.cfg.Params.model()),
		slog.String("output_format", s.cfg.Params.format().String()))
	return nil
}

// Submit sends one text chunk. A whitespace delimiter is appended on the wire
// when text does not already end in one. Submit is only valid while the
// session is open.
func (s *Session) Submit(ctx context.Context, text string, flush Flush, tryTriggerGeneration bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := Encode(TextChunk{Text: text, Flush: flush, TryTriggerGeneration: tryTriggerGeneration})
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return errorsx.Wrap(err, errorsx.ReasonInvalidArgument)
		}
		return errorsx.Wrap(err, errorsx.ReasonSend)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if st := s.sm.State(); st != StateOpen {
		return errorsx.Wrap(fmt.Errorf("%w (state %s)", ErrNotOpen, st), errorsx.ReasonState)
	}
	if err := s.transport().WriteText(ctx, payload); err != nil {
		return errorsx.Wrap(fmt.Errorf("elevenlabs: submit: %w", err), errorsx.ReasonSend)
	}
	s.log.Debug("tts text submitted",
		slog.Int("chars", len(text)),
		slog.String("flush", flush.String()),
		slog.String("preview", redact.Preview(text, 32)))
	return nil
}

// Finalize tells the service no more text will follow and moves the session
// to Closing. The service flushes remaining audio and closes the connection;
// the receive loop observes that and ends the session.
func (s *Session) Finalize(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := Encode(FinalMessage{})
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSend)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.sm.Transition(StateClosing, "finalize"); err != nil {
		return errorsx.Wrap(fmt.Errorf("%w: %v", ErrNotOpen, err), errorsx.ReasonState)
	}
	if err := s.transport().WriteText(ctx, payload); err != nil {
		return errorsx.Wrap(fmt.Errorf("elevenlabs: finalize: %w", err), errorsx.ReasonSend)
	}
	s.log.Debug("tts final message sent")
	return nil
}

// Close ends the session from the caller's side: it stops the receive loop,
// discards any partial inbound message, closes the connection and waits for
// the loop to exit. Close is safe to call more than once.
func (s *Session) Close() error {
	s.closing.Store(true)
	if s.sm.State() == StateDisconnected {
		return nil
	}
	s.terminate(StateClosed, nil, "closed by caller")
	if s.loopStarted.Load() {
		<-s.loopDone
	}
	return nil
}

func (s *Session) transport() transports.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// terminate moves the session to a terminal state exactly once, recording
// err and releasing the connection.
func (s *Session) terminate(to State, err error, reason string) {
	s.termOnce.Do(func() {
		if terr := s.sm.Transition(to, reason); terr != nil {
			s.log.Debug("tts terminal transition skipped", slog.String("error", terr.Error()))
		}
		s.err = err
		s.mu.Lock()
		cancel, conn := s.cancel, s.conn
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close()
		}
		close(s.done)
	})
}

func (s *Session) receiveLoop(ctx context.Context) {
	defer close(s.loopDone)
	conn := s.transport()
	for {
		frag, err := conn.ReadFragment(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.stopOnCancel(ctx)
				return
			}
			s.log.Error("tts read loop error", slog.String("error", err.Error()))
			s.terminate(StateFailed,
				errorsx.Wrap(fmt.Errorf("elevenlabs: receive: %w", err), errorsx.ReasonTransport),
				"transport error")
			return
		}
		if frag.Close {
			s.asm.Reset()
			s.closeCode.Store(int64(frag.CloseCode))
			s.log.Info("tts connection closed by peer",
				slog.Int("code", frag.CloseCode),
				slog.String("text", frag.CloseText))
			s.terminate(StateClosed, nil, "peer closed")
			return
		}

		s.disp.record(metrics.EventFrames, 1)
		resp, err := s.asm.Push(frag)
		if err != nil {
			s.log.Error("tts message decode error", slog.String("error", err.Error()))
			s.terminate(StateFailed, errorsx.Wrap(err, errorsx.ReasonDecode), "decode error")
			return
		}
		if resp == nil {
			continue
		}
		if err := s.disp.dispatch(ctx, resp); err != nil {
			if ctx.Err() != nil {
				s.stopOnCancel(ctx)
				return
			}
			reason := errorsx.ReasonDecode
			var se *ServerError
			var ce *callbackError
			switch {
			case errors.As(err, &se):
				reason = errorsx.ReasonServer
			case errors.As(err, &ce):
				reason = errorsx.ReasonCallback
			}
			s.log.Error("tts dispatch error",
				slog.String("reason", string(reason)),
				slog.String("error", err.Error()))
			s.terminate(StateFailed, errorsx.Wrap(err, reason), "dispatch error")
			return
		}
	}
}

// stopOnCancel treats cancellation as terminal: the partial message is
// dropped and the session closes. Cancellation through Close is not an error.
func (s *Session) stopOnCancel(ctx context.Context) {
	s.asm.Reset()
	var err error
	if !s.closing.Load() {
		err = ctx.Err()
		s.log.Info("tts read loop exit", slog.String("reason", "context_cancelled"))
	}
	s.terminate(StateClosed, err, "cancelled")
}
