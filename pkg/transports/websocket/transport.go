package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/harunnryd/voxstream/pkg/resilience"
	"github.com/harunnryd/voxstream/pkg/transports"
)

const (
	// DefaultReadChunkSize is the largest fragment handed to the reader.
	DefaultReadChunkSize = 8192
	defaultHandshake     = 10 * time.Second
	closeWriteTimeout    = time.Second
)

// Options tunes the gorilla websocket dialer.
type Options struct {
	ReadChunkSize    int
	ReadLimit        int64
	HandshakeTimeout time.Duration
	// Provider names the remote service in rate limit errors.
	Provider string
}

func (o Options) withDefaults() Options {
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = DefaultReadChunkSize
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshake
	}
	if o.Provider == "" {
		o.Provider = "elevenlabs"
	}
	return o
}

// Dialer opens websocket transports.
type Dialer struct {
	opts   Options
	dialer *gws.Dialer
}

func NewDialer(opts Options) *Dialer {
	opts = opts.withDefaults()
	return &Dialer{
		opts: opts,
		dialer: &gws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
}

// Dial connects to target. An HTTP 429 during the handshake is reported as
// resilience.RateLimitError.
func (d *Dialer) Dial(ctx context.Context, target string, header http.Header) (transports.Transport, error) {
	conn, resp, err := d.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, resilience.RateLimitError{Provider: d.opts.Provider, Message: resp.Status}
			}
			return nil, fmt.Errorf("websocket: dial: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket: dial: %w", err)
	}
	if d.opts.ReadLimit > 0 {
		conn.SetReadLimit(d.opts.ReadLimit)
	}
	return &Transport{conn: conn, chunk: d.opts.ReadChunkSize}, nil
}

// Transport adapts a gorilla connection to transports.Transport. Each
// inbound message is surfaced as one or more fragments of at most the
// configured chunk size.
type Transport struct {
	conn   *gws.Conn
	chunk  int
	reader io.Reader

	closeOnce sync.Once
	closeErr  error
}

// NewTransport wraps an established connection.
func NewTransport(conn *gws.Conn, chunk int) *Transport {
	if chunk <= 0 {
		chunk = DefaultReadChunkSize
	}
	return &Transport{conn: conn, chunk: chunk}
}

func (t *Transport) Name() string { return "websocket" }

func (t *Transport) WriteText(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(gws.TextMessage, payload)
}

func (t *Transport) ReadFragment(ctx context.Context) (transports.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return transports.Fragment{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if t.reader == nil {
		_, r, err := t.conn.NextReader()
		if err != nil {
			return t.readError(ctx, err)
		}
		t.reader = r
	}

	buf := make([]byte, t.chunk)
	n, err := t.reader.Read(buf)
	switch {
	case errors.Is(err, io.EOF):
		t.reader = nil
		return transports.Fragment{Data: buf[:n], Final: true}, nil
	case err != nil:
		t.reader = nil
		return t.readError(ctx, err)
	default:
		return transports.Fragment{Data: buf[:n]}, nil
	}
}

func (t *Transport) readError(ctx context.Context, err error) (transports.Fragment, error) {
	var ce *gws.CloseError
	if errors.As(err, &ce) {
		return transports.Fragment{Close: true, CloseCode: ce.Code, CloseText: ce.Text}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return transports.Fragment{}, ctxErr
	}
	return transports.Fragment{}, err
}

// Close sends a normal-closure frame and closes the socket. The peer's close
// is acknowledged by gorilla's default close handler before NextReader
// reports it, so a close frame written here after that is ignored.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		msg := gws.FormatCloseMessage(gws.CloseNormalClosure, "")
		_ = t.conn.WriteControl(gws.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.Dialer = (*Dialer)(nil)
