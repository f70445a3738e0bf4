package mock

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/harunnryd/voxstream/pkg/transports"
)

// ErrClosed is returned by operations on a closed mock transport.
var ErrClosed = errors.New("mock transport closed")

// Transport is an in-memory transport for tests. Inbound fragments are
// scripted with Push; outbound frames are captured for inspection.
type Transport struct {
	inbound chan transports.Fragment
	sentCh  chan []byte
	closed  chan struct{}
	once    sync.Once

	mu       sync.Mutex
	sent     [][]byte
	writeErr error
	readErr  error
}

func New() *Transport {
	return &Transport{
		inbound: make(chan transports.Fragment, 256),
		sentCh:  make(chan []byte, 256),
		closed:  make(chan struct{}),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) WriteText(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.IsClosed() {
		return ErrClosed
	}
	t.mu.Lock()
	if t.writeErr != nil {
		err := t.writeErr
		t.mu.Unlock()
		return err
	}
	frame := append([]byte(nil), payload...)
	t.sent = append(t.sent, frame)
	t.mu.Unlock()
	select {
	case t.sentCh <- frame:
	default:
	}
	return nil
}

func (t *Transport) ReadFragment(ctx context.Context) (transports.Fragment, error) {
	t.mu.Lock()
	readErr := t.readErr
	t.mu.Unlock()
	if readErr != nil {
		return transports.Fragment{}, readErr
	}
	select {
	case f := <-t.inbound:
		return f, nil
	case <-ctx.Done():
		return transports.Fragment{}, ctx.Err()
	case <-t.closed:
		return transports.Fragment{}, ErrClosed
	}
}

func (t *Transport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

// IsClosed reports whether Close has been called.
func (t *Transport) IsClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Push injects an inbound fragment.
func (t *Transport) Push(f transports.Fragment) {
	t.inbound <- f
}

// PushMessage injects msg as a single final fragment.
func (t *Transport) PushMessage(msg string) {
	t.Push(transports.Fragment{Data: []byte(msg), Final: true})
}

// PushSplit injects msg cut at the given byte offsets.
func (t *Transport) PushSplit(msg string, cuts ...int) {
	prev := 0
	for _, c := range cuts {
		t.Push(transports.Fragment{Data: []byte(msg[prev:c])})
		prev = c
	}
	t.Push(transports.Fragment{Data: []byte(msg[prev:]), Final: true})
}

// PushClose injects a peer close.
func (t *Transport) PushClose(code int, text string) {
	t.Push(transports.Fragment{Close: true, CloseCode: code, CloseText: text})
}

// FailWrites makes every later WriteText return err.
func (t *Transport) FailWrites(err error) {
	t.mu.Lock()
	t.writeErr = err
	t.mu.Unlock()
}

// FailReads makes every later ReadFragment return err.
func (t *Transport) FailReads(err error) {
	t.mu.Lock()
	t.readErr = err
	t.mu.Unlock()
}

// Sent returns a copy of every captured outbound frame.
func (t *Transport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentCh exposes outbound frames as they are written.
func (t *Transport) SentCh() <-chan []byte { return t.sentCh }

// Dialer hands out a prepared Transport and records the dial request.
type Dialer struct {
	Transport *Transport
	Err       error

	mu     sync.Mutex
	target string
	header http.Header
	dials  int
}

func NewDialer(t *Transport) *Dialer {
	return &Dialer{Transport: t}
}

func (d *Dialer) Dial(ctx context.Context, target string, header http.Header) (transports.Transport, error) {
	d.mu.Lock()
	d.target = target
	d.header = header.Clone()
	d.dials++
	d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Transport, nil
}

// Target returns the last dialed URL.
func (d *Dialer) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Header returns the headers of the last dial.
func (d *Dialer) Header() http.Header {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.header
}

// Dials returns how many times Dial was called.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.Dialer = (*Dialer)(nil)
