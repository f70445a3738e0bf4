package transports

import (
	"context"
	"net/http"
)

// Fragment is one unit of data read from a duplex connection. A logical
// message may span several fragments; the last one has Final set.
type Fragment struct {
	Data  []byte
	Final bool

	// Close marks an orderly close initiated by the peer. Data is empty.
	Close     bool
	CloseCode int
	CloseText string
}

// Transport defines the full-duplex, message-oriented connection a streaming
// session runs on. Reads and writes may happen concurrently, but at most one
// goroutine may write and at most one may read at a time.
type Transport interface {
	Name() string
	// WriteText sends one complete text frame.
	WriteText(ctx context.Context, payload []byte) error
	// ReadFragment blocks until the next fragment arrives, the peer closes,
	// or ctx is done.
	ReadFragment(ctx context.Context) (Fragment, error)
	// Close sends a normal close frame (when possible) and releases the
	// connection. It is safe to call more than once.
	Close() error
}

// Dialer opens a Transport to a target URL.
type Dialer interface {
	Dial(ctx context.Context, target string, header http.Header) (Transport, error)
}
