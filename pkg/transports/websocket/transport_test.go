package websocket

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/harunnryd/voxstream/pkg/resilience"
)

func newServer(t *testing.T, handle func(c *gws.Conn, r *http.Request)) string {
	t.Helper()
	up := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		handle(c, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func drain(c *gws.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func TestReadFragmentSplitsMessages(t *testing.T) {
	msg := `{"audio":"` + strings.Repeat("QUJD", 20) + `","isFinal":false}`
	url := newServer(t, func(c *gws.Conn, _ *http.Request) {
		_ = c.WriteMessage(gws.TextMessage, []byte(msg))
		drain(c)
	})

	tr, err := NewDialer(Options{ReadChunkSize: 16}).Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	var got bytes.Buffer
	fragments := 0
	for {
		f, err := tr.ReadFragment(context.Background())
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(f.Data) > 16 {
			t.Fatalf("fragment larger than chunk size: %d", len(f.Data))
		}
		fragments++
		got.Write(f.Data)
		if f.Final {
			break
		}
	}
	if got.String() != msg {
		t.Fatalf("reassembled %q, want %q", got.String(), msg)
	}
	if fragments < 2 {
		t.Fatalf("expected several fragments, got %d", fragments)
	}
}

func TestReadFragmentReportsPeerClose(t *testing.T) {
	url := newServer(t, func(c *gws.Conn, _ *http.Request) {
		_ = c.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "done"))
		drain(c)
	})

	tr, err := NewDialer(Options{}).Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	f, err := tr.ReadFragment(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !f.Close || f.CloseCode != gws.CloseNormalClosure || f.CloseText != "done" {
		t.Fatalf("unexpected fragment: %+v", f)
	}
}

func TestWriteTextAndHeader(t *testing.T) {
	got := make(chan string, 1)
	key := make(chan string, 1)
	url := newServer(t, func(c *gws.Conn, r *http.Request) {
		key <- r.Header.Get("xi-api-key")
		_, data, err := c.ReadMessage()
		if err == nil {
			got <- string(data)
		}
		drain(c)
	})

	header := http.Header{}
	header.Set("xi-api-key", "secret")
	tr, err := NewDialer(Options{}).Dial(context.Background(), url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()
	if err := tr.WriteText(context.Background(), []byte(`{"text":""}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case v := <-got:
		if v != `{"text":""}` {
			t.Fatalf("unexpected payload %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive payload")
	}
	if v := <-key; v != "secret" {
		t.Fatalf("expected api key header, got %q", v)
	}
}

func TestReadFragmentHonoursCancel(t *testing.T) {
	url := newServer(t, func(c *gws.Conn, _ *http.Request) {
		drain(c)
	})
	tr, err := NewDialer(Options{}).Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.ReadFragment(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDialRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, err := NewDialer(Options{}).Dial(context.Background(), url, nil)
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	url := newServer(t, func(c *gws.Conn, _ *http.Request) {
		drain(c)
	})
	tr, err := NewDialer(Options{}).Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	first := tr.Close()
	second := tr.Close()
	if first != second {
		t.Fatalf("expected same close result, got %v and %v", first, second)
	}
}
