package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonDecode)
	if Reason(err) != ReasonDecode {
		t.Fatalf("expected reason %s, got %s", ReasonDecode, Reason(err))
	}
	if !HasReason(err, ReasonDecode) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonRateLimit)
	second := Wrap(first, ReasonConnect)
	if Reason(second) != ReasonRateLimit {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapKeepsChainThroughFmt(t *testing.T) {
	base := Wrap(assertErr{}, ReasonSend)
	err := fmt.Errorf("submit: %w", base)
	if Reason(err) != ReasonSend {
		t.Fatalf("expected reason through fmt wrap, got %s", Reason(err))
	}
	if !errors.As(err, new(assertErr)) {
		t.Fatalf("expected underlying error reachable")
	}
}

func TestNilAndPlainErrors(t *testing.T) {
	if Wrap(nil, ReasonSend) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown for nil")
	}
	if Reason(errors.New("plain")) != ReasonUnknown {
		t.Fatalf("expected unknown for plain error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestWrapfFormatsAndReasons(t *testing.T) {
	err := Wrapf(ReasonConfig, "read config: %w", assertErr{})
	if err.Error() != "read config: boom" || !HasReason(err, ReasonConfig) {
		t.Fatalf("unexpected error %v (%s)", err, Reason(err))
	}
	if !errors.As(err, new(assertErr)) {
		t.Fatalf("expected underlying error reachable")
	}
}
