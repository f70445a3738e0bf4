package redact

import (
	"strings"
	"testing"
)

func TestTextRedactsWhenEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	in := "mail me at jane@example.com or call +1 555 123 4567 "
	out := Text(in)
	if strings.Contains(out, "jane@example.com") || strings.Contains(out, "555 123") {
		t.Fatalf("expected redaction, got %q", out)
	}
}

func TestTextPassthroughWhenDisabled(t *testing.T) {
	SetEnabled(false)
	in := "jane@example.com"
	if Text(in) != in {
		t.Fatalf("expected passthrough")
	}
}

func TestPreviewTruncates(t *testing.T) {
	SetEnabled(false)
	if got := Preview("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("hi", 5); got != "hi" {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestSecretAndURL(t *testing.T) {
	if Secret("sk_abcdef1234") != "****1234" {
		t.Fatalf("unexpected secret mask %q", Secret("sk_abcdef1234"))
	}
	if Secret("abc") != "****" {
		t.Fatalf("expected short secret fully masked")
	}
	out := URL("wss://api.example.com/v1/x?model_id=m&xi-api-key=sk_abcdef1234")
	if strings.Contains(out, "sk_abcdef1234") || !strings.Contains(out, "model_id=m") {
		t.Fatalf("unexpected url %q", out)
	}
	plain := "wss://api.example.com/v1/x?model_id=m"
	if URL(plain) != plain {
		t.Fatalf("expected url untouched")
	}
}
