package redact

import (
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// secretKeys lists query and header names whose values never reach logs.
var secretKeys = map[string]struct{}{
	"xi-api-key":    {},
	"api_key":       {},
	"apikey":        {},
	"authorization": {},
	"token":         {},
}

// SetEnabled toggles PII redaction of free text.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// Preview shortens text to at most n runes and redacts it.
func Preview(in string, n int) string {
	r := []rune(in)
	if n > 0 && len(r) > n {
		in = string(r[:n]) + "..."
	}
	return Text(in)
}

// Secret masks a credential, keeping only its last four characters.
// Secrets are masked regardless of the PII toggle.
func Secret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// URL masks credential-bearing query parameters in a URL.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for k, vals := range q {
		if _, ok := secretKeys[strings.ToLower(k)]; !ok {
			continue
		}
		for i := range vals {
			vals[i] = Secret(vals[i])
		}
		changed = true
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
