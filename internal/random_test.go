package internal

import (
	"strings"
	"testing"
)

func TestSessionIDString(t *testing.T) {
	a, err := NewSessionIDString()
	if err != nil {
		t.Fatalf("NewSessionIDString: %v", err)
	}
	b, _ := NewSessionIDString()
	if len(a) != 22 {
		t.Fatalf("expected 22 base64url chars, got %d (%q)", len(a), a)
	}
	if a == b {
		t.Fatal("ids must be unique")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("id must be url-safe and unpadded: %q", a)
	}
}

func TestTokenDigestStable(t *testing.T) {
	a := TokenDigest("a.b.c")
	if a != TokenDigest("a.b.c") {
		t.Fatal("digest must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == TokenDigest("a.b.d") {
		t.Fatal("distinct tokens must not share a digest")
	}
}
