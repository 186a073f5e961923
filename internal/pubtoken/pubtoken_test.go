package pubtoken

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenEntropyAndDigest(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok.Plain)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != secretLen {
		t.Fatalf("expected %d random bytes, got %d", secretLen, len(raw))
	}
	if tok.Digest != Digest(tok.Plain) {
		t.Fatal("digest does not match plain token")
	}
	if tok.Digest == tok.Plain {
		t.Fatal("digest must differ from the plain token")
	}
}

func TestTokensAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, dup := seen[tok.Plain]; dup {
			t.Fatal("duplicate token generated")
		}
		seen[tok.Plain] = struct{}{}
	}
}

func TestDigestTrimsPresentedToken(t *testing.T) {
	if Digest(" abc ") != Digest("abc") {
		t.Fatal("surrounding whitespace must not change the digest")
	}
}
