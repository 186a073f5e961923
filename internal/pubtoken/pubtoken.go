// Package pubtoken generates the opaque handles that let an anonymous
// customer reach exactly one document. A token is 32 bytes from crypto/rand,
// far above the 72-bit floor; only its SHA-256 digest is persisted, so a
// stored document row never contains a usable token.
package pubtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const secretLen = 32

// Token pairs the shareable string with the digest stored on the document.
type Token struct {
	Plain  string
	Digest string
}

// New generates a fresh token. The plain form is shown once, at send time;
// afterwards only the digest exists server-side.
func New() (Token, error) {
	buf := make([]byte, secretLen)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, err
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)
	return Token{Plain: plain, Digest: Digest(plain)}, nil
}

// Digest maps a presented token to its storage form. Lookups go through the
// digest only; the token itself carries no document identity.
func Digest(plain string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(plain)))
	return hex.EncodeToString(sum[:])
}
