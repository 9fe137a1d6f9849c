package util

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a 26-character random identifier. The alphabet is
// URL- and object-key-safe, so the same ids serve as entity keys and
// opaque session tokens.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return strings.ToLower(idEncoding.EncodeToString(b[:]))
}
