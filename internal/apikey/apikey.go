// Package apikey generates and hashes agent API keys. Only the SHA-256
// digest is stored; the plaintext key is returned to the agent once at
// registration.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const keyPrefix = "aw_"

// Generate returns a new random API key, its storable hash, and the short
// prefix kept for display.
func Generate() (key, hash, prefix string, err error) {
	buf := make([]byte, 24)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", err
	}
	key = keyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return key, Hash(key), key[:8], nil
}

// Hash returns the hex SHA-256 digest of a raw key.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
