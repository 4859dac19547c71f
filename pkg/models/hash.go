package models

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/sha3"
)

// HashPath returns the 0x-prefixed keccak-256 of a file path, the key the
// contract stores a file under.
func HashPath(path string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(path))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// Digest returns the 0x-prefixed sha256 of the content read from r.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Errorf("hashing content: %w", err)
	}
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}
