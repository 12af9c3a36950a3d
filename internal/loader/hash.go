package loader

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrHashMismatch is returned when fetched bytes do not match the registered hash.
var ErrHashMismatch = errors.New("content hash mismatch")

// verifyHash checks data against a hex content hash. 32 hex digits are
// treated as md5, 64 as blake2b-256; other hashes are opaque and accepted.
func verifyHash(hash string, data []byte) error {
	want := strings.ToLower(hash)
	var got string
	switch len(want) {
	case md5.Size * 2:
		sum := md5.Sum(data)
		got = hex.EncodeToString(sum[:])
	case blake2b.Size256 * 2:
		sum := blake2b.Sum256(data)
		got = hex.EncodeToString(sum[:])
	default:
		return nil
	}
	if got != want {
		return fmt.Errorf("%w: want %s, got %s", ErrHashMismatch, want, got)
	}
	return nil
}
