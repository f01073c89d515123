// Package fingerprint computes stable SHA-256 digests of file content for change detection.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// ChunkSize is the read size used when streaming content into the digest.
const ChunkSize = 4096

// Length is the length of a fingerprint in hex characters.
const Length = sha256.Size * 2

// File returns the lowercase hex SHA-256 digest of the file at path.
// Memory use is bounded by ChunkSize regardless of file size.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.IOError("open file for fingerprinting").
			WithContext("path", path).
			WithCause(err).
			Build()
	}
	defer func() { _ = f.Close() }()

	sum, err := Reader(f)
	if err != nil {
		return "", errors.IOError("read file for fingerprinting").
			WithContext("path", path).
			WithCause(err).
			Build()
	}
	return sum, nil
}

// Reader returns the lowercase hex SHA-256 digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the lowercase hex SHA-256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer uses the fixed buffer.
type onlyReader struct {
	io.Reader
}
