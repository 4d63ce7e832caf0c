package engine

import (
	"crypto/md5" //nolint:gosec // G501: integrity fingerprint, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// DefaultChunkSize is the read size used when hashing a file on its own.
const DefaultChunkSize = 2 << 20 // 2 MiB

// Algorithm names a streaming digest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	BLAKE3 Algorithm = "blake3"
	XXH64  Algorithm = "xxh64"
)

// Algorithms lists the supported digests, default first.
var Algorithms = []Algorithm{MD5, BLAKE3, XXH64}

// ParseAlgorithm maps a user-supplied name to an Algorithm. The empty
// string selects MD5.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", MD5:
		return MD5, nil
	case BLAKE3:
		return BLAKE3, nil
	case XXH64, "xxhash":
		return XXH64, nil
	default:
		return "", fmt.Errorf("unknown digest algorithm %q", s)
	}
}

// New returns a fresh accumulator for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case BLAKE3:
		return blake3.New()
	case XXH64:
		return xxhash.New()
	default:
		return md5.New() //nolint:gosec // G401: see import
	}
}

func (a Algorithm) String() string {
	if a == "" {
		return string(MD5)
	}
	return string(a)
}

// HashFile computes the MD5 digest of the file at path, reading chunkSize
// bytes at a time, and returns it hex-encoded.
func HashFile(path string, chunkSize int) (string, error) {
	return HashFileWith(path, MD5, chunkSize)
}

// HashFileWith is HashFile for an arbitrary algorithm. Peak memory is one
// chunk; the digest does not depend on chunkSize.
func HashFileWith(path string, alg Algorithm, chunkSize int) (string, error) {
	return hashFile(path, alg, chunkSize, nil)
}

// hashFile polls cancelled, when non-nil, before every chunk read.
func hashFile(path string, alg Algorithm, chunkSize int, cancelled func() bool) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCannotOpenSource, path, err)
	}
	defer f.Close()

	h := alg.New()
	buf := make([]byte, chunkSize)
	for {
		if cancelled != nil && cancelled() {
			return "", fmt.Errorf("%w: %s", ErrCancelled, path)
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrReadFailure, path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
