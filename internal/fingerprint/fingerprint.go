// Package fingerprint provides the streaming content hashers used by the
// group engine's prehash and full-hash stages.
//
// Fingerprints are opaque strings used only for equality comparison between
// candidate duplicates; collision resistance is a property of the chosen
// Algorithm, not a contract this package enforces.
package fingerprint

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/zeebo/xxh3"
	"lukechampine.com/blake3"
)

// Algorithm is a closed enum of supported fingerprint functions. The set is
// fixed and known at compile time, so a
// tagged switch is preferred here over a registry of pluggable hashers.
type Algorithm int

const (
	// FastStreaming64 is a fast non-cryptographic 64-bit hash (xxh3),
	// the default for both prehash and full-hash stages.
	FastStreaming64 Algorithm = iota
	// FastChecksum32 is a fast 32-bit checksum (crc32), useful when
	// collisions are inexpensive to re-verify downstream.
	FastChecksum32
	// Cryptographic is a cryptographic-strength hash (blake3), for callers
	// that want stronger collision resistance than a non-cryptographic hash
	// offers, at additional CPU cost.
	Cryptographic
)

// String returns the algorithm's configuration-surface name.
func (a Algorithm) String() string {
	switch a {
	case FastStreaming64:
		return "fast-streaming-64"
	case FastChecksum32:
		return "fast-checksum-32"
	case Cryptographic:
		return "cryptographic"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm parses a configuration-surface algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "fast-streaming-64", "xxh3":
		return FastStreaming64, nil
	case "fast-checksum-32", "crc32":
		return FastChecksum32, nil
	case "cryptographic", "blake3":
		return Cryptographic, nil
	default:
		return 0, fmt.Errorf("unknown hash algorithm %q", s)
	}
}

// New constructs a fresh hash.Hash for the algorithm. Each algorithm backer
// already satisfies hash.Hash, so callers can Write/Sum/Reset uniformly.
func (a Algorithm) New() hash.Hash {
	switch a {
	case FastChecksum32:
		return crc32.NewIEEE()
	case Cryptographic:
		return blake3.New(32, nil)
	case FastStreaming64:
		fallthrough
	default:
		return xxh3.New()
	}
}

// MinScratchBuffer is the smallest scratch buffer size that can serve every
// prehash limit this package is asked to support in practice; callers size
// their actual worker buffers at or above this.
const MinScratchBuffer = 4096

// BoundedHash reads at most limit bytes from r using buf as scratch space
// and returns the fingerprint of exactly what was read. Any non-empty buf is
// used as given; a nil or empty buf is replaced by an internally allocated
// one of MinScratchBuffer bytes.
func BoundedHash(r io.Reader, algo Algorithm, buf []byte, limit int64) (string, error) {
	if len(buf) == 0 {
		buf = make([]byte, MinScratchBuffer)
	}
	h := algo.New()
	if _, err := io.CopyBuffer(h, io.LimitReader(r, limit), buf); err != nil {
		return "", fmt.Errorf("bounded hash: %w", err)
	}
	return encode(algo, h), nil
}

// CancelledError is returned by StreamingHash when ctx is cancelled
// mid-stream. It wraps ctx.Err() so callers can still errors.Is against the
// standard context sentinels.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return fmt.Sprintf("streaming hash cancelled: %v", e.Err) }
func (e *CancelledError) Unwrap() error { return e.Err }

// StreamingHash reads r to EOF using buf as scratch space, invoking onChunk
// after every read with the number of bytes that read returned (used to
// drive shared progress counters), and checking ctx after every chunk so a
// large file does not dominate wall time before cancellation takes effect.
func StreamingHash(ctx context.Context, r io.Reader, algo Algorithm, buf []byte, onChunk func(n int64)) (string, error) {
	if len(buf) == 0 {
		buf = make([]byte, MinScratchBuffer)
	}
	h := algo.New()

	for {
		if err := ctx.Err(); err != nil {
			return "", &CancelledError{Err: err}
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) //nolint:errcheck // hash.Hash.Write never errors
			if onChunk != nil {
				onChunk(int64(n))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("streaming hash: %w", err)
		}
	}

	return encode(algo, h), nil
}

// encode formats a hash.Hash's sum as a hex string for every algorithm, so
// cache keys and CLI output never need an algorithm-specific parser.
func encode(_ Algorithm, h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
