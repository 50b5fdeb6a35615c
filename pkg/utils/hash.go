package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashingReader wraps r and accumulates a SHA-256 digest of everything read through it.
type HashingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewHashingReader returns a reader that hashes r as it is consumed.
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, h: sha256.New()}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
		hr.n += int64(n)
	}
	return n, err
}

// HexSum returns the hex-encoded digest of the bytes read so far.
func (hr *HashingReader) HexSum() string {
	return hex.EncodeToString(hr.h.Sum(nil))
}

// Size returns the number of bytes read so far.
func (hr *HashingReader) Size() int64 { return hr.n }
