// Package hash computes the payload checksums stored in recording archives.
package hash

import (
	"io"

	"github.com/cespare/xxhash/v2"
)

// Checksum computes the xxHash64 of data.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Writer returns an io.Writer that checksums everything written through it
// before passing it to w. Sum returns the xxHash64 of the bytes written so far.
func Writer(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{w: w, d: xxhash.New()}
}

// ChecksumWriter tees written bytes into an xxHash64 digest.
type ChecksumWriter struct {
	w io.Writer
	d *xxhash.Digest
}

func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	_, _ = cw.d.Write(p[:n])

	return n, err
}

// Sum returns the checksum of the bytes written so far.
func (cw *ChecksumWriter) Sum() uint64 {
	return cw.d.Sum64()
}
