// Package vector has the similarity helpers used by the semantic cache.
package vector

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
)

var (
	// ErrDimMismatch is returned when vectors have different lengths.
	ErrDimMismatch = errors.New("vector dimension mismatch")
	// ErrZeroNorm is returned when either vector has zero magnitude.
	ErrZeroNorm = errors.New("zero-norm vector")
	// ErrEmpty is returned for empty vectors.
	ErrEmpty = errors.New("empty vector")
)

// Cosine returns the cosine similarity of a and b, accumulated in float64.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmpty
	}
	if len(a) != len(b) {
		return 0, ErrDimMismatch
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroNorm
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Fingerprint is a stable hex key for the exact bit pattern of v.
func Fingerprint(v []float32) string {
	h := sha256.New()
	var buf [4]byte
	for _, f := range v {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
