package stego

import "math/bits"

// DefaultChecksumLen is the trailer length used when Config leaves
// ChecksumLen unset.
const DefaultChecksumLen = 16

// IntegrityChecksum appends and strips a fixed-length trailer derived
// from the payload by rotate-and-XOR. The scheme detects corruption when
// explicitly asked to (Verify); it cannot correct anything, and Decode
// strips the trailer without checking it. That lenient Decode is part of
// the wire format's established behavior and must not be tightened
// silently; callers wanting detection run Verify first.
type IntegrityChecksum struct {
	trailerLen int
}

// NewIntegrityChecksum returns a checksum codec with the given trailer
// length. Lengths <= 0 fall back to DefaultChecksumLen.
func NewIntegrityChecksum(trailerLen int) *IntegrityChecksum {
	if trailerLen <= 0 {
		trailerLen = DefaultChecksumLen
	}
	return &IntegrityChecksum{trailerLen: trailerLen}
}

// TrailerLen reports the configured trailer length in bytes.
func (c *IntegrityChecksum) TrailerLen() int {
	return c.trailerLen
}

func (c *IntegrityChecksum) sum(payload []byte) []byte {
	trailer := make([]byte, c.trailerLen)
	for i := range trailer {
		var p byte
		for j, b := range payload {
			p ^= bits.RotateLeft8(b, (i+j)%8)
		}
		trailer[i] = p
	}
	return trailer
}

// Encode returns payload with the checksum trailer appended.
func (c *IntegrityChecksum) Encode(payload []byte) []byte {
	encoded := make([]byte, 0, len(payload)+c.trailerLen)
	encoded = append(encoded, payload...)
	return append(encoded, c.sum(payload)...)
}

// Decode strips the trailer and returns the payload. It fails with
// ErrChecksumTooShort when data cannot even hold a trailer; it does NOT
// verify the trailer bytes.
func (c *IntegrityChecksum) Decode(data []byte) ([]byte, error) {
	if len(data) < c.trailerLen {
		return nil, ErrChecksumTooShort
	}
	payload := make([]byte, len(data)-c.trailerLen)
	copy(payload, data[:len(data)-c.trailerLen])
	return payload, nil
}

// Verify recomputes the trailer over the payload portion of data and
// compares it to the stored trailer, failing with ErrChecksumMismatch on
// any difference. Detection only: a mismatch cannot be repaired.
func (c *IntegrityChecksum) Verify(data []byte) error {
	if len(data) < c.trailerLen {
		return ErrChecksumTooShort
	}
	split := len(data) - c.trailerLen
	want := c.sum(data[:split])
	for i, b := range data[split:] {
		if b != want[i] {
			return ErrChecksumMismatch
		}
	}
	return nil
}
