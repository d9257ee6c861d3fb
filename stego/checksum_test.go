package stego

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksumEncodeAppendsTrailer(t *testing.T) {
	t.Parallel()
	c := NewIntegrityChecksum(16)
	payload := []byte("carrier payload")
	encoded := c.Encode(payload)
	if len(encoded) != len(payload)+16 {
		t.Fatalf("encoded length %d, want %d", len(encoded), len(payload)+16)
	}
	if !bytes.Equal(encoded[:len(payload)], payload) {
		t.Error("payload prefix modified by Encode")
	}
}

func TestChecksumKnownTrailer(t *testing.T) {
	t.Parallel()
	// For the single byte 0x01 at position 0, trailer[i] is 0x01
	// rotated left by i bits.
	c := NewIntegrityChecksum(8)
	encoded := c.Encode([]byte{0x01})
	want := []byte{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}
	if !bytes.Equal(encoded[1:], want) {
		t.Errorf("trailer = %#v, want %#v", encoded[1:], want)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	t.Parallel()
	c := NewIntegrityChecksum(16)
	payload := []byte("same input, same trailer")
	if !bytes.Equal(c.Encode(payload), c.Encode(payload)) {
		t.Error("Encode is not deterministic")
	}
}

func TestChecksumDecode(t *testing.T) {
	t.Parallel()
	c := NewIntegrityChecksum(16)
	payload := []byte("round trip me")
	got, err := c.Decode(c.Encode(payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Decode = %q, want %q", got, payload)
	}
}

func TestChecksumDecodeEmptyPayload(t *testing.T) {
	t.Parallel()
	c := NewIntegrityChecksum(16)
	got, err := c.Decode(c.Encode(nil))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Decode = %v, want empty", got)
	}
}

func TestChecksumDecodeTooShort(t *testing.T) {
	t.Parallel()
	c := NewIntegrityChecksum(16)
	if _, err := c.Decode(make([]byte, 15)); !errors.Is(err, ErrChecksumTooShort) {
		t.Errorf("Decode on short data = %v, want ErrChecksumTooShort", err)
	}
}

func TestChecksumDecodeSkipsVerification(t *testing.T) {
	t.Parallel()
	// Decode strips the trailer without checking it; corruption in the
	// payload region passes through untouched.
	c := NewIntegrityChecksum(16)
	encoded := c.Encode([]byte("pristine"))
	encoded[0] ^= 0xFF
	got, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed on corrupted data: %v", err)
	}
	if got[0] != 'p'^0xFF {
		t.Error("Decode altered the corrupted payload instead of passing it through")
	}
}

func TestChecksumVerify(t *testing.T) {
	t.Parallel()
	c := NewIntegrityChecksum(16)
	encoded := c.Encode([]byte("verify me"))
	if err := c.Verify(encoded); err != nil {
		t.Errorf("Verify failed on intact data: %v", err)
	}

	corrupt := append([]byte(nil), encoded...)
	corrupt[3] ^= 0x01
	if err := c.Verify(corrupt); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Verify on corrupted payload = %v, want ErrChecksumMismatch", err)
	}

	if err := c.Verify(make([]byte, 3)); !errors.Is(err, ErrChecksumTooShort) {
		t.Errorf("Verify on short data = %v, want ErrChecksumTooShort", err)
	}
}

func TestChecksumDefaultLength(t *testing.T) {
	t.Parallel()
	if got := NewIntegrityChecksum(0).TrailerLen(); got != DefaultChecksumLen {
		t.Errorf("default trailer length = %d, want %d", got, DefaultChecksumLen)
	}
	if got := NewIntegrityChecksum(-5).TrailerLen(); got != DefaultChecksumLen {
		t.Errorf("negative trailer length gave %d, want %d", got, DefaultChecksumLen)
	}
}
