package stego

import "errors"

// Sentinel errors for carrier framing and extraction. These enable
// callers to programmatically distinguish failure modes using errors.Is.
var (
	ErrCapacityExceeded = errors.New("stego: payload exceeds carrier capacity")
	ErrNoPayload        = errors.New("stego: no payload marker found")
	ErrTruncatedHeader  = errors.New("stego: truncated frame header")
	ErrPayloadOverrun   = errors.New("stego: payload length exceeds carrier data")
	ErrChecksumTooShort = errors.New("stego: data shorter than checksum trailer")
	ErrChecksumMismatch = errors.New("stego: checksum trailer mismatch")
)
