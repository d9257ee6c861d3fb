// Package payload optionally compresses payload bytes with zstd before
// they are handed to the stego carrier. Compression sits strictly above
// the embedding wire format: the carrier frames whatever bytes it is
// given, compressed or not, and extraction detects compression by the
// zstd frame magic.
package payload

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd frame magic, little-endian on the wire.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var (
	zenc = mustNewZstdEncoder()
	zdec = mustNewZstdDecoder()
)

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		panic(fmt.Sprintf("payload: init zstd encoder: %v", err))
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("payload: init zstd decoder: %v", err))
	}
	return dec
}

// Compress returns data as a zstd frame.
func Compress(data []byte) []byte {
	return zenc.EncodeAll(data, nil)
}

// Decompress expands a zstd frame produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	out, err := zdec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("payload: zstd decode: %w", err)
	}
	return out, nil
}

// IsCompressed reports whether data starts with the zstd frame magic.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// MaybeDecompress expands data when it is a zstd frame and returns it
// unchanged otherwise, so extraction handles both compressed and plain
// payloads without a side channel.
func MaybeDecompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}
	return Decompress(data)
}
