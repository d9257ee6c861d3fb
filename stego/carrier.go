// Package stego implements a steganographic codec over RGBA pixel
// buffers: framed byte payloads are embedded into the low-order bits of
// each pixel's blue channel and later recovered by scanning for the
// frame marker. The blue channel is used because low-bit changes there
// cause the least visible color distortion.
//
// The embedded frame is, after symbol unpacking:
//
//	MAGIC(4) || LENGTH(4, big-endian) || PAYLOAD(LENGTH)
//
// where PAYLOAD carries an IntegrityChecksum trailer and LENGTH counts
// the trailer too.
package stego

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultMagic is the frame marker scanned for during extraction:
// "TENT" in ASCII.
var DefaultMagic = [4]byte{0x54, 0x45, 0x4E, 0x54}

const (
	// DefaultSymbolBits is the number of low-order bits used per blue
	// channel byte when Config leaves SymbolBits unset.
	DefaultSymbolBits = 2

	// DefaultWalkSeed seeds the carrier's bundled PrimeWalk: the magic
	// bytes read as a big-endian integer.
	DefaultWalkSeed = 0x54454E54

	headerLen   = 8 // magic + big-endian u32 length
	blueOffset  = 2 // blue channel within an RGBA quad
	pixelStride = 4
)

// Config carries the per-instance codec parameters. The zero value
// selects the defaults, so independently configured carriers can
// coexist in one process without any shared state.
type Config struct {
	// Magic is the 4-byte frame marker. Zero value selects DefaultMagic.
	Magic [4]byte

	// SymbolBits is the number of low-order bits embedded per blue
	// channel byte. Must be 1, 2, 4, or 8; zero selects
	// DefaultSymbolBits.
	SymbolBits uint

	// ChecksumLen is the IntegrityChecksum trailer length. Zero selects
	// DefaultChecksumLen.
	ChecksumLen int

	// WalkSeed seeds the carrier's PrimeWalk. Zero selects
	// DefaultWalkSeed.
	WalkSeed uint64
}

func (c Config) withDefaults() Config {
	if c.Magic == ([4]byte{}) {
		c.Magic = DefaultMagic
	}
	if c.SymbolBits == 0 {
		c.SymbolBits = DefaultSymbolBits
	}
	if c.ChecksumLen <= 0 {
		c.ChecksumLen = DefaultChecksumLen
	}
	if c.WalkSeed == 0 {
		c.WalkSeed = DefaultWalkSeed
	}
	return c
}

// Carrier owns one RGBA pixel buffer (row-major, 4 bytes per pixel) and
// embeds or extracts frames against it. It performs no internal locking:
// one carrier per image, externally synchronized if shared.
type Carrier struct {
	width    uint32
	height   uint32
	pix      []byte
	cfg      Config
	checksum *IntegrityChecksum
	walk     *PrimeWalk
}

// NewCarrier creates a carrier with a zero-filled width×height RGBA
// buffer. It fails if SymbolBits does not divide a byte evenly.
func NewCarrier(width, height uint32, cfg Config) (*Carrier, error) {
	cfg = cfg.withDefaults()
	switch cfg.SymbolBits {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("stego: symbol width %d does not divide 8", cfg.SymbolBits)
	}
	return &Carrier{
		width:    width,
		height:   height,
		pix:      make([]byte, int(width)*int(height)*pixelStride),
		cfg:      cfg,
		checksum: NewIntegrityChecksum(cfg.ChecksumLen),
		walk:     NewPrimeWalk(cfg.WalkSeed),
	}, nil
}

// IngestFrame replaces the owned pixel buffer wholesale with a copy of
// data. The length is not validated against the declared dimensions;
// embedding and extraction iterate over the actual buffer length.
func (c *Carrier) IngestFrame(data []byte) {
	c.pix = append([]byte(nil), data...)
}

// Dimensions returns the declared width and height in pixels.
func (c *Carrier) Dimensions() (width, height uint32) {
	return c.width, c.height
}

// PixelData returns the owned buffer. Callers must treat it as
// read-only; it is only valid until the next IngestFrame.
func (c *Carrier) PixelData() []byte {
	return c.pix
}

// Walk returns the carrier's bundled PrimeWalk, seeded from
// Config.WalkSeed. The sequential embed path does not consult it.
func (c *Carrier) Walk() *PrimeWalk {
	return c.walk
}

// slots counts the blue channel bytes reachable in the current buffer,
// i.e. the number of symbols the buffer can hold.
func (c *Carrier) slots() int {
	if len(c.pix) <= blueOffset {
		return 0
	}
	return (len(c.pix)-blueOffset-1)/pixelStride + 1
}

// Capacity reports the largest raw payload, in bytes, that a
// width×height carrier with the given configuration can hold, without
// allocating a pixel buffer. It fails for the same configurations
// NewCarrier rejects.
func Capacity(width, height uint32, cfg Config) (int, error) {
	cfg = cfg.withDefaults()
	switch cfg.SymbolBits {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("stego: symbol width %d does not divide 8", cfg.SymbolBits)
	}
	// One slot per pixel; computed in 64 bits so extreme dimensions
	// cannot wrap.
	total := int64(width) * int64(height) * int64(cfg.SymbolBits) / 8
	capacity := total - headerLen - int64(cfg.ChecksumLen)
	if capacity < 0 {
		return 0, nil
	}
	if capacity > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(capacity), nil
}

// Capacity returns the largest raw payload, in bytes, that the current
// buffer can carry once framing and the checksum trailer are accounted
// for.
func (c *Carrier) Capacity() int {
	total := c.slots() * int(c.cfg.SymbolBits) / 8
	capacity := total - headerLen - c.checksum.TrailerLen()
	if capacity < 0 {
		return 0
	}
	return capacity
}

// InjectPayload checksum-encodes payload, frames it, and writes the
// frame's symbols into the low SymbolBits of consecutive blue channel
// bytes in buffer order. Capacity is validated before the first write,
// so an ErrCapacityExceeded failure leaves the buffer unmodified.
func (c *Carrier) InjectPayload(payload []byte) error {
	encoded := c.checksum.Encode(payload)

	frame := make([]byte, headerLen+len(encoded))
	copy(frame, c.cfg.Magic[:])
	binary.BigEndian.PutUint32(frame[4:headerLen], uint32(len(encoded)))
	copy(frame[headerLen:], encoded)

	syms := BytesToSymbols(frame, c.cfg.SymbolBits)
	if len(syms) > c.slots() {
		return ErrCapacityExceeded
	}

	keep := ^byte(byte(1)<<c.cfg.SymbolBits - 1)
	i := blueOffset
	for _, s := range syms {
		c.pix[i] = c.pix[i]&keep | s
		i += pixelStride
	}
	return nil
}

// ExtractPayload reads the low SymbolBits of every blue channel byte in
// buffer order, reassembles the byte stream, locates the first frame
// marker, and returns the checksum-decoded payload.
//
// ErrNoPayload means no marker was present at all and should be read as
// "nothing embedded here", not as corruption.
func (c *Carrier) ExtractPayload() ([]byte, error) {
	mask := byte(1)<<c.cfg.SymbolBits - 1
	syms := make([]byte, 0, c.slots())
	for i := blueOffset; i < len(c.pix); i += pixelStride {
		syms = append(syms, c.pix[i]&mask)
	}
	raw := SymbolsToBytes(syms, c.cfg.SymbolBits)

	pos := bytes.Index(raw, c.cfg.Magic[:])
	if pos < 0 {
		return nil, ErrNoPayload
	}
	if pos+headerLen > len(raw) {
		return nil, ErrTruncatedHeader
	}
	length := binary.BigEndian.Uint32(raw[pos+4 : pos+headerLen])

	// Compare before converting: a crafted length >= 2^31 would go
	// negative as int on 32-bit platforms and slip past the bound.
	start := pos + headerLen
	if uint64(length) > uint64(len(raw)-start) {
		return nil, ErrPayloadOverrun
	}
	return c.checksum.Decode(raw[start : start+int(length)])
}
