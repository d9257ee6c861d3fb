package stego

// Symbol packing: a byte is split into 8/width symbols of width bits
// each, most-significant group first, so that symbol streams read in
// carrier order reassemble into bytes MSB-first. width must be 1, 2, 4,
// or 8; Config validation enforces this before any packing happens.

// BytesToSymbols expands data into symbols of the given bit width, one
// group of 8/width symbols per byte. Each symbol occupies the low width
// bits of its output byte.
func BytesToSymbols(data []byte, width uint) []byte {
	perByte := 8 / width
	mask := byte(1)<<width - 1
	syms := make([]byte, 0, len(data)*int(perByte))
	for _, b := range data {
		for i := int(perByte) - 1; i >= 0; i-- {
			syms = append(syms, (b>>(uint(i)*width))&mask)
		}
	}
	return syms
}

// SymbolsToBytes is the inverse of BytesToSymbols. A trailing group of
// fewer than 8/width symbols is dropped: well-formed streams are always
// whole-byte aligned, so a partial group only occurs on truncated or
// corrupted input and loses at most the final byte.
func SymbolsToBytes(syms []byte, width uint) []byte {
	perByte := int(8 / width)
	out := make([]byte, 0, len(syms)/perByte)
	for i := 0; i+perByte <= len(syms); i += perByte {
		var b byte
		for _, s := range syms[i : i+perByte] {
			b = b<<width | s
		}
		out = append(out, b)
	}
	return out
}
