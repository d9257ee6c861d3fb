package stego

// walkPrimes is the fixed basis for PrimeWalk: the first 20 primes.
// Changing it changes every sequence, so it is part of the walk's
// contract.
var walkPrimes = [20]uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
}

// PrimeWalk produces a deterministic sequence of bounded indices from a
// 64-bit seed: equal seeds yield identical sequences across processes.
// It exists for extraction strategies that want reproducible
// non-sequential traversal of carrier channels; the default Carrier
// embed path walks the buffer sequentially and does not consult it.
type PrimeWalk struct {
	state uint64
	index int
}

// NewPrimeWalk returns a walk positioned at the start of the sequence
// for seed.
func NewPrimeWalk(seed uint64) *PrimeWalk {
	return &PrimeWalk{state: seed}
}

// Next advances the walk and returns an index in [0, bound). bound must
// be positive.
func (w *PrimeWalk) Next(bound int) int {
	p := walkPrimes[w.index%len(walkPrimes)]
	w.state = (w.state*p + p) % uint64(bound)
	w.index++
	return int(w.state)
}

// Reset rewinds the walk to the start of the sequence for seed.
func (w *PrimeWalk) Reset(seed uint64) {
	w.state = seed
	w.index = 0
}
