package montecarlo

import "time"

// rng is a 32-bit xorshift generator. It is deliberately tiny and fixed so
// a seeded simulation is bit-identical across runs and platforms; quality
// is more than sufficient for shuffling trade lists.
type rng struct {
	state uint32
}

func newRng(seed uint32) *rng {
	if seed == 0 {
		seed = 1
	}

	return &rng{state: seed}
}

func newUnseededRng() *rng {
	return newRng(uint32(time.Now().UnixNano()))
}

func (r *rng) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x

	return x
}

// intn returns a value in [0, n). n must be positive.
func (r *rng) intn(n int) int {
	return int(r.next() % uint32(n))
}

// shuffle permutes values in place with a Fisher-Yates pass.
func (r *rng) shuffle(values []float64) {
	for i := len(values) - 1; i > 0; i-- {
		j := r.intn(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}
