package random

// Source is the random number contract shared by creators, operators and the
// algorithm driver. Identical seeds must yield identical sequences.
type Source interface {
	// Next returns a non-negative 31-bit integer.
	Next() int
	// NextN returns an integer in [0, n). n must be > 0.
	NextN(n int) int
	// NextDouble returns a float in [0, 1).
	NextDouble() float64
	// Reset re-seeds the generator and restarts its sequence.
	Reset(seed uint32)
}

const (
	mtN         = 624
	mtM         = 397
	matrixA     = 0x9908b0df
	upperMask   = 0x80000000
	lowerMask   = 0x7fffffff
	DefaultSeed = 5489
)

// MersenneTwister is the 32-bit MT19937 generator. It is not safe for
// concurrent use.
type MersenneTwister struct {
	state [mtN]uint32
	index int
	seed  uint32
}

func NewMersenneTwister(seed uint32) *MersenneTwister {
	mt := &MersenneTwister{}
	mt.Reset(seed)
	return mt
}

func (mt *MersenneTwister) Seed() uint32 {
	return mt.seed
}

func (mt *MersenneTwister) Reset(seed uint32) {
	mt.seed = seed
	mt.state[0] = seed
	for i := 1; i < mtN; i++ {
		prev := mt.state[i-1]
		mt.state[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	mt.index = mtN
}

// Uint32 returns the next raw tempered output.
func (mt *MersenneTwister) Uint32() uint32 {
	if mt.index >= mtN {
		mt.twist()
	}
	y := mt.state[mt.index]
	mt.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

func (mt *MersenneTwister) Next() int {
	return int(mt.Uint32() >> 1)
}

func (mt *MersenneTwister) NextN(n int) int {
	if n <= 0 {
		panic("random: NextN requires n > 0")
	}
	v := int(mt.NextDouble() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// NextDouble has 53-bit resolution (genrand_res53).
func (mt *MersenneTwister) NextDouble() float64 {
	a := mt.Uint32() >> 5
	b := mt.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

func (mt *MersenneTwister) twist() {
	for i := 0; i < mtN; i++ {
		y := (mt.state[i] & upperMask) | (mt.state[(i+1)%mtN] & lowerMask)
		next := mt.state[(i+mtM)%mtN] ^ (y >> 1)
		if y&1 != 0 {
			next ^= matrixA
		}
		mt.state[i] = next
	}
	mt.index = 0
}

// Range returns a float uniformly drawn from [lo, hi).
func Range(src Source, lo, hi float64) float64 {
	return lo + src.NextDouble()*(hi-lo)
}
