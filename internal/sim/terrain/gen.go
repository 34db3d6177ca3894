package terrain

// Deterministic hashing for map generation. Same (seed, level) always yields the same map.

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash3(seed int64, a, b, c int) uint64 {
	ua := uint64(uint32(int32(a)))
	ub := uint64(uint32(int32(b)))
	uc := uint64(uint32(int32(c)))
	v := uint64(seed) ^ (ua * 0x9e3779b97f4a7c15) ^ (ub * 0xc2b2ae3d27d4eb4f) ^ (uc * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// pick returns a value in [lo, hi].
func pick(h uint64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(h%uint64(hi-lo+1))
}

const (
	saltTunnel = 1
	saltRock   = 2
	saltStone  = 3
	saltFlip   = 4
)
