package random

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness injected into card generation and ball draws.
type Source interface {
	// IntN returns a uniform value in [0, n). n must be positive.
	IntN(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// NewSource returns a PCG source seeded from crypto/rand. Safe for concurrent use.
func NewSource() Source {
	var buf [16]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		now := uint64(time.Now().UnixNano())
		return NewSeededSource(now)
	}
	seq := rand.NewPCG(binary.BigEndian.Uint64(buf[:8]), binary.BigEndian.Uint64(buf[8:]))
	return &lockedSource{r: rand.New(seq)}
}

// NewSeededSource returns a reproducible source. Safe for concurrent use.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, 0))}
}

// Sample picks k distinct values from pool without modifying it. If k exceeds
// len(pool) the whole pool is returned in random order.
func Sample(src Source, pool []int, k int) []int {
	buf := make([]int, len(pool))
	copy(buf, pool)
	if k > len(buf) {
		k = len(buf)
	}
	for i := 0; i < k; i++ {
		j := i + src.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k]
}

// Shuffle permutes n elements in place through swap.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		swap(i, j)
	}
}
