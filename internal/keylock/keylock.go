// Package keylock serializes work per key with a fixed set of mutexes,
// so memory stays bounded however many keys are seen.
package keylock

import (
	"hash/fnv"
	"sync"
)

// DefaultStripes bounds memory to 256 mutexes. Unrelated keys hashing to the
// same stripe wait for each other, so with many busy keys a slow holder delays
// its neighbours too. Raise the count when contention shows up.
const DefaultStripes = 256

type Striped struct {
	locks []sync.Mutex
}

func New(stripes int) *Striped {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	return &Striped{locks: make([]sync.Mutex, stripes)}
}

func (s *Striped) Stripes() int {
	return len(s.locks)
}

// Lock blocks until key's stripe is held and returns the matching unlock.
func (s *Striped) Lock(key string) func() {
	mu := &s.locks[s.index(key)]
	mu.Lock()
	return mu.Unlock
}

func (s *Striped) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.locks)))
}
