package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStriped_SameKeyIsSerialized(t *testing.T) {
	req := require.New(t)
	locks := New(8)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("group-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	req.Equal(100, counter)
}

func TestStriped_IndexIsStable(t *testing.T) {
	req := require.New(t)
	locks := New(0)

	req.Len(locks.locks, DefaultStripes)
	req.Equal(locks.index("abc"), locks.index("abc"))
}

func TestStriped_Stripes(t *testing.T) {
	req := require.New(t)
	req.Equal(DefaultStripes, New(0).Stripes())
	req.Equal(4096, New(4096).Stripes())
}
