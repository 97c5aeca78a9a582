package idgen

import (
	"math"
	"sync"
	"testing"

	"github.com/okian/vendorhub/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_StartsAtOne(t *testing.T) {
	g, err := Open(memory.NewVector())
	require.NoError(t, err)
	require.Equal(t, uint64(0), g.Current())

	for want := uint64(1); want <= 5; want++ {
		id, err := g.Next()
		require.NoError(t, err)
		require.Equal(t, want, id)
	}
	require.Equal(t, uint64(5), g.Current())
}

func TestGenerator_ResumesAfterReopen(t *testing.T) {
	mem := memory.NewVector()
	g, err := Open(mem)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := g.Next()
		require.NoError(t, err)
	}

	g, err = Open(mem)
	require.NoError(t, err)
	id, err := g.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(4), id)
}

func TestGenerator_ConcurrentCallersNeverShareAValue(t *testing.T) {
	g, err := Open(memory.NewVector())
	require.NoError(t, err)

	const workers, perWorker = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[uint64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := g.Next()
				assert.NoError(t, err)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
	require.Equal(t, uint64(workers*perWorker), g.Current())
}

func TestGenerator_Restore(t *testing.T) {
	g, err := Open(memory.NewVector())
	require.NoError(t, err)

	require.NoError(t, g.Restore(41))
	require.NoError(t, g.Restore(7))
	id, err := g.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}

func TestGenerator_Exhausted(t *testing.T) {
	g, err := Open(memory.NewVector())
	require.NoError(t, err)
	require.NoError(t, g.Restore(math.MaxUint64))

	_, err = g.Next()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestGenerator_BadHeader(t *testing.T) {
	mem := memory.NewVector()
	require.NoError(t, mem.Grow(1))
	_, err := mem.WriteAt([]byte("junk"), 0)
	require.NoError(t, err)

	_, err = Open(mem)
	require.ErrorIs(t, err, ErrBadHeader)
}
