package txn

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockGrantsExclusiveOwnership(t *testing.T) {
	lt := NewLockTable()
	unlock, err := lt.TryLock([]byte("v1"))
	require.NoError(t, err)
	require.NotNil(t, unlock)

	_, err = lt.TryLock([]byte("v1"))
	require.Error(t, err)
	assert.Equal(t, types.CodeDataConflict, types.CodeOf(err))

	unlock()

	unlock2, err := lt.TryLock([]byte("v1"))
	require.NoError(t, err)
	unlock2()
}

func TestTryLockDistinctKeysDoNotContend(t *testing.T) {
	lt := NewLockTable()
	u1, err := lt.TryLock([]byte("v1"))
	require.NoError(t, err)
	defer u1()

	u2, err := lt.TryLock([]byte("v2"))
	require.NoError(t, err)
	defer u2()
}

func TestTryLockNeverLetsTwoHoldersOverlap(t *testing.T) {
	lt := NewLockTable()
	const n = 64
	var active int32
	var sawOverlap int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			unlock, err := lt.TryLock([]byte("contended"))
			if err != nil {
				return
			}
			if atomic.AddInt32(&active, 1) > 1 {
				atomic.StoreInt32(&sawOverlap, 1)
			}
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	close(start)
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&sawOverlap), "two goroutines held the same key's lock at once")
}
