package shm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryCounts(t *testing.T) {
	name := testName()
	registerRegion(name)
	registerRegion(name)
	assert.Equal(t, 2, ActiveRegions()[name])

	unregisterRegion(name)
	assert.Equal(t, 1, ActiveRegions()[name])

	unregisterRegion(name)
	_, ok := ActiveRegions()[name]
	assert.False(t, ok, "fully closed names drop out of the snapshot")
}

func TestRegistryConcurrent(t *testing.T) {
	name := testName()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registerRegion(name)
			unregisterRegion(name)
		}()
	}
	wg.Wait()
	_, ok := ActiveRegions()[name]
	assert.False(t, ok)
}
