package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeCounterConcurrentIncrement(t *testing.T) {
	counter := NewSafeInt()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Increment()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter.Value())
}

func TestSafeCounterSet(t *testing.T) {
	counter := NewSafeIntWithValue(5)
	assert.Equal(t, 5, counter.Value())
	counter.Set(42)
	assert.Equal(t, 42, counter.Value())
}

func TestSafeFlag(t *testing.T) {
	flag := NewSafeBool()
	assert.False(t, flag.Value())
	flag.Set(true)
	assert.True(t, flag.Value())
	flag.Set(false)
	assert.False(t, flag.Value())

	assert.True(t, NewSafeBoolWithValue(true).Value())
}
