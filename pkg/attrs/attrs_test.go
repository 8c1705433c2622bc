package attrs_test

import (
	"sync"
	"testing"

	"github.com/brickingsoft/rivet/pkg/attrs"
	"github.com/stretchr/testify/require"
)

var (
	counterKey = attrs.New[int]("test.counter")
	labelKey   = attrs.New[string]("test.label")
)

func TestKeyIdentity(t *testing.T) {
	require.True(t, attrs.Exists("test.counter"))
	require.False(t, attrs.Exists("test.missing"))
	require.Equal(t, "test.counter", counterKey.Name())
	require.Panics(t, func() {
		attrs.New[int]("test.counter")
	})
	require.Panics(t, func() {
		attrs.New[int]("")
	})
}

func TestMapLazyCells(t *testing.T) {
	m := &attrs.Map{}
	require.False(t, m.Has(counterKey))
	cell := attrs.Of(m, counterKey)
	require.NotNil(t, cell)
	require.True(t, m.Has(counterKey))
	require.Same(t, cell, attrs.Of(m, counterKey))
	require.False(t, m.Has(labelKey))
}

func TestMapConcurrentCreate(t *testing.T) {
	m := &attrs.Map{}
	cells := make([]*attrs.Attribute[string], 16)
	wg := &sync.WaitGroup{}
	for i := range cells {
		wg.Add(1)
		n := i
		go func() {
			defer wg.Done()
			cells[n] = attrs.Of(m, labelKey)
		}()
	}
	wg.Wait()
	for _, cell := range cells {
		require.Same(t, cells[0], cell)
	}
}

func TestAttributeOps(t *testing.T) {
	m := &attrs.Map{}
	cell := attrs.Of(m, counterKey)

	_, has := cell.Get()
	require.False(t, has)

	cell.Set(1)
	value, has := cell.Get()
	require.True(t, has)
	require.Equal(t, 1, value)

	old, had := cell.Swap(2)
	require.True(t, had)
	require.Equal(t, 1, old)

	require.False(t, cell.CompareAndSwap(1, 3))
	require.True(t, cell.CompareAndSwap(2, 3))
	value, _ = cell.Get()
	require.Equal(t, 3, value)

	actual, stored := cell.SetIfAbsent(9)
	require.False(t, stored)
	require.Equal(t, 3, actual)

	fresh := attrs.Of(m, labelKey)
	actual2, stored2 := fresh.SetIfAbsent("a")
	require.True(t, stored2)
	require.Equal(t, "a", actual2)
}
