package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	s := New()
	s.Set("a", "1")
	v, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestGetMissing(t *testing.T) {
	s := New()
	_, ok := s.Get("missing")
	require.False(t, ok)
}

func TestDel(t *testing.T) {
	s := New()
	s.Set("a", "1")
	require.True(t, s.Del("a"))
	require.False(t, s.Del("a"))
	_, ok := s.Get("a")
	require.False(t, ok)
	require.False(t, s.Exists("a"))
}

func TestOverwrite(t *testing.T) {
	s := New()
	s.Set("a", "1")
	s.Set("a", "2")
	v, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestConcurrentDisjointKeys(t *testing.T) {
	s := New()
	const n, m = 8, 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < m; j++ {
				key := keyFor(i, j)
				s.Set(key, key)
				v, ok := s.Get(key)
				require.True(t, ok)
				require.Equal(t, key, v)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, n*m, s.Size())
}

func keyFor(i, j int) string {
	const hex = "0123456789abcdef"
	return string([]byte{hex[i%16], '-', hex[j%16], hex[(j/16)%16]})
}
