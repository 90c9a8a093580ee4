package lru

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEviction(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Put("c", 3)

	_, ok = c.Get("b")
	require.False(t, ok, "least recently used value should be evicted")
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 2, c.Len())
}

func TestReplace(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("a", 2)
	v, _ := c.Get("a")
	require.Equal(t, 2, v)
	require.Equal(t, 1, c.Len())

	c.Del("a")
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestDisabled(t *testing.T) {
	c := New(0)
	c.Put("a", 1)
	_, ok := c.Get("a")
	require.False(t, ok)

	c = New(3)
	c.Put("a", 1)
	c.Put("b", 1)
	c.Purge()
	require.Equal(t, 0, c.Len())
}
