package walkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("a", []byte("1")))
	require.NoError(t, s.Put("b", []byte("2")))

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, s.Delete("a"))
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStoreReplaysOnReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put("k1", []byte("v1")))
	require.NoError(t, s.Put("k2", []byte("v2")))
	require.NoError(t, s.Put("k1", []byte("v1b")))
	require.NoError(t, s.Delete("k2"))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	v, ok := s2.Get("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("v1b"), v)
	_, ok = s2.Get("k2")
	assert.False(t, ok)
}

func TestStoreAscendDescend(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	for _, k := range []string{"t:3", "t:1", "x:9", "t:2"} {
		require.NoError(t, s.Put(k, nil))
	}

	var asc []string
	s.Ascend("t:", func(key string, _ []byte) bool {
		asc = append(asc, key)
		return true
	})
	assert.Equal(t, []string{"t:1", "t:2", "t:3"}, asc)

	var desc []string
	s.Descend("t:", "", func(key string, _ []byte) bool {
		desc = append(desc, key)
		return true
	})
	assert.Equal(t, []string{"t:3", "t:2", "t:1"}, desc)

	var resumed []string
	s.Descend("t:", "t:3", func(key string, _ []byte) bool {
		resumed = append(resumed, key)
		return true
	})
	assert.Equal(t, []string{"t:2", "t:1"}, resumed, "resume starts strictly below the cursor")
}

func TestStoreAscendEarlyStop(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	for _, k := range []string{"t:1", "t:2", "t:3"} {
		require.NoError(t, s.Put(k, nil))
	}

	var seen []string
	s.Ascend("t:", func(key string, _ []byte) bool {
		seen = append(seen, key)
		return len(seen) < 2
	})
	assert.Equal(t, []string{"t:1", "t:2"}, seen)
}

func TestStoreApplyBatch(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("old", []byte("x")))
	require.NoError(t, s.Apply(
		Op{Key: "old", Delete: true},
		Op{Key: "new1", Value: []byte("a")},
		Op{Key: "new2", Value: []byte("b")},
	))

	_, ok := s.Get("old")
	assert.False(t, ok)
	v, ok := s.Get("new1")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), v)
	assert.Equal(t, 2, s.Len())
}
