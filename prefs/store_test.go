package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.Get(KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(KeyTheme, "dark"))
	v, err := s.Get(KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
	require.NoError(t, s.Close())

	// reopen: the value survives the process
	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "dark", Lookup(s, KeyTheme, "light"))
	assert.Equal(t, "anonymous", Lookup(s, KeyUsername, "anonymous"))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestMemoryLookup(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, "light", Lookup(m, KeyTheme, "light"))
	require.NoError(t, m.Set(KeyTheme, "dark"))
	assert.Equal(t, "dark", Lookup(m, KeyTheme, "light"))

	// empty values fall back to the default like an unset key
	require.NoError(t, m.Set(KeyUsername, ""))
	assert.Equal(t, "anonymous", Lookup(m, KeyUsername, "anonymous"))
	assert.Equal(t, "x", Lookup(nil, KeyTheme, "x"))
}
