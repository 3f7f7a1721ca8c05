package desktop

import (
	"errors"
	"testing"

	"github.com/go-ole/go-ole"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// guidBytes encodes a GUID the way the shell stores it in the registry.
func guidBytes(g ole.GUID) []byte {
	b := []byte{
		byte(g.Data1), byte(g.Data1 >> 8), byte(g.Data1 >> 16), byte(g.Data1 >> 24),
		byte(g.Data2), byte(g.Data2 >> 8),
		byte(g.Data3), byte(g.Data3 >> 8),
	}
	return append(b, g.Data4[:]...)
}

func TestParseDesktopIDs(t *testing.T) {
	first := *ole.NewGUID("{AA509086-5CA9-4C25-8F95-589D3C07B48A}")
	second := *ole.NewGUID("{01234567-89AB-CDEF-0123-456789ABCDEF}")

	raw := append(guidBytes(first), guidBytes(second)...)
	ids, err := ParseDesktopIDs(raw)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, first, ids[0])
	assert.Equal(t, second, ids[1])
	assert.Equal(t, "{01234567-89AB-CDEF-0123-456789ABCDEF}", ids[1].String())
}

func TestParseDesktopIDs_Empty(t *testing.T) {
	ids, err := ParseDesktopIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestParseDesktopIDs_Truncated(t *testing.T) {
	_, err := ParseDesktopIDs(make([]byte, 20))
	assert.Error(t, err)
}

func TestIndexOf(t *testing.T) {
	a := *ole.NewGUID("{00000001-0000-0000-0000-000000000000}")
	b := *ole.NewGUID("{00000002-0000-0000-0000-000000000000}")
	c := *ole.NewGUID("{00000003-0000-0000-0000-000000000000}")

	idx, err := indexOf([]ole.GUID{a, b}, b)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)

	_, err = indexOf([]ole.GUID{a, b}, c)
	assert.ErrorIs(t, err, ErrUnknownDesktop)

	idx, err = indexOf(nil, c)
	require.NoError(t, err)
	assert.Zero(t, idx)
}

func TestTargetOf(t *testing.T) {
	a := *ole.NewGUID("{00000001-0000-0000-0000-000000000000}")
	b := *ole.NewGUID("{00000002-0000-0000-0000-000000000000}")

	target, noop, err := targetOf([]ole.GUID{a, b}, 1)
	require.NoError(t, err)
	assert.False(t, noop)
	assert.Equal(t, b, target)

	_, _, err = targetOf([]ole.GUID{a, b}, 2)
	assert.ErrorIs(t, err, ErrUnknownDesktop)

	_, noop, err = targetOf(nil, 0)
	require.NoError(t, err)
	assert.True(t, noop)

	_, _, err = targetOf(nil, 1)
	assert.ErrorIs(t, err, ErrUnknownDesktop)
}

type countingLoader struct {
	lists [][]ole.GUID
	calls int
	err   error
}

func (l *countingLoader) load() ([]ole.GUID, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	i := l.calls - 1
	if i >= len(l.lists) {
		i = len(l.lists) - 1
	}
	return l.lists[i], nil
}

func TestIDCache_ReadsOncePerPass(t *testing.T) {
	a, b := *ole.NewGUID("{11111111-0000-0000-0000-000000000001}"), *ole.NewGUID("{11111111-0000-0000-0000-000000000002}")
	l := &countingLoader{lists: [][]ole.GUID{{a, b}}}
	c := newIDCache(l.load)

	for i := 0; i < 5; i++ {
		index, err := c.index(b)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), index)
	}
	target, noop, err := c.target(0)
	require.NoError(t, err)
	assert.False(t, noop)
	assert.Equal(t, a, target)

	assert.Equal(t, 1, l.calls)
}

func TestIDCache_ReloadsOnMiss(t *testing.T) {
	a, b := *ole.NewGUID("{22222222-0000-0000-0000-000000000001}"), *ole.NewGUID("{22222222-0000-0000-0000-000000000002}")
	l := &countingLoader{lists: [][]ole.GUID{{a}, {a, b}}}
	c := newIDCache(l.load)

	index, err := c.index(a)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), index)

	// A desktop created after the first read.
	index, err = c.index(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)
	assert.Equal(t, 2, l.calls)

	target, _, err := c.target(1)
	require.NoError(t, err)
	assert.Equal(t, b, target)
	assert.Equal(t, 2, l.calls)

	_, _, err = c.target(5)
	assert.ErrorIs(t, err, ErrUnknownDesktop)
	assert.Equal(t, 3, l.calls, "one reload per miss")
}

func TestIDCache_LoadErrorIsNotCached(t *testing.T) {
	a := *ole.NewGUID("{33333333-0000-0000-0000-000000000001}")
	l := &countingLoader{err: errors.New("registry unavailable")}
	c := newIDCache(l.load)

	_, err := c.index(a)
	assert.Error(t, err)

	l.err = nil
	l.lists = [][]ole.GUID{{a}}
	index, err := c.index(a)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), index)
}
