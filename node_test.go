package hamdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNodeRoundTrip(t *testing.T) {
	n := &node{
		level: 0,
		entries: []entry{
			{flags: flagTiny, key: []byte("alpha"), rid: 1},
			{flags: flagSmall, key: []byte("beta"), rid: 2},
			{flags: flagOverflow, key: []byte("gamma"), rid: 0x1000},
		},
	}
	p := newPage(0, pageTypeIndex, 4096)
	require.NoError(t, encodeNode(p, n, 4096))
	require.True(t, p.dirty)

	got, err := decodeNode(p)
	require.NoError(t, err)
	require.Equal(t, n.level, got.level)
	require.Equal(t, n.rightChild, got.rightChild)
	require.Len(t, got.entries, 3)
	for i, e := range n.entries {
		require.Equal(t, e.flags, got.entries[i].flags)
		require.Equal(t, e.key, got.entries[i].key)
		require.Equal(t, e.rid, got.entries[i].rid)
	}
}

func TestEncodeNodeBranchRightChild(t *testing.T) {
	n := &node{
		level:      1,
		rightChild: 99,
		entries:    []entry{{key: []byte("m"), rid: 7}},
	}
	p := newPage(0, pageTypeIndex, 4096)
	require.NoError(t, encodeNode(p, n, 4096))

	got, err := decodeNode(p)
	require.NoError(t, err)
	require.EqualValues(t, 99, got.rightChild)
	require.False(t, got.isLeaf())
}

func TestEncodeNodeFailsWhenEntriesDoNotFit(t *testing.T) {
	n := &node{level: 0}
	for i := 0; i < 100; i++ {
		n.entries = append(n.entries, entry{key: make([]byte, 20), rid: uint64(i)})
	}
	p := newPage(0, pageTypeIndex, 256)
	err := encodeNode(p, n, 256)
	require.Error(t, err)
	require.Equal(t, ErrInternal, GetError(err))
}

func TestNodeFitsAndSize(t *testing.T) {
	n := &node{entries: []entry{{key: []byte("abc")}}}
	require.Equal(t, indexEntryHeaderSize+3, n.size())
	require.True(t, n.fits(4096))
	require.False(t, n.fits(pageHeaderSize))
}

func TestMaxEntriesPerPageHasFloor(t *testing.T) {
	m := maxEntriesPerPage(64, 10000)
	require.Equal(t, 4, m)
}

func TestMinEntriesIsCeilHalf(t *testing.T) {
	require.Equal(t, 3, minEntries(5))
	require.Equal(t, 2, minEntries(4))
}
