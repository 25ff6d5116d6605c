package hamdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxnFindInCopiesIntoScopedArena(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("k"), []byte("v1"), 0))

	txn := db.Begin(0)
	got, err := db.FindIn(txn, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)
	require.Same(t, &txn.recordArena[0], &got[0])
	require.NoError(t, txn.Commit())
}

func TestTxnTemporaryUsesSharedDatabaseArena(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("k"), []byte("value"), 0))

	txn := db.Begin(txnTemporary)
	_, err = db.FindIn(txn, []byte("k"))
	require.NoError(t, err)
	require.Nil(t, txn.recordArena)
	require.NotEmpty(t, db.recordArena)
}

func TestTxnCommitReleasesPrivateArena(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("k"), []byte("value"), 0))
	txn := db.Begin(0)
	_, err = db.FindIn(txn, []byte("k"))
	require.NoError(t, err)
	require.NotEmpty(t, txn.recordArena)

	require.NoError(t, txn.Commit())
	require.Nil(t, txn.recordArena)
}

func TestTxnAbortDoesNotUndoAppliedMutations(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	txn := db.Begin(0)
	require.NoError(t, db.Insert([]byte("k"), []byte("value"), 0))
	require.NoError(t, txn.Abort())

	got, err := db.Find([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestGrowArenaReusesCapacity(t *testing.T) {
	var arena []byte
	a := growArena(&arena, 4)
	copy(a, []byte("abcd"))
	cap1 := cap(arena)

	b := growArena(&arena, 2)
	require.Equal(t, cap1, cap(arena))
	require.Equal(t, []byte("ab"), b)
}
