package hamdb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPopulatedCursorDB(t *testing.T, n int) *DB {
	t.Helper()
	db, err := Create(tempDBPath(t), Options{PageSize: 512}, 0644)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%05d", i))
		val := []byte(fmt.Sprintf("val-%05d", i))
		require.NoError(t, db.Insert(key, val, 0))
	}
	return db
}

func TestCursorMoveFirstOnEmptyDB(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	c := db.CreateCursor()
	defer c.Close()
	ok, err := c.MoveFirst()
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, c.Valid())
}

func TestCursorIteratesInAscendingOrder(t *testing.T) {
	db := newPopulatedCursorDB(t, 200)
	c := db.CreateCursor()
	defer c.Close()

	ok, err := c.MoveFirst()
	require.NoError(t, err)
	require.True(t, ok)

	count := 0
	var prev []byte
	for {
		require.True(t, c.Valid())
		key := append([]byte(nil), c.Key()...)
		if prev != nil {
			require.Less(t, string(prev), string(key))
		}
		prev = key
		count++
		ok, err = c.MoveNext()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.Equal(t, 200, count)
}

func TestCursorIteratesInDescendingOrderFromLast(t *testing.T) {
	db := newPopulatedCursorDB(t, 200)
	c := db.CreateCursor()
	defer c.Close()

	ok, err := c.MoveLast()
	require.NoError(t, err)
	require.True(t, ok)

	count := 0
	var prev []byte
	for {
		key := append([]byte(nil), c.Key()...)
		if prev != nil {
			require.Greater(t, string(prev), string(key))
		}
		prev = key
		count++
		ok, err = c.MovePrev()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.Equal(t, 200, count)
}

func TestCursorFindPositionsOnKey(t *testing.T) {
	db := newPopulatedCursorDB(t, 50)
	c := db.CreateCursor()
	defer c.Close()

	ok, err := c.Find([]byte("key-00025"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("key-00025"), c.Key())

	record, err := c.Record()
	require.NoError(t, err)
	require.Equal(t, []byte("val-00025"), record)
}

func TestCursorFindMissingKeyInvalidates(t *testing.T) {
	db := newPopulatedCursorDB(t, 10)
	c := db.CreateCursor()
	defer c.Close()

	ok, err := c.Find([]byte("does-not-exist"))
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, c.Valid())
}

func TestCursorRecordConsultsBlobStoreForLargeRecords(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{PageSize: 512}, 0644)
	require.NoError(t, err)
	defer db.Close()

	big := make([]byte, 2000)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, db.Insert([]byte("bigkey"), big, 0))

	c := db.CreateCursor()
	defer c.Close()
	ok, err := c.Find([]byte("bigkey"))
	require.NoError(t, err)
	require.True(t, ok)

	record, err := c.Record()
	require.NoError(t, err)
	require.Equal(t, big, record)
}

func TestCursorInvalidatedByMutation(t *testing.T) {
	db := newPopulatedCursorDB(t, 20)
	c := db.CreateCursor()
	defer c.Close()

	ok, err := c.MoveFirst()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, c.Valid())

	require.NoError(t, db.Insert([]byte("zzz-new-key"), []byte("v"), 0))
	require.False(t, c.Valid())
}

func TestCursorCloseRemovesFromDBList(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	c := db.CreateCursor()
	require.Len(t, db.cursors, 1)
	c.Close()
	require.Len(t, db.cursors, 0)
}

func TestCursorKeyAndRecordInvalidWhenNotPositioned(t *testing.T) {
	db, err := Create(tempDBPath(t), Options{}, 0644)
	require.NoError(t, err)
	defer db.Close()

	c := db.CreateCursor()
	defer c.Close()
	require.Nil(t, c.Key())
	_, err = c.Record()
	require.Equal(t, ErrKeyNotFound, GetError(err))
}
