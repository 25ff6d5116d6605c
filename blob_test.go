package hamdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBlobDB(t *testing.T, pageSize int64) *DB {
	t.Helper()
	dev := newMemoryDevice()
	db := &DB{
		device: dev,
		header: fileHeader{pageSize: uint32(pageSize)},
		logger: zap.NewNop(),
	}
	db.cache = newPageCache(dev, int(pageSize), 64, zap.NewNop())
	db.free = newFreelist(db, pageSize)
	_, err := db.extendFile(1)
	require.NoError(t, err)
	return db
}

func TestWriteReadBlobSinglePage(t *testing.T) {
	db := newTestBlobDB(t, 4096)
	record := bytes.Repeat([]byte("x"), 100)

	addr, err := db.writeBlob(record)
	require.NoError(t, err)

	got, err := db.readBlob(addr)
	require.NoError(t, err)
	require.Equal(t, record, got)
}

func TestWriteReadBlobSpansMultiplePages(t *testing.T) {
	db := newTestBlobDB(t, 512)
	record := bytes.Repeat([]byte("abcdefgh"), 500) // 4000 bytes, several pages

	addr, err := db.writeBlob(record)
	require.NoError(t, err)

	got, err := db.readBlob(addr)
	require.NoError(t, err)
	require.Equal(t, record, got)
}

func TestFreeBlobReturnsEveryPage(t *testing.T) {
	db := newTestBlobDB(t, 512)
	record := bytes.Repeat([]byte("y"), 3000)

	addr, err := db.writeBlob(record)
	require.NoError(t, err)
	before := db.free.totalFree()

	require.NoError(t, db.freeBlob(addr))
	// 3000 bytes at 512-byte pages: 496 in the first page and 504 in each
	// of the next five, so six pages come back.
	require.EqualValues(t, before+6*512, db.free.totalFree())
}

func TestCeilDiv(t *testing.T) {
	require.EqualValues(t, 0, ceilDiv(0, 8))
	require.EqualValues(t, 1, ceilDiv(1, 8))
	require.EqualValues(t, 1, ceilDiv(8, 8))
	require.EqualValues(t, 2, ceilDiv(9, 8))
}
