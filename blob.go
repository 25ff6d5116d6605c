package hamdb

import "encoding/binary"

// blobHeaderSize is {totalLength:u64, nextAddr:u64} at the front of a
// blob's first page (spec §4.5).
const blobHeaderSize = 16

// blobTailSize is the trailing next_page_addr on every page after the
// first: payload fills the rest of the page, tail occupies its last 8
// bytes (spec §4.5 "subsequent pages are raw payload with a tail
// next_page_addr").
const blobTailSize = 8

// writeBlob stores record across one or more whole pages, allocated from
// the freelist (or by extending the file), and returns the address of
// the first page. Used whenever a record does not qualify for inline
// packing (spec §4.5 "records larger than 8 bytes are stored in the blob
// store using whole-page allocation").
func (db *DB) writeBlob(record []byte) (uint64, error) {
	pageSize := int64(db.header.pageSize)
	capacityFirst := pageSize - blobHeaderSize
	capacityRest := pageSize - blobTailSize

	n := 1
	if remaining := int64(len(record)) - capacityFirst; remaining > 0 {
		n += int(ceilDiv(remaining, capacityRest))
	}

	addr, err := db.allocPages(int64(n))
	if err != nil {
		return 0, err
	}

	first := addr
	off := 0
	cur := addr
	for i := 0; i < n; i++ {
		p, err := db.cache.fetch(cur, pageTypeBlob)
		if err != nil {
			return 0, err
		}
		p.typ = pageTypeBlob

		var next uint64
		if i+1 < n {
			next = uint64(cur + pageSize)
		}

		if i == 0 {
			capacity := capacityFirst
			chunk := capacity
			if off+int(chunk) > len(record) {
				chunk = int64(len(record) - off)
			}
			binary.LittleEndian.PutUint64(p.data[0:8], uint64(len(record)))
			binary.LittleEndian.PutUint64(p.data[8:16], next)
			copy(p.data[blobHeaderSize:], record[off:off+int(chunk)])
			for i := blobHeaderSize + int(chunk); i < len(p.data); i++ {
				p.data[i] = 0
			}
			off += int(chunk)
		} else {
			capacity := capacityRest
			chunk := capacity
			if off+int(chunk) > len(record) {
				chunk = int64(len(record) - off)
			}
			copy(p.data[:chunk], record[off:off+int(chunk)])
			for i := int(chunk); i < len(p.data)-blobTailSize; i++ {
				p.data[i] = 0
			}
			binary.LittleEndian.PutUint64(p.data[len(p.data)-blobTailSize:], next)
			off += int(chunk)
		}
		p.markDirty()
		cur += pageSize
	}
	return uint64(first), nil
}

// readBlob reconstructs the record whose first page is at addr.
func (db *DB) readBlob(addr uint64) ([]byte, error) {
	p, err := db.cache.fetch(int64(addr), pageTypeBlob)
	if err != nil {
		return nil, err
	}
	total := binary.LittleEndian.Uint64(p.data[0:8])
	next := binary.LittleEndian.Uint64(p.data[8:16])
	out := make([]byte, 0, total)

	capacity := len(p.data) - blobHeaderSize
	take := capacity
	if take > int(total) {
		take = int(total)
	}
	out = append(out, p.data[blobHeaderSize:blobHeaderSize+take]...)

	for next != 0 && len(out) < int(total) {
		cur, err := db.cache.fetch(int64(next), pageTypeBlob)
		if err != nil {
			return nil, err
		}
		capacity := len(cur.data) - blobTailSize
		remaining := int(total) - len(out)
		take := capacity
		if take > remaining {
			take = remaining
		}
		out = append(out, cur.data[:take]...)
		next = binary.LittleEndian.Uint64(cur.data[len(cur.data)-blobTailSize:])
	}
	return out, nil
}

// freeBlob walks the page chain starting at addr and returns every page
// in it to the freelist.
func (db *DB) freeBlob(addr uint64) error {
	p, err := db.cache.fetch(int64(addr), pageTypeBlob)
	if err != nil {
		return err
	}
	next := binary.LittleEndian.Uint64(p.data[8:16])
	if err := db.freePages(int64(addr), 1); err != nil {
		return err
	}

	for next != 0 {
		cur := next
		p, err := db.cache.fetch(int64(cur), pageTypeBlob)
		if err != nil {
			return err
		}
		next = binary.LittleEndian.Uint64(p.data[len(p.data)-blobTailSize:])
		if err := db.freePages(int64(cur), 1); err != nil {
			return err
		}
	}
	return nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
