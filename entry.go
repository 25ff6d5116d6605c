package hamdb

import "encoding/binary"

// entryFlags are the persisted per-entry flags described in spec §3/§4.5.
// They are mutually exclusive. A leaf entry whose record is stored out of
// line carries flagOverflow, and its rid is the address of the record's
// first blob page.
type entryFlags uint8

const (
	// flagEmpty marks a zero-length record; rid is unused (0).
	flagEmpty entryFlags = 0x01

	// flagTiny marks a record of 1-7 bytes packed directly into rid.
	flagTiny entryFlags = 0x02

	// flagSmall marks a record of exactly 8 bytes: rid's bytes *are*
	// the record.
	flagSmall entryFlags = 0x04

	// flagOverflow marks a record stored out-of-line in the blob store;
	// rid is the address of its first page. Set whenever none of
	// flagEmpty/flagTiny/flagSmall apply.
	flagOverflow entryFlags = 0x08
)

// maxTinySize is the largest record length that fits packed into rid
// alongside its length byte (spec §4.5).
const maxTinySize = 7

// entry is one (key, flags, rid) tuple inside a B-tree node (spec §3).
// For a leaf this is an index entry; for a branch node the same shape is
// reused with rid holding a child page address instead of a record id.
type entry struct {
	flags entryFlags
	key   []byte
	rid   uint64
}

// packInline chooses the persisted flags and rid for a record that may
// qualify for empty/tiny/small inline packing. ok is false when the
// record must go through the blob store instead (spec §4.5).
func packInline(record []byte) (flags entryFlags, rid uint64, ok bool) {
	switch {
	case len(record) == 0:
		return flagEmpty, 0, true
	case len(record) <= maxTinySize:
		var buf [8]byte
		copy(buf[:len(record)], record)
		buf[7] = byte(len(record))
		return flagTiny, binary.LittleEndian.Uint64(buf[:]), true
	case len(record) == 8:
		return flagSmall, binary.LittleEndian.Uint64(record), true
	default:
		return 0, 0, false
	}
}

// unpackInline reconstructs the record bytes for an entry carrying one of
// the empty/tiny/small flags. It must not be called for a flagOverflow
// entry (spec §4.5 "reads and erases must consult these flags before
// touching the blob store").
func unpackInline(flags entryFlags, rid uint64) []byte {
	switch {
	case flags&flagEmpty != 0:
		return []byte{}
	case flags&flagTiny != 0:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], rid)
		n := buf[7]
		out := make([]byte, n)
		copy(out, buf[:n])
		return out
	case flags&flagSmall != 0:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, rid)
		return buf
	default:
		return nil
	}
}

// isInline reports whether flags carries one of the empty/tiny/small
// packing markers, i.e. the rid needs no blob-store round trip.
func isInline(flags entryFlags) bool {
	return flags&(flagEmpty|flagTiny|flagSmall) != 0
}

// encodedSize returns the on-page footprint of this entry: header
// (flags, key length, rid) plus the key bytes.
func (e entry) encodedSize() int {
	return indexEntryHeaderSize + len(e.key)
}
