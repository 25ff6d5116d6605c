package hamdb

// On-disk magic and header layout constants (spec §3, §6).
const (
	// magic is the 4-byte file signature 'H','A','M',0, little-endian.
	magic uint32 = 0x004d4148

	// preambleSize is the fixed {magic,version,serial} region at the
	// front of the header page, before the database header struct.
	preambleSize = 12
)

// Page size constraints (spec §4.2, §9 open question (c)).
const (
	// minPageSize is the minimum legal page size; also the size of the
	// bootstrap read used to discover the real page size on Open.
	minPageSize = 512

	// maxPageSize caps page size so in-node binary search stays on a
	// small integer (spec §9(c)).
	maxPageSize = 65536

	// DefaultPageSize is used when Options.PageSize is left at zero and
	// the host page size cannot be determined.
	DefaultPageSize = 4096
)

// pageHeaderSize is the fixed preamble of every index page: type tag(1) +
// level(1) + entryCount(2) + reserved(4) + rightChild(8, a byte address).
// Entries are packed back to back immediately after it, in sorted key
// order, with no slot directory: an index page is always rewritten whole
// on mutation (see node.go), so there is nothing to keep a directory
// consistent for.
const pageHeaderSize = 16

// Default configuration values (spec §6, §11).
const (
	// DefaultCacheCapacity is the resident page count used when
	// Options.CacheCapacity is left at zero.
	DefaultCacheCapacity = 64

	// indexEntryHeaderSize is sizeof(index-entry-header): flags(1) +
	// keySize(2) + rid(8) bytes preceding the key bytes of an entry.
	indexEntryHeaderSize = 11

	// DefaultKeySize is 32 - sizeof(index-entry-header) - 1, per spec §6.
	DefaultKeySize = 32 - indexEntryHeaderSize - 1
)

// pageType tags the contents of a page (spec §3).
type pageType uint8

const (
	pageTypeHeader           pageType = 0
	pageTypeIndex            pageType = 1
	pageTypeBlob             pageType = 2
	pageTypeFreelistOverflow pageType = 3
)

func (t pageType) String() string {
	switch t {
	case pageTypeHeader:
		return "header"
	case pageTypeIndex:
		return "index"
	case pageTypeBlob:
		return "blob"
	case pageTypeFreelistOverflow:
		return "freelist-overflow"
	default:
		return "unknown"
	}
}

// Public flags (spec §6). Public flags start at 0x1000 so they never
// collide with the persisted per-entry key flags in entry.go, whose
// values all fit in a single byte.
const (
	// ReadOnly opens the database without permitting mutation.
	ReadOnly uint32 = 0x1000

	// InMemory backs the device with a process-memory buffer instead of
	// a file. Legal only for Create; Open refuses it (invalid-parameter).
	InMemory uint32 = 0x2000

	// DisableVariableKeyLength is accepted, stored in the file header
	// and preserved across Close/Open. No code path reads it, so keys
	// are still stored at their natural length.
	DisableVariableKeyLength uint32 = 0x4000

	// ignoreFreelist names the freelist bypass that forces a file
	// extension (spec §4.4). No code path reads it: Create allocates the
	// header page by calling extendFile directly.
	ignoreFreelist uint32 = 0x8000
)

// InsertOverwrite, passed to Insert's flags argument, replaces an
// existing key's record instead of failing with duplicate-key.
const InsertOverwrite uint32 = 0x0001

// Transaction scope flags (spec §3, §4.7).
const (
	// txnTemporary marks a scope that borrows the database's
	// process-wide arenas instead of owning private ones.
	txnTemporary uint32 = 0x1
)
