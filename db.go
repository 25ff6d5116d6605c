package hamdb

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// DB is a single open database handle (spec §4.1/§4.8). It owns the
// device, page cache, freelist, and the single B-tree root; it is not
// safe for concurrent use from more than one goroutine at a time (spec
// §5).
type DB struct {
	path     string
	device   device
	cache    *pageCache
	free     *freelist
	cmp      comparator
	header   fileHeader
	opts     Options
	logger   *zap.Logger
	readOnly bool
	cursors  []*Cursor

	keyArena    []byte
	recordArena []byte
}

// Create initializes a new database file at path and opens it (spec
// §4.1/§4.8 Create). mode is the file mode used when the backing store
// is not in-memory.
func Create(path string, opts Options, mode os.FileMode) (*DB, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Flags&ReadOnly != 0 {
		return nil, NewError(ErrInvalidParameter)
	}

	var dev device
	var err error
	if opts.Flags&InMemory != 0 {
		dev = newMemoryDevice()
	} else {
		dev, err = createFileDevice(path, mode)
		if err != nil {
			return nil, err
		}
	}

	db := &DB{
		path:   path,
		device: dev,
		cmp:    newComparator(opts.Compare, opts.PrefixCompare),
		opts:   opts,
		logger: opts.Logger,
		header: fileHeader{flags: opts.Flags, pageSize: opts.PageSize, keySize: opts.KeySize, rootPage: 0},
	}
	db.cache = newPageCache(dev, int(opts.PageSize), opts.CacheCapacity, opts.Logger)
	db.free = newFreelist(db, int64(opts.PageSize))

	if err := db.extendAndInitHeaderPage(); err != nil {
		return nil, err
	}
	db.logCreate(path)
	return db, nil
}

// extendAndInitHeaderPage allocates page 0 directly (bypassing the
// freelist, which does not exist yet) and stamps the preamble, file
// header, and an empty inline freelist region into it.
func (db *DB) extendAndInitHeaderPage() error {
	if _, err := db.extendFile(1); err != nil {
		return err
	}
	p, err := db.cache.fetch(headerAddr, pageTypeHeader)
	if err != nil {
		return err
	}
	writePreamble(p)
	writeFileHeader(p, db.header)
	encodeFreelistRegion(p.data[freelistPayloadOffset:], nil, 0)
	p.markDirty()
	return nil
}

// Open opens an existing database file (spec §4.1/§4.8 Open). Only
// Options.Flags (ReadOnly) and Options.CacheCapacity/Logger/Compare/
// PrefixCompare are honored; PageSize and KeySize are read from the
// file itself.
func Open(path string, opts Options) (*DB, error) {
	opts = opts.withDefaults()
	if opts.Flags&InMemory != 0 {
		return nil, NewError(ErrInvalidParameter)
	}

	dev, err := openFileDevice(path, opts.Flags&ReadOnly != 0)
	if err != nil {
		return nil, err
	}

	bootstrap := make([]byte, minPageSize)
	if err := dev.readAt(headerAddr, bootstrap); err != nil {
		return nil, err
	}
	bp := newPage(headerAddr, pageTypeHeader, minPageSize)
	copy(bp.data, bootstrap)
	if err := checkPreamble(bp); err != nil {
		return nil, err
	}
	h := readFileHeader(bp)

	db := &DB{
		path:     path,
		device:   dev,
		cmp:      newComparator(opts.Compare, opts.PrefixCompare),
		opts:     opts,
		logger:   opts.Logger,
		header:   h,
		readOnly: opts.Flags&ReadOnly != 0,
	}
	db.cache = newPageCache(dev, int(h.pageSize), opts.CacheCapacity, opts.Logger)
	db.free = newFreelist(db, int64(h.pageSize))

	p, err := db.cache.fetch(headerAddr, pageTypeHeader)
	if err != nil {
		return nil, err
	}
	if err := db.free.load(p); err != nil {
		return nil, err
	}

	db.logOpen(path)
	return db, nil
}

// extendFile grows the backing store by nPages and returns the address
// of the first new page, bypassing the freelist (spec §4.4: "bypasses
// the freelist... used only for the header page itself on Create", and
// reused here for any allocation the freelist cannot satisfy).
func (db *DB) extendFile(nPages int64) (int64, error) {
	if db.readOnly {
		return 0, NewError(ErrDBReadOnly)
	}
	size, err := db.device.size()
	if err != nil {
		return 0, err
	}
	pageSize := int64(db.header.pageSize)
	if pageSize == 0 {
		pageSize = int64(db.opts.PageSize)
	}
	if err := db.device.truncate(size + nPages*pageSize); err != nil {
		return 0, err
	}
	return size, nil
}

func (db *DB) allocPages(nPages int64) (int64, error) {
	if db.readOnly {
		return 0, NewError(ErrDBReadOnly)
	}
	if addr, ok := db.free.alloc(nPages); ok {
		return addr, nil
	}
	db.logger.Debug(evFreelistExtend, zap.Int64("pages", nPages))
	return db.extendFile(nPages)
}

func (db *DB) freePages(addr int64, nPages int64) error {
	db.free.free(addr, nPages)
	db.cache.delete1(addr)
	return nil
}

func (db *DB) writeHeader() error {
	p, err := db.cache.fetch(headerAddr, pageTypeHeader)
	if err != nil {
		return err
	}
	writeFileHeader(p, db.header)
	return nil
}

// Find looks up key and returns its record (spec §4.6 Find).
func (db *DB) Find(key []byte) ([]byte, error) {
	if err := db.checkKeySize(key); err != nil {
		return nil, err
	}
	return db.find(key)
}

// Insert stores key/record, failing with ErrDuplicateKey unless flags
// carries InsertOverwrite (spec §4.6 Insert).
func (db *DB) Insert(key []byte, record []byte, flags uint32) error {
	if db.readOnly {
		return NewError(ErrDBReadOnly)
	}
	if err := db.checkKeySize(key); err != nil {
		return err
	}
	db.invalidateCursors()
	return db.insert(key, record, flags)
}

// Erase removes key and its record (spec §4.6 Erase).
func (db *DB) Erase(key []byte, flags uint32) error {
	if db.readOnly {
		return NewError(ErrDBReadOnly)
	}
	if err := db.checkKeySize(key); err != nil {
		return err
	}
	db.invalidateCursors()
	return db.erase(key, flags)
}

func (db *DB) checkKeySize(key []byte) error {
	if len(key) == 0 || len(key) > int(db.header.keySize) {
		return NewError(ErrInvalidKeySize)
	}
	return nil
}

// Flush writes every dirty page (including the header and freelist) to
// the device (spec §4.7 Commit, §6).
func (db *DB) Flush() error {
	db.logFlush()
	p, err := db.cache.fetch(headerAddr, pageTypeHeader)
	if err != nil {
		return err
	}
	writeFileHeader(p, db.header)
	if err := db.free.shutdown(p); err != nil {
		return pkgerrors.Wrap(err, "flush freelist")
	}
	return db.cache.flushAll(flushSync)
}

// Close flushes and releases the database handle (spec §4.1/§4.8
// Close). The handle must not be used afterwards.
func (db *DB) Close() error {
	if !db.readOnly {
		if err := db.Flush(); err != nil {
			return err
		}
	}
	db.cache.delete()
	db.logClose(db.path)
	return db.device.close()
}

// Delete abandons the handle without flushing, discarding any
// unwritten mutations (spec §4.3 "delete()", surfaced at the facade for
// callers that hit an unrecoverable error and must not persist it).
func (db *DB) Delete() error {
	db.cache.delete()
	return db.device.close()
}

// SetCompareFunc overrides the full-key comparator (spec §4.6/§9).
func (db *DB) SetCompareFunc(cmp CompareFunc) {
	db.cmp.compare = cmp
}

// SetPrefixCompareFunc overrides the prefix comparator (spec §4.6/§9).
func (db *DB) SetPrefixCompareFunc(cmp PrefixCompareFunc) {
	db.cmp.prefixCompare = cmp
}

// CheckIntegrity audits the cache bookkeeping and walks the whole tree,
// checking that every node sits at its expected level, that no non-root
// node underflows, that no node overflows its page, and that leaf keys
// are in strictly ascending comparator order. It returns the first
// violation found as ErrIntegrityViolated and logs it at warn level with
// a reason naming the failed check. It does not audit the freelist.
func (db *DB) CheckIntegrity() error {
	if err := db.cache.checkIntegrity(); err != nil {
		db.logIntegrityFailure("cache", err)
		return err
	}
	if db.header.rootPage == 0 {
		return nil
	}
	var prevKey []byte
	var walk func(addr int64, level uint8, isRoot bool) error
	walk = func(addr int64, level uint8, isRoot bool) error {
		n, err := db.loadNode(addr)
		if err != nil {
			db.logIntegrityFailure("load", err)
			return err
		}
		if n.level != level {
			err := NewError(ErrIntegrityViolated)
			db.logIntegrityFailure("uneven leaf depth", err)
			return err
		}
		m := maxEntriesPerPage(int(db.header.pageSize), int(db.header.keySize))
		if !isRoot && len(n.entries) < minEntries(m) {
			err := NewError(ErrIntegrityViolated)
			db.logIntegrityFailure("underflow", err)
			return err
		}
		// Overflow is judged the same way Insert decides to split: by
		// byte footprint, not by the worst-case (full-length-key) entry
		// count m. Stored keys shorter than db.header.keySize let a leaf
		// legitimately hold more than m entries without ever exceeding
		// the page.
		if !n.fits(int(db.header.pageSize)) {
			err := NewError(ErrIntegrityViolated)
			db.logIntegrityFailure("overflow", err)
			return err
		}
		if n.isLeaf() {
			for _, e := range n.entries {
				if prevKey != nil && db.cmp.compare(prevKey, e.key) >= 0 {
					err := NewError(ErrIntegrityViolated)
					db.logIntegrityFailure("key order", err)
					return err
				}
				prevKey = e.key
			}
			return nil
		}
		for i := 0; i <= len(n.entries); i++ {
			if err := walk(addrOfChild(n, i), level-1, false); err != nil {
				return err
			}
		}
		return nil
	}

	root, err := db.loadNode(int64(db.header.rootPage))
	if err != nil {
		return err
	}
	return walk(int64(db.header.rootPage), root.level, true)
}
