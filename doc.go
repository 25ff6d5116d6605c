// Package hamdb is an embedded, file-backed ordered key/value store.
//
// A single process links the library and operates on one database file at
// a time. Keys are variable-length byte strings ordered by a
// user-selectable comparator; records are opaque byte blobs. hamdb
// persists inserts, looks up records by key, erases them, and survives a
// process restart with a consistent on-disk image.
//
// Key features:
//   - B-tree index over fixed-size pages, with overflow for large records
//   - Bounded page cache with approximate-LRU eviction
//   - First-fit freelist with extent coalescing for page reuse
//   - Inline packing of small records (empty/tiny/small) with no blob I/O
//   - Single-threaded cooperative scheduling; no concurrent writers
//
// Basic usage:
//
//	db, err := hamdb.Create("/path/to/db.ham", hamdb.Options{}, 0644)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.Insert([]byte("key"), []byte("value"), 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	record, err := db.Find([]byte("key"))
//	if err != nil {
//	    log.Fatal(err)
//	}
package hamdb
