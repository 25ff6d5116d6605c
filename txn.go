package hamdb

// Txn is a lightweight transaction scope (spec §4.7). This engine keeps
// no undo log: Commit and Abort behave the same way, dropping the
// scope's private key/record arenas and undoing nothing. Any page a path
// descent dirtied during the scope's lifetime stays dirty either way and
// is written out on the next Flush.
//
// A Txn exists to give Find/Insert/Erase a scratch buffer that outlives
// a single call without forcing every caller to manage its own,
// matching the "current key/record arena" design note in §9: with no
// transaction active, the database's own arenas serve the same role
// (grounded on the original's db.h key_arena()/record_arena(), which
// selects the ambient arena whenever no transaction, or a temporary
// one, is active).
type Txn struct {
	db    *DB
	flags uint32

	keyArena    []byte
	recordArena []byte
}

// Begin opens a transaction scope on db (spec §4.7 begin). flags may
// carry txnTemporary to borrow the database's shared arenas instead of
// allocating private ones; callers that only need a single Find/Insert
// call, not held across other calls, should prefer this.
func (db *DB) Begin(flags uint32) *Txn {
	return &Txn{db: db, flags: flags}
}

// keyArenaFor returns the arena this txn (or the database itself, if
// txn is nil or temporary) should grow to hold a key copy handed back
// to the caller.
func (db *DB) keyArenaFor(txn *Txn) *[]byte {
	if txn == nil || txn.flags&txnTemporary != 0 {
		return &db.keyArena
	}
	return &txn.keyArena
}

// recordArenaFor is the record-side counterpart of keyArenaFor.
func (db *DB) recordArenaFor(txn *Txn) *[]byte {
	if txn == nil || txn.flags&txnTemporary != 0 {
		return &db.recordArena
	}
	return &txn.recordArena
}

// growArena resizes *arena to n bytes, reusing the backing array when
// it already has enough capacity (spec §9: arenas persist across calls
// within a scope rather than being reallocated each time).
func growArena(arena *[]byte, n int) []byte {
	if cap(*arena) < n {
		*arena = make([]byte, n)
		return *arena
	}
	*arena = (*arena)[:n]
	return *arena
}

// Commit releases the transaction scope (spec §4.7 commit). With no
// undo log this only returns the scope's private arenas; any page
// dirtied during the scope remains dirty and is written on the next
// Flush.
func (t *Txn) Commit() error {
	t.keyArena = nil
	t.recordArena = nil
	return nil
}

// Abort releases the transaction scope without undoing any mutation
// already applied (spec §4.7: "there is no undo log"). Pages the scope
// dirtied are left dirty, exactly as Commit leaves them; a caller that
// needs rollback semantics must not apply mutations speculatively.
func (t *Txn) Abort() error {
	t.keyArena = nil
	t.recordArena = nil
	return nil
}

// FindIn looks up key within txn's scope, copying the result into the
// scope's record arena rather than the database's shared one (spec
// §4.7, §9 scoped arenas). A nil txn behaves like DB.Find.
func (db *DB) FindIn(txn *Txn, key []byte) ([]byte, error) {
	record, err := db.Find(key)
	if err != nil {
		return nil, err
	}
	arena := growArena(db.recordArenaFor(txn), len(record))
	copy(arena, record)
	return arena, nil
}
