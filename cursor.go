package hamdb

// Cursor walks the B-tree in key order (spec §4.9, supplemented from
// the original hamsterdb design). Within a leaf a move is an index step;
// crossing into a neighbouring leaf walks back up the saved descent path
// and down again, since index pages carry no leaf-sibling pointers. This
// keeps the on-disk format simple at the cost of an O(log n) step at
// leaf boundaries instead of O(1).
type Cursor struct {
	db    *DB
	path  []pathFrame
	leaf  *node
	addr  int64
	idx   int
	valid bool
}

// CreateCursor opens a new cursor over db, registering it on db's
// intrusive cursor list so a later mutation can invalidate it (spec
// §4.9 cursor_create).
func (db *DB) CreateCursor() *Cursor {
	c := &Cursor{db: db}
	db.cursors = append(db.cursors, c)
	return c
}

// Close removes the cursor from its database's live list (spec §4.9
// cursor_close). The cursor must not be used afterwards.
func (c *Cursor) Close() {
	cursors := c.db.cursors
	for i, other := range cursors {
		if other == c {
			c.db.cursors = append(cursors[:i], cursors[i+1:]...)
			break
		}
	}
}

func (db *DB) invalidateCursors() {
	for _, c := range db.cursors {
		c.valid = false
	}
}

// Valid reports whether the cursor is currently positioned on a key.
// Any mutation anywhere in the tree invalidates every open cursor,
// since a split or merge can relocate entries between pages (spec
// §4.9).
func (c *Cursor) Valid() bool { return c.valid }

// Key returns the key the cursor is currently positioned on. Valid only
// when the most recent move succeeded.
func (c *Cursor) Key() []byte {
	if !c.valid {
		return nil
	}
	return c.leaf.entries[c.idx].key
}

// Record returns the record the cursor is currently positioned on,
// consulting the blob store when the entry is not packed inline.
func (c *Cursor) Record() ([]byte, error) {
	if !c.valid {
		return nil, NewError(ErrKeyNotFound)
	}
	e := c.leaf.entries[c.idx]
	if isInline(e.flags) {
		return unpackInline(e.flags, e.rid), nil
	}
	return c.db.readBlob(e.rid)
}

// descendLeftmost walks from addr down to the leftmost leaf, appending
// every branch frame visited (childIndex 0 at each level).
func (db *DB) descendLeftmost(path []pathFrame, addr int64) ([]pathFrame, *node, int64, error) {
	for {
		n, err := db.loadNode(addr)
		if err != nil {
			return nil, nil, 0, err
		}
		if n.isLeaf() {
			return path, n, addr, nil
		}
		path = append(path, pathFrame{addr: addr, node: n, childIndex: 0})
		addr = addrOfChild(n, 0)
	}
}

// descendRightmost walks from addr down to the rightmost leaf via each
// level's rightChild.
func (db *DB) descendRightmost(path []pathFrame, addr int64) ([]pathFrame, *node, int64, error) {
	for {
		n, err := db.loadNode(addr)
		if err != nil {
			return nil, nil, 0, err
		}
		if n.isLeaf() {
			return path, n, addr, nil
		}
		path = append(path, pathFrame{addr: addr, node: n, childIndex: len(n.entries)})
		addr = addrOfChild(n, len(n.entries))
	}
}

// MoveFirst positions the cursor on the smallest key (spec §4.9
// cursor_move_first). ok is false for an empty database.
func (c *Cursor) MoveFirst() (ok bool, err error) {
	if c.db.header.rootPage == 0 {
		c.valid = false
		return false, nil
	}
	path, leaf, addr, err := c.db.descendLeftmost(nil, int64(c.db.header.rootPage))
	if err != nil {
		return false, err
	}
	if len(leaf.entries) == 0 {
		c.valid = false
		return false, nil
	}
	c.path, c.leaf, c.addr, c.idx, c.valid = path, leaf, addr, 0, true
	return true, nil
}

// MoveLast positions the cursor on the largest key (spec §4.9
// cursor_move_last).
func (c *Cursor) MoveLast() (ok bool, err error) {
	if c.db.header.rootPage == 0 {
		c.valid = false
		return false, nil
	}
	path, leaf, addr, err := c.db.descendRightmost(nil, int64(c.db.header.rootPage))
	if err != nil {
		return false, err
	}
	if len(leaf.entries) == 0 {
		c.valid = false
		return false, nil
	}
	c.path, c.leaf, c.addr, c.idx, c.valid = path, leaf, addr, len(leaf.entries)-1, true
	return true, nil
}

// Find positions the cursor on key, failing if it is absent (spec §4.9
// cursor_find).
func (c *Cursor) Find(key []byte) (ok bool, err error) {
	path, leaf, addr, idx, found, err := c.db.descendToKey(key)
	if err != nil {
		return false, err
	}
	if !found {
		c.valid = false
		return false, nil
	}
	c.path, c.leaf, c.addr, c.idx, c.valid = path, leaf, addr, idx, true
	return true, nil
}

// MoveNext advances to the next key in ascending order (spec §4.9
// cursor_move_next). ok is false once the cursor passes the last key.
func (c *Cursor) MoveNext() (ok bool, err error) {
	if !c.valid {
		return false, nil
	}
	if c.idx+1 < len(c.leaf.entries) {
		c.idx++
		return true, nil
	}
	for i := len(c.path) - 1; i >= 0; i-- {
		frame := c.path[i]
		total := len(frame.node.entries) + 1
		if frame.childIndex+1 >= total {
			continue
		}
		nextIdx := frame.childIndex + 1
		frame.childIndex = nextIdx
		c.path[i] = frame
		childAddr := addrOfChild(frame.node, nextIdx)
		path, leaf, addr, err := c.db.descendLeftmost(append([]pathFrame(nil), c.path[:i+1]...), childAddr)
		if err != nil {
			return false, err
		}
		if len(leaf.entries) == 0 {
			continue
		}
		c.path, c.leaf, c.addr, c.idx = path, leaf, addr, 0
		return true, nil
	}
	c.valid = false
	return false, nil
}

// MovePrev retreats to the previous key in ascending order (spec §4.9,
// the symmetric counterpart of MoveNext).
func (c *Cursor) MovePrev() (ok bool, err error) {
	if !c.valid {
		return false, nil
	}
	if c.idx > 0 {
		c.idx--
		return true, nil
	}
	for i := len(c.path) - 1; i >= 0; i-- {
		frame := c.path[i]
		if frame.childIndex == 0 {
			continue
		}
		prevIdx := frame.childIndex - 1
		frame.childIndex = prevIdx
		c.path[i] = frame
		childAddr := addrOfChild(frame.node, prevIdx)
		path, leaf, addr, err := c.db.descendRightmost(append([]pathFrame(nil), c.path[:i+1]...), childAddr)
		if err != nil {
			return false, err
		}
		if len(leaf.entries) == 0 {
			continue
		}
		c.path, c.leaf, c.addr, c.idx = path, leaf, addr, len(leaf.entries)-1
		return true, nil
	}
	c.valid = false
	return false, nil
}
