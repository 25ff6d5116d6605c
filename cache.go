package hamdb

import (
	"container/list"
	"sort"

	"go.uber.org/zap"
)

// pageCache is the bounded pool of resident pages described in spec §4.3.
// Eviction is approximate LRU over unpinned, non-dirty pages; dirty
// candidates are flushed before eviction. The header page is never
// evicted, matching spec §4.3's explicit carve-out.
type pageCache struct {
	device   device
	pageSize int
	capacity int
	logger   *zap.Logger

	resident map[int64]*page
	order    *list.List // front = most recently used
	elem     map[int64]*list.Element
}

func newPageCache(dev device, pageSize, capacity int, logger *zap.Logger) *pageCache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pageCache{
		device:   dev,
		pageSize: pageSize,
		capacity: capacity,
		logger:   logger,
		resident: make(map[int64]*page),
		order:    list.New(),
		elem:     make(map[int64]*list.Element),
	}
}

// get returns the resident page at addr, or nil if it is not currently
// cached (spec §4.3 "get(addr) -> page | null"). It does not touch the
// device.
func (c *pageCache) get(addr int64) *page {
	p, ok := c.resident[addr]
	if !ok {
		return nil
	}
	c.touch(addr)
	return p
}

func (c *pageCache) touch(addr int64) {
	if e, ok := c.elem[addr]; ok {
		c.order.MoveToFront(e)
	}
}

// put inserts p into the cache, evicting until there is room if it was
// not already resident (spec §4.3 "put(page)").
func (c *pageCache) put(p *page) error {
	if _, ok := c.resident[p.addr]; ok {
		c.touch(p.addr)
		c.resident[p.addr] = p
		return nil
	}
	for len(c.resident) >= c.capacity {
		if err := c.evictOne(); err != nil {
			return err
		}
	}
	c.resident[p.addr] = p
	c.elem[p.addr] = c.order.PushFront(p.addr)
	return nil
}

// fetch returns the resident page at addr, loading it from the device
// first if necessary. typ is applied only to a page not yet seen by the
// cache; a page already resident keeps whatever type it currently has.
func (c *pageCache) fetch(addr int64, typ pageType) (*page, error) {
	if p := c.get(addr); p != nil {
		return p, nil
	}
	p := newPage(addr, typ, c.pageSize)
	if err := c.device.readAt(addr, p.data); err != nil {
		return nil, err
	}
	p.typ = typ
	if err := c.put(p); err != nil {
		return nil, err
	}
	return p, nil
}

// evictOne removes one unpinned, non-dirty page, preferring the least
// recently used candidate. The header page is never a candidate. If
// every unpinned candidate is dirty, the least recently used one is
// flushed and then evicted.
func (c *pageCache) evictOne() error {
	var dirtyCandidate *list.Element
	for e := c.order.Back(); e != nil; e = e.Prev() {
		addr := e.Value.(int64)
		if addr == headerAddr {
			continue
		}
		p := c.resident[addr]
		if p.isPinned() {
			continue
		}
		if !p.dirty {
			c.evict(e)
			return nil
		}
		if dirtyCandidate == nil {
			dirtyCandidate = e
		}
	}
	if dirtyCandidate == nil {
		// Every page is pinned or the cache holds only the header page;
		// nothing can be evicted. Growing past capacity is preferable to
		// losing a pinned page.
		c.logger.Debug(evCacheEvict, zap.String("reason", "no evictable page found, growing past capacity"))
		return nil
	}
	addr := dirtyCandidate.Value.(int64)
	if err := c.flushPage(c.resident[addr]); err != nil {
		return err
	}
	c.evict(dirtyCandidate)
	return nil
}

func (c *pageCache) evict(e *list.Element) {
	addr := e.Value.(int64)
	c.order.Remove(e)
	delete(c.elem, addr)
	delete(c.resident, addr)
}

func (c *pageCache) flushPage(p *page) error {
	if !p.dirty {
		return nil
	}
	if err := c.device.writeAt(p.addr, p.data); err != nil {
		return err
	}
	p.dirty = false
	return nil
}

// flushAll writes every dirty resident page to the device, in ascending
// address order for reproducible I/O patterns (spec §4.3). When flags
// requests durability the device is additionally synced.
func (c *pageCache) flushAll(flags uint32) error {
	addrs := make([]int64, 0, len(c.resident))
	for addr := range c.resident {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		if err := c.flushPage(c.resident[addr]); err != nil {
			return err
		}
	}
	if flags&flushSync != 0 {
		return c.device.sync()
	}
	return nil
}

// checkIntegrity audits the cache's own bookkeeping invariants: the LRU
// list and resident map agree on membership, every resident page sits
// under its own address, no pin count is negative, and no dirty page
// lacks a payload (spec §4.3). It does not compare the resident count
// with the capacity.
func (c *pageCache) checkIntegrity() error {
	if len(c.resident) != len(c.elem) || len(c.resident) != c.order.Len() {
		return NewError(ErrIntegrityViolated)
	}
	for addr, p := range c.resident {
		if p.addr != addr {
			return NewError(ErrIntegrityViolated)
		}
		if p.pinned < 0 {
			return NewError(ErrIntegrityViolated)
		}
		if p.dirty && p.data == nil {
			return NewError(ErrIntegrityViolated)
		}
	}
	return nil
}

// delete drops every resident page without flushing, discarding any
// unwritten mutations (spec §4.3 "delete()"). Used when abandoning a
// database after an unrecoverable error.
func (c *pageCache) delete() {
	c.resident = make(map[int64]*page)
	c.elem = make(map[int64]*list.Element)
	c.order = list.New()
}

// delete1 drops a single resident page without flushing it, used when a
// page has just been freed and its stale contents must never reach the
// device.
func (c *pageCache) delete1(addr int64) {
	if e, ok := c.elem[addr]; ok {
		c.evict(e)
	}
}

// flushSync is passed to flushAll to request a device sync after the
// write pass (spec §4.7 Commit).
const flushSync uint32 = 0x1
