package hamdb

import (
	"encoding/binary"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// extent is a (address, length) pair describing a contiguous region of
// free storage (spec §3/§4.4). Both fields are byte counts; length is
// always a multiple of the page size.
type extent struct {
	addr   int64
	length int64
}

// freelistRegionHeaderSize is {count:u32, pad:u32, nextOverflow:u64}
// preceding the packed extents of one inline-or-overflow region.
const freelistRegionHeaderSize = 16

// extentEncodedSize is {addr:u64, length:u64} per extent.
const extentEncodedSize = 16

// freelist is the free-space manager of spec §4.4: an ordered list of
// free extents, held inline in the header page with overflow pages
// chained when it outgrows the header. A derived bitset (never
// persisted) makes "is this page free" queries O(1); CheckIntegrity does
// not consult it.
type freelist struct {
	db         *DB
	pageSize   int64
	extents    []extent // sorted ascending by addr, non-overlapping, non-adjacent
	membership *bitset.BitSet
	// overflowAddrs is the chain of freelist-overflow pages currently
	// backing extents that didn't fit in the header's inline region,
	// in chain order. Rebuilt on every shutdown.
	overflowAddrs []int64
}

func newFreelist(db *DB, pageSize int64) *freelist {
	return &freelist{db: db, pageSize: pageSize, membership: bitset.New(0)}
}

// pageNumber maps a byte address to the bit index used for membership.
func (f *freelist) pageNumber(addr int64) uint {
	return uint(addr / f.pageSize)
}

func (f *freelist) markFree(e extent) {
	pages := e.length / f.pageSize
	start := f.pageNumber(e.addr)
	for i := uint(0); i < uint(pages); i++ {
		f.membership.Set(start + i)
	}
}

func (f *freelist) markUsed(addr int64, pages int64) {
	start := f.pageNumber(addr)
	for i := uint(0); i < uint(pages); i++ {
		f.membership.Clear(start + i)
	}
}

// isFree reports whether addr is currently covered by some free extent;
// an O(1) query backed by the bitset (spec §4.4).
func (f *freelist) isFree(addr int64) bool {
	return f.membership.Test(f.pageNumber(addr))
}

// load parses the freelist out of the header page's inline region and
// any chained overflow pages (spec §4.4 create/load).
func (f *freelist) load(headerPage *page) error {
	region, next := decodeFreelistRegion(headerPage.data[freelistPayloadOffset:])
	f.extents = append(f.extents[:0], region...)
	f.overflowAddrs = f.overflowAddrs[:0]

	for next != 0 {
		f.overflowAddrs = append(f.overflowAddrs, int64(next))
		p, err := f.db.cache.fetch(int64(next), pageTypeFreelistOverflow)
		if err != nil {
			return err
		}
		region, next = decodeFreelistRegion(p.data[overflowRegionOffset:])
		f.extents = append(f.extents, region...)
	}
	sort.Slice(f.extents, func(i, j int) bool { return f.extents[i].addr < f.extents[j].addr })

	f.membership = bitset.New(0)
	for _, e := range f.extents {
		f.markFree(e)
	}
	return nil
}

// alloc reserves nPages contiguous pages using first-fit on ascending
// addresses (spec §4.4). ok is false when no extent is large enough; the
// caller must extend the file instead.
func (f *freelist) alloc(nPages int64) (addr int64, ok bool) {
	need := nPages * f.pageSize
	for i, e := range f.extents {
		if e.length < need {
			continue
		}
		addr = e.addr
		if e.length == need {
			f.extents = append(f.extents[:i], f.extents[i+1:]...)
		} else {
			f.extents[i] = extent{addr: e.addr + need, length: e.length - need}
		}
		f.markUsed(addr, nPages)
		return addr, true
	}
	return 0, false
}

// free returns an extent to the list, coalescing with any immediately
// adjacent extent on either side (spec §4.4).
func (f *freelist) free(addr int64, nPages int64) {
	e := extent{addr: addr, length: nPages * f.pageSize}
	f.markFree(e)

	i := sort.Search(len(f.extents), func(i int) bool { return f.extents[i].addr >= e.addr })
	merged := e

	// Merge with the extent immediately before, if adjacent.
	if i > 0 && f.extents[i-1].addr+f.extents[i-1].length == merged.addr {
		merged.addr = f.extents[i-1].addr
		merged.length += f.extents[i-1].length
		i--
		f.extents = append(f.extents[:i], f.extents[i+1:]...)
	}
	// Merge with the extent immediately after, if adjacent.
	if i < len(f.extents) && merged.addr+merged.length == f.extents[i].addr {
		merged.length += f.extents[i].length
		f.extents = append(f.extents[:i], f.extents[i+1:]...)
	}

	insertAt := sort.Search(len(f.extents), func(i int) bool { return f.extents[i].addr >= merged.addr })
	f.extents = append(f.extents, extent{})
	copy(f.extents[insertAt+1:], f.extents[insertAt:])
	f.extents[insertAt] = merged
}

// totalFree returns the sum of all free extent lengths, used by
// check_integrity's accounting property (spec §8 property 5).
func (f *freelist) totalFree() int64 {
	var total int64
	for _, e := range f.extents {
		total += e.length
	}
	return total
}

// shutdown persists the freelist into the header page and as many
// overflow pages as are needed (spec §4.4). Previously-owned overflow
// pages are freed first so they can be reused as part of the same pass.
//
// Allocating an overflow page itself removes or shrinks an extent, so
// the extent list is smaller after allocation than before it. Sizing
// (how many overflow pages are needed) is therefore estimated from a
// snapshot taken before any allocation in this call — an overestimate
// is harmless, just an occasional trailing page with room to spare —
// but the actual bytes written always come from a single snapshot
// taken after every allocation has completed, so the header chunk and
// the overflow chunks can never disagree about which extents are still
// free.
func (f *freelist) shutdown(headerPage *page) error {
	for _, addr := range f.overflowAddrs {
		f.free(addr, 1)
	}
	f.overflowAddrs = f.overflowAddrs[:0]

	headerCap := inlineRegionCapacity(len(headerPage.data) - freelistPayloadOffset)
	overflowCap := inlineRegionCapacity(int(f.pageSize) - overflowRegionOffset)

	preAllocCount := len(f.extents)
	var pagesNeeded int64
	if preAllocCount > headerCap {
		pagesNeeded = ceilDiv(int64(preAllocCount-headerCap), int64(overflowCap))
	}

	chain := make([]int64, 0, pagesNeeded)
	for i := int64(0); i < pagesNeeded; i++ {
		addr, ok := f.alloc(1)
		if !ok {
			newAddr, err := f.db.extendFile(1)
			if err != nil {
				return err
			}
			addr = newAddr
		}
		chain = append(chain, addr)
	}
	f.overflowAddrs = chain

	final := f.extents
	var headerChunk, remaining []extent
	if len(final) <= headerCap {
		headerChunk = final
	} else {
		headerChunk, remaining = final[:headerCap], final[headerCap:]
	}

	var nextAddr uint64
	if len(chain) > 0 {
		nextAddr = uint64(chain[0])
	}
	encodeFreelistRegion(headerPage.data[freelistPayloadOffset:], headerChunk, nextAddr)
	headerPage.markDirty()

	for i, addr := range chain {
		p, err := f.db.cache.fetch(addr, pageTypeFreelistOverflow)
		if err != nil {
			return err
		}
		p.data[0] = byte(pageTypeFreelistOverflow)
		n := overflowCap
		if n > len(remaining) {
			n = len(remaining)
		}
		chunk := remaining[:n]
		remaining = remaining[n:]
		var next uint64
		if i+1 < len(chain) {
			next = uint64(chain[i+1])
		}
		encodeFreelistRegion(p.data[overflowRegionOffset:], chunk, next)
		p.markDirty()
	}
	return nil
}

// overflowRegionOffset is where the freelist region begins inside an
// overflow page, after its 8-byte generic page preamble.
const overflowRegionOffset = 8

func inlineRegionCapacity(availableBytes int) int {
	n := (availableBytes - freelistRegionHeaderSize) / extentEncodedSize
	if n < 0 {
		return 0
	}
	return n
}

func encodeFreelistRegion(buf []byte, extents []extent, next uint64) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(extents)))
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], next)
	off := freelistRegionHeaderSize
	for _, e := range extents {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(e.addr))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(e.length))
		off += extentEncodedSize
	}
}

func decodeFreelistRegion(buf []byte) ([]extent, uint64) {
	count := int(binary.LittleEndian.Uint32(buf[0:4]))
	next := binary.LittleEndian.Uint64(buf[8:16])
	off := freelistRegionHeaderSize
	extents := make([]extent, 0, count)
	for i := 0; i < count; i++ {
		addr := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		length := int64(binary.LittleEndian.Uint64(buf[off+8 : off+16]))
		extents = append(extents, extent{addr: addr, length: length})
		off += extentEncodedSize
	}
	return extents, next
}
