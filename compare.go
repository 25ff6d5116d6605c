package hamdb

import "bytes"

// CompareFunc orders two full keys, returning a negative number, zero,
// or a positive number as a < b, a == b, or a > b (spec §4.6/§9). The
// default is byte-lexicographic order.
type CompareFunc func(a, b []byte) int

// PrefixCompareFunc orders a possibly truncated key prefix against a
// full key during descent. It returns the same three-valued result as
// CompareFunc, plus needFullKey = true when the prefix is not enough to
// decide and the caller must fall back to the full comparator (spec §9
// "model the prefix comparator's third outcome explicitly rather than
// overloading a two-valued result").
type PrefixCompareFunc func(prefix []byte, fullB []byte, prefixIsTruncated bool) (result int, needFullKey bool)

func defaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}

func defaultPrefixCompare(prefix []byte, fullB []byte, prefixIsTruncated bool) (int, bool) {
	n := len(prefix)
	if n > len(fullB) {
		n = len(fullB)
	}
	c := bytes.Compare(prefix[:n], fullB[:n])
	if c != 0 {
		return c, false
	}
	if len(prefix) == len(fullB) && !prefixIsTruncated {
		return 0, false
	}
	// Equal over the compared span but the prefix was truncated (or one
	// side is a strict extension of the other): the full key decides.
	return 0, true
}

// comparator bundles the two functions a database runs with; btree.go
// reaches both through compareEntry, which asks for the full key exactly
// when the prefix comparator says it needs it (spec §4.6).
type comparator struct {
	compare       CompareFunc
	prefixCompare PrefixCompareFunc
}

func newComparator(cmp CompareFunc, prefixCmp PrefixCompareFunc) comparator {
	if cmp == nil {
		cmp = defaultCompare
	}
	if prefixCmp == nil {
		prefixCmp = defaultPrefixCompare
	}
	return comparator{compare: cmp, prefixCompare: prefixCmp}
}

// compareEntry orders a search key against an index entry's stored key.
// It always asks the prefix comparator first, passing entryTruncated
// through, and calls the full comparator only when the prefix
// comparator reports needFullKey. btree.go always passes
// entryTruncated=false, since index pages store full keys.
func (c comparator) compareEntry(search []byte, entryKey []byte, entryTruncated bool) int {
	result, needFull := c.prefixCompare(entryKey, search, entryTruncated)
	if !needFull {
		return -result // prefix compare orders (prefix, full); invert to (search, entry)
	}
	return c.compare(search, entryKey)
}
