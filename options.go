package hamdb

import "go.uber.org/zap"

// Options configures a database at Create time (spec §6, §11). Open
// ignores PageSize/KeySize/Flags that conflict with what is already on
// disk; see DB.Open.
type Options struct {
	// PageSize is the on-disk page size in bytes. Zero picks the host's
	// native page size, falling back to DefaultPageSize.
	PageSize uint32

	// KeySize is the maximum key length in bytes; Find, Insert and Erase
	// reject an empty key or a longer one with ErrInvalidKeySize. Zero
	// picks DefaultKeySize.
	KeySize uint16

	// CacheCapacity is the resident page budget for the page cache.
	// Zero picks DefaultCacheCapacity.
	CacheCapacity int

	// Flags are the public flags of constants.go (ReadOnly, InMemory,
	// DisableVariableKeyLength).
	Flags uint32

	// Logger receives structured events (spec §10). Nil uses a no-op
	// logger.
	Logger *zap.Logger

	// Compare and PrefixCompare override the default byte-lexicographic
	// comparator (spec §4.6/§9). Either may be left nil to use the
	// default.
	Compare       CompareFunc
	PrefixCompare PrefixCompareFunc
}

func (o Options) withDefaults() Options {
	if o.PageSize == 0 {
		o.PageSize = uint32(hostPageSize())
	}
	if o.KeySize == 0 {
		o.KeySize = DefaultKeySize
	}
	if o.CacheCapacity == 0 {
		o.CacheCapacity = DefaultCacheCapacity
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// validate checks the page- and key-size bounds of spec §4.2/§9(c).
func (o Options) validate() error {
	if o.PageSize < minPageSize || o.PageSize > maxPageSize || o.PageSize%512 != 0 {
		return NewError(ErrInvalidPageSize)
	}
	maxKeySize := o.PageSize - pageHeaderSize - indexEntryHeaderSize
	if int(o.KeySize) <= 0 || o.KeySize > uint16(maxKeySize) {
		return NewError(ErrInvalidKeySize)
	}
	if o.Flags&ReadOnly != 0 && o.Flags&InMemory != 0 {
		return NewError(ErrInvalidParameter)
	}
	return nil
}
