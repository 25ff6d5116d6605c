package hamdb

import "go.uber.org/zap"

// Structured logging event names (spec §10). Kept as constants so
// log call sites and any future log-scraping stay in sync.
const (
	evOpen            = "db_open"
	evCreate          = "db_create"
	evClose           = "db_close"
	evFlush           = "db_flush"
	evCacheEvict      = "cache_evict"
	evFreelistExtend  = "freelist_extend"
	evBTreeSplit      = "btree_split"
	evBTreeMerge      = "btree_merge"
	evIntegrityFailed = "integrity_check_failed"
)

// logOpen/logCreate/logClose record facade lifecycle transitions at
// info level (spec §10: "lifecycle events are info; everything on the
// hot path is debug").
func (db *DB) logOpen(path string) {
	db.logger.Info(evOpen, zap.String("path", path), zap.Uint32("page_size", db.header.pageSize))
}

func (db *DB) logCreate(path string) {
	db.logger.Info(evCreate, zap.String("path", path), zap.Uint32("page_size", db.header.pageSize))
}

func (db *DB) logClose(path string) {
	db.logger.Info(evClose, zap.String("path", path))
}

func (db *DB) logFlush() {
	db.logger.Debug(evFlush)
}

func (db *DB) logSplit(level uint8) {
	db.logger.Debug(evBTreeSplit, zap.Uint8("level", level))
}

func (db *DB) logMerge(level uint8) {
	db.logger.Debug(evBTreeMerge, zap.Uint8("level", level))
}

// logIntegrityFailure is warn-level: it always indicates a bug or a
// corrupted file, never an expected condition (spec §10).
func (db *DB) logIntegrityFailure(reason string, err error) {
	db.logger.Warn(evIntegrityFailed, zap.String("reason", reason), zap.Error(err))
}
