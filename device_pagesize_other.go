//go:build !unix

package hamdb

// hostPageSize falls back to DefaultPageSize on platforms without a
// cheap native page-size query (spec §4.1, §11).
func hostPageSize() int {
	return DefaultPageSize
}
