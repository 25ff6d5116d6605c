//go:build unix

package hamdb

import "golang.org/x/sys/unix"

// hostPageSize returns the OS's native page size, used to pick a sensible
// default page size when Options.PageSize is left at zero (spec §4.1,
// §11).
func hostPageSize() int {
	if n := unix.Getpagesize(); n > 0 {
		return n
	}
	return DefaultPageSize
}
