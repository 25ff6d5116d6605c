package hamdb

import "fmt"

// Library version constants.
const (
	Major = 0
	Minor = 1
	Patch = 0
)

// fileMajorVersion and fileMinorVersion are the on-disk format version
// written into the header preamble (spec §6) and checked on Open. A
// mismatch on either is fatal (invalid-file-version).
const (
	fileMajorVersion uint8 = 1
	fileMinorVersion uint8 = 0
)

// Version returns the library's semantic version string.
func Version() string {
	return fmt.Sprintf("hamdb %d.%d.%d", Major, Minor, Patch)
}
