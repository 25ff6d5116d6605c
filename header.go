package hamdb

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// headerAddr is the byte address of the header page: always zero (spec
// §3 "a page's address is 0 iff it is the header page").
const headerAddr int64 = 0

// dbHeaderOffset is where the database header struct begins, right after
// the 12-byte {magic,version,serial} preamble (spec §6, §9 open question
// (b)).
const dbHeaderOffset = preambleSize

// dbHeaderSize is sizeof({flags,pagesize,keysize,root_page}): 4+4+2+8.
const dbHeaderSize = 18

// fileHeader is the database header struct described in spec §3/§6. It
// is read from and written to the header page's payload at
// dbHeaderOffset; everything past it, to the end of the page, is the
// inline freelist payload (freelist.go).
type fileHeader struct {
	flags    uint32
	pageSize uint32
	keySize  uint16
	rootPage uint64
}

// writePreamble stamps the magic, version, and a fresh serial number into
// the first 12 bytes of the header page. Called once, on Create.
func writePreamble(p *page) {
	binary.LittleEndian.PutUint32(p.data[0:4], magic)
	p.data[4] = fileMajorVersion
	p.data[5] = fileMinorVersion
	p.data[6] = 0 // revision
	p.data[7] = 0 // reserved
	binary.LittleEndian.PutUint32(p.data[8:12], newSerial())
}

// newSerial derives an opaque 32-bit instance identifier from a random
// UUID (spec §3: "purely as an opaque instance identifier"). It carries
// no ordering meaning and is never interpreted by the engine.
func newSerial() uint32 {
	id := uuid.New()
	b := id[:]
	return binary.LittleEndian.Uint32(b[0:4])
}

// checkPreamble validates the magic and {major,minor} version pair read
// from an existing header page (spec §4.2). Returns the specific fatal
// error so the facade can translate it without re-deriving it.
func checkPreamble(p *page) error {
	if binary.LittleEndian.Uint32(p.data[0:4]) != magic {
		return NewError(ErrInvalidFileHeader)
	}
	if p.data[4] != fileMajorVersion || p.data[5] != fileMinorVersion {
		return NewError(ErrInvalidFileVersion)
	}
	return nil
}

// readFileHeader decodes the database header struct from the header
// page's payload.
func readFileHeader(p *page) fileHeader {
	d := p.data[dbHeaderOffset:]
	return fileHeader{
		flags:    binary.LittleEndian.Uint32(d[0:4]),
		pageSize: binary.LittleEndian.Uint32(d[4:8]),
		keySize:  binary.LittleEndian.Uint16(d[8:10]),
		rootPage: binary.LittleEndian.Uint64(d[10:18]),
	}
}

// writeFileHeader encodes h into the header page's payload, leaving the
// preamble and the inline freelist region untouched.
func writeFileHeader(p *page, h fileHeader) {
	d := p.data[dbHeaderOffset:]
	binary.LittleEndian.PutUint32(d[0:4], h.flags)
	binary.LittleEndian.PutUint32(d[4:8], h.pageSize)
	binary.LittleEndian.PutUint16(d[8:10], h.keySize)
	binary.LittleEndian.PutUint64(d[10:18], h.rootPage)
	p.markDirty()
}

// freelistPayloadOffset is where the inline freelist region begins, right
// after the database header struct.
const freelistPayloadOffset = dbHeaderOffset + dbHeaderSize
