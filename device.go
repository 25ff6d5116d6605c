package hamdb

import (
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
)

// device is the byte-addressable persistent store a database sits on
// (spec §4.1). It wraps either an OS file descriptor or an in-memory
// buffer; no buffering beyond what the OS provides.
type device interface {
	// readAt reads exactly len(buf) bytes starting at off, or returns
	// ErrShortRead.
	readAt(off int64, buf []byte) error

	// writeAt writes exactly len(buf) bytes starting at off, or returns
	// ErrShortWrite.
	writeAt(off int64, buf []byte) error

	// size returns the current device length in bytes.
	size() (int64, error)

	// truncate extends or shrinks the device to exactly n bytes.
	truncate(n int64) error

	// sync flushes any OS-level buffering to stable storage.
	sync() error

	// close releases the device's resources.
	close() error
}

// fileDevice is a device backed by an *os.File.
type fileDevice struct {
	f *os.File
}

// openFileDevice opens an existing file for the device. In-memory
// databases never reach here: Open rejects the InMemory flag before
// opening a device, since they cannot be reopened (spec §4.1).
func openFileDevice(path string, readOnly bool) (*fileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, WrapError(ErrInvalidParameter, err)
	}
	return &fileDevice{f: f}, nil
}

// createFileDevice creates (or truncates) the file backing the device.
func createFileDevice(path string, mode os.FileMode) (*fileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return nil, WrapError(ErrInvalidParameter, err)
	}
	return &fileDevice{f: f}, nil
}

func (d *fileDevice) readAt(off int64, buf []byte) error {
	n, err := d.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return WrapError(ErrShortRead, err)
	}
	if n != len(buf) {
		return WrapError(ErrShortRead, pkgerrors.Errorf("read %d of %d bytes at offset %d", n, len(buf), off))
	}
	return nil
}

func (d *fileDevice) writeAt(off int64, buf []byte) error {
	n, err := d.f.WriteAt(buf, off)
	if err != nil {
		return WrapError(ErrShortWrite, err)
	}
	if n != len(buf) {
		return WrapError(ErrShortWrite, pkgerrors.Errorf("wrote %d of %d bytes at offset %d", n, len(buf), off))
	}
	return nil
}

func (d *fileDevice) size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, WrapError(ErrInvalidParameter, err)
	}
	return fi.Size(), nil
}

func (d *fileDevice) truncate(n int64) error {
	if err := d.f.Truncate(n); err != nil {
		return WrapError(ErrInvalidParameter, err)
	}
	return nil
}

func (d *fileDevice) sync() error {
	if err := d.f.Sync(); err != nil {
		return WrapError(ErrInvalidParameter, err)
	}
	return nil
}

func (d *fileDevice) close() error {
	if err := d.f.Close(); err != nil {
		return WrapError(ErrInvalidParameter, err)
	}
	return nil
}

// memoryDevice is a device backed by a growable in-process byte slice.
// Legal only for Create (spec §4.1); Open on an in-memory database is
// meaningless because there is nothing on disk to reopen.
type memoryDevice struct {
	buf []byte
}

func newMemoryDevice() *memoryDevice {
	return &memoryDevice{}
}

func (d *memoryDevice) readAt(off int64, buf []byte) error {
	if off < 0 || off+int64(len(buf)) > int64(len(d.buf)) {
		return WrapError(ErrShortRead, pkgerrors.Errorf("read past end of in-memory device at offset %d", off))
	}
	copy(buf, d.buf[off:off+int64(len(buf))])
	return nil
}

func (d *memoryDevice) writeAt(off int64, buf []byte) error {
	end := off + int64(len(buf))
	if end > int64(len(d.buf)) {
		grown := make([]byte, end)
		copy(grown, d.buf)
		d.buf = grown
	}
	copy(d.buf[off:end], buf)
	return nil
}

func (d *memoryDevice) size() (int64, error) {
	return int64(len(d.buf)), nil
}

func (d *memoryDevice) truncate(n int64) error {
	if n <= int64(len(d.buf)) {
		d.buf = d.buf[:n]
		return nil
	}
	grown := make([]byte, n)
	copy(grown, d.buf)
	d.buf = grown
	return nil
}

func (d *memoryDevice) sync() error { return nil }

func (d *memoryDevice) close() error {
	d.buf = nil
	return nil
}
