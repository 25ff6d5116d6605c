package hamdb

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorCode is one of the fixed status codes from spec §7.
type ErrorCode int

// Error codes. Success is always zero; every other code is negative, in
// the style of the source this engine was distilled from.
const (
	// Success indicates the operation completed without error.
	Success ErrorCode = 0

	// ErrShortRead indicates a device read returned fewer than n bytes.
	ErrShortRead ErrorCode = -1

	// ErrShortWrite indicates a device write wrote fewer than n bytes.
	ErrShortWrite ErrorCode = -2

	// ErrInvalidKeySize indicates a key is empty or longer than the
	// configured key size, or that Options.KeySize is out of bounds.
	ErrInvalidKeySize ErrorCode = -3

	// ErrInvalidPageSize indicates a page size outside [minPageSize,
	// maxPageSize] or not a multiple of 512.
	ErrInvalidPageSize ErrorCode = -4

	// ErrDBAlreadyOpen indicates Open/Create was called on a handle that
	// already owns an open device.
	ErrDBAlreadyOpen ErrorCode = -5

	// ErrOutOfMemory indicates an allocation failed.
	ErrOutOfMemory ErrorCode = -6

	// ErrInvalidBackend indicates an unrecognised storage backend.
	ErrInvalidBackend ErrorCode = -7

	// ErrInvalidParameter indicates a caller-supplied argument is
	// malformed or not legal for this operation (e.g. Open with
	// InMemory).
	ErrInvalidParameter ErrorCode = -8

	// ErrInvalidFileHeader indicates the magic preamble did not match.
	ErrInvalidFileHeader ErrorCode = -9

	// ErrInvalidFileVersion indicates the {major,minor} version pair did
	// not match the version this library can read.
	ErrInvalidFileVersion ErrorCode = -10

	// ErrKeyNotFound indicates no entry matches the requested key.
	ErrKeyNotFound ErrorCode = -11

	// ErrDuplicateKey indicates Insert found an existing entry and the
	// Overwrite flag was not set.
	ErrDuplicateKey ErrorCode = -12

	// ErrIntegrityViolated indicates CheckIntegrity found a structural
	// inconsistency. Fatal: the database must be closed and reopened.
	ErrIntegrityViolated ErrorCode = -13

	// ErrInternal indicates an invariant was violated that the engine
	// itself should never be able to produce.
	ErrInternal ErrorCode = -14

	// ErrDBReadOnly indicates a mutation was attempted on a database
	// opened with ReadOnly.
	ErrDBReadOnly ErrorCode = -15

	// ErrBlobNotFound indicates a record identifier pointed at a blob
	// page that does not exist or is malformed.
	ErrBlobNotFound ErrorCode = -16

	// errPrefixRequestFullKey names the comparator sentinel (spec §4.6,
	// §9). It is never returned from any operation: the prefix
	// comparator signals the same condition through its needFullKey
	// result, so this code only has a Strerror entry.
	errPrefixRequestFullKey ErrorCode = -17
)

var errorMessages = map[ErrorCode]string{
	Success:                 "success",
	ErrShortRead:            "short read",
	ErrShortWrite:           "short write",
	ErrInvalidKeySize:       "invalid key size",
	ErrInvalidPageSize:      "invalid page size",
	ErrDBAlreadyOpen:        "database already open",
	ErrOutOfMemory:          "out of memory",
	ErrInvalidBackend:       "invalid backend",
	ErrInvalidParameter:     "invalid parameter",
	ErrInvalidFileHeader:    "invalid file header",
	ErrInvalidFileVersion:   "invalid file version",
	ErrKeyNotFound:          "key not found",
	ErrDuplicateKey:         "duplicate key",
	ErrIntegrityViolated:    "integrity violated",
	ErrInternal:             "internal error",
	ErrDBReadOnly:           "database opened read-only",
	ErrBlobNotFound:         "blob not found",
	errPrefixRequestFullKey: "prefix comparator requests full key",
}

// Strerror returns the fixed human-readable string for an error code.
func Strerror(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "unknown error"
}

// Error is the error type returned by every hamdb operation. It always
// carries a code from the fixed taxonomy; when the failure originated
// below the engine (device I/O), Cause holds the wrapped OS error so
// callers can still inspect it via errors.Unwrap/pkgerrors.Cause.
type Error struct {
	Code  ErrorCode
	Cause error
}

// NewError builds an Error with no underlying cause.
func NewError(code ErrorCode) *Error {
	return &Error{Code: code}
}

// WrapError builds an Error that wraps an underlying cause with
// github.com/pkg/errors, preserving it in the error chain.
func WrapError(code ErrorCode, cause error) *Error {
	if cause == nil {
		return NewError(code)
	}
	return &Error{Code: code, Cause: pkgerrors.Wrap(cause, Strerror(code))}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hamdb: %s: %v", Strerror(e.Code), e.Cause)
	}
	return fmt.Sprintf("hamdb: %s", Strerror(e.Code))
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As and, through
// pkg/errors, to pkgerrors.Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// GetError extracts the ErrorCode from an error returned by this
// package (spec §6 "get_error"), or ErrInternal if err did not
// originate here.
func GetError(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var he *Error
	if asError(err, &he) {
		return he.Code
	}
	return ErrInternal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if he, ok := err.(*Error); ok {
			*target = he
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
