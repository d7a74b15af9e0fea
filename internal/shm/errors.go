package shm

import "errors"

// Region-level error sum. HAL calls and raw cgo status codes are wrapped
// into these at the package boundary — callers above internal/shm never
// see a raw errno.
var (
	// ErrAlreadyInUse is returned by Create when the region could not be
	// created after unlinking any region of the same name (shm_open with
	// O_EXCL or ftruncate failed). Create does not check whether another
	// process still writes to the old region, nor whether its shape matches.
	ErrAlreadyInUse = errors.New("shm: region already in use by another writer")

	// ErrNotFound is returned by Open when no such region exists after the
	// bounded retry window has elapsed.
	ErrNotFound = errors.New("shm: region not found")

	// ErrClosed is returned by operations attempted on a region handle
	// that has already been closed or destroyed.
	ErrClosed = errors.New("shm: region handle is closed")
)
