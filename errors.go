package compositor

import "github.com/waycomp/compositor/internal/werr"

// Sentinel errors re-exported from internal/werr (§7) for callers outside
// this module, which cannot import an internal package directly. Check
// these with errors.Is against whatever New or Run returned.
var (
	// ErrNotFound means a referenced id no longer exists.
	ErrNotFound = werr.NotFound

	// ErrInvalid means a request was malformed or violated a protocol
	// invariant.
	ErrInvalid = werr.Invalid

	// ErrOutOfDate means a serial, generation, or swapchain no longer
	// matches current state.
	ErrOutOfDate = werr.OutOfDate

	// ErrNotReady means the operation can't proceed yet.
	ErrNotReady = werr.NotReady

	// ErrTimeout means a bounded wait expired.
	ErrTimeout = werr.Timeout

	// ErrFatal means the compositor cannot continue running and the
	// process should exit; New and Run return errors wrapping this for any
	// unrecoverable startup or runtime failure.
	ErrFatal = werr.Fatal

	// ErrBufferImportFailed means a dmabuf or shm buffer could not be
	// imported into a GPU image.
	ErrBufferImportFailed = werr.BufferImportFailed
)
