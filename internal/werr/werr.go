// Package werr defines the compositor's error taxonomy (§7): a small set of
// sentinel categories every fallible operation maps its failure onto, so
// callers can branch with errors.Is instead of string matching.
package werr

import "errors"

// Sentinel categories. Wrap one of these with fmt.Errorf("...: %w", sentinel)
// to add context while keeping errors.Is(err, werr.X) true.
var (
	// NotFound means the referenced id (window, object, global) doesn't
	// exist, usually because it was already destroyed.
	NotFound = errors.New("werr: not found")

	// Invalid means the caller's request is malformed or violates a
	// protocol invariant (double role assignment, bad enum value).
	Invalid = errors.New("werr: invalid")

	// OutOfDate means a serial, generation, or swapchain no longer matches
	// the current state (stale ack_configure, stale swapchain image).
	OutOfDate = errors.New("werr: out of date")

	// NotReady means the operation can't proceed yet, not that it failed
	// (no frame available, device not yet selected).
	NotReady = errors.New("werr: not ready")

	// Timeout means a bounded wait (fence, acquire) expired.
	Timeout = errors.New("werr: timeout")

	// Fatal means the compositor cannot continue running (lost device, no
	// DRM node, socket bind failure) and the process should exit.
	Fatal = errors.New("werr: fatal")

	// BufferImportFailed means a dmabuf or shm buffer could not be
	// imported into a GPU image (§4.11).
	BufferImportFailed = errors.New("werr: buffer import failed")
)
