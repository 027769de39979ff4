package vkcomp

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/waycomp/compositor/internal/werr"
)

// vkError wraps a raw vk.Result so callers get both the Vulkan return code
// (for logging) and an errors.Is-compatible werr category (for control
// flow), matching the error taxonomy the rest of the compositor uses (§7).
type vkError struct {
	result vk.Result
	werr   error
}

func (e *vkError) Error() string {
	return fmt.Sprintf("vkcomp: %s (%d)", e.werr, e.result)
}

func (e *vkError) Unwrap() error { return e.werr }

// newVkError classifies a non-Success vk.Result against the categories
// spec.md §4.8's swapchain coordinator distinguishes: OUT_OF_DATE and
// SUBOPTIMAL must surface as recreate-worthy, NOT_READY/TIMEOUT as
// retry-worthy, everything else as Fatal.
func newVkError(ret vk.Result) error {
	switch ret {
	case vk.ErrorOutOfDate:
		return &vkError{result: ret, werr: werr.OutOfDate}
	case vk.Suboptimal:
		return &vkError{result: ret, werr: werr.OutOfDate}
	case vk.NotReady:
		return &vkError{result: ret, werr: werr.NotReady}
	case vk.Timeout:
		return &vkError{result: ret, werr: werr.Timeout}
	default:
		return &vkError{result: ret, werr: werr.Fatal}
	}
}
