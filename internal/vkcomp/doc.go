// Package vkcomp is the renderer side of the compositor (SPEC_FULL.md §4.7,
// §4.8, §4.11): it owns the Vulkan device and swapchain, a GPU image cache
// keyed by atmosphere window id, and the per-frame window-manager loop that
// turns a drained Hemisphere into draw calls.
//
// Everything here runs on the renderer's execution context (spec.md §5): it
// is the only goroutine that touches the Vulkan device, and it is the only
// consumer of the Hemisphere the protocol side hands across the Link.
package vkcomp

import vk "github.com/vulkan-go/vulkan"

// checkResult turns a raw vk.Result into a Go error, following the same
// "check every call" discipline asche's checkErr/orPanic pair use, without
// asche's package-level panic — a renderer failure here must propagate to
// the caller so it can be classified against werr (§7) instead of crashing
// the process.
func checkResult(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return newVkError(ret)
}
