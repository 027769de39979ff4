package vkcomp

import (
	"github.com/rs/zerolog"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// titlebarHeightFraction is the SSD bar size rule from §4.7 step 5: the
// server-side decoration titlebar is 2% of the output's current height.
const titlebarHeightFraction = 0.02

// DrawFunc is invoked once per frame with the window order (front-most first) and
// the cache to pull Images from, mirroring the onPrepare/onCleanup seam
// asche's Context leaves for the caller's own pipeline/render-pass code
// (SetOnPrepare/SetOnCleanup) rather than this package hard-coding a shader.
type DrawFunc func(order []atmosphere.WindowID, cache *ImageCache, acquired AcquiredImage) error

// Renderer runs the §4.7 per-frame window-manager loop: it owns the
// Hemisphere link (via atmo), the GPU image cache, and the swapchain
// coordinator, and drives exactly one renderer-side execution context
// (spec.md §5).
type Renderer struct {
	atmo   *atmosphere.Atmosphere
	device *Device
	cache  *ImageCache
	swap   *Swapchain
	cursor *Cursor
	draw   DrawFunc
	log    zerolog.Logger

	// order is the renderer-local window list, front-most first, rebuilt
	// from scratch every frame (step 4) from Atmosphere's inorder
	// traversal; it is not edited in place against the previous frame's
	// list.
	order []atmosphere.WindowID

	// pendingRelease is drained and called at the start of every frame
	// (step 1). Nothing in this package appends to it: buffer releases
	// happen in ImageCache when an image is replaced or evicted.
	pendingRelease []func()
}

// NewRenderer wires the renderer-side Atmosphere to a Device and an
// already-provisioned swapchain.
func NewRenderer(atmo *atmosphere.Atmosphere, device *Device, swap *Swapchain, cursor *Cursor, draw DrawFunc, log zerolog.Logger) *Renderer {
	return &Renderer{
		atmo:   atmo,
		device: device,
		cache:  NewImageCache(device.Device(), log),
		swap:   swap,
		cursor: cursor,
		draw:   draw,
		log:    log.With().Str("component", "vkcomp.wm").Logger(),
	}
}

// Frame runs one iteration of §4.7's nine-step algorithm.
func (r *Renderer) Frame() error {
	// 1. Release resources pinned by the previous frame.
	r.releasePinned()

	// 2. Flip hemispheres, blocking until the protocol side hands one back.
	if err := r.atmo.FlipHemispheres(); err != nil {
		return err
	}

	// 3. Drain WmTasks and dispatch each by kind.
	for _, task := range r.atmo.DrainWmTasks() {
		r.applyTask(task)
	}

	// 4. Rebuild the renderer surface list from Atmosphere's current
	// inorder traversal.
	r.order = r.diffOrder(r.order)

	// 5 & 6. Per-window position/size/SSD-bar update, then cursor position.
	r.updateGeometry()

	// 7. Submit for drawing.
	acquired, err := r.swap.GetNextSwapchainImage()
	if err != nil {
		return err
	}
	if r.draw != nil {
		if err := r.draw(r.order, r.cache, acquired); err != nil {
			return err
		}
	}
	if err := r.swap.Present(acquired.Semaphore); err != nil {
		return err
	}

	// 8. Release this frame's damage.
	r.atmo.ResetConsumables()

	// 9. Reap windows that were closed this frame.
	r.reapDead()

	return nil
}

func (r *Renderer) applyTask(task atmosphere.WmTask) {
	switch task.Kind {
	case atmosphere.TaskUpdateContentsFromMem, atmosphere.TaskUpdateContentsFromDmabuf:
		r.cache.Apply(r.device.PhysicalDevice(), task)
	case atmosphere.TaskCloseWindow:
		r.cache.Apply(r.device.PhysicalDevice(), task)
	case atmosphere.TaskSetCursor:
		if id, ok := task.CursorID.Get(); ok {
			r.cursor.Set(id, r.cache)
		}
	case atmosphere.TaskResetCursor:
		r.cursor.Reset()
	case atmosphere.TaskNewToplevel:
		r.cache.CreateDecoration(task.Window)
	case atmosphere.TaskMoveToFront, atmosphere.TaskNewSubsurface,
		atmosphere.TaskPlaceSubsurfaceAbove, atmosphere.TaskPlaceSubsurfaceBelow:
		// Structural bookkeeping: the skiplist itself was already updated
		// on the protocol side via patches, so step 4's diff against
		// MapInorderOnSurfs is what actually moves these windows in the
		// renderer's paint order. These cases exist so the switch
		// enumerates every WmTaskKind explicitly (§9's "no silent default
		// over a closed sum type" convention).
	}
}

// diffOrder rebuilds the window order (front-most first) from Atmosphere's
// current inorder traversal into a newly allocated slice on every call;
// prev only sets the new slice's capacity and is not diffed against.
func (r *Renderer) diffOrder(prev []atmosphere.WindowID) []atmosphere.WindowID {
	next := make([]atmosphere.WindowID, 0, len(prev))
	r.atmo.MapInorderOnSurfs(func(w atmosphere.WindowID) bool {
		next = append(next, w)
		return true
	})
	return next
}

// updateGeometry applies steps 5 and 6: each toplevel's SSD titlebar is
// sized to 2% of the current output height, and the cursor surface (if one
// is set) is positioned at the current pointer location.
func (r *Renderer) updateGeometry() {
	res := r.atmo.GetResolution()
	titlebar := res.Y * titlebarHeightFraction

	const buttonSize = 16

	for _, w := range r.order {
		if !r.atmo.IsToplevel(w) {
			continue
		}
		// The surface occupies the window rect below the SSD titlebar
		// strip; the titlebar itself is drawn by the compositor, not the
		// client, so it isn't part of WindowProps.SurfaceSize.
		r.atmo.SetSurfacePos(w, geom.Vec2{X: 0, Y: titlebar})

		if dec, ok := r.cache.Decoration(w); ok {
			size := r.atmo.GetWindowSize(w)
			dec.TitleBar = geom.NewRect(0, 0, size.X, titlebar)
			dec.Button = geom.NewRect(size.X-buttonSize-4, (titlebar-buttonSize)/2, buttonSize, buttonSize)
		}
	}

	if r.cursor != nil {
		r.cursor.UpdatePosition(r.atmo.GetCursorPos())
	}
}

// reapDead evicts cache entries for windows Atmosphere no longer considers
// live, and drops them from the renderer's paint order. A window is dead
// once Window() reports it missing (freed by FreeWindowID on the protocol
// side and replayed into this hemisphere).
func (r *Renderer) reapDead() {
	live := r.order[:0]
	for _, w := range r.order {
		if _, ok := r.atmo.Window(w); ok {
			live = append(live, w)
			continue
		}
		r.cache.Evict(w)
	}
	r.order = live
}

func (r *Renderer) releasePinned() {
	for _, release := range r.pendingRelease {
		if release != nil {
			release()
		}
	}
	r.pendingRelease = r.pendingRelease[:0]
}
