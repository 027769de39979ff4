package atmosphere

import "github.com/waycomp/compositor/internal/geom"

// This file implements the surface-tree/skiplist model (§4.4): a global
// front-to-back list of root windows reached from window-focus via
// skiplist-next, plus a parallel per-parent list of subsurfaces reached from
// top-child. skiplist-skip is left as a linear-scan no-op — see DESIGN.md's
// note on the "actually skip" open question.

// skiplistRemoveLocked splices w out of whichever list it belongs to. If w
// was the first child of a parent, its next sibling (if any) is promoted to
// top-child.
func (a *Atmosphere) skiplistRemoveLocked(w WindowID) {
	props, ok := a.windowLocked(w)
	if !ok {
		return
	}

	prev, hasPrev := props.SkiplistPrev.Get()
	next, hasNext := props.SkiplistNext.Get()

	if hasPrev {
		a.patches.setWindowField(prev, VarSkiplistNext, props.SkiplistNext)
	} else if parent, ok := props.ParentWindow.Get(); ok {
		// w was the head of its parent's subsurface list; promote next.
		a.patches.setWindowField(parent, VarTopChild, props.SkiplistNext)
	} else if focus, ok := a.globalLocked().WindowFocus.Get(); ok && focus == w {
		a.patches.setGlobal(VarWindowFocus, props.SkiplistNext)
	}

	if hasNext {
		a.patches.setWindowField(next, VarSkiplistPrev, props.SkiplistPrev)
	}

	a.patches.setWindowField(w, VarSkiplistNext, None[WindowID]())
	a.patches.setWindowField(w, VarSkiplistPrev, None[WindowID]())
}

// SkiplistRemoveWindow is the exported, locking entry point.
func (a *Atmosphere) SkiplistRemoveWindow(w WindowID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skiplistRemoveLocked(w)
}

// SkiplistPlaceAbove removes w, then links it immediately in front of
// target within target's list (root list if target is a root, target's
// parent's subsurface list otherwise).
func (a *Atmosphere) SkiplistPlaceAbove(w, target WindowID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skiplistRemoveLocked(w)
	a.linkBeforeLocked(w, target)
}

// SkiplistPlaceBelow removes w, then links it immediately behind target.
func (a *Atmosphere) SkiplistPlaceBelow(w, target WindowID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skiplistRemoveLocked(w)

	targetProps, ok := a.windowLocked(target)
	if !ok {
		return
	}
	if next, hasNext := targetProps.SkiplistNext.Get(); hasNext {
		a.linkBeforeLocked(w, next)
		return
	}
	// target is the tail: link w directly after it.
	a.patches.setWindowField(target, VarSkiplistNext, Some(w))
	a.patches.setWindowField(w, VarSkiplistPrev, Some(target))
	a.patches.setWindowField(w, VarSkiplistNext, None[WindowID]())
}

// linkBeforeLocked inserts w immediately in front of target, i.e. w becomes
// target's new predecessor and inherits target's old predecessor's slot.
func (a *Atmosphere) linkBeforeLocked(w, target WindowID) {
	targetProps, ok := a.windowLocked(target)
	if !ok {
		return
	}

	prev, hasPrev := targetProps.SkiplistPrev.Get()
	a.patches.setWindowField(w, VarSkiplistNext, Some(target))
	a.patches.setWindowField(w, VarSkiplistPrev, targetProps.SkiplistPrev)
	a.patches.setWindowField(target, VarSkiplistPrev, Some(w))

	if hasPrev {
		a.patches.setWindowField(prev, VarSkiplistNext, Some(w))
		return
	}

	// target used to be a head: w becomes the new head.
	if parent, ok := targetProps.ParentWindow.Get(); ok {
		a.patches.setWindowField(parent, VarTopChild, Some(w))
		return
	}
	if focus, ok := a.globalLocked().WindowFocus.Get(); ok && focus == target {
		a.patches.setGlobal(VarWindowFocus, Some(w))
	}
}

// FocusOn implements focus_on (§4.4). If w is a subsurface, only
// surface-focus changes (plus enter/leave delivered by the caller at the
// protocol layer). If w is a root window (or None), window-focus also
// changes, w is moved to the head of the root list, and a move-to-front
// task is enqueued for the renderer.
func (a *Atmosphere) FocusOn(w Option[WindowID]) {
	a.mu.Lock()

	id, hasID := w.Get()
	if !hasID {
		a.patches.setGlobal(VarWindowFocus, None[WindowID]())
		a.patches.setGlobal(VarSurfaceFocus, None[WindowID]())
		a.mu.Unlock()
		return
	}

	props, ok := a.windowLocked(id)
	if !ok {
		a.mu.Unlock()
		return
	}

	if _, isSub := props.ParentWindow.Get(); isSub {
		a.patches.setGlobal(VarSurfaceFocus, Some(id))
		a.mu.Unlock()
		return
	}

	oldHead, hadHead := a.globalLocked().WindowFocus.Get()

	if !hadHead || oldHead != id {
		a.skiplistRemoveLocked(id)
		if hadHead && oldHead != id {
			a.linkBeforeLocked(id, oldHead)
		}
	}

	a.patches.setGlobal(VarSurfaceFocus, Some(id))
	a.patches.setGlobal(VarWindowFocus, Some(id))
	a.mu.Unlock()

	a.AddWmTask(WmTask{Kind: TaskMoveToFront, Window: id})
}

// AddNewTopSubsurf implements add_new_top_subsurf (§4.4): sets parent/root
// links on w, inserts it at the head of parent's child list, and enqueues a
// new-subsurface task.
func (a *Atmosphere) AddNewTopSubsurf(parent, w WindowID) {
	a.mu.Lock()

	parentProps, ok := a.windowLocked(parent)
	if !ok {
		a.mu.Unlock()
		return
	}
	root := parent
	if r, ok := parentProps.RootWindow.Get(); ok {
		root = r
	}

	a.patches.setWindowField(w, VarParentWindow, Some(parent))
	a.patches.setWindowField(w, VarRootWindow, Some(root))

	if oldHead, ok := parentProps.TopChild.Get(); ok {
		a.patches.setWindowField(oldHead, VarSkiplistPrev, Some(w))
		a.patches.setWindowField(w, VarSkiplistNext, Some(oldHead))
	} else {
		a.patches.setWindowField(w, VarSkiplistNext, None[WindowID]())
	}
	a.patches.setWindowField(w, VarSkiplistPrev, None[WindowID]())
	a.patches.setWindowField(parent, VarTopChild, Some(w))
	a.mu.Unlock()

	a.AddWmTask(WmTask{Kind: TaskNewSubsurface, Window: w, ParentID: parent})
}

// MapInorderOnSurfs visits every root window and its subsurfaces,
// subsurfaces before their parent, front-most first: roots are walked from
// window-focus along skiplist-next, and each child list from top-child.
// Traversal stops as soon as f returns false.
func (a *Atmosphere) MapInorderOnSurfs(f func(WindowID) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	root, ok := a.globalLocked().WindowFocus.Get()
	if !ok {
		return
	}
	a.walkRootsInorderLocked(root, f)
}

func (a *Atmosphere) walkRootsInorderLocked(start WindowID, f func(WindowID) bool) bool {
	cur := start
	for {
		props, exists := a.windowLocked(cur)
		if !exists {
			return true
		}
		if !a.walkSubsurfsInorderLocked(props.TopChild, f) {
			return false
		}
		if !f(cur) {
			return false
		}
		next, hasNext := props.SkiplistNext.Get()
		if !hasNext {
			return true
		}
		cur = next
	}
}

func (a *Atmosphere) walkSubsurfsInorderLocked(head Option[WindowID], f func(WindowID) bool) bool {
	cur, ok := head.Get()
	if !ok {
		return true
	}
	for {
		props, exists := a.windowLocked(cur)
		if !exists {
			return true
		}
		if !a.walkSubsurfsInorderLocked(props.TopChild, f) {
			return false
		}
		if !f(cur) {
			return false
		}
		next, hasNext := props.SkiplistNext.Get()
		if !hasNext {
			return true
		}
		cur = next
	}
}

// MapOutOfOrderOnSurfs visits the parent before its subsurfaces, calling f
// with the window id and its cumulative surface offset (the sum of every
// ancestor's surface position plus its own). This is the traversal used to
// compute child offsets relative to the parent (§4.4) and by hit-testing.
func (a *Atmosphere) MapOutOfOrderOnSurfs(f func(WindowID, geom.Vec2) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	root, ok := a.globalLocked().WindowFocus.Get()
	if !ok {
		return
	}
	a.walkOutOfOrderLocked(root, geom.Vec2{}, f)
}

func (a *Atmosphere) walkOutOfOrderLocked(start WindowID, offset geom.Vec2, f func(WindowID, geom.Vec2) bool) bool {
	cur := start
	for {
		props, exists := a.windowLocked(cur)
		if !exists {
			return true
		}
		cumulative := offset.Add(props.SurfacePos)
		if !f(cur, cumulative) {
			return false
		}
		if child, ok := props.TopChild.Get(); ok {
			if !a.walkOutOfOrderLocked(child, cumulative, f) {
				return false
			}
		}
		next, hasNext := props.SkiplistNext.Get()
		if !hasNext {
			return true
		}
		cur = next
	}
}
