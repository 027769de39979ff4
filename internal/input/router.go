// Package input implements the input router (§4.9): pointer hit-testing,
// grab/resize handling, and keyboard modifier tracking, all funneled through
// a single Atmosphere so the protocol side never touches renderer state
// directly.
package input

import (
	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// Dispatcher is implemented by the protocol-side resource that owns a
// client's wl_pointer/wl_keyboard object namespace; Router calls back into
// it to actually write wire events once it has decided what happened.
type Dispatcher interface {
	PointerEnter(win atmosphere.WindowID, local geom.Vec2, serial uint32)
	PointerLeave(win atmosphere.WindowID, serial uint32)
	PointerMotion(win atmosphere.WindowID, local geom.Vec2, timeMs uint32)
	PointerButton(win atmosphere.WindowID, button uint32, pressed bool, serial, timeMs uint32)
	PointerAxis(win atmosphere.WindowID, horizontal, vertical float32, timeMs uint32)
	KeyboardModifiers(win atmosphere.WindowID, depressed, latched, locked, group uint32, serial uint32)
	KeyboardKey(win atmosphere.WindowID, key uint32, pressed bool, serial, timeMs uint32)
}

// resizeAccumulator batches pointer-motion deltas while a resize grab is
// active, flushed as a single toplevel configure at end-of-frame (§4.9).
type resizeAccumulator struct {
	active bool
	window atmosphere.WindowID
	edge   geom.Edge
	delta  geom.Vec2
}

// Router is the single-seat input state machine (§4.9): one pointer focus,
// one keyboard focus (which may differ), one key-modifier state, one
// in-flight resize accumulation.
type Router struct {
	a    *atmosphere.Atmosphere
	d    Dispatcher
	keys Keyboard

	pointerFocus atmosphere.Option[atmosphere.WindowID]
	serial       uint32

	resize resizeAccumulator
}

// NewRouter creates a Router bound to Atmosphere a, delivering decoded
// events to d.
func NewRouter(a *atmosphere.Atmosphere, d Dispatcher) *Router {
	return &Router{a: a, d: d}
}

func (r *Router) nextSerial() uint32 {
	r.serial++
	return r.serial
}

// PointerMotion implements §4.9's motion behaviour: grabbed windows move
// with the pointer, resizes accumulate a diff, otherwise hit-testing drives
// enter/leave/motion delivery.
func (r *Router) PointerMotion(pt geom.Vec2, timeMs uint32) {
	prev := r.a.GetCursorPos()
	r.a.SetCursorPos(pt)
	delta := pt.Sub(prev)

	if grabbed, ok := r.a.GetGrabbed().Get(); ok {
		pos := r.a.GetWindowPos(grabbed)
		r.a.SetWindowPos(grabbed, pos.Add(delta))
		return
	}

	if resizing, ok := r.a.GetResizing().Get(); ok {
		r.resize.active = true
		r.resize.window = resizing
		r.resize.delta = r.resize.delta.Add(delta)
		return
	}

	hit, local, ok := r.a.FindWindowWithInputAt(pt)
	if !ok {
		r.clearPointerFocus()
		return
	}

	if old, hadFocus := r.pointerFocus.Get(); !hadFocus || old != hit {
		if hadFocus {
			r.d.PointerLeave(old, r.nextSerial())
		}
		r.pointerFocus = atmosphere.Some(hit)
		r.d.PointerEnter(hit, local, r.nextSerial())
	}

	r.d.PointerMotion(hit, local, timeMs)
}

func (r *Router) clearPointerFocus() {
	if old, ok := r.pointerFocus.Get(); ok {
		r.d.PointerLeave(old, r.nextSerial())
		r.pointerFocus = atmosphere.None[atmosphere.WindowID]()
	}
}

// PointerButton implements §4.9's button behaviour: title-bar press
// (re)focuses and starts a grab; edge press starts a resize; otherwise the
// button is delivered to the currently focused surface.
func (r *Router) PointerButton(button uint32, pressed bool, timeMs uint32) {
	win, hasFocus := r.pointerFocus.Get()
	if !hasFocus {
		return
	}

	pt := r.a.GetCursorPos().Sub(r.a.GetWindowPos(win))

	if pressed {
		if edge := r.a.PointIsOnWindowEdge(win, pt); edge != geom.EdgeNone {
			r.a.SetResizing(atmosphere.Some(win))
			r.resize = resizeAccumulator{active: true, window: win, edge: edge}
			return
		}
		if r.a.PointIsOnTitlebar(win, pt) {
			if focus, ok := r.a.GetWindowFocus().Get(); !ok || focus != win {
				r.a.FocusOn(atmosphere.Some(win))
			}
			r.a.SetGrabbed(atmosphere.Some(win))
			return
		}
	} else {
		if _, ok := r.a.GetGrabbed().Get(); ok {
			r.a.SetGrabbed(atmosphere.None[atmosphere.WindowID]())
		}
		if _, ok := r.a.GetResizing().Get(); ok {
			r.flushResize()
		}
	}

	r.d.PointerButton(win, button, pressed, r.nextSerial(), timeMs)
}

// flushResize implements §4.9's end-of-frame resize flush: the accumulated
// delta becomes a single toplevel size change instead of one per motion
// event.
func (r *Router) flushResize() {
	if !r.resize.active {
		return
	}
	win := r.resize.window
	size := r.a.GetWindowSize(win)
	r.a.SetWindowSize(win, size.Add(r.resize.delta))
	r.a.SetResizing(atmosphere.None[atmosphere.WindowID]())
	r.resize = resizeAccumulator{}
}

// EndFrame flushes any pending resize accumulation; called once per render
// frame by the owning context (§4.9 "end-of-frame").
func (r *Router) EndFrame() {
	r.flushResize()
}

// AxisSource mirrors wl_pointer.axis_source.
type AxisSource uint32

const (
	AxisSourceWheel AxisSource = iota
	AxisSourceFinger
)

// PointerAxis implements §4.9's axis behaviour: deliver to the focused
// surface, or nothing if unfocused.
func (r *Router) PointerAxis(horizontal, vertical float32, timeMs uint32) {
	win, ok := r.pointerFocus.Get()
	if !ok {
		return
	}
	r.d.PointerAxis(win, horizontal, vertical, timeMs)
}

// KeyboardFocus reports the window currently receiving keyboard events,
// which is Atmosphere's window-focus (distinct from pointer focus; §4.9).
func (r *Router) KeyboardFocus() (atmosphere.WindowID, bool) {
	return r.a.GetWindowFocus().Get()
}

// KeyEvent implements §4.9's keyboard behaviour: modifier changes are
// reported before the raw key, both addressed to window-focus.
func (r *Router) KeyEvent(key uint32, pressed bool, timeMs uint32, modsChanged bool, depressed, latched, locked, group uint32) {
	win, ok := r.KeyboardFocus()
	if !ok {
		return
	}
	if modsChanged {
		r.d.KeyboardModifiers(win, depressed, latched, locked, group, r.nextSerial())
	}
	r.keys.Update(key, pressed)
	r.d.KeyboardKey(win, key, pressed, r.nextSerial(), timeMs)
}
