package atmosphere

import (
	"sync"

	"github.com/waycomp/compositor/internal/geom"
)

// Atmosphere is the double-buffered ECS (§4.3): it owns at most one
// Hemisphere at a time, a patch log of writes not yet visible to the peer,
// and the id free-lists. Exactly one Atmosphere instance exists per
// subsystem (protocol side, renderer side); the two are wired together by
// crossing each other's Link channels so a Hemisphere ping-pongs between
// them (§5).
type Atmosphere struct {
	mu sync.Mutex

	current *Hemisphere
	patches *patchLog

	clientIDs idAllocator
	windowIDs idAllocator

	out chan<- *Hemisphere
	in  <-chan *Hemisphere

	// pendingTasks holds AddWmTask calls made while no hemisphere is held
	// (the window between a send and the matching recv); they are flushed
	// onto the hemisphere as soon as one is received.
	pendingTasks []WmTask
}

// Link is a pair of channels wiring two Atmosphere instances together so a
// single Hemisphere passes back and forth between them. NewLinkedPair
// constructs both ends from one pair of channels.
type Link struct {
	AToB chan *Hemisphere
	BToA chan *Hemisphere
}

// NewLink allocates the channel pair used by NewLinkedPair. Capacity 1
// matches the single-Hemisphere-in-flight model (§5): there is never more
// than one Hemisphere in transit in either direction.
func NewLink() Link {
	return Link{
		AToB: make(chan *Hemisphere, 1),
		BToA: make(chan *Hemisphere, 1),
	}
}

// NewLinkedPair builds the protocol-side and renderer-side Atmosphere
// instances, wired so a Send on one side is a Recv on the other, and seeds
// the protocol side with ownership of a fresh Hemisphere (the "initial
// owner" — by convention the protocol side starts each run holding the
// baton, since the renderer cannot draw anything before the first commit).
func NewLinkedPair(l Link) (protocolSide, rendererSide *Atmosphere) {
	protocolSide = newAtmosphere(l.AToB, l.BToA)
	rendererSide = newAtmosphere(l.BToA, l.AToB)
	protocolSide.current = NewHemisphere()
	return protocolSide, rendererSide
}

func newAtmosphere(out chan<- *Hemisphere, in <-chan *Hemisphere) *Atmosphere {
	return &Atmosphere{
		patches: newPatchLog(),
		out:     out,
		in:      in,
	}
}

// ErrChannelClosed is returned by RecvHemisphere/TryFlipHemispheres when the
// peer has gone away.
// Per §7 this is Fatal: the other side has died.
type errChannelClosed struct{}

func (errChannelClosed) Error() string { return "atmosphere: hemisphere channel closed" }

// ErrChannelClosed is the sentinel for a dead peer (§4.3 "channel send/recv
// failure is fatal").
var ErrChannelClosed error = errChannelClosed{}

// MintClientID allocates a client, marks it in-use, and schedules the patch
// that creates it in the next hemisphere replay (§4.3).
func (a *Atmosphere) MintClientID() ClientID {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := ClientID(a.clientIDs.mint())
	a.patches.createClient(id)
	return id
}

// MintWindowID allocates a window owned by client, initialises its
// invariants (owner, in-use, zero geometry, no skiplist links; §3
// Lifecycle), and appends it to the owner's window list.
func (a *Atmosphere) MintWindowID(owner ClientID) WindowID {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := WindowID(a.windowIDs.mint())
	a.patches.createWindow(id, freshWindow(owner))

	windows := a.getClientWindowsLocked(owner)
	windows = append(windows, id)
	a.patches.setClientField(owner, VarClientWindows, windows)

	return id
}

// FreeClientID destroys every window owned by c, then frees c (§4.3).
func (a *Atmosphere) FreeClientID(c ClientID) {
	a.mu.Lock()
	windows := append([]WindowID(nil), a.getClientWindowsLocked(c)...)
	a.mu.Unlock()

	for _, w := range windows {
		a.FreeWindowID(c, w)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.patches.destroyClient(c)
	a.clientIDs.free(uint32(c))
}

// FreeWindowID removes w from all focus/skiplist positions, scrubs it from
// c's window list, and marks it free (§4.3). Skiplist removal is delegated
// to skiplistRemoveLocked so the tree stays consistent.
func (a *Atmosphere) FreeWindowID(c ClientID, w WindowID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.skiplistRemoveLocked(w)
	a.clearFocusLocked(w)

	windows := a.getClientWindowsLocked(c)
	filtered := windows[:0]
	for _, id := range windows {
		if id != w {
			filtered = append(filtered, id)
		}
	}
	a.patches.setClientField(c, VarClientWindows, append([]WindowID(nil), filtered...))

	a.patches.destroyWindow(w)
	a.windowIDs.free(uint32(w))
}

func (a *Atmosphere) clearFocusLocked(w WindowID) {
	g := a.globalLocked()
	if focus, ok := g.WindowFocus.Get(); ok && focus == w {
		a.patches.setGlobal(VarWindowFocus, None[WindowID]())
	}
	if focus, ok := g.SurfaceFocus.Get(); ok && focus == w {
		a.patches.setGlobal(VarSurfaceFocus, None[WindowID]())
	}
}

// getClientWindowsLocked reads the patch-or-current window list for c.
func (a *Atmosphere) getClientWindowsLocked(c ClientID) []WindowID {
	if raw, ok := a.patches.clientField[clientFieldKey{c, VarClientWindows}]; ok {
		return raw.([]WindowID)
	}
	if a.current != nil {
		if props, ok := a.current.Clients.Get(uint32(c)); ok {
			return props.Windows
		}
	}
	return nil
}

// WindowsForClient returns the windows owned by c with in-use = true (§3
// invariant "windows-for-client(c) contains exactly the windows with owner
// = c and in-use = true").
func (a *Atmosphere) WindowsForClient(c ClientID) []WindowID {
	a.mu.Lock()
	defer a.mu.Unlock()
	src := a.getClientWindowsLocked(c)
	out := make([]WindowID, 0, len(src))
	for _, w := range src {
		if a.windowIDs.isActive(uint32(w)) {
			out = append(out, w)
		}
	}
	return out
}

// IsChanged reports whether the patch log is non-empty or the hemisphere is
// currently in transit (§4.3).
func (a *Atmosphere) IsChanged() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.patches.empty() || a.current == nil
}

// SendHemisphere replays the patch log into the owned hemisphere, then hands
// it to the peer (§4.3). If no Hemisphere is currently owned it does nothing
// and returns nil.
func (a *Atmosphere) SendHemisphere() error {
	a.mu.Lock()
	h := a.current
	if h == nil {
		a.mu.Unlock()
		return nil
	}
	a.patches.replayInto(h)
	a.patches.clear()
	a.current = nil
	a.mu.Unlock()

	a.out <- h
	return nil
}

// RecvHemisphere blocks until the peer hands over a Hemisphere, replays the
// local patch log onto it (so writes made while no hemisphere was held
// become visible immediately), and clears the patch log (§4.3).
func (a *Atmosphere) RecvHemisphere() error {
	h, ok := <-a.in
	if !ok {
		return ErrChannelClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acceptLocked(h)
	return nil
}

// acceptLocked installs h as the owned hemisphere: replays the patch log
// (including any tasks queued while no hemisphere was held) onto it, clears
// the log, and takes ownership.
func (a *Atmosphere) acceptLocked(h *Hemisphere) {
	a.patches.replayInto(h)
	a.patches.clear()
	for _, t := range a.pendingTasks {
		h.AddWmTask(t)
	}
	a.pendingTasks = nil
	a.current = h
}

// FlipHemispheres is the blocking send-then-recv cycle used by the renderer
// at the start of each frame (§4.3, §4.7 step 2, §5).
func (a *Atmosphere) FlipHemispheres() error {
	if err := a.SendHemisphere(); err != nil {
		return err
	}
	return a.RecvHemisphere()
}

// TryFlipHemispheres is the non-blocking variant used by the protocol side
// so client request handling never stalls behind a busy renderer (§4.3,
// §5). It returns true only if a hemisphere was actually received.
func (a *Atmosphere) TryFlipHemispheres() (bool, error) {
	if err := a.SendHemisphere(); err != nil {
		return false, err
	}
	select {
	case h, ok := <-a.in:
		if !ok {
			return false, ErrChannelClosed
		}
		a.mu.Lock()
		a.acceptLocked(h)
		a.mu.Unlock()
		return true, nil
	default:
		return false, nil
	}
}

// Global returns the effective global properties: patch entries overlaid on
// the current hemisphere's snapshot, or the zero value if neither exists
// yet for a given field (§4.3 "untyped reads see patch first, then current
// hemisphere").
func (a *Atmosphere) Global() GlobalProps {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.globalLocked()
}

func (a *Atmosphere) globalLocked() GlobalProps {
	var g GlobalProps
	if a.current != nil {
		g = a.current.Global
	}
	for v, value := range a.patches.global {
		applyGlobalField(&g, v, value)
	}
	return g
}

func (a *Atmosphere) setGlobalField(v GlobalVariant, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.patches.setGlobal(v, value)
}

// Typed global accessors (§4.3 "set_<prop>/get_<prop>").

func (a *Atmosphere) SetCursorPos(p geom.Vec2)  { a.setGlobalField(VarCursorPos, p) }
func (a *Atmosphere) GetCursorPos() geom.Vec2   { return a.Global().CursorPos }
func (a *Atmosphere) SetResolution(r geom.Vec2) { a.setGlobalField(VarResolution, r) }
func (a *Atmosphere) GetResolution() geom.Vec2  { return a.Global().Resolution }

func (a *Atmosphere) SetGrabbed(w Option[WindowID]) { a.setGlobalField(VarGrabbed, w) }
func (a *Atmosphere) GetGrabbed() Option[WindowID]  { return a.Global().Grabbed }

func (a *Atmosphere) SetResizing(w Option[WindowID]) { a.setGlobalField(VarResizing, w) }
func (a *Atmosphere) GetResizing() Option[WindowID]  { return a.Global().Resizing }

func (a *Atmosphere) SetWindowFocus(w Option[WindowID]) { a.setGlobalField(VarWindowFocus, w) }
func (a *Atmosphere) GetWindowFocus() Option[WindowID]  { return a.Global().WindowFocus }

func (a *Atmosphere) SetSurfaceFocus(w Option[WindowID]) { a.setGlobalField(VarSurfaceFocus, w) }
func (a *Atmosphere) GetSurfaceFocus() Option[WindowID]  { return a.Global().SurfaceFocus }

func (a *Atmosphere) SetDebugRecording(v bool) { a.setGlobalField(VarDebugRecording, v) }
func (a *Atmosphere) GetDebugRecording() bool   { return a.Global().DebugRecording }

func (a *Atmosphere) SetDRMDevice(path string) { a.setGlobalField(VarDRMDevice, path) }
func (a *Atmosphere) GetDRMDevice() string      { return a.Global().DRMDevice }

func (a *Atmosphere) SetDPI(dpi int) { a.setGlobalField(VarDPI, dpi) }
func (a *Atmosphere) GetDPI() int     { return a.Global().DPI }

// Window reads the effective properties of w: patch entries overlaid on the
// current hemisphere's snapshot.
func (a *Atmosphere) Window(w WindowID) (WindowProps, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.windowLocked(w)
}

func (a *Atmosphere) windowLocked(w WindowID) (WindowProps, bool) {
	var props WindowProps
	found := false
	if created, ok := a.patches.windowCreate[w]; ok {
		props = created
		found = true
	} else if a.current != nil {
		if cur, ok := a.current.Windows.Get(uint32(w)); ok {
			props = *cur
			found = true
		}
	}
	if !found {
		return props, false
	}
	if a.patches.windowDestroy[w] {
		return props, false
	}
	for k, value := range a.patches.windowField {
		if k.id == w {
			applyWindowField(&props, k.variant, value)
		}
	}
	return props, true
}

func (a *Atmosphere) setWindowField(w WindowID, v WindowVariant, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.patches.setWindowField(w, v, value)
}

// Typed window accessors (§4.3). Only the ones exercised by the skiplist,
// shell, and hit-testing code are exposed; everything else goes through
// Window()/setWindowField for brevity.

func (a *Atmosphere) SetWindowPos(w WindowID, p geom.Vec2) { a.setWindowField(w, VarWinPos, p) }
func (a *Atmosphere) GetWindowPos(w WindowID) geom.Vec2 {
	props, _ := a.Window(w)
	return props.WindowPos
}

func (a *Atmosphere) SetWindowSize(w WindowID, s geom.Vec2) { a.setWindowField(w, VarWinSize, s) }
func (a *Atmosphere) GetWindowSize(w WindowID) geom.Vec2 {
	props, _ := a.Window(w)
	return props.WindowSize
}

func (a *Atmosphere) SetSurfacePos(w WindowID, p geom.Vec2) { a.setWindowField(w, VarSurfacePos, p) }
func (a *Atmosphere) GetSurfacePos(w WindowID) geom.Vec2 {
	props, _ := a.Window(w)
	return props.SurfacePos
}

func (a *Atmosphere) SetSurfaceSize(w WindowID, s geom.Vec2) { a.setWindowField(w, VarSurfaceSize, s) }
func (a *Atmosphere) GetSurfaceSize(w WindowID) geom.Vec2 {
	props, _ := a.Window(w)
	return props.SurfaceSize
}

func (a *Atmosphere) SetIsToplevel(w WindowID, v bool) { a.setWindowField(w, VarWinIsToplevel, v) }
func (a *Atmosphere) IsToplevel(w WindowID) bool {
	props, _ := a.Window(w)
	return props.IsToplevel
}

func (a *Atmosphere) WindowOwner(w WindowID) ClientID {
	props, _ := a.Window(w)
	return props.Owner
}

func (a *Atmosphere) SetSubsurfaceSync(w WindowID, v bool) {
	a.setWindowField(w, VarSubsurfaceSync, v)
}
func (a *Atmosphere) SubsurfaceSync(w WindowID) bool {
	props, _ := a.Window(w)
	return props.SubsurfaceSync
}

func (a *Atmosphere) AddSurfaceDamage(w WindowID, r geom.Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	props, _ := a.windowLocked(w)
	props.DamageSurface = append(props.DamageSurface, r)
	a.patches.setWindowField(w, VarDamageSurface, props.DamageSurface)
}

func (a *Atmosphere) AddBufferDamage(w WindowID, r geom.Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	props, _ := a.windowLocked(w)
	props.DamageBuffer = append(props.DamageBuffer, r)
	a.patches.setWindowField(w, VarDamageBuffer, props.DamageBuffer)
}

// AddWmTask enqueues a task for the peer (§4.2). If a hemisphere is held the
// task is appended to its queue directly and travels with the next send;
// otherwise it is staged on the Atmosphere and appended to the next
// hemisphere received.
func (a *Atmosphere) AddWmTask(t WmTask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.current.AddWmTask(t)
		return
	}
	a.pendingTasks = append(a.pendingTasks, t)
}

// DrainWmTasks returns and clears the task queue of the currently owned
// hemisphere, in FIFO order (§4.7 step 3). It is a no-op returning nil if no
// hemisphere is currently held.
func (a *Atmosphere) DrainWmTasks() []WmTask {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	return a.current.DrainWmTasks()
}

// ResetConsumables clears every window's damage lists on the currently
// owned hemisphere (§4.7 step 8). It is a no-op if no hemisphere is held.
func (a *Atmosphere) ResetConsumables() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.current.ResetConsumables()
	}
}
