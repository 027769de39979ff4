package atmosphere

import "github.com/waycomp/compositor/internal/geom"

// patchLog is the set of uncommitted writes held by Atmosphere and replayed
// onto each hemisphere on handoff (§4.3). Each property has at most one
// pending patch: writing the same key twice overwrites the earlier entry,
// which is exactly what a Go map gives for free.
//
// Window/client lifecycle (mint/free) is tracked separately from per-field
// writes so that a newly minted id can be replayed into a hemisphere that
// has never heard of it, and a freed id's fields don't linger.
type patchLog struct {
	global map[GlobalVariant]any

	clientCreate  map[ClientID]bool
	clientDestroy map[ClientID]bool
	clientField   map[clientFieldKey]any

	windowCreate  map[WindowID]WindowProps
	windowDestroy map[WindowID]bool
	windowField   map[windowFieldKey]any
}

type clientFieldKey struct {
	id      ClientID
	variant ClientVariant
}

type windowFieldKey struct {
	id      WindowID
	variant WindowVariant
}

func newPatchLog() *patchLog {
	return &patchLog{
		global:        make(map[GlobalVariant]any),
		clientCreate:  make(map[ClientID]bool),
		clientDestroy: make(map[ClientID]bool),
		clientField:   make(map[clientFieldKey]any),
		windowCreate:  make(map[WindowID]WindowProps),
		windowDestroy: make(map[WindowID]bool),
		windowField:   make(map[windowFieldKey]any),
	}
}

func (p *patchLog) empty() bool {
	return len(p.global) == 0 &&
		len(p.clientCreate) == 0 && len(p.clientDestroy) == 0 && len(p.clientField) == 0 &&
		len(p.windowCreate) == 0 && len(p.windowDestroy) == 0 && len(p.windowField) == 0
}

func (p *patchLog) clear() {
	clear(p.global)
	clear(p.clientCreate)
	clear(p.clientDestroy)
	clear(p.clientField)
	clear(p.windowCreate)
	clear(p.windowDestroy)
	clear(p.windowField)
}

func (p *patchLog) setGlobal(v GlobalVariant, value any) {
	p.global[v] = value
}

func (p *patchLog) createClient(id ClientID) {
	delete(p.clientDestroy, id)
	p.clientCreate[id] = true
}

func (p *patchLog) destroyClient(id ClientID) {
	delete(p.clientCreate, id)
	for k := range p.clientField {
		if k.id == id {
			delete(p.clientField, k)
		}
	}
	p.clientDestroy[id] = true
}

func (p *patchLog) setClientField(id ClientID, v ClientVariant, value any) {
	p.clientField[clientFieldKey{id, v}] = value
}

func (p *patchLog) createWindow(id WindowID, props WindowProps) {
	delete(p.windowDestroy, id)
	p.windowCreate[id] = props
}

func (p *patchLog) destroyWindow(id WindowID) {
	delete(p.windowCreate, id)
	for k := range p.windowField {
		if k.id == id {
			delete(p.windowField, k)
		}
	}
	p.windowDestroy[id] = true
}

func (p *patchLog) setWindowField(id WindowID, v WindowVariant, value any) {
	// A pending create already carries the full struct; fold the field
	// write into it directly rather than queuing a redundant patch.
	if created, ok := p.windowCreate[id]; ok {
		applyWindowField(&created, v, value)
		p.windowCreate[id] = created
		return
	}
	p.windowField[windowFieldKey{id, v}] = value
}

// replayInto applies every pending patch onto h, then calls h.Commit().
func (p *patchLog) replayInto(h *Hemisphere) {
	for variant, value := range p.global {
		applyGlobalField(&h.Global, variant, value)
	}

	for id := range p.clientCreate {
		h.Clients.Activate(uint32(id), ClientProps{InUse: true})
	}
	for k, value := range p.clientField {
		if c, ok := h.Clients.Get(uint32(k.id)); ok {
			applyClientField(c, k.variant, value)
		}
	}
	for id := range p.clientDestroy {
		h.Clients.Deactivate(uint32(id))
	}

	for id, props := range p.windowCreate {
		h.Windows.Activate(uint32(id), props)
	}
	for k, value := range p.windowField {
		if w, ok := h.Windows.Get(uint32(k.id)); ok {
			applyWindowField(w, k.variant, value)
		}
	}
	for id := range p.windowDestroy {
		h.Windows.Deactivate(uint32(id))
	}

	if !p.empty() {
		h.markChanged()
	}
	h.Commit()
}

func applyGlobalField(g *GlobalProps, v GlobalVariant, value any) {
	switch v {
	case VarCursorPos:
		g.CursorPos = value.(geom.Vec2)
	case VarResolution:
		g.Resolution = value.(geom.Vec2)
	case VarGrabbed:
		g.Grabbed = value.(Option[WindowID])
	case VarResizing:
		g.Resizing = value.(Option[WindowID])
	case VarWindowFocus:
		g.WindowFocus = value.(Option[WindowID])
	case VarSurfaceFocus:
		g.SurfaceFocus = value.(Option[WindowID])
	case VarDebugRecording:
		g.DebugRecording = value.(bool)
	case VarDRMDevice:
		g.DRMDevice = value.(string)
	case VarDPI:
		g.DPI = value.(int)
	}
}

func applyClientField(c *ClientProps, v ClientVariant, value any) {
	switch v {
	case VarClientInUse:
		c.InUse = value.(bool)
	case VarClientWindows:
		c.Windows = value.([]WindowID)
	}
}

func applyWindowField(w *WindowProps, v WindowVariant, value any) {
	switch v {
	case VarWinInUse:
		w.InUse = value.(bool)
	case VarWinOwner:
		w.Owner = value.(ClientID)
	case VarWinIsToplevel:
		w.IsToplevel = value.(bool)
	case VarWinPos:
		w.WindowPos = value.(geom.Vec2)
	case VarWinSize:
		w.WindowSize = value.(geom.Vec2)
	case VarSurfacePos:
		w.SurfacePos = value.(geom.Vec2)
	case VarSurfaceSize:
		w.SurfaceSize = value.(geom.Vec2)
	case VarSkiplistNext:
		w.SkiplistNext = value.(Option[WindowID])
	case VarSkiplistPrev:
		w.SkiplistPrev = value.(Option[WindowID])
	case VarSkiplistSkip:
		w.SkiplistSkip = value.(Option[WindowID])
	case VarTopChild:
		w.TopChild = value.(Option[WindowID])
	case VarParentWindow:
		w.ParentWindow = value.(Option[WindowID])
	case VarRootWindow:
		w.RootWindow = value.(Option[WindowID])
	case VarSubsurfaceSync:
		w.SubsurfaceSync = value.(bool)
	case VarDamageSurface:
		w.DamageSurface = value.([]geom.Rect)
	case VarDamageBuffer:
		w.DamageBuffer = value.([]geom.Rect)
	}
}
