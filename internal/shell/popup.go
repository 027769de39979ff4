package shell

import (
	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// NewPopup promotes surf to the popup role, parented under parent, and
// links it into the atmosphere's subsurface-style tree via
// AddNewTopSubsurf (popups share the skiplist/paint-order model with
// subsurfaces; §4.4, §4.5).
func NewPopup(surf *Surface, parent atmosphere.WindowID, positioner Positioner, a *atmosphere.Atmosphere) *Popup {
	p := &Popup{Parent: parent, Positioner: positioner}
	surf.SetRole(Role{Kind: RolePopup, Popup: p})
	a.AddNewTopSubsurf(parent, surf.ID)

	box := positioner.Resolve(positioner.AnchorRect)
	a.SetSurfacePos(surf.ID, geom.Vec2{X: box.X, Y: box.Y})
	a.SetSurfaceSize(surf.ID, geom.Vec2{X: box.W, Y: box.H})
	return p
}

// Configure stages a new configure serial and the box that goes with it,
// same mechanism as Toplevel.Configure (§4.5).
func (p *Popup) Configure(serial uint32, size geom.Vec2) {
	p.PendingSerial = serial
	p.configs = append(p.configs, pendingConfigure{serial: serial, size: size})
}

// Ack records a client's xdg_surface.ack_configure, same rules as Toplevel.
func (p *Popup) Ack(serial uint32) bool {
	if serial > p.PendingSerial || serial < p.AckedSerial {
		return false
	}
	p.AckedSerial = serial
	p.needsApply = true
	return true
}

// SetGeometryOverride is Toplevel.SetGeometryOverride's popup counterpart.
func (p *Popup) SetGeometryOverride(size geom.Vec2) {
	p.geometryOverride = atmosphere.Some(size)
}

// ResolveCommitSize is Toplevel.ResolveCommitSize's popup counterpart; see
// there for the algorithm.
func (p *Popup) ResolveCommitSize() (size geom.Vec2, ok bool) {
	if !p.needsApply {
		return geom.Vec2{}, false
	}
	p.needsApply = false

	idx := -1
	for i, c := range p.configs {
		if c.serial == p.AckedSerial {
			idx = i
			break
		}
	}
	if idx < 0 {
		return geom.Vec2{}, false
	}

	size = p.configs[idx].size
	if override, has := p.geometryOverride.Get(); has {
		size = override
		p.geometryOverride = atmosphere.None[geom.Vec2]()
	}
	p.configs = append([]pendingConfigure(nil), p.configs[idx:]...)
	return size, true
}

// Dismiss marks the popup as dismissed (xdg_popup.grab's implicit dismiss on
// outside click, or an explicit xdg_popup.destroy). The caller is
// responsible for sending the popup_done event and tearing down the
// surface.
func (p *Popup) Dismiss() {
	p.Dismissed = true
}
