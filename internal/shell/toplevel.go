package shell

import (
	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// NewToplevel promotes surf to the toplevel role and registers it as a root
// window in the atmosphere (§4.5).
func NewToplevel(surf *Surface, a *atmosphere.Atmosphere) *Toplevel {
	t := &Toplevel{}
	surf.SetRole(Role{Kind: RoleToplevel, Toplevel: t})
	a.SetIsToplevel(surf.ID, true)
	return t
}

// Configure stages a new configure serial and the size that goes with it
// (§4.5: "configure before commit"), appending a pendingConfigure snapshot
// that ResolveCommitSize will later look up by serial. The caller is
// responsible for actually sending the xdg_toplevel.configure +
// xdg_surface.configure events on the wire; this just bookkeeps state so
// Ack and the eventual commit can validate and apply it.
func (t *Toplevel) Configure(serial uint32, size geom.Vec2) {
	t.PendingSerial = serial
	t.configs = append(t.configs, pendingConfigure{serial: serial, size: size})
}

// Ack records a client's xdg_surface.ack_configure. It reports whether the
// acked serial is valid (§4.5 invariant: ack_serial must not exceed the
// highest serial sent, and must be monotonically non-decreasing). Acking
// does not itself change any visible state — that only happens once the
// next commit calls ResolveCommitSize (§4.5's double-buffering rule).
func (t *Toplevel) Ack(serial uint32) bool {
	if serial > t.PendingSerial || serial < t.AckedSerial {
		return false
	}
	t.AckedSerial = serial
	t.needsApply = true
	return true
}

// SetGeometryOverride stages xdg_surface.set_window_geometry's double
// buffered size, which ResolveCommitSize applies instead of the acked
// configure's size (§4.5).
func (t *Toplevel) SetGeometryOverride(size geom.Vec2) {
	t.geometryOverride = atmosphere.Some(size)
}

// ResolveCommitSize implements the commit-time half of §4.5's configure/ack
// protocol, grounded in category5's ShellSurface::commit
// (ways/xdg_shell.rs): if an ack is pending, find the queued configure it
// named, apply any set_window_geometry override over its size, drain every
// older queued configure, and clear the pending-ack flag. Returns the
// resolved size and whether one was actually applied; the caller should
// leave WindowSize untouched when ok is false (no ack since the last
// commit, or an ack that never named a real configure).
func (t *Toplevel) ResolveCommitSize() (size geom.Vec2, ok bool) {
	if !t.needsApply {
		return geom.Vec2{}, false
	}
	t.needsApply = false

	idx := -1
	for i, c := range t.configs {
		if c.serial == t.AckedSerial {
			idx = i
			break
		}
	}
	if idx < 0 {
		return geom.Vec2{}, false
	}

	size = t.configs[idx].size
	if override, has := t.geometryOverride.Get(); has {
		size = override
		t.geometryOverride = atmosphere.None[geom.Vec2]()
	}
	t.configs = append([]pendingConfigure(nil), t.configs[idx:]...)
	return size, true
}

// SetTitle updates the toplevel's title (xdg_toplevel.set_title); not
// double-buffered per the xdg-shell protocol (applied immediately, no
// configure round-trip required).
func (t *Toplevel) SetTitle(title string) { t.Title = title }

// SetAppID updates the toplevel's application id (xdg_toplevel.set_app_id).
func (t *Toplevel) SetAppID(appID string) { t.AppID = appID }
