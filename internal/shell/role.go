package shell

import (
	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// RoleKind discriminates the Role sum type (§4.5, §9: "roles are a tagged
// union, never an inheritance chain").
type RoleKind uint8

const (
	RoleNone RoleKind = iota
	RoleToplevel
	RolePopup
	RoleSubsurface
)

// pendingConfigure is one {serial, size} snapshot queued by Configure and
// resolved against on the next commit that acks it (§4.5), mirroring
// category5's TLConfig list (ways/xdg_shell.rs).
type pendingConfigure struct {
	serial uint32
	size   geom.Vec2
}

// Toplevel is the pending/current configure state for an xdg_toplevel.
type Toplevel struct {
	Title     string
	AppID     string
	ParentID  atmosphere.Option[atmosphere.WindowID]
	Maximized bool
	Fullscreen bool
	Resizing  bool
	Activated bool

	// PendingSerial is the configure serial most recently sent to the
	// client; AckedSerial is the highest serial the client has
	// acknowledged via xdg_surface.ack_configure (§4.5 invariant
	// "ack_serial <= last configure serial sent").
	PendingSerial uint32
	AckedSerial   uint32

	// needsApply is set by Ack and cleared by ResolveCommitSize: an ack by
	// itself changes nothing, the acked state only takes effect on the next
	// commit (§4.5's defining double-buffering rule).
	needsApply bool
	configs    []pendingConfigure

	// geometryOverride is xdg_surface.set_window_geometry's double-buffered
	// size, which replaces the matched configure's size when present
	// (§4.5). Cleared once applied.
	geometryOverride atmosphere.Option[geom.Vec2]
}

// Popup is the pending/current configure state for an xdg_popup.
type Popup struct {
	Parent     atmosphere.WindowID
	Positioner Positioner
	Grabbed    bool
	Dismissed  bool

	PendingSerial uint32
	AckedSerial   uint32

	needsApply       bool
	configs          []pendingConfigure
	geometryOverride atmosphere.Option[geom.Vec2]
}

// SubsurfaceState is the pending/current state for a wl_subsurface.
type SubsurfaceState struct {
	Parent atmosphere.WindowID
	Sync   bool
	// PendingPos is only applied to the shared WindowProps on commit, per
	// wl_subsurface.set_position's "double buffered" requirement (§4.6).
	PendingPos geom.Vec2
}

// Role is the tagged union of shell roles a Surface may carry. Exactly one
// of the typed fields is meaningful, selected by Kind. A plain wl_surface
// with no shell role has Kind == RoleNone.
type Role struct {
	Kind        RoleKind
	Toplevel    *Toplevel
	Popup       *Popup
	Subsurface  *SubsurfaceState
}
