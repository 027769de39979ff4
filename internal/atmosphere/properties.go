package atmosphere

import "github.com/waycomp/compositor/internal/geom"

// GlobalVariant tags one field of GlobalProps. The discriminant is a
// compile-time constant per variant (§9), so patch-log replay dispatches on
// it with a plain switch instead of reflection.
type GlobalVariant uint8

const (
	VarCursorPos GlobalVariant = iota
	VarResolution
	VarGrabbed
	VarResizing
	VarWindowFocus
	VarSurfaceFocus
	VarDebugRecording
	VarDRMDevice
	VarDPI
)

// ClientVariant tags one field of ClientProps.
type ClientVariant uint8

const (
	VarClientInUse ClientVariant = iota
	VarClientWindows
)

// WindowVariant tags one field of WindowProps.
type WindowVariant uint8

const (
	VarWinInUse WindowVariant = iota
	VarWinOwner
	VarWinIsToplevel
	VarWinPos
	VarWinSize
	VarSurfacePos
	VarSurfaceSize
	VarSkiplistNext
	VarSkiplistPrev
	VarSkiplistSkip
	VarTopChild
	VarParentWindow
	VarRootWindow
	VarSubsurfaceSync
	VarDamageSurface
	VarDamageBuffer
)

// GlobalProps is the compositor-wide property set (§3). There is exactly one
// instance per Hemisphere; it is not id-indexed.
type GlobalProps struct {
	CursorPos      geom.Vec2
	Resolution     geom.Vec2
	Grabbed        Option[WindowID]
	Resizing       Option[WindowID]
	WindowFocus    Option[WindowID]
	SurfaceFocus   Option[WindowID]
	DebugRecording bool
	DRMDevice      string
	// DPI supplements the distilled property set (see SPEC_FULL.md §3): the
	// THUNDR_DPI override or auto-detected display DPI, used to scale the
	// edge-proximity threshold (§4.4) and SSD bar size (§4.7).
	DPI int
}

// ClientProps is the per-client property set (§3).
type ClientProps struct {
	InUse   bool
	Windows []WindowID
}

// WindowProps is the per-window property set (§3). A window is any
// wl_surface-backed entity: toplevel, popup, or subsurface.
type WindowProps struct {
	InUse       bool
	Owner       ClientID
	IsToplevel  bool
	WindowPos   geom.Vec2
	WindowSize  geom.Vec2
	SurfacePos  geom.Vec2
	SurfaceSize geom.Vec2

	SkiplistNext Option[WindowID]
	SkiplistPrev Option[WindowID]
	SkiplistSkip Option[WindowID]
	TopChild     Option[WindowID]
	ParentWindow Option[WindowID]
	RootWindow   Option[WindowID]

	SubsurfaceSync bool

	DamageSurface []geom.Rect
	DamageBuffer  []geom.Rect
}

// freshWindow returns the initial state for a newly minted window: in-use,
// zero geometry, no skiplist links (§3 Lifecycle).
func freshWindow(owner ClientID) WindowProps {
	return WindowProps{
		InUse:          true,
		Owner:          owner,
		SubsurfaceSync: true,
	}
}
