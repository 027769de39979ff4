package atmosphere

import "github.com/waycomp/compositor/internal/geom"

// titlebarHeight and edgeProximity are expressed in logical pixels at 96 DPI
// and scaled by the current DPI setting (§4.4, §4.7 SSD sizing).
const (
	baseTitlebarHeight = 24
	baseEdgeProximity  = 6
	baseDPI            = 96
)

func (a *Atmosphere) dpiScale() float32 {
	dpi := a.GetDPI()
	if dpi <= 0 {
		dpi = baseDPI
	}
	return float32(dpi) / float32(baseDPI)
}

// FindWindowWithInputAt implements find_window_with_input_at_point (§4.4):
// front-to-back hit-test over the out-of-order surface tree, returning the
// first window (by paint order) whose surface rect contains pt, along with
// the point translated into that window's local coordinates.
func (a *Atmosphere) FindWindowWithInputAt(pt geom.Vec2) (WindowID, geom.Vec2, bool) {
	var hit WindowID
	var local geom.Vec2
	found := false

	a.MapOutOfOrderOnSurfs(func(w WindowID, offset geom.Vec2) bool {
		// f runs with a.mu held by MapOutOfOrderOnSurfs.
		props, ok := a.windowLocked(w)
		if !ok {
			return true
		}
		rect := geom.NewRect(offset.X, offset.Y, props.SurfaceSize.X, props.SurfaceSize.Y)
		if rect.Contains(pt.X, pt.Y) {
			hit = w
			local = geom.Vec2{X: pt.X - offset.X, Y: pt.Y - offset.Y}
			found = true
			return false
		}
		return true
	})

	return hit, local, found
}

// PointIsOnTitlebar reports whether pt (in window-local coordinates, origin
// at the window's top-left including the SSD titlebar) falls within w's
// server-side titlebar strip (§4.4, §4.7). Only toplevels have a titlebar.
func (a *Atmosphere) PointIsOnTitlebar(w WindowID, pt geom.Vec2) bool {
	props, ok := a.Window(w)
	if !ok || !props.IsToplevel {
		return false
	}
	h := baseTitlebarHeight * a.dpiScale()
	bar := geom.NewRect(0, 0, props.WindowSize.X, h)
	return bar.Contains(pt.X, pt.Y)
}

// PointIsOnWindowEdge classifies pt (in window-local coordinates) against
// w's resize border and returns which edge, if any, is within the
// DPI-scaled proximity threshold (§4.4).
func (a *Atmosphere) PointIsOnWindowEdge(w WindowID, pt geom.Vec2) geom.Edge {
	props, ok := a.Window(w)
	if !ok || !props.IsToplevel {
		return geom.EdgeNone
	}
	rect := geom.NewRect(0, 0, props.WindowSize.X, props.WindowSize.Y)
	proximity := baseEdgeProximity * a.dpiScale()
	return geom.EdgeAt(rect, pt.X, pt.Y, proximity)
}
