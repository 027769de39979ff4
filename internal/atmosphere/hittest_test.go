package atmosphere

import (
	"testing"

	"github.com/waycomp/compositor/internal/geom"
)

func TestFindWindowWithInputAtPicksTopmostOverlap(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()

	back := mintRootWindow(t, a, c)
	a.SetSurfaceSize(back, geom.Vec2{X: 200, Y: 200})
	a.FocusOn(Some(back))

	front := mintRootWindow(t, a, c)
	a.SetSurfaceSize(front, geom.Vec2{X: 100, Y: 100})
	a.FocusOn(Some(front))

	hit, local, ok := a.FindWindowWithInputAt(geom.Vec2{X: 10, Y: 10})
	if !ok {
		t.Fatal("FindWindowWithInputAt ok = false, want true")
	}
	if hit != front {
		t.Errorf("hit = %d, want front window %d", hit, front)
	}
	if local != (geom.Vec2{X: 10, Y: 10}) {
		t.Errorf("local = %v, want (10, 10)", local)
	}
}

func TestFindWindowWithInputAtFallsThroughToBack(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()

	back := mintRootWindow(t, a, c)
	a.SetSurfaceSize(back, geom.Vec2{X: 200, Y: 200})
	a.FocusOn(Some(back))

	front := mintRootWindow(t, a, c)
	a.SetSurfaceSize(front, geom.Vec2{X: 50, Y: 50})
	a.FocusOn(Some(front))

	hit, _, ok := a.FindWindowWithInputAt(geom.Vec2{X: 150, Y: 150})
	if !ok || hit != back {
		t.Errorf("hit = %d, ok = %v, want back window %d", hit, ok, back)
	}
}

func TestFindWindowWithInputAtMiss(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := mintRootWindow(t, a, c)
	a.SetSurfaceSize(w, geom.Vec2{X: 50, Y: 50})
	a.FocusOn(Some(w))

	if _, _, ok := a.FindWindowWithInputAt(geom.Vec2{X: 500, Y: 500}); ok {
		t.Error("FindWindowWithInputAt far outside all surfaces = hit, want miss")
	}
}

func TestPointIsOnTitlebar(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := mintRootWindow(t, a, c)
	a.SetWindowSize(w, geom.Vec2{X: 300, Y: 200})

	if !a.PointIsOnTitlebar(w, geom.Vec2{X: 10, Y: 5}) {
		t.Error("point near top of toplevel not classified as titlebar")
	}
	if a.PointIsOnTitlebar(w, geom.Vec2{X: 10, Y: 100}) {
		t.Error("point in window body classified as titlebar")
	}
}

func TestPointIsOnTitlebarNonToplevelIsFalse(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := a.MintWindowID(c)
	a.SetWindowSize(w, geom.Vec2{X: 300, Y: 200})

	if a.PointIsOnTitlebar(w, geom.Vec2{X: 10, Y: 5}) {
		t.Error("non-toplevel window classified as having a titlebar")
	}
}

func TestPointIsOnWindowEdge(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := mintRootWindow(t, a, c)
	a.SetWindowSize(w, geom.Vec2{X: 300, Y: 200})

	if edge := a.PointIsOnWindowEdge(w, geom.Vec2{X: 0, Y: 0}); edge != geom.EdgeTopLeft {
		t.Errorf("edge at top-left corner = %v, want top-left", edge)
	}
	if edge := a.PointIsOnWindowEdge(w, geom.Vec2{X: 150, Y: 100}); edge != geom.EdgeNone {
		t.Errorf("edge at window center = %v, want none", edge)
	}
}

func TestDPIScalesEdgeProximity(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := mintRootWindow(t, a, c)
	a.SetWindowSize(w, geom.Vec2{X: 300, Y: 200})
	a.SetDPI(192) // 2x scale

	// 10px out would miss at 1x (proximity 6) but hit at 2x (proximity 12).
	if edge := a.PointIsOnWindowEdge(w, geom.Vec2{X: -10, Y: 100}); edge != geom.EdgeLeft {
		t.Errorf("edge at 2x DPI scale = %v, want left", edge)
	}
}
