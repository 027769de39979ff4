package vkcomp

import (
	"testing"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

func TestScaleCursorPixelsNoopAtScaleOne(t *testing.T) {
	pixels := []byte{1, 2, 3, 4}
	out, w, h := ScaleCursorPixels(pixels, 1, 1, 1)
	if w != 1 || h != 1 {
		t.Errorf("dims = (%d, %d), want (1, 1)", w, h)
	}
	if len(out) != len(pixels) {
		t.Errorf("len(out) = %d, want %d", len(out), len(pixels))
	}
}

func TestScaleCursorPixelsDoublesDimensions(t *testing.T) {
	pixels := make([]byte, 4*4*4)
	out, w, h := ScaleCursorPixels(pixels, 4, 4, 2)
	if w != 8 || h != 8 {
		t.Errorf("dims = (%d, %d), want (8, 8)", w, h)
	}
	if len(out) != 8*8*4 {
		t.Errorf("len(out) = %d, want %d", len(out), 8*8*4)
	}
}

func TestCursorSetAndReset(t *testing.T) {
	c := NewCursor()
	if _, ok := c.Window(); ok {
		t.Fatal("new cursor should have no window set")
	}
	c.Set(atmosphere.WindowID(5), nil)
	w, ok := c.Window()
	if !ok || w != 5 {
		t.Errorf("Window() = (%v, %v), want (5, true)", w, ok)
	}
	c.Reset()
	if _, ok := c.Window(); ok {
		t.Error("Window() after Reset should report not-ok")
	}
}

func TestCursorPositionAccountsForHotspot(t *testing.T) {
	c := NewCursor()
	c.SetHotspot(geom.Vec2{X: 2, Y: 3})
	c.UpdatePosition(geom.Vec2{X: 10, Y: 10})
	pos := c.Position()
	if pos.X != 8 || pos.Y != 7 {
		t.Errorf("Position() = %v, want (8, 7)", pos)
	}
}
