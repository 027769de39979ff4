package shell

import (
	"testing"

	"github.com/waycomp/compositor/internal/geom"
)

func TestPositionerResolveBottomGravityNoConstraint(t *testing.T) {
	p := Positioner{
		Size:       geom.Vec2{X: 100, Y: 50},
		AnchorRect: geom.NewRect(10, 10, 20, 20),
		Anchor:     AnchorBottomLeft,
		Gravity:    AnchorBottomRight,
	}
	bounds := geom.NewRect(0, 0, 1000, 1000)
	box := p.Resolve(bounds)

	if box.X != 10 || box.Y != 30 {
		t.Errorf("box origin = (%v, %v), want (10, 30)", box.X, box.Y)
	}
	if box.W != 100 || box.H != 50 {
		t.Errorf("box size = (%v, %v), want (100, 50)", box.W, box.H)
	}
}

func TestPositionerResolveSlideXKeepsWithinBounds(t *testing.T) {
	p := Positioner{
		Size:       geom.Vec2{X: 100, Y: 50},
		AnchorRect: geom.NewRect(950, 10, 20, 20),
		Anchor:     AnchorBottomRight,
		Gravity:    AnchorBottomRight,
		Constraint: ConstraintSlideX,
	}
	bounds := geom.NewRect(0, 0, 1000, 1000)
	box := p.Resolve(bounds)

	if box.X+box.W > bounds.X+bounds.W {
		t.Errorf("box right edge %v exceeds bounds right edge %v", box.X+box.W, bounds.X+bounds.W)
	}
}

func TestPositionerResolveFlipYWhenOverflowingBottom(t *testing.T) {
	p := Positioner{
		Size:       geom.Vec2{X: 40, Y: 100},
		AnchorRect: geom.NewRect(10, 950, 20, 20),
		Anchor:     AnchorBottom,
		Gravity:    AnchorBottom,
		Constraint: ConstraintFlipY,
	}
	bounds := geom.NewRect(0, 0, 1000, 1000)
	box := p.Resolve(bounds)

	if box.Y+box.H > bounds.Y+bounds.H {
		t.Errorf("flipped box bottom edge %v still exceeds bounds %v", box.Y+box.H, bounds.Y+bounds.H)
	}
}
