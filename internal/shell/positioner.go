// Package shell implements the xdg-shell role state machine: toplevels,
// popups, and subsurfaces layered on top of a plain wl_surface, plus the
// double-buffered commit algorithm that applies pending surface state (§4.5,
// §4.6).
package shell

import "github.com/waycomp/compositor/internal/geom"

// Anchor identifies which edge(s) of the anchor rect a popup's offset is
// measured from (xdg_positioner.anchor).
type Anchor uint8

const (
	AnchorNone Anchor = iota
	AnchorTop
	AnchorBottom
	AnchorLeft
	AnchorRight
	AnchorTopLeft
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
)

// Gravity identifies which direction the popup box grows away from its
// anchor point (xdg_positioner.gravity). Same value space as Anchor.
type Gravity = Anchor

// ConstraintAdjustment is a bitmask of xdg_positioner.constraint_adjustment
// flags: how the compositor may move/flip/resize a popup that would
// otherwise land off-screen.
type ConstraintAdjustment uint32

const (
	ConstraintSlideX ConstraintAdjustment = 1 << iota
	ConstraintSlideY
	ConstraintFlipX
	ConstraintFlipY
	ConstraintResizeX
	ConstraintResizeY
)

// Positioner mirrors xdg_positioner's pending state: the size of the popup
// surface, the anchor rect within the parent, and how to resolve the popup's
// position against that rect.
type Positioner struct {
	Size       geom.Vec2
	AnchorRect geom.Rect
	Anchor     Anchor
	Gravity    Gravity
	Constraint ConstraintAdjustment
	Offset     geom.Vec2
	ReactiveFlag bool
	ParentSize geom.Vec2 // set when ParentSize-constrained resize adjustment applies
}

// anchorPoint returns the point on AnchorRect that Anchor identifies.
func (p Positioner) anchorPoint() geom.Vec2 {
	r := p.AnchorRect
	switch p.Anchor {
	case AnchorTop:
		return geom.Vec2{X: r.X + r.W/2, Y: r.Y}
	case AnchorBottom:
		return geom.Vec2{X: r.X + r.W/2, Y: r.Y + r.H}
	case AnchorLeft:
		return geom.Vec2{X: r.X, Y: r.Y + r.H/2}
	case AnchorRight:
		return geom.Vec2{X: r.X + r.W, Y: r.Y + r.H/2}
	case AnchorTopLeft:
		return geom.Vec2{X: r.X, Y: r.Y}
	case AnchorTopRight:
		return geom.Vec2{X: r.X + r.W, Y: r.Y}
	case AnchorBottomLeft:
		return geom.Vec2{X: r.X, Y: r.Y + r.H}
	case AnchorBottomRight:
		return geom.Vec2{X: r.X + r.W, Y: r.Y + r.H}
	default:
		return geom.Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2}
	}
}

// gravityOffset returns the top-left corner of the popup box relative to its
// anchor point, before the Offset field and constraint adjustment are
// applied, given Gravity and Size.
func (p Positioner) gravityOffset() geom.Vec2 {
	w, h := p.Size.X, p.Size.Y
	switch p.Gravity {
	case AnchorTop:
		return geom.Vec2{X: -w / 2, Y: -h}
	case AnchorBottom:
		return geom.Vec2{X: -w / 2, Y: 0}
	case AnchorLeft:
		return geom.Vec2{X: -w, Y: -h / 2}
	case AnchorRight:
		return geom.Vec2{X: 0, Y: -h / 2}
	case AnchorTopLeft:
		return geom.Vec2{X: -w, Y: -h}
	case AnchorTopRight:
		return geom.Vec2{X: 0, Y: -h}
	case AnchorBottomLeft:
		return geom.Vec2{X: -w, Y: 0}
	case AnchorBottomRight:
		return geom.Vec2{X: 0, Y: 0}
	default:
		return geom.Vec2{X: -w / 2, Y: -h / 2}
	}
}

// Resolve computes the popup's rect relative to the parent surface's
// top-left, applying anchor, gravity, offset, and (if the popup would not
// fit within bounds) the requested constraint adjustments. bounds is the
// available space in the same coordinate space (typically the output or
// parent toplevel's geometry).
func (p Positioner) Resolve(bounds geom.Rect) geom.Rect {
	anchor := p.anchorPoint()
	origin := anchor.Add(p.gravityOffset()).Add(p.Offset)
	box := geom.NewRect(origin.X, origin.Y, p.Size.X, p.Size.Y)

	if p.Constraint&ConstraintSlideX != 0 {
		if box.X < bounds.X {
			box.X = bounds.X
		} else if box.X+box.W > bounds.X+bounds.W {
			box.X = bounds.X + bounds.W - box.W
		}
	}
	if p.Constraint&ConstraintSlideY != 0 {
		if box.Y < bounds.Y {
			box.Y = bounds.Y
		} else if box.Y+box.H > bounds.Y+bounds.H {
			box.Y = bounds.Y + bounds.H - box.H
		}
	}
	if p.Constraint&ConstraintFlipX != 0 && box.X+box.W > bounds.X+bounds.W {
		flipped := p.withFlippedGravityX()
		box.X = flipped.anchorPoint().Add(flipped.gravityOffset()).Add(flipped.Offset).X
	}
	if p.Constraint&ConstraintFlipY != 0 && box.Y+box.H > bounds.Y+bounds.H {
		flipped := p.withFlippedGravityY()
		box.Y = flipped.anchorPoint().Add(flipped.gravityOffset()).Add(flipped.Offset).Y
	}
	if p.Constraint&ConstraintResizeX != 0 && box.X+box.W > bounds.X+bounds.W {
		box.W = bounds.X + bounds.W - box.X
	}
	if p.Constraint&ConstraintResizeY != 0 && box.Y+box.H > bounds.Y+bounds.H {
		box.H = bounds.Y + bounds.H - box.Y
	}

	return box
}

func (p Positioner) withFlippedGravityX() Positioner {
	q := p
	q.Anchor = flipHorizontal(p.Anchor)
	q.Gravity = flipHorizontal(p.Gravity)
	return q
}

func (p Positioner) withFlippedGravityY() Positioner {
	q := p
	q.Anchor = flipVertical(p.Anchor)
	q.Gravity = flipVertical(p.Gravity)
	return q
}

func flipHorizontal(a Anchor) Anchor {
	switch a {
	case AnchorLeft:
		return AnchorRight
	case AnchorRight:
		return AnchorLeft
	case AnchorTopLeft:
		return AnchorTopRight
	case AnchorTopRight:
		return AnchorTopLeft
	case AnchorBottomLeft:
		return AnchorBottomRight
	case AnchorBottomRight:
		return AnchorBottomLeft
	default:
		return a
	}
}

func flipVertical(a Anchor) Anchor {
	switch a {
	case AnchorTop:
		return AnchorBottom
	case AnchorBottom:
		return AnchorTop
	case AnchorTopLeft:
		return AnchorBottomLeft
	case AnchorBottomLeft:
		return AnchorTopLeft
	case AnchorTopRight:
		return AnchorBottomRight
	case AnchorBottomRight:
		return AnchorTopRight
	default:
		return a
	}
}
