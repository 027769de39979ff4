package vkcomp

import (
	"image"
	"image/draw"

	"github.com/KononK/resize"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// Cursor tracks which window (if any) is the current cursor surface
// (atmosphere.TaskSetCursor/TaskResetCursor) and its on-screen position,
// independent of the regular window paint order — the cursor is drawn last,
// every frame, regardless of focus or skiplist position (§4.7 step 6).
type Cursor struct {
	current atmosphere.Option[atmosphere.WindowID]
	hotspot geom.Vec2
	pos     geom.Vec2
}

// NewCursor returns a Cursor with no surface set.
func NewCursor() *Cursor {
	return &Cursor{current: atmosphere.None[atmosphere.WindowID]()}
}

// Set installs w as the cursor surface. cache is accepted for symmetry with
// a future per-cursor GPU image (today the cursor is drawn from the same
// ImageCache entry as any other window, just outside the regular paint
// order).
func (c *Cursor) Set(w atmosphere.WindowID, cache *ImageCache) {
	c.current = atmosphere.Some(w)
}

// Reset clears the cursor surface (wl_pointer.set_cursor with a nil buffer).
func (c *Cursor) Reset() {
	c.current = atmosphere.None[atmosphere.WindowID]()
}

// Window returns the current cursor window, if any.
func (c *Cursor) Window() (atmosphere.WindowID, bool) {
	return c.current.Get()
}

// UpdatePosition records the compositor-space pointer location the cursor
// surface should be drawn at this frame.
func (c *Cursor) UpdatePosition(pos geom.Vec2) {
	c.pos = pos
}

// Position returns the cursor's top-left draw position, accounting for its
// hotspot offset (set via wl_pointer.set_cursor's hotspot_x/y).
func (c *Cursor) Position() geom.Vec2 {
	return geom.Vec2{X: c.pos.X - c.hotspot.X, Y: c.pos.Y - c.hotspot.Y}
}

// SetHotspot records the cursor image's hotspot, in surface-local pixels.
func (c *Cursor) SetHotspot(h geom.Vec2) {
	c.hotspot = h
}

// ScaleCursorPixels resizes a BGRA/ARGB cursor image to account for the
// output's DPI scale (SPEC_FULL.md §6): most cursor themes ship 24x24 or
// 32x32 assets designed for 96 DPI, so at higher DPI the raw bitmap has to
// be scaled up before upload or it reads as tiny. Returns new tightly
// packed RGBA pixel bytes plus the scaled dimensions.
func ScaleCursorPixels(pixels []byte, width, height int, scale float32) ([]byte, int, int) {
	if scale == 1 || scale <= 0 {
		return pixels, width, height
	}

	src := &image.NRGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)
	resized := resize.Resize(uint(newWidth), uint(newHeight), src, resize.Bilinear)

	dst := image.NewNRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.Draw(dst, dst.Bounds(), resized, image.Point{}, draw.Src)

	return dst.Pix, newWidth, newHeight
}
