//go:build linux

package ways

import (
	"fmt"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
	"github.com/waycomp/compositor/internal/shell"
	"github.com/waycomp/compositor/internal/ways/wire"
)

// xdg_wm_base/xdg_surface/xdg_toplevel/xdg_popup/xdg_positioner opcodes,
// matching the upstream xdg-shell protocol's constants, read here in the
// server direction.
const (
	xdgWmBaseReqDestroy          wire.Opcode = 0
	xdgWmBaseReqCreatePositioner wire.Opcode = 1
	xdgWmBaseReqGetXdgSurface    wire.Opcode = 2
	xdgWmBaseReqPong             wire.Opcode = 3
)

const (
	xdgSurfaceReqDestroy           wire.Opcode = 0
	xdgSurfaceReqGetToplevel       wire.Opcode = 1
	xdgSurfaceReqGetPopup          wire.Opcode = 2
	xdgSurfaceReqSetWindowGeometry wire.Opcode = 3
	xdgSurfaceReqAckConfigure      wire.Opcode = 4
)

const xdgSurfaceEventConfigure wire.Opcode = 0

const (
	xdgToplevelReqDestroy        wire.Opcode = 0
	xdgToplevelReqSetParent      wire.Opcode = 1
	xdgToplevelReqSetTitle       wire.Opcode = 2
	xdgToplevelReqSetAppID       wire.Opcode = 3
	xdgToplevelReqShowWindowMenu wire.Opcode = 4
	xdgToplevelReqMove           wire.Opcode = 5
	xdgToplevelReqResize         wire.Opcode = 6
	xdgToplevelReqSetMaxSize     wire.Opcode = 7
	xdgToplevelReqSetMinSize     wire.Opcode = 8
	xdgToplevelReqSetMaximized   wire.Opcode = 9
	xdgToplevelReqUnsetMaximized wire.Opcode = 10
)

const (
	xdgToplevelEventConfigure wire.Opcode = 0
	xdgToplevelEventClose     wire.Opcode = 1
)

const (
	xdgPopupReqDestroy wire.Opcode = 0
	xdgPopupReqGrab    wire.Opcode = 1
)

const (
	xdgPopupEventConfigure   wire.Opcode = 0
	xdgPopupEventPopupDone   wire.Opcode = 1
)

const (
	xdgPositionerReqDestroy                wire.Opcode = 0
	xdgPositionerReqSetSize                wire.Opcode = 1
	xdgPositionerReqSetAnchorRect          wire.Opcode = 2
	xdgPositionerReqSetAnchor              wire.Opcode = 3
	xdgPositionerReqSetGravity             wire.Opcode = 4
	xdgPositionerReqSetConstraintAdjust    wire.Opcode = 5
	xdgPositionerReqSetOffset              wire.Opcode = 6
	xdgPositionerReqSetReactive            wire.Opcode = 7
	xdgPositionerReqSetParentSize          wire.Opcode = 8
)

type xdgWmBaseProxy struct {
	c  *Client
	id wire.ObjectID
}

func newXdgWmBaseProxy(c *Client, id wire.ObjectID) *xdgWmBaseProxy {
	return &xdgWmBaseProxy{c: c, id: id}
}

func (p *xdgWmBaseProxy) interfaceName() string { return InterfaceXdgWmBase }

func (p *xdgWmBaseProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case xdgWmBaseReqDestroy:
		c.unbind(p.id)
		return nil

	case xdgWmBaseReqCreatePositioner:
		posID, err := dec.NewID()
		if err != nil {
			return err
		}
		c.bind(posID, newPositionerProxy())
		return nil

	case xdgWmBaseReqGetXdgSurface:
		xdgSurfID, err := dec.NewID()
		if err != nil {
			return err
		}
		surfaceID, err := dec.Object()
		if err != nil {
			return err
		}
		obj, ok := c.lookup(surfaceID)
		if !ok {
			return fmt.Errorf("ways: get_xdg_surface: unknown surface %d", surfaceID)
		}
		sp, ok := obj.(*surfaceProxy)
		if !ok {
			return fmt.Errorf("ways: get_xdg_surface: object %d is not a wl_surface", surfaceID)
		}
		c.bind(xdgSurfID, newXdgSurfaceProxy(c, xdgSurfID, sp))
		return nil

	case xdgWmBaseReqPong:
		_, err := dec.Uint32()
		return err

	default:
		return fmt.Errorf("ways: unknown xdg_wm_base request opcode %d", opcode)
	}
}

// positionerProxy accumulates xdg_positioner requests into a
// shell.Positioner, finalized when get_popup reads it.
type positionerProxy struct {
	p shell.Positioner
}

func newPositionerProxy() *positionerProxy { return &positionerProxy{} }

func (p *positionerProxy) interfaceName() string { return "xdg_positioner" }

func (p *positionerProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case xdgPositionerReqDestroy:
		return nil

	case xdgPositionerReqSetSize:
		w, err := dec.Int32()
		if err != nil {
			return err
		}
		h, err := dec.Int32()
		if err != nil {
			return err
		}
		p.p.Size = geom.Vec2{X: float32(w), Y: float32(h)}
		return nil

	case xdgPositionerReqSetAnchorRect:
		r, err := decodeRect(dec)
		if err != nil {
			return err
		}
		p.p.AnchorRect = r
		return nil

	case xdgPositionerReqSetAnchor:
		v, err := dec.Uint32()
		if err != nil {
			return err
		}
		p.p.Anchor = shell.Anchor(v)
		return nil

	case xdgPositionerReqSetGravity:
		v, err := dec.Uint32()
		if err != nil {
			return err
		}
		p.p.Gravity = shell.Gravity(v)
		return nil

	case xdgPositionerReqSetConstraintAdjust:
		v, err := dec.Uint32()
		if err != nil {
			return err
		}
		p.p.Constraint = shell.ConstraintAdjustment(v)
		return nil

	case xdgPositionerReqSetOffset:
		x, err := dec.Int32()
		if err != nil {
			return err
		}
		y, err := dec.Int32()
		if err != nil {
			return err
		}
		p.p.Offset = geom.Vec2{X: float32(x), Y: float32(y)}
		return nil

	case xdgPositionerReqSetReactive:
		p.p.ReactiveFlag = true
		return nil

	case xdgPositionerReqSetParentSize:
		w, err := dec.Int32()
		if err != nil {
			return err
		}
		h, err := dec.Int32()
		if err != nil {
			return err
		}
		p.p.ParentSize = geom.Vec2{X: float32(w), Y: float32(h)}
		return nil

	default:
		return fmt.Errorf("ways: unknown xdg_positioner request opcode %d", opcode)
	}
}

// xdgSurfaceProxy is the bridge between a plain wl_surface and its eventual
// toplevel/popup role; it owns the configure-serial counter shared by both
// roles (§4.5).
type xdgSurfaceProxy struct {
	c      *Client
	id     wire.ObjectID
	surf   *surfaceProxy
	serial uint32

	toplevel *toplevelProxy
	popup    *popupProxy
}

func newXdgSurfaceProxy(c *Client, id wire.ObjectID, surf *surfaceProxy) *xdgSurfaceProxy {
	return &xdgSurfaceProxy{c: c, id: id, surf: surf}
}

func (p *xdgSurfaceProxy) interfaceName() string { return "xdg_surface" }

func (p *xdgSurfaceProxy) nextSerial() uint32 {
	p.serial++
	return p.serial
}

// sendConfigure emits xdg_surface.configure, expected after every
// xdg_toplevel/xdg_popup.configure per the protocol's "configure is really
// two events" convention.
func (p *xdgSurfaceProxy) sendConfigure(serial uint32) error {
	b := wire.NewMessageBuilder()
	b.PutUint32(serial)
	return p.c.sendEvent(b.BuildMessage(p.id, xdgSurfaceEventConfigure))
}

func (p *xdgSurfaceProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case xdgSurfaceReqDestroy:
		c.unbind(p.id)
		return nil

	case xdgSurfaceReqGetToplevel:
		toplevelID, err := dec.NewID()
		if err != nil {
			return err
		}
		t := shell.NewToplevel(p.surf.surf, c.server.atmo)
		tp := &toplevelProxy{xdgSurface: p, id: toplevelID, state: t}
		p.toplevel = tp
		c.bind(toplevelID, tp)

		serial := p.nextSerial()
		t.Configure(serial, c.server.atmo.GetWindowSize(p.surf.surf.ID))
		if err := tp.sendConfigure(0, 0, nil); err != nil {
			return err
		}
		return p.sendConfigure(serial)

	case xdgSurfaceReqGetPopup:
		popupID, err := dec.NewID()
		if err != nil {
			return err
		}
		parentXdgSurfaceID, err := dec.Object()
		if err != nil {
			return err
		}
		positionerID, err := dec.Object()
		if err != nil {
			return err
		}

		parentObj, ok := c.lookup(parentXdgSurfaceID)
		if !ok {
			return fmt.Errorf("ways: get_popup: unknown parent xdg_surface %d", parentXdgSurfaceID)
		}
		parentXdg, ok := parentObj.(*xdgSurfaceProxy)
		if !ok {
			return fmt.Errorf("ways: get_popup: object %d is not an xdg_surface", parentXdgSurfaceID)
		}
		posObj, ok := c.lookup(positionerID)
		if !ok {
			return fmt.Errorf("ways: get_popup: unknown positioner %d", positionerID)
		}
		pos, ok := posObj.(*positionerProxy)
		if !ok {
			return fmt.Errorf("ways: get_popup: object %d is not an xdg_positioner", positionerID)
		}

		state := shell.NewPopup(p.surf.surf, parentXdg.surf.surf.ID, pos.p, c.server.atmo)
		pp := &popupProxy{xdgSurface: p, id: popupID, state: state}
		p.popup = pp
		c.bind(popupID, pp)

		serial := p.nextSerial()
		box := pos.p.Resolve(pos.p.AnchorRect)
		state.Configure(serial, geom.Vec2{X: box.W, Y: box.H})
		if err := pp.sendConfigure(box); err != nil {
			return err
		}
		return p.sendConfigure(serial)

	case xdgSurfaceReqSetWindowGeometry:
		r, err := decodeRect(dec)
		if err != nil {
			return err
		}
		size := geom.Vec2{X: r.W, Y: r.H}
		switch {
		case p.toplevel != nil:
			p.toplevel.state.SetGeometryOverride(size)
		case p.popup != nil:
			p.popup.state.SetGeometryOverride(size)
		}
		return nil

	case xdgSurfaceReqAckConfigure:
		serial, err := dec.Uint32()
		if err != nil {
			return err
		}
		switch {
		case p.toplevel != nil:
			p.toplevel.state.Ack(serial)
		case p.popup != nil:
			p.popup.state.Ack(serial)
		}
		return nil

	default:
		return fmt.Errorf("ways: unknown xdg_surface request opcode %d", opcode)
	}
}

type toplevelProxy struct {
	xdgSurface *xdgSurfaceProxy
	id         wire.ObjectID
	state      *shell.Toplevel
}

func (p *toplevelProxy) interfaceName() string { return "xdg_toplevel" }

// sendConfigure emits xdg_toplevel.configure with width/height 0 to mean
// "client chooses", matching the xdg-shell protocol's convention of never
// forcing a concrete size absent a user resize.
func (p *toplevelProxy) sendConfigure(width, height int32, states []uint32) error {
	b := wire.NewMessageBuilder()
	b.PutInt32(width)
	b.PutInt32(height)
	raw := make([]byte, len(states)*4)
	for i, s := range states {
		raw[i*4] = byte(s)
	}
	b.PutArray(raw)
	return p.xdgSurface.c.sendEvent(b.BuildMessage(p.id, xdgToplevelEventConfigure))
}

func (p *toplevelProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case xdgToplevelReqDestroy:
		c.unbind(p.id)
		return nil

	case xdgToplevelReqSetTitle:
		title, err := dec.String()
		if err != nil {
			return err
		}
		p.state.SetTitle(title)
		return nil

	case xdgToplevelReqSetAppID:
		appID, err := dec.String()
		if err != nil {
			return err
		}
		p.state.SetAppID(appID)
		return nil

	case xdgToplevelReqSetParent:
		_, err := dec.Object()
		return err

	case xdgToplevelReqShowWindowMenu:
		_, _ = dec.Object()
		_, _ = dec.Uint32()
		_, _ = dec.Int32()
		_, err := dec.Int32()
		return err

	case xdgToplevelReqMove:
		_, _ = dec.Object()
		_, err := dec.Uint32()
		if err != nil {
			return err
		}
		c.server.atmo.SetGrabbed(atmosphere.Some(p.xdgSurface.surf.surf.ID))
		return nil

	case xdgToplevelReqResize:
		_, _ = dec.Object()
		_, err := dec.Uint32()
		if err != nil {
			return err
		}
		edges, err := dec.Uint32()
		if err != nil {
			return err
		}
		_ = edges
		c.server.atmo.SetResizing(atmosphere.Some(p.xdgSurface.surf.surf.ID))
		return nil

	case xdgToplevelReqSetMaxSize, xdgToplevelReqSetMinSize:
		_, _ = dec.Int32()
		_, err := dec.Int32()
		return err

	case xdgToplevelReqSetMaximized:
		p.state.Maximized = true
		return nil

	case xdgToplevelReqUnsetMaximized:
		p.state.Maximized = false
		return nil

	default:
		return fmt.Errorf("ways: unknown xdg_toplevel request opcode %d", opcode)
	}
}

type popupProxy struct {
	xdgSurface *xdgSurfaceProxy
	id         wire.ObjectID
	state      *shell.Popup
}

func (p *popupProxy) interfaceName() string { return "xdg_popup" }

func (p *popupProxy) sendConfigure(box geom.Rect) error {
	b := wire.NewMessageBuilder()
	b.PutInt32(int32(box.X))
	b.PutInt32(int32(box.Y))
	b.PutInt32(int32(box.W))
	b.PutInt32(int32(box.H))
	return p.xdgSurface.c.sendEvent(b.BuildMessage(p.id, xdgPopupEventConfigure))
}

func (p *popupProxy) sendPopupDone() error {
	b := wire.NewMessageBuilder()
	return p.xdgSurface.c.sendEvent(b.BuildMessage(p.id, xdgPopupEventPopupDone))
}

func (p *popupProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case xdgPopupReqDestroy:
		c.unbind(p.id)
		c.server.atmo.FreeWindowID(c.id, p.xdgSurface.surf.surf.ID)
		return nil

	case xdgPopupReqGrab:
		_, _ = dec.Object()
		_, err := dec.Uint32()
		if err != nil {
			return err
		}
		p.state.Grabbed = true
		return nil

	default:
		return fmt.Errorf("ways: unknown xdg_popup request opcode %d", opcode)
	}
}
