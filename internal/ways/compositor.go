//go:build linux

package ways

import (
	"fmt"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
	"github.com/waycomp/compositor/internal/shell"
	"github.com/waycomp/compositor/internal/ways/wire"
)

// wl_compositor opcodes, read here in the server direction (requests
// decoded, not encoded), opcode values matching the upstream Wayland protocol's
// constants.
const (
	compositorReqCreateSurface wire.Opcode = 0
	compositorReqCreateRegion  wire.Opcode = 1
)

const (
	surfaceReqDestroy            wire.Opcode = 0
	surfaceReqAttach             wire.Opcode = 1
	surfaceReqDamage             wire.Opcode = 2
	surfaceReqFrame              wire.Opcode = 3
	surfaceReqSetOpaqueRegion    wire.Opcode = 4
	surfaceReqSetInputRegion     wire.Opcode = 5
	surfaceReqCommit             wire.Opcode = 6
	surfaceReqSetBufferTransform wire.Opcode = 7
	surfaceReqSetBufferScale     wire.Opcode = 8
	surfaceReqDamageBuffer       wire.Opcode = 9
)

const (
	subcompositorReqDestroy      wire.Opcode = 0
	subcompositorReqGetSubsurface wire.Opcode = 1
)

const (
	subsurfaceReqDestroy     wire.Opcode = 0
	subsurfaceReqSetPosition wire.Opcode = 1
	subsurfaceReqPlaceAbove  wire.Opcode = 2
	subsurfaceReqPlaceBelow  wire.Opcode = 3
	subsurfaceReqSetSync     wire.Opcode = 4
	subsurfaceReqSetDesync   wire.Opcode = 5
)

// compositorProxy handles wl_compositor requests: each create_surface mints
// a new WindowID and wraps it in a shell.Surface (§4.10).
type compositorProxy struct {
	c  *Client
	id wire.ObjectID
}

func newCompositorProxy(c *Client, id wire.ObjectID) *compositorProxy {
	return &compositorProxy{c: c, id: id}
}

func (p *compositorProxy) interfaceName() string { return InterfaceWlCompositor }

func (p *compositorProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case compositorReqCreateSurface:
		surfaceID, err := dec.NewID()
		if err != nil {
			return err
		}
		windowID := c.server.atmo.MintWindowID(c.id)
		surf := shell.NewSurface(windowID, c.id)
		c.bind(surfaceID, newSurfaceProxy(c, surfaceID, surf))
		c.trackSurface(windowID, surfaceID)
		return nil

	case compositorReqCreateRegion:
		regionID, err := dec.NewID()
		if err != nil {
			return err
		}
		c.bind(regionID, newRegionProxy())
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_compositor request opcode %d", opcode)
	}
}

// surfaceProxy is the server-side wl_surface resource: it owns a
// shell.Surface and forwards attach/damage/commit onto it.
type surfaceProxy struct {
	c    *Client
	id   wire.ObjectID
	surf *shell.Surface
}

func newSurfaceProxy(c *Client, id wire.ObjectID, surf *shell.Surface) *surfaceProxy {
	return &surfaceProxy{c: c, id: id, surf: surf}
}

func (p *surfaceProxy) interfaceName() string { return "wl_surface" }

func (p *surfaceProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case surfaceReqDestroy:
		c.unbind(p.id)
		c.untrackSurface(p.surf.ID)
		c.server.atmo.FreeWindowID(c.id, p.surf.ID)
		return nil

	case surfaceReqAttach:
		bufferID, err := dec.Object()
		if err != nil {
			return err
		}
		x, err := dec.Int32()
		if err != nil {
			return err
		}
		y, err := dec.Int32()
		if err != nil {
			return err
		}
		if bufferID == 0 {
			p.surf.Attach(nil, nil, geom.Vec2{})
			return nil
		}
		buf, ok := c.lookup(bufferID)
		if !ok {
			return fmt.Errorf("ways: attach: unknown buffer %d", bufferID)
		}
		bp, ok := buf.(*bufferProxy)
		if !ok {
			return fmt.Errorf("ways: attach: object %d is not a wl_buffer", bufferID)
		}
		p.surf.Attach(bp.mem, bp.dmabuf, geom.Vec2{X: float32(x), Y: float32(y)})
		return nil

	case surfaceReqDamage:
		r, err := decodeRect(dec)
		if err != nil {
			return err
		}
		p.surf.DamageSurface(r)
		return nil

	case surfaceReqDamageBuffer:
		r, err := decodeRect(dec)
		if err != nil {
			return err
		}
		p.surf.DamageBuffer(r)
		return nil

	case surfaceReqFrame:
		callbackID, err := dec.NewID()
		if err != nil {
			return err
		}
		// The callback's done() is sent immediately: the protocol side
		// has no frame clock, so it does not wait for a render pass or a
		// swapchain present.
		b := wire.NewMessageBuilder()
		b.PutUint32(0)
		if err := c.sendEvent(b.BuildMessage(callbackID, callbackEventDone)); err != nil {
			return err
		}
		return c.SendDeleteID(callbackID)

	case surfaceReqSetOpaqueRegion, surfaceReqSetInputRegion:
		_, err := dec.Object()
		return err

	case surfaceReqSetBufferTransform, surfaceReqSetBufferScale:
		_, err := dec.Int32()
		return err

	case surfaceReqCommit:
		wasMapped := p.surf.HasCommitted()
		p.surf.Commit(c.server.atmo, false)
		if !wasMapped && p.surf.HasCommitted() && p.surf.RoleKind() == shell.RoleToplevel {
			// First buffer commit maps the toplevel: join the root skiplist,
			// take focus, and tell the renderer to create the window's SSD
			// titlebar/button decoration (§4.4, §4.5, §4.7 step 3).
			c.server.atmo.FocusOn(atmosphere.Some(p.surf.ID))
			c.server.atmo.AddWmTask(atmosphere.WmTask{Kind: atmosphere.TaskNewToplevel, Window: p.surf.ID})
		}
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_surface request opcode %d", opcode)
	}
}

func decodeRect(dec *wire.Decoder) (geom.Rect, error) {
	x, err := dec.Int32()
	if err != nil {
		return geom.Rect{}, err
	}
	y, err := dec.Int32()
	if err != nil {
		return geom.Rect{}, err
	}
	w, err := dec.Int32()
	if err != nil {
		return geom.Rect{}, err
	}
	h, err := dec.Int32()
	if err != nil {
		return geom.Rect{}, err
	}
	return geom.NewRect(float32(x), float32(y), float32(w), float32(h)), nil
}

// regionProxy is a minimal wl_region: damage/opaque regions are advisory
// hints the renderer doesn't yet use for occlusion culling, so the server
// only needs to not error out on the request stream.
type regionProxy struct{}

func newRegionProxy() *regionProxy { return &regionProxy{} }

func (p *regionProxy) interfaceName() string { return "wl_region" }

func (p *regionProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	return nil
}

// subcompositorProxy handles wl_subcompositor.get_subsurface, wiring straight
// into shell.NewSubsurface and the Atmosphere's skiplist (§4.4, §4.6).
type subcompositorProxy struct {
	c  *Client
	id wire.ObjectID
}

func newSubcompositorProxy(c *Client, id wire.ObjectID) *subcompositorProxy {
	return &subcompositorProxy{c: c, id: id}
}

func (p *subcompositorProxy) interfaceName() string { return InterfaceWlSubcompositor }

func (p *subcompositorProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case subcompositorReqDestroy:
		c.unbind(p.id)
		return nil

	case subcompositorReqGetSubsurface:
		subID, err := dec.NewID()
		if err != nil {
			return err
		}
		surfaceID, err := dec.Object()
		if err != nil {
			return err
		}
		parentID, err := dec.Object()
		if err != nil {
			return err
		}

		surfObj, ok := c.lookup(surfaceID)
		if !ok {
			return fmt.Errorf("ways: get_subsurface: unknown surface %d", surfaceID)
		}
		parentObj, ok := c.lookup(parentID)
		if !ok {
			return fmt.Errorf("ways: get_subsurface: unknown parent %d", parentID)
		}
		sp, ok := surfObj.(*surfaceProxy)
		if !ok {
			return fmt.Errorf("ways: get_subsurface: object %d is not a wl_surface", surfaceID)
		}
		pp, ok := parentObj.(*surfaceProxy)
		if !ok {
			return fmt.Errorf("ways: get_subsurface: object %d is not a wl_surface", parentID)
		}

		state := shell.NewSubsurface(sp.surf, pp.surf, c.server.atmo)
		c.bind(subID, newSubsurfaceProxy(sp, state))
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_subcompositor request opcode %d", opcode)
	}
}

type subsurfaceProxy struct {
	surf  *surfaceProxy
	state *shell.SubsurfaceState
}

func newSubsurfaceProxy(surf *surfaceProxy, state *shell.SubsurfaceState) *subsurfaceProxy {
	return &subsurfaceProxy{surf: surf, state: state}
}

func (p *subsurfaceProxy) interfaceName() string { return "wl_subsurface" }

func (p *subsurfaceProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case subsurfaceReqDestroy:
		c.unbind(p.surf.id)
		return nil

	case subsurfaceReqSetPosition:
		x, err := dec.Int32()
		if err != nil {
			return err
		}
		y, err := dec.Int32()
		if err != nil {
			return err
		}
		p.state.SetPosition(geom.Vec2{X: float32(x), Y: float32(y)})
		return nil

	case subsurfaceReqPlaceAbove:
		sibling, err := dec.Object()
		if err != nil {
			return err
		}
		if obj, ok := c.lookup(sibling); ok {
			if sp, ok := obj.(*surfaceProxy); ok {
				c.server.atmo.SkiplistPlaceAbove(p.surf.surf.ID, sp.surf.ID)
			}
		}
		return nil

	case subsurfaceReqPlaceBelow:
		sibling, err := dec.Object()
		if err != nil {
			return err
		}
		if obj, ok := c.lookup(sibling); ok {
			if sp, ok := obj.(*surfaceProxy); ok {
				c.server.atmo.SkiplistPlaceBelow(p.surf.surf.ID, sp.surf.ID)
			}
		}
		return nil

	case subsurfaceReqSetSync:
		p.state.SetSync(true, p.surf.surf.ID, c.server.atmo)
		return nil

	case subsurfaceReqSetDesync:
		p.state.SetSync(false, p.surf.surf.ID, c.server.atmo)
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_subsurface request opcode %d", opcode)
	}
}
