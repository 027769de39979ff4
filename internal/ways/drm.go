//go:build linux

package ways

import (
	"fmt"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/ways/wire"
)

const (
	drmEventDevice        wire.Opcode = 0
	drmEventFormat        wire.Opcode = 1
	drmEventAuthenticated wire.Opcode = 2
	drmEventCapabilities  wire.Opcode = 3
)

const (
	drmReqAuthenticate        wire.Opcode = 0
	drmReqCreateBuffer        wire.Opcode = 1
	drmReqCreatePlanarBuffer  wire.Opcode = 2
	drmReqCreatePrimeBuffer   wire.Opcode = 3
)

const drmCapabilityPrime = 1

// drmProxy is the legacy wl_drm global, kept for clients that predate
// zwp_linux_dmabuf_v1 (§4.10, §4.12): it advertises the render node path
// discovered at startup and imports PRIME fds the same way dmabufProxy does.
type drmProxy struct {
	c  *Client
	id wire.ObjectID
}

func newDrmProxy(c *Client, id wire.ObjectID) *drmProxy {
	p := &drmProxy{c: c, id: id}
	p.advertise()
	return p
}

func (p *drmProxy) interfaceName() string { return InterfaceWlDrm }

func (p *drmProxy) advertise() {
	devB := wire.NewMessageBuilder()
	devB.PutString(p.c.server.atmo.GetDRMDevice())
	_ = p.c.sendEvent(devB.BuildMessage(p.id, drmEventDevice))

	for _, format := range []uint32{dmabufFormatArgb8888, dmabufFormatXrgb8888} {
		fb := wire.NewMessageBuilder()
		fb.PutUint32(format)
		_ = p.c.sendEvent(fb.BuildMessage(p.id, drmEventFormat))
	}

	capB := wire.NewMessageBuilder()
	capB.PutUint32(drmCapabilityPrime)
	_ = p.c.sendEvent(capB.BuildMessage(p.id, drmEventCapabilities))
}

func (p *drmProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case drmReqAuthenticate:
		if _, err := dec.Uint32(); err != nil {
			return err
		}
		return c.sendEvent(wire.NewMessageBuilder().BuildMessage(p.id, drmEventAuthenticated))

	case drmReqCreatePrimeBuffer:
		bufferID, err := dec.NewID()
		if err != nil {
			return err
		}
		primeFd, err := dec.FD()
		if err != nil {
			return err
		}
		width, err := dec.Int32()
		if err != nil {
			return err
		}
		height, err := dec.Int32()
		if err != nil {
			return err
		}
		format, err := dec.Uint32()
		if err != nil {
			return err
		}
		// offset0/stride0/offset1/stride1/offset2/stride2 (single-plane
		// formats only; the remaining planes are decoded and discarded).
		for i := 0; i < 6; i++ {
			if _, err := dec.Int32(); err != nil {
				return err
			}
		}
		dmabuf := &atmosphere.DmabufContents{
			FD:     primeFd,
			Width:  int(width),
			Height: int(height),
			Format: format,
		}
		c.bind(bufferID, &bufferProxy{c: c, id: bufferID, dmabuf: dmabuf})
		return nil

	case drmReqCreateBuffer, drmReqCreatePlanarBuffer:
		return fmt.Errorf("ways: wl_drm shm-backed buffer creation is unsupported, use wl_shm")

	default:
		return fmt.Errorf("ways: unknown wl_drm request opcode %d", opcode)
	}
}
