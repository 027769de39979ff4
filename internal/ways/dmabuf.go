//go:build linux

package ways

import (
	"fmt"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/ways/wire"
)

const (
	dmabufEventFormat   wire.Opcode = 0
	dmabufEventModifier wire.Opcode = 1
)

const (
	dmabufReqDestroy            wire.Opcode = 0
	dmabufReqCreateParams        wire.Opcode = 1
	dmabufReqGetDefaultFeedback  wire.Opcode = 2
	dmabufReqGetSurfaceFeedback  wire.Opcode = 3
)

const (
	paramsReqDestroy     wire.Opcode = 0
	paramsReqAdd         wire.Opcode = 1
	paramsReqCreate      wire.Opcode = 2
	paramsReqCreateImmed wire.Opcode = 3
)

const (
	paramsEventCreated wire.Opcode = 0
	paramsEventFailed  wire.Opcode = 1
)

// dmabufFormats are the pixel formats this compositor's GPU image cache
// accepts for direct import (§4.11); the fourcc codes match
// DRM_FORMAT_ARGB8888/XRGB8888.
const (
	dmabufFormatArgb8888 uint32 = 0x34325241
	dmabufFormatXrgb8888 uint32 = 0x34325258
)

// linearModifier is DRM_FORMAT_MOD_LINEAR, the only modifier this compositor
// advertises support for.
const linearModifier uint64 = 0

// dmabufProxy handles zwp_linux_dmabuf_v1: it advertises the formats/
// modifiers this compositor's GPU image cache accepts and mints
// zwp_linux_buffer_params_v1 objects that build a wl_buffer out of an
// imported dmabuf fd (§4.11).
type dmabufProxy struct {
	c  *Client
	id wire.ObjectID
}

func newDmabufProxy(c *Client, id wire.ObjectID) *dmabufProxy {
	p := &dmabufProxy{c: c, id: id}
	p.advertise()
	return p
}

func (p *dmabufProxy) interfaceName() string { return InterfaceZwpLinuxDmabuf }

func (p *dmabufProxy) advertise() {
	for _, format := range []uint32{dmabufFormatArgb8888, dmabufFormatXrgb8888} {
		b := wire.NewMessageBuilder()
		b.PutUint32(format)
		_ = p.c.sendEvent(b.BuildMessage(p.id, dmabufEventFormat))

		mb := wire.NewMessageBuilder()
		mb.PutUint32(format)
		mb.PutUint32(uint32(linearModifier >> 32))
		mb.PutUint32(uint32(linearModifier))
		_ = p.c.sendEvent(mb.BuildMessage(p.id, dmabufEventModifier))
	}
}

func (p *dmabufProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case dmabufReqDestroy:
		c.unbind(p.id)
		return nil

	case dmabufReqCreateParams:
		id, err := dec.NewID()
		if err != nil {
			return err
		}
		c.bind(id, newParamsProxy(c, id))
		return nil

	case dmabufReqGetDefaultFeedback, dmabufReqGetSurfaceFeedback:
		id, err := dec.NewID()
		if err != nil {
			return err
		}
		c.bind(id, noopHandler{iface: "zwp_linux_dmabuf_feedback_v1"})
		return nil

	default:
		return fmt.Errorf("ways: unknown zwp_linux_dmabuf_v1 request opcode %d", opcode)
	}
}

// paramsProxy accumulates zwp_linux_buffer_params_v1.add calls. Only the
// single-plane case is supported: multi-planar formats (YUV, etc.) aren't
// in this compositor's GPU image cache (§4.11).
type paramsProxy struct {
	c  *Client
	id wire.ObjectID

	fd       int
	offset   uint32
	stride   uint32
	modifier uint64
	hasPlane bool
}

func newParamsProxy(c *Client, id wire.ObjectID) *paramsProxy {
	return &paramsProxy{c: c, id: id}
}

func (p *paramsProxy) interfaceName() string { return "zwp_linux_buffer_params_v1" }

func (p *paramsProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case paramsReqDestroy:
		c.unbind(p.id)
		return nil

	case paramsReqAdd:
		fd, err := dec.FD()
		if err != nil {
			return err
		}
		_, err = dec.Uint32() // plane_idx, single-plane only
		if err != nil {
			return err
		}
		offset, err := dec.Uint32()
		if err != nil {
			return err
		}
		stride, err := dec.Uint32()
		if err != nil {
			return err
		}
		modHi, err := dec.Uint32()
		if err != nil {
			return err
		}
		modLo, err := dec.Uint32()
		if err != nil {
			return err
		}
		p.fd = fd
		p.offset = offset
		p.stride = stride
		p.modifier = uint64(modHi)<<32 | uint64(modLo)
		p.hasPlane = true
		return nil

	case paramsReqCreate:
		// The async create() event would need the server to mint a new_id
		// in the client's object namespace, which this wire codec doesn't
		// support; clients that need an immediate result use create_immed
		// instead, so this path always reports failure.
		if _, _, _, _, err := decodeParamsCreate(dec); err != nil {
			return err
		}
		return c.sendEvent(wire.NewMessageBuilder().BuildMessage(p.id, paramsEventFailed))

	case paramsReqCreateImmed:
		bufferID, err := dec.NewID()
		if err != nil {
			return err
		}
		width, height, format, _, err := decodeParamsCreate(dec)
		if err != nil {
			return err
		}
		bp, err := p.build(c, bufferID, width, height, format)
		if err != nil {
			return err
		}
		c.bind(bufferID, bp)
		return nil

	default:
		return fmt.Errorf("ways: unknown zwp_linux_buffer_params_v1 request opcode %d", opcode)
	}
}

func decodeParamsCreate(dec *wire.Decoder) (width, height int32, format uint32, flags uint32, err error) {
	if width, err = dec.Int32(); err != nil {
		return
	}
	if height, err = dec.Int32(); err != nil {
		return
	}
	if format, err = dec.Uint32(); err != nil {
		return
	}
	flags, err = dec.Uint32()
	return
}

func (p *paramsProxy) build(c *Client, id wire.ObjectID, width, height int32, format uint32) (*bufferProxy, error) {
	if !p.hasPlane {
		return nil, fmt.Errorf("ways: zwp_linux_buffer_params_v1.create without add")
	}
	dmabuf := &atmosphere.DmabufContents{
		FD:       p.fd,
		Width:    int(width),
		Height:   int(height),
		Format:   format,
		Modifier: p.modifier,
	}
	return &bufferProxy{c: c, id: id, dmabuf: dmabuf}, nil
}
