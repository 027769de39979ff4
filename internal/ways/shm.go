//go:build linux

package ways

import (
	"fmt"

	"github.com/daaku/swizzle"
	"golang.org/x/sys/unix"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/ways/wire"
)

// wl_shm/wl_shm_pool/wl_buffer opcodes, matching the upstream Wayland protocol's
// constants, read here in the server direction.
const (
	shmReqCreatePool wire.Opcode = 0
)

const shmEventFormat wire.Opcode = 0

const (
	shmPoolReqCreateBuffer wire.Opcode = 0
	shmPoolReqDestroy      wire.Opcode = 1
	shmPoolReqResize       wire.Opcode = 2
)

const bufferReqDestroy wire.Opcode = 0
const bufferEventRelease wire.Opcode = 0

// ShmFormat mirrors wl_shm_format's ARGB/XRGB values, the only two formats
// this compositor advertises.
type ShmFormat uint32

const (
	ShmFormatARGB8888 ShmFormat = 0
	ShmFormatXRGB8888 ShmFormat = 1
)

type shmProxy struct {
	c  *Client
	id wire.ObjectID
}

func newShmProxy(c *Client, id wire.ObjectID) *shmProxy {
	p := &shmProxy{c: c, id: id}
	p.advertiseFormats()
	return p
}

func (p *shmProxy) interfaceName() string { return InterfaceWlShm }

func (p *shmProxy) advertiseFormats() {
	for _, f := range []ShmFormat{ShmFormatARGB8888, ShmFormatXRGB8888} {
		b := wire.NewMessageBuilder()
		b.PutUint32(uint32(f))
		_ = p.c.sendEvent(b.BuildMessage(p.id, shmEventFormat))
	}
}

func (p *shmProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	if opcode != shmReqCreatePool {
		return fmt.Errorf("ways: unknown wl_shm request opcode %d", opcode)
	}

	poolID, err := dec.NewID()
	if err != nil {
		return err
	}
	fd, err := dec.FD()
	if err != nil {
		return err
	}
	size, err := dec.Int32()
	if err != nil {
		return err
	}

	pool, err := newShmPoolProxy(fd, size)
	if err != nil {
		return fmt.Errorf("ways: create_pool: %w", err)
	}
	c.bind(poolID, pool)
	return nil
}

// shmPoolProxy mmaps the client's pool fd once and reslices it per
// create_buffer request; the mapping is grown (never shrunk) on resize, per
// wl_shm_pool's "may only grow" rule.
type shmPoolProxy struct {
	fd   int
	data []byte
}

func newShmPoolProxy(fd int, size int32) (*shmPoolProxy, error) {
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &shmPoolProxy{fd: fd, data: data}, nil
}

func (p *shmPoolProxy) interfaceName() string { return "wl_shm_pool" }

func (p *shmPoolProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case shmPoolReqCreateBuffer:
		bufID, err := dec.NewID()
		if err != nil {
			return err
		}
		offset, err := dec.Int32()
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
		stride, err := dec.Int32()
		if err != nil {
			return err
		}
		format, err := dec.Uint32()
		if err != nil {
			return err
		}

		buf, err := p.createBuffer(c, bufID, int(offset), int(width), int(height), int(stride), ShmFormat(format))
		if err != nil {
			return err
		}
		c.bind(bufID, buf)
		return nil

	case shmPoolReqResize:
		size, err := dec.Int32()
		if err != nil {
			return err
		}
		if int(size) <= len(p.data) {
			return nil
		}
		if err := unix.Munmap(p.data); err != nil {
			return fmt.Errorf("ways: munmap on resize: %w", err)
		}
		data, err := unix.Mmap(p.fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return fmt.Errorf("ways: remap on resize: %w", err)
		}
		p.data = data
		return nil

	case shmPoolReqDestroy:
		_ = unix.Munmap(p.data)
		_ = unix.Close(p.fd)
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_shm_pool request opcode %d", opcode)
	}
}

// createBuffer copies the referenced region of the pool into a private
// RGBA8888 buffer, converting from the client's ARGB8888/XRGB8888 wire
// format via a byte-order swizzle rather than handing the compositor a live
// view into client memory.
func (p *shmPoolProxy) createBuffer(c *Client, id wire.ObjectID, offset, width, height, stride int, format ShmFormat) (*bufferProxy, error) {
	size := stride * height
	if offset < 0 || size < 0 || offset+size > len(p.data) {
		return nil, fmt.Errorf("ways: create_buffer: region [%d,%d) out of pool bounds (%d)", offset, offset+size, len(p.data))
	}

	region := p.data[offset : offset+size]
	pixels := make([]byte, len(region))
	copy(pixels, region)

	// ARGB8888/XRGB8888 on the wire is little-endian B,G,R,(A|X) per pixel;
	// swap channel 0 and 2 in place to land on R,G,B,A for the renderer's
	// upload path (§4.11).
	swizzle.BGRA(pixels)

	mem := &atmosphere.MemContents{
		Pixels: pixels,
		Width:  width,
		Height: height,
	}

	return &bufferProxy{c: c, id: id, mem: mem}, nil
}

// bufferProxy is the server-side wl_buffer resource produced by
// create_buffer; exactly one of mem/dmabuf is set.
type bufferProxy struct {
	c      *Client
	id     wire.ObjectID
	mem    *atmosphere.MemContents
	dmabuf *atmosphere.DmabufContents
}

func (p *bufferProxy) interfaceName() string { return "wl_buffer" }

func (p *bufferProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	if opcode != bufferReqDestroy {
		return fmt.Errorf("ways: unknown wl_buffer request opcode %d", opcode)
	}
	c.unbind(p.id)
	return nil
}

// release sends wl_buffer.release for this buffer. Nothing calls it: the
// MemContents/DmabufContents built in this package carry no Release
// callback, so clients are never sent wl_buffer.release.
func (p *bufferProxy) release() error {
	b := wire.NewMessageBuilder()
	return p.c.sendEvent(b.BuildMessage(p.id, bufferEventRelease))
}
