//go:build linux

package ways

import (
	"fmt"

	"github.com/waycomp/compositor/internal/ways/wire"
)

// wl_output events (this compositor never receives wl_output requests beyond
// release/destroy, since it exposes a single fixed-geometry output).
const (
	outputEventGeometry wire.Opcode = 0
	outputEventMode     wire.Opcode = 1
	outputEventScale    wire.Opcode = 3
	outputEventName     wire.Opcode = 4
	outputEventDone     wire.Opcode = 2
)

const outputReqRelease wire.Opcode = 0

const (
	outputModeCurrent = 0x1
	outputSubpixelUnknown = 0
	outputTransformNormal = 0
)

// outputProxy advertises the single output this compositor drives, sized
// from Atmosphere's resolution global and scaled from its DPI global (§4.10,
// §4.12).
type outputProxy struct {
	c  *Client
	id wire.ObjectID
}

func newOutputProxy(c *Client, id wire.ObjectID) *outputProxy {
	p := &outputProxy{c: c, id: id}
	p.sendState()
	return p
}

func (p *outputProxy) interfaceName() string { return InterfaceWlOutput }

func (p *outputProxy) sendState() {
	res := p.c.server.atmo.GetResolution()
	scale := dpiToScale(p.c.server.atmo.GetDPI())

	geomB := wire.NewMessageBuilder()
	geomB.PutInt32(0)
	geomB.PutInt32(0)
	geomB.PutInt32(int32(float32(res.X) / 10))
	geomB.PutInt32(int32(float32(res.Y) / 10))
	geomB.PutInt32(outputSubpixelUnknown)
	geomB.PutString("waycomp")
	geomB.PutString("virtual-0")
	geomB.PutInt32(outputTransformNormal)
	_ = p.c.sendEvent(geomB.BuildMessage(p.id, outputEventGeometry))

	modeB := wire.NewMessageBuilder()
	modeB.PutUint32(outputModeCurrent)
	modeB.PutInt32(int32(res.X))
	modeB.PutInt32(int32(res.Y))
	modeB.PutInt32(60000)
	_ = p.c.sendEvent(modeB.BuildMessage(p.id, outputEventMode))

	scaleB := wire.NewMessageBuilder()
	scaleB.PutInt32(int32(scale))
	_ = p.c.sendEvent(scaleB.BuildMessage(p.id, outputEventScale))

	_ = p.c.sendEvent(wire.NewMessageBuilder().BuildMessage(p.id, outputEventDone))
}

// dpiToScale maps a raw DPI value to the integer wl_output.scale clients
// expect, rounding 96 DPI to scale 1 and every additional 96 DPI to +1
// (THUNDR_DPI, SPEC_FULL.md §6).
func dpiToScale(dpi int) int {
	if dpi <= 0 {
		return 1
	}
	scale := dpi / 96
	if scale < 1 {
		scale = 1
	}
	return scale
}

func (p *outputProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case outputReqRelease:
		c.unbind(p.id)
		return nil
	default:
		return fmt.Errorf("ways: unknown wl_output request opcode %d", opcode)
	}
}
