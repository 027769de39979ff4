//go:build linux

package ways

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
	"github.com/waycomp/compositor/internal/input"
	"github.com/waycomp/compositor/internal/ways/wire"
)

const (
	seatCapPointer  = 1
	seatCapKeyboard = 2
)

const (
	seatEventCapabilities wire.Opcode = 0
	seatEventName         wire.Opcode = 1
)

const (
	seatReqGetPointer  wire.Opcode = 0
	seatReqGetKeyboard wire.Opcode = 1
	seatReqGetTouch    wire.Opcode = 2
	seatReqRelease     wire.Opcode = 3
)

const (
	pointerEventEnter      wire.Opcode = 0
	pointerEventLeave      wire.Opcode = 1
	pointerEventMotion     wire.Opcode = 2
	pointerEventButton     wire.Opcode = 3
	pointerEventAxis       wire.Opcode = 4
	pointerEventFrame      wire.Opcode = 5
)

const pointerReqRelease wire.Opcode = 3

const (
	keyboardEventKeymap    wire.Opcode = 0
	keyboardEventEnter     wire.Opcode = 1
	keyboardEventLeave     wire.Opcode = 2
	keyboardEventKey       wire.Opcode = 3
	keyboardEventModifiers wire.Opcode = 4
)

const keyboardReqRelease wire.Opcode = 0

const keymapFormatXkbV1 = 1

// buttonPressed/buttonReleased mirror the linux evdev button-state values
// wl_pointer.button expects on the wire.
const (
	buttonReleased = 0
	buttonPressed  = 1
)

// minimalXkbKeymap is a self-contained XKB keymap covering a plain US qwerty
// layout, enough for clients to translate the raw evdev keycodes this
// compositor forwards. It is handed to clients verbatim over a memfd, the
// same transport real compositors use for wl_keyboard.keymap.
const minimalXkbKeymap = `xkb_keymap {
	xkb_keycodes { include "evdev+aliases(qwerty)" };
	xkb_types { include "complete" };
	xkb_compat { include "complete" };
	xkb_symbols { include "pc+us+inet(evdev)" };
};
`

// seatProxy is the server side of wl_seat: one per client binding, backed by
// the single process-wide input.Router (§4.9, §4.10).
type seatProxy struct {
	c  *Client
	id wire.ObjectID
}

func newSeatProxy(c *Client, id wire.ObjectID) *seatProxy {
	p := &seatProxy{c: c, id: id}
	p.sendCapabilities()
	return p
}

func (p *seatProxy) interfaceName() string { return InterfaceWlSeat }

func (p *seatProxy) sendCapabilities() {
	b := wire.NewMessageBuilder()
	b.PutUint32(seatCapPointer | seatCapKeyboard)
	_ = p.c.sendEvent(b.BuildMessage(p.id, seatEventCapabilities))

	nameB := wire.NewMessageBuilder()
	nameB.PutString("seat0")
	_ = p.c.sendEvent(nameB.BuildMessage(p.id, seatEventName))
}

func (p *seatProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case seatReqGetPointer:
		id, err := dec.NewID()
		if err != nil {
			return err
		}
		c.pointerID = id
		c.bind(id, newPointerProxy(c, id))
		return nil

	case seatReqGetKeyboard:
		id, err := dec.NewID()
		if err != nil {
			return err
		}
		c.keyboardID = id
		kp := newKeyboardProxy(c, id)
		c.bind(id, kp)
		return nil

	case seatReqGetTouch:
		id, err := dec.NewID()
		if err != nil {
			return err
		}
		c.bind(id, noopHandler{iface: "wl_touch"})
		return nil

	case seatReqRelease:
		c.unbind(p.id)
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_seat request opcode %d", opcode)
	}
}

type pointerProxy struct {
	c  *Client
	id wire.ObjectID
}

func newPointerProxy(c *Client, id wire.ObjectID) *pointerProxy {
	return &pointerProxy{c: c, id: id}
}

func (p *pointerProxy) interfaceName() string { return "wl_pointer" }

func (p *pointerProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case pointerReqRelease:
		c.unbind(p.id)
		c.pointerID = 0
		return nil
	default:
		// set_cursor and other requests are decoded away; cursor image
		// management isn't wired to the renderer yet.
		return nil
	}
}

type keyboardProxy struct {
	c  *Client
	id wire.ObjectID
}

func newKeyboardProxy(c *Client, id wire.ObjectID) *keyboardProxy {
	kp := &keyboardProxy{c: c, id: id}
	kp.sendKeymap()
	return kp
}

func (p *keyboardProxy) interfaceName() string { return "wl_keyboard" }

func (p *keyboardProxy) sendKeymap() {
	fd, err := unix.MemfdCreate("waycomp-keymap", 0)
	if err != nil {
		p.c.server.log.Warn().Err(err).Msg("memfd_create for keymap failed")
		return
	}
	defer unix.Close(fd)

	data := []byte(minimalXkbKeymap)
	if err := unix.Ftruncate(fd, int64(len(data))); err != nil {
		p.c.server.log.Warn().Err(err).Msg("ftruncate keymap memfd failed")
		return
	}
	mapped, err := unix.Mmap(fd, 0, len(data), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		p.c.server.log.Warn().Err(err).Msg("mmap keymap memfd failed")
		return
	}
	copy(mapped, data)
	_ = unix.Munmap(mapped)

	b := wire.NewMessageBuilder()
	b.PutUint32(keymapFormatXkbV1)
	b.PutFD(fd)
	b.PutUint32(uint32(len(data)))
	_ = p.c.sendEvent(b.BuildMessage(p.id, keyboardEventKeymap))
}

func (p *keyboardProxy) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	switch opcode {
	case keyboardReqRelease:
		c.unbind(p.id)
		c.keyboardID = 0
		return nil
	default:
		return fmt.Errorf("ways: unknown wl_keyboard request opcode %d", opcode)
	}
}

// noopHandler absorbs requests for interfaces this compositor advertises a
// stub for (wl_touch) but doesn't implement beyond not erroring the client.
type noopHandler struct{ iface string }

func (h noopHandler) interfaceName() string { return h.iface }
func (h noopHandler) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	return nil
}

// serverDispatcher implements input.Dispatcher by looking up the bound
// wl_pointer/wl_keyboard object for the client that owns the target window,
// then encoding and sending the matching wire event (§4.9).
type serverDispatcher struct {
	s *Server
}

func newServerDispatcher(s *Server) *serverDispatcher { return &serverDispatcher{s: s} }

func (d *serverDispatcher) clientFor(win atmosphere.WindowID) (*Client, bool) {
	owner := d.s.atmo.WindowOwner(win)
	return d.s.clientByID(owner)
}

func (d *serverDispatcher) PointerEnter(win atmosphere.WindowID, local geom.Vec2, serial uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.pointerID == 0 {
		return
	}
	surfObj, ok := c.surfaceObjectID(win)
	if !ok {
		return
	}
	b := wire.NewMessageBuilder()
	b.PutUint32(serial)
	b.PutObject(surfObj)
	b.PutFixed(wire.FixedFromInt(int32(local.X)))
	b.PutFixed(wire.FixedFromInt(int32(local.Y)))
	_ = c.sendEvent(b.BuildMessage(c.pointerID, pointerEventEnter))
}

func (d *serverDispatcher) PointerLeave(win atmosphere.WindowID, serial uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.pointerID == 0 {
		return
	}
	surfObj, ok := c.surfaceObjectID(win)
	if !ok {
		return
	}
	b := wire.NewMessageBuilder()
	b.PutUint32(serial)
	b.PutObject(surfObj)
	_ = c.sendEvent(b.BuildMessage(c.pointerID, pointerEventLeave))
}

func (d *serverDispatcher) PointerMotion(win atmosphere.WindowID, local geom.Vec2, timeMs uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.pointerID == 0 {
		return
	}
	b := wire.NewMessageBuilder()
	b.PutUint32(timeMs)
	b.PutFixed(wire.FixedFromInt(int32(local.X)))
	b.PutFixed(wire.FixedFromInt(int32(local.Y)))
	_ = c.sendEvent(b.BuildMessage(c.pointerID, pointerEventMotion))
	d.sendFrame(c, c.pointerID)
}

func (d *serverDispatcher) PointerButton(win atmosphere.WindowID, button uint32, pressed bool, serial, timeMs uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.pointerID == 0 {
		return
	}
	state := uint32(buttonReleased)
	if pressed {
		state = buttonPressed
	}
	b := wire.NewMessageBuilder()
	b.PutUint32(serial)
	b.PutUint32(timeMs)
	b.PutUint32(button)
	b.PutUint32(state)
	_ = c.sendEvent(b.BuildMessage(c.pointerID, pointerEventButton))
	d.sendFrame(c, c.pointerID)
}

func (d *serverDispatcher) PointerAxis(win atmosphere.WindowID, horizontal, vertical float32, timeMs uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.pointerID == 0 {
		return
	}
	if horizontal != 0 {
		b := wire.NewMessageBuilder()
		b.PutUint32(timeMs)
		b.PutUint32(0) // wl_pointer.axis.horizontal_scroll
		b.PutFixed(wire.FixedFromInt(int32(horizontal)))
		_ = c.sendEvent(b.BuildMessage(c.pointerID, pointerEventAxis))
	}
	if vertical != 0 {
		b := wire.NewMessageBuilder()
		b.PutUint32(timeMs)
		b.PutUint32(1) // wl_pointer.axis.vertical_scroll
		b.PutFixed(wire.FixedFromInt(int32(vertical)))
		_ = c.sendEvent(b.BuildMessage(c.pointerID, pointerEventAxis))
	}
	d.sendFrame(c, c.pointerID)
}

func (d *serverDispatcher) sendFrame(c *Client, pointerID wire.ObjectID) {
	_ = c.sendEvent(wire.NewMessageBuilder().BuildMessage(pointerID, pointerEventFrame))
}

func (d *serverDispatcher) KeyboardModifiers(win atmosphere.WindowID, depressed, latched, locked, group uint32, serial uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.keyboardID == 0 {
		return
	}
	b := wire.NewMessageBuilder()
	b.PutUint32(serial)
	b.PutUint32(depressed)
	b.PutUint32(latched)
	b.PutUint32(locked)
	b.PutUint32(group)
	_ = c.sendEvent(b.BuildMessage(c.keyboardID, keyboardEventModifiers))
}

func (d *serverDispatcher) KeyboardKey(win atmosphere.WindowID, key uint32, pressed bool, serial, timeMs uint32) {
	c, ok := d.clientFor(win)
	if !ok || c.keyboardID == 0 {
		return
	}
	state := uint32(buttonReleased)
	if pressed {
		state = buttonPressed
	}
	b := wire.NewMessageBuilder()
	b.PutUint32(serial)
	b.PutUint32(timeMs)
	b.PutUint32(key)
	b.PutUint32(state)
	_ = c.sendEvent(b.BuildMessage(c.keyboardID, keyboardEventKey))
}

var _ input.Dispatcher = (*serverDispatcher)(nil)
