//go:build linux

package input

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// Linux evdev event types and codes this translator understands
// (linux/input-event-codes.h). Only the handful this compositor reacts to
// are named; everything else is decoded and ignored.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	relX = 0x00
	relY = 0x01

	absX = 0x00
	absY = 0x01

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// rawEvent mirrors the kernel's struct input_event on 64-bit Linux
// (linux/input.h): a timeval followed by type/code/value. This is a wire
// format owned by the kernel ABI, not something internal/ways/wire's
// Wayland-specific decoder applies to, so it's parsed directly off the
// byte buffer instead.
type rawEvent struct {
	sec, usec int64
	typ, code uint16
	value     int32
}

// rawEventSize is sizeof(struct input_event) on amd64/arm64 (two 8-byte
// timeval fields, two 2-byte fields, one 4-byte field).
const rawEventSize = 24

func decodeRawEvent(b []byte) rawEvent {
	le := func(off, n int) uint64 {
		var v uint64
		for i := 0; i < n; i++ {
			v |= uint64(b[off+i]) << (8 * i)
		}
		return v
	}
	return rawEvent{
		sec:   int64(le(0, 8)),
		usec:  int64(le(8, 8)),
		typ:   uint16(le(16, 2)),
		code:  uint16(le(18, 2)),
		value: int32(le(20, 4)),
	}
}

// Device is one open /dev/input/eventN node, registered with the protocol
// server's epoll set alongside client sockets (§5's shared protocol/input
// multiplexer).
type Device struct {
	Path string
	fd   int
}

// OpenDevices opens every /dev/input/event* node this process can read. A
// seat-managed compositor normally receives these fds from logind's
// TakeDevice; this opens them directly instead, the same simplification
// internal/platform/seat.Discover already makes for the DRM render node
// rather than juggling a leased fd. A machine with no input nodes (e.g. a
// headless build host) is reported as an error so the caller can decide
// whether running without live input is acceptable.
func OpenDevices() ([]*Device, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("input: glob device nodes: %w", err)
	}

	devices := make([]*Device, 0, len(paths))
	for _, p := range paths {
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			continue
		}
		devices = append(devices, &Device{Path: p, fd: fd})
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("input: no readable device nodes under /dev/input")
	}
	return devices, nil
}

// Fd returns the device's file descriptor.
func (d *Device) Fd() int { return d.fd }

// Close releases the device node.
func (d *Device) Close() error { return unix.Close(d.fd) }

// ReadEvents drains every whole input_event currently queued on the device
// into buf and feeds each one through tr, which turns the kernel's raw
// relative/absolute/key stream into the Router calls §4.9 expects.
func (d *Device) ReadEvents(buf []byte, tr *Translator, r *Router) error {
	n, err := unix.Read(d.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return fmt.Errorf("input: read %s: %w", d.Path, err)
	}
	for off := 0; off+rawEventSize <= n; off += rawEventSize {
		tr.apply(decodeRawEvent(buf[off:off+rawEventSize]), r)
	}
	return nil
}

// pendingButton is a button edge queued by Translator until the next
// SYN_REPORT flushes it, the same batching evdev producers use to group a
// motion vector and button edges generated at the same instant.
type pendingButton struct {
	button  uint32
	pressed bool
}

// Translator accumulates relative motion and button/key edges from raw
// evdev events between SYN_REPORT markers into the absolute-position,
// edge-triggered calls Router.PointerMotion/PointerButton/KeyEvent expect,
// mirroring the per-frame resize-diff batching the original input
// subsystem (category5's Input) does before touching the atmosphere.
type Translator struct {
	a *atmosphere.Atmosphere

	pos     geom.Vec2
	rel     geom.Vec2
	moved   bool
	buttons []pendingButton
}

// NewTranslator creates a Translator seeded at the center of the current
// output resolution, the natural starting point for a relative-only mouse
// before it has moved.
func NewTranslator(a *atmosphere.Atmosphere) *Translator {
	res := a.GetResolution()
	return &Translator{a: a, pos: res.Mul(0.5)}
}

func (t *Translator) apply(ev rawEvent, r *Router) {
	timeMs := uint32(ev.sec*1000 + ev.usec/1000)
	switch ev.typ {
	case evRel:
		switch ev.code {
		case relX:
			t.rel.X += float32(ev.value)
			t.moved = true
		case relY:
			t.rel.Y += float32(ev.value)
			t.moved = true
		}
	case evAbs:
		switch ev.code {
		case absX:
			t.pos.X = float32(ev.value)
			t.moved = true
		case absY:
			t.pos.Y = float32(ev.value)
			t.moved = true
		}
	case evKey:
		switch ev.code {
		case btnLeft, btnRight, btnMiddle:
			t.buttons = append(t.buttons, pendingButton{button: uint32(ev.code), pressed: ev.value != 0})
		default:
			r.KeyEvent(uint32(ev.code), ev.value != 0, timeMs, false, 0, 0, 0, 0)
		}
	case evSyn:
		t.flush(r, timeMs)
	}
}

func (t *Translator) flush(r *Router, timeMs uint32) {
	if t.moved {
		res := t.a.GetResolution()
		t.pos = t.pos.Add(t.rel).Clamp(geom.Vec2{}, res)
		t.rel = geom.Vec2{}
		t.moved = false
		r.PointerMotion(t.pos, timeMs)
	}
	for _, b := range t.buttons {
		r.PointerButton(b.button, b.pressed, timeMs)
	}
	t.buttons = t.buttons[:0]
}
