//go:build linux

package ways

import (
	"fmt"
	"sync"

	"github.com/waycomp/compositor/internal/ways/wire"
)

// Well-known interface names advertised by this compositor (SPEC_FULL.md
// §4.10), reusing upstream Wayland naming throughout.
const (
	InterfaceWlCompositor    = "wl_compositor"
	InterfaceWlSubcompositor = "wl_subcompositor"
	InterfaceWlShm           = "wl_shm"
	InterfaceWlSeat          = "wl_seat"
	InterfaceWlOutput        = "wl_output"
	InterfaceXdgWmBase       = "xdg_wm_base"
	InterfaceWlShell         = "wl_shell"
	InterfaceZwpLinuxDmabuf  = "zwp_linux_dmabuf_v1"
	InterfaceWlDrm           = "wl_drm"
)

type boundGlobal struct {
	name      uint32
	iface     string
	version   uint32
	maxVersion uint32
	bind      func(c *Client, id wire.ObjectID, version uint32)
}

// Registry holds the server-wide set of advertised globals, independent of
// any one client's view of them.
type Registry struct {
	s *Server

	mu      sync.RWMutex
	globals map[uint32]*boundGlobal
}

func newRegistry(s *Server) *Registry {
	return &Registry{s: s, globals: make(map[uint32]*boundGlobal)}
}

func (r *Registry) add(iface string, maxVersion uint32, bind func(c *Client, id wire.ObjectID, version uint32)) {
	name := r.s.nextName()
	r.mu.Lock()
	r.globals[name] = &boundGlobal{name: name, iface: iface, maxVersion: maxVersion, bind: bind}
	r.mu.Unlock()
}

func (r *Registry) snapshot() []*boundGlobal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*boundGlobal, 0, len(r.globals))
	for _, g := range r.globals {
		out = append(out, g)
	}
	return out
}

func (r *Registry) find(name uint32) (*boundGlobal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.globals[name]
	return g, ok
}

// advertiseDefaults registers every global this compositor exposes
// (SPEC_FULL.md §4.10's list). Each bind callback wires the request to the
// matching internal/ways resource constructor.
func (r *Registry) advertiseDefaults() {
	r.add(InterfaceWlCompositor, 5, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newCompositorProxy(c, id))
	})
	r.add(InterfaceWlSubcompositor, 1, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newSubcompositorProxy(c, id))
	})
	r.add(InterfaceWlShm, 1, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newShmProxy(c, id))
	})
	r.add(InterfaceWlSeat, 7, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newSeatProxy(c, id))
	})
	r.add(InterfaceWlOutput, 3, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newOutputProxy(c, id))
	})
	r.add(InterfaceXdgWmBase, 5, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newXdgWmBaseProxy(c, id))
	})
	r.add(InterfaceZwpLinuxDmabuf, 4, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newDmabufProxy(c, id))
	})
	r.add(InterfaceWlDrm, 2, func(c *Client, id wire.ObjectID, version uint32) {
		c.bind(id, newDrmProxy(c, id))
	})
}

// clientRegistry is the per-client wl_registry object: it mirrors the
// server-wide Registry's globals into this client's own object namespace.
type clientRegistry struct {
	c  *Client
	id wire.ObjectID
}

func newClientRegistry(c *Client, id wire.ObjectID) *clientRegistry {
	return &clientRegistry{c: c, id: id}
}

func (r *clientRegistry) interfaceName() string { return "wl_registry" }

func (r *clientRegistry) sendCurrentGlobals() {
	for _, g := range r.c.server.registry.snapshot() {
		b := wire.NewMessageBuilder()
		b.PutUint32(g.name)
		b.PutString(g.iface)
		b.PutUint32(g.maxVersion)
		_ = r.c.sendEvent(b.BuildMessage(r.id, registryEventGlobal))
	}
}

func (r *clientRegistry) handleRequest(c *Client, opcode wire.Opcode, dec *wire.Decoder, fds []int) error {
	if opcode != registryReqBind {
		return fmt.Errorf("ways: unknown wl_registry request opcode %d", opcode)
	}

	name, err := dec.Uint32()
	if err != nil {
		return err
	}
	_, err = dec.String() // interface name, redundant with the bound global
	if err != nil {
		return err
	}
	version, err := dec.Uint32()
	if err != nil {
		return err
	}
	newID, err := dec.NewID()
	if err != nil {
		return err
	}

	g, ok := c.server.registry.find(name)
	if !ok {
		return fmt.Errorf("ways: bind: unknown global name %d", name)
	}
	if version > g.maxVersion {
		return fmt.Errorf("ways: bind: version %d exceeds %d for %s", version, g.maxVersion, g.iface)
	}

	g.bind(c, newID, version)
	return nil
}
