//go:build linux

package ways

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/ways/wire"
)

// wl_display opcodes, using the upstream Wayland protocol's constants but
// read here instead of written (§4.10: the server decodes requests).
const (
	displayReqSync        wire.Opcode = 0
	displayReqGetRegistry wire.Opcode = 1
)

const (
	displayEventError    wire.Opcode = 0
	displayEventDeleteID wire.Opcode = 1
)

const (
	registryReqBind wire.Opcode = 0
)

const (
	registryEventGlobal       wire.Opcode = 0
	registryEventGlobalRemove wire.Opcode = 1
)

const (
	callbackEventDone wire.Opcode = 0
)

// DisplayID is always object 1 in every client's namespace, per the
// protocol.
const DisplayID wire.ObjectID = 1

// objectHandler dispatches one decoded request to whatever server-side
// resource owns the object id.
type objectHandler interface {
	handleRequest(c *Client, opcode wire.Opcode, args *wire.Decoder, fds []int) error
	interfaceName() string
}

// Client holds one connection's object namespace and dispatch loop state.
type Client struct {
	server *Server
	conn   *net.UnixConn
	file   *os.File
	fd     int

	id atmosphere.ClientID

	mu       sync.Mutex
	objects  map[wire.ObjectID]objectHandler
	registry *clientRegistry
	closed   bool

	// pointerID/keyboardID are the bound wl_pointer/wl_keyboard object ids
	// for this client's seat, 0 when not (yet) requested (§4.9, §4.10).
	pointerID  wire.ObjectID
	keyboardID wire.ObjectID

	// surfaceObjects maps an atmosphere WindowID back to the wl_surface
	// object id this client bound it as, so seat dispatch (§4.9) can send
	// pointer/keyboard events addressed to the right wire object.
	surfaceObjects map[atmosphere.WindowID]wire.ObjectID

	readBuf []byte
}

func newClient(s *Server, conn *net.UnixConn, file *os.File) *Client {
	c := &Client{
		server:  s,
		conn:    conn,
		file:    file,
		fd:      int(file.Fd()),
		id:             s.atmo.MintClientID(),
		objects:        make(map[wire.ObjectID]objectHandler),
		surfaceObjects: make(map[atmosphere.WindowID]wire.ObjectID),
		readBuf:        make([]byte, 64*1024),
	}
	return c
}

// bind registers an object id against a handler, replacing any handler
// already bound to that id.
func (c *Client) bind(id wire.ObjectID, h objectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[id] = h
}

func (c *Client) unbind(id wire.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, id)
}

func (c *Client) lookup(id wire.ObjectID) (objectHandler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.objects[id]
	return h, ok
}

// trackSurface/untrackSurface/surfaceObjectID maintain the WindowID -> bound
// wl_surface object id mapping used by seat dispatch (§4.9).
func (c *Client) trackSurface(win atmosphere.WindowID, obj wire.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaceObjects[win] = obj
}

func (c *Client) untrackSurface(win atmosphere.WindowID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.surfaceObjects, win)
}

func (c *Client) surfaceObjectID(win atmosphere.WindowID) (wire.ObjectID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.surfaceObjects[win]
	return id, ok
}

// sendEvent writes one server-to-client event, encoding it via the shared
// wire codec.
func (c *Client) sendEvent(msg *wire.Message) error {
	data, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}
	if len(msg.FDs) > 0 {
		rights := unix.UnixRights(msg.FDs...)
		return unix.Sendmsg(c.fd, data, rights, nil, 0)
	}
	_, err = c.conn.Write(data)
	return err
}

// SendDeleteID notifies the client that an object id has been destroyed,
// freeing it for reuse (wl_display.delete_id).
func (c *Client) SendDeleteID(id wire.ObjectID) error {
	b := wire.NewMessageBuilder()
	b.PutUint32(uint32(id))
	return c.sendEvent(b.BuildMessage(DisplayID, displayEventDeleteID))
}

// SendError reports a protocol error and the caller should close the
// connection immediately after (wl_display.error).
func (c *Client) SendError(objectID wire.ObjectID, code uint32, message string) error {
	b := wire.NewMessageBuilder()
	b.PutObject(objectID)
	b.PutUint32(code)
	b.PutString(message)
	return c.sendEvent(b.BuildMessage(DisplayID, displayEventError))
}

// dispatchOne reads and handles exactly one message from the client.
func (c *Client) dispatchOne() error {
	oob := make([]byte, 256)
	n, oobn, _, _, err := unix.Recvmsg(c.fd, c.readBuf, oob, 0)
	if err != nil {
		return fmt.Errorf("ways: recvmsg: %w", err)
	}
	if n == 0 {
		return errors.New("ways: client closed connection")
	}

	fds, err := parseFileDescriptors(oob[:oobn])
	if err != nil {
		return err
	}

	dec := wire.NewDecoder(c.readBuf[:n])
	dec.Reset(c.readBuf[:n], fds)
	for dec.HasMore() {
		msg, err := dec.DecodeMessage()
		if err != nil {
			return fmt.Errorf("ways: decode message: %w", err)
		}
		if err := c.route(msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) route(msg *wire.Message) error {
	if msg.ObjectID == DisplayID {
		return c.handleDisplayRequest(msg)
	}

	h, ok := c.lookup(msg.ObjectID)
	if !ok {
		_ = c.SendError(msg.ObjectID, 0, fmt.Sprintf("invalid object %d", msg.ObjectID))
		return fmt.Errorf("ways: unknown object %d", msg.ObjectID)
	}

	argDec := wire.NewDecoder(msg.Args)
	return h.handleRequest(c, msg.Opcode, argDec, msg.FDs)
}

func (c *Client) handleDisplayRequest(msg *wire.Message) error {
	dec := wire.NewDecoder(msg.Args)
	switch msg.Opcode {
	case displayReqSync:
		callbackID, err := dec.NewID()
		if err != nil {
			return err
		}
		b := wire.NewMessageBuilder()
		b.PutUint32(0)
		if err := c.sendEvent(b.BuildMessage(callbackID, callbackEventDone)); err != nil {
			return err
		}
		return c.SendDeleteID(callbackID)

	case displayReqGetRegistry:
		registryID, err := dec.NewID()
		if err != nil {
			return err
		}
		c.registry = newClientRegistry(c, registryID)
		c.bind(registryID, c.registry)
		c.registry.sendCurrentGlobals()
		return nil

	default:
		return fmt.Errorf("ways: unknown wl_display request opcode %d", msg.Opcode)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.file.Close()
	_ = c.conn.Close()
}

// parseFileDescriptors extracts SCM_RIGHTS file descriptors from a
// control-message buffer, the standard technique for passing fds (keymaps,
// shm pools, dmabuf fds) across a Unix domain socket, read from the server
// end of the connection.
func parseFileDescriptors(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("ways: parse control message: %w", err)
	}
	var fds []int
	for _, scm := range scms {
		if scm.Header.Level != unix.SOL_SOCKET || scm.Header.Type != unix.SCM_RIGHTS {
			continue
		}
		got, err := unix.ParseUnixRights(&scm)
		if err != nil {
			return nil, fmt.Errorf("ways: parse unix rights: %w", err)
		}
		fds = append(fds, got...)
	}
	return fds, nil
}
