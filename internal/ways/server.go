//go:build linux

// Package ways implements the protocol server shell (SPEC_FULL.md §4.10): a
// minimal but real Wayland server acceptor. It listens on a Unix socket,
// accepts client connections, and for each connection runs a per-client
// dispatch loop reading and writing wire messages via internal/ways/wire.
// The encode/decode plumbing is the same shape a Wayland client's display
// connection uses, inverted to the server role: the server decodes
// requests and encodes events instead of the reverse.
package ways

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/input"
)

// Errors returned by Server operations.
var (
	ErrServerClosed   = errors.New("ways: server closed")
	ErrNoRuntimeDir   = errors.New("ways: XDG_RUNTIME_DIR not set")
	ErrSocketInUse    = errors.New("ways: socket already in use")
)

// Server accepts Wayland client connections on a single Unix socket and
// multiplexes their file descriptors through one epoll instance: one
// connection's worth of state per client fd, fanned out across many
// clients instead of just one.
type Server struct {
	log      zerolog.Logger
	atmo     *atmosphere.Atmosphere
	registry *Registry
	input    *input.Router

	listener *net.UnixListener
	epfd     int

	inputDevices map[int]*input.Device
	inputTr      *input.Translator
	inputBuf     []byte

	mu      sync.Mutex
	clients map[int]*Client
	closed  bool

	nextGlobalName atomic.Uint32
}

// NewServer creates a Server bound to $XDG_RUNTIME_DIR/wayland-<n>. The
// caller supplies the protocol-side Atmosphere half of a Link (§5): the
// server writes to it and flips hemispheres toward the renderer, it never
// reads renderer state back.
func NewServer(log zerolog.Logger, atmo *atmosphere.Atmosphere, displayName string) (*Server, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, ErrNoRuntimeDir
	}
	if displayName == "" {
		displayName = "wayland-0"
	}
	socketPath := filepath.Join(runtimeDir, displayName)

	if _, err := os.Stat(socketPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSocketInUse, socketPath)
	}

	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ways: resolve socket addr: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("ways: listen on %s: %w", socketPath, err)
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("ways: epoll_create1: %w", err)
	}

	s := &Server{
		log:      log.With().Str("component", "ways").Logger(),
		atmo:     atmo,
		listener: ln,
		epfd:     epfd,
		clients:  make(map[int]*Client),
	}
	s.registry = newRegistry(s)
	s.registry.advertiseDefaults()
	s.input = input.NewRouter(atmo, newServerDispatcher(s))
	s.openInputDevices(atmo)

	if err := os.Setenv("WAYLAND_DISPLAY", displayName); err != nil {
		s.log.Warn().Err(err).Msg("could not set WAYLAND_DISPLAY")
	}

	return s, nil
}

// openInputDevices adds every readable /dev/input/event* node to the
// server's epoll set, the same multiplexer the listening socket and client
// connections share (§5). A host with no accessible input nodes (e.g. a
// headless build/test environment) is logged and otherwise ignored: the
// compositor still runs, it just never receives real pointer/keyboard
// input.
func (s *Server) openInputDevices(atmo *atmosphere.Atmosphere) {
	devices, err := input.OpenDevices()
	if err != nil {
		s.log.Warn().Err(err).Msg("no input devices available")
		return
	}

	s.inputDevices = make(map[int]*input.Device, len(devices))
	s.inputTr = input.NewTranslator(atmo)
	s.inputBuf = make([]byte, 4096)

	for _, d := range devices {
		if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, d.Fd(), &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(d.Fd()),
		}); err != nil {
			s.log.Warn().Err(err).Str("device", d.Path).Msg("epoll_ctl add input device failed")
			_ = d.Close()
			continue
		}
		s.inputDevices[d.Fd()] = d
	}
}

// Serve runs the epoll loop until the server is closed, on the calling
// goroutine. It accepts new connections on the listener fd, adds each to the
// shared epoll set, and itself dispatches readable client connections and
// input devices.
func (s *Server) Serve() error {
	lnFile, err := s.listener.File()
	if err != nil {
		return fmt.Errorf("ways: listener file: %w", err)
	}
	defer lnFile.Close()

	listenFd := int(lnFile.Fd())
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, listenFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listenFd),
	}); err != nil {
		return fmt.Errorf("ways: epoll_ctl add listener: %w", err)
	}

	events := make([]unix.EpollEvent, 32)
	for {
		n, err := unix.EpollWait(s.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("ways: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == listenFd {
				if err := s.acceptOne(); err != nil {
					if s.isClosed() {
						return ErrServerClosed
					}
					s.log.Error().Err(err).Msg("accept failed")
				}
				continue
			}
			if dev, ok := s.inputDevices[fd]; ok {
				if err := dev.ReadEvents(s.inputBuf, s.inputTr, s.input); err != nil {
					s.log.Warn().Err(err).Str("device", dev.Path).Msg("input device read failed")
				}
				continue
			}
			s.dispatchClient(fd)
		}

		if s.isClosed() {
			return ErrServerClosed
		}
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) acceptOne() error {
	conn, err := s.listener.AcceptUnix()
	if err != nil {
		return err
	}
	file, err := conn.File()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("ways: client file: %w", err)
	}

	c := newClient(s, conn, file)

	s.mu.Lock()
	s.clients[c.fd] = c
	s.mu.Unlock()

	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, c.fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(c.fd),
	}); err != nil {
		s.removeClient(c)
		return fmt.Errorf("ways: epoll_ctl add client: %w", err)
	}

	s.log.Info().Int("fd", c.fd).Msg("client connected")
	return nil
}

func (s *Server) dispatchClient(fd int) {
	s.mu.Lock()
	c, ok := s.clients[fd]
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := c.dispatchOne(); err != nil {
		s.log.Info().Int("fd", fd).Err(err).Msg("client disconnected")
		s.removeClient(c)
	}
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.fd)
	s.mu.Unlock()

	_ = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, c.fd, nil)
	c.close()
	s.atmo.FreeClientID(c.id)
}

// Close stops accepting new connections and tears down all clients.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.removeClient(c)
	}

	for _, d := range s.inputDevices {
		_ = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, d.Fd(), nil)
		_ = d.Close()
	}

	_ = unix.Close(s.epfd)
	return s.listener.Close()
}

// Input returns the process-wide input router, for a platform backend (e.g.
// internal/platform/seat) to feed raw pointer/keyboard events into (§4.9,
// §4.12).
func (s *Server) Input() *input.Router { return s.input }

// clientByID finds the connected Client owning atmosphere client id id, used
// by the seat dispatcher to route input events addressed to a window back to
// the connection that owns it (§4.9).
func (s *Server) clientByID(id atmosphere.ClientID) (*Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.id == id {
			return c, true
		}
	}
	return nil, false
}

// nextName mints a unique registry global name.
func (s *Server) nextName() uint32 {
	return s.nextGlobalName.Add(1)
}
