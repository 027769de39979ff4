// Package compositor wires the protocol shell, the renderer, seat discovery
// and configuration into the single interleaved frame loop SPEC_FULL.md §2
// describes: event dispatch, hemisphere flip, task drain, frame
// construction, present. cmd/waycomp is a thin cobra wrapper around this
// package.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/config"
	"github.com/waycomp/compositor/internal/geom"
	"github.com/waycomp/compositor/internal/platform/seat"
	"github.com/waycomp/compositor/internal/vkcomp"
	"github.com/waycomp/compositor/internal/ways"
	"github.com/waycomp/compositor/internal/werr"
)

// defaultResolution is used until a real output-geometry source exists;
// §4.12 only resolves the DRM device identity, not a mode, so the
// compositor starts at a fixed virtual resolution and relies on future
// wl_output geometry negotiation to change it.
var defaultResolution = geom.Vec2{X: 1920, Y: 1080}

// Compositor owns every long-lived piece of one compositor run: the
// protocol/renderer Atmosphere link, the Wayland server, and the Vulkan
// renderer, all sharing one zerolog logger (§6 ambient stack).
type Compositor struct {
	log zerolog.Logger

	protocolSide *atmosphere.Atmosphere
	rendererSide *atmosphere.Atmosphere

	server   *ways.Server
	device   *vkcomp.Device
	swap     *vkcomp.Swapchain
	cursor   *vkcomp.Cursor
	renderer *vkcomp.Renderer

	startedAt time.Time
}

// New discovers the seat, opens the render node, and builds every component
// of the compositor without starting it. A Fatal-category error (§7) here
// means the process cannot run at all: no seat, no GPU, or no socket.
func New(log zerolog.Logger, cfg *config.Config, displayName string) (*Compositor, error) {
	info, err := seat.Discover()
	if err != nil {
		return nil, fmt.Errorf("%w: seat discovery: %w", werr.Fatal, err)
	}
	log.Info().Str("seat", info.SeatID).Str("render_node", info.DevicePath).Msg("seat discovered")

	link := atmosphere.NewLink()
	protocolSide, rendererSide := atmosphere.NewLinkedPair(link)

	protocolSide.SetDRMDevice(info.DevicePath)
	protocolSide.SetResolution(defaultResolution)
	protocolSide.SetDPI(resolveDPI(cfg))

	server, err := ways.NewServer(log, protocolSide, displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", werr.Fatal, err)
	}

	device, err := vkcomp.NewDevice("waycomp", info.DevicePath)
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("%w: %w", werr.Fatal, err)
	}

	swap, err := vkcomp.NewSwapchain(device)
	if err != nil {
		device.Destroy()
		_ = server.Close()
		return nil, fmt.Errorf("%w: %w", werr.Fatal, err)
	}
	if err := swap.RecreateSwapchain(); err != nil {
		swap.Destroy()
		device.Destroy()
		_ = server.Close()
		return nil, fmt.Errorf("%w: %w", werr.Fatal, err)
	}

	cursor := vkcomp.NewCursor()
	renderer := vkcomp.NewRenderer(rendererSide, device, swap, cursor, nil, log)

	return &Compositor{
		log:          log,
		protocolSide: protocolSide,
		rendererSide: rendererSide,
		server:       server,
		device:       device,
		swap:         swap,
		cursor:       cursor,
		renderer:     renderer,
	}, nil
}

// Run starts the protocol server's accept loop and drives the renderer's
// per-frame loop until ctx is canceled, returning nil on a clean shutdown.
// A frame error classified werr.Fatal stops the loop and is returned;
// anything else is logged and the loop continues to the next frame, since a
// single bad frame (e.g. a transient OUT_OF_DATE before recreation) should
// not take the whole compositor down.
func (c *Compositor) Run(ctx context.Context) error {
	c.startedAt = time.Now()

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- c.server.Serve() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErrCh:
			if err != nil {
				return fmt.Errorf("%w: protocol server: %w", werr.Fatal, err)
			}
			return nil
		default:
		}

		if err := c.renderer.Frame(); err != nil {
			if isFatal(err) {
				return err
			}
			c.log.Warn().Err(err).Msg("frame error")
		}
		c.server.Input().EndFrame()
	}
}

// Uptime reports how long Run has been driving the frame loop, for the
// "prints uptime on exit" requirement (spec.md §6).
func (c *Compositor) Uptime() time.Duration {
	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}

// Close tears down every owned resource in reverse dependency order.
func (c *Compositor) Close() error {
	c.swap.Destroy()
	c.device.Destroy()
	return c.server.Close()
}

func isFatal(err error) bool {
	return errors.Is(err, werr.Fatal)
}

// resolveDPI applies the THUNDR_DPI-or-auto-detect fallback (§3's
// supplemented DPI property): cfg.DPI returns 0 when the environment
// variable is unset, which should fall back to config.DefaultDPI rather
// than be written into Atmosphere as a literal zero scale factor.
func resolveDPI(cfg *config.Config) int {
	if dpi := cfg.DPI(); dpi > 0 {
		return dpi
	}
	return config.DefaultDPI
}
