package compositor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/waycomp/compositor/internal/config"
	icompositor "github.com/waycomp/compositor/internal/compositor"
)

// Config configures a compositor run. There is no Title/Size/Fullscreen —
// a Wayland compositor owns the whole display and takes its only runtime
// knob (DPI) from the environment (spec.md §6), not from caller-supplied
// fields.
type Config struct {
	// DisplayName is the Wayland socket name published under
	// $XDG_RUNTIME_DIR (e.g. "wayland-0"). Empty selects "wayland-0".
	DisplayName string
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{DisplayName: "wayland-0"}
}

// WithDisplayName returns a copy with the display name set.
func (c Config) WithDisplayName(name string) Config {
	c.DisplayName = name
	return c
}

// App is a running (or ready-to-run) compositor instance.
type App struct {
	inner *icompositor.Compositor
}

// New discovers the seat, opens the GPU, and binds the Wayland socket, but
// does not start serving. The returned error is always fatal (§7): a
// compositor that fails to start has nothing to retry.
func New(log zerolog.Logger, cfg Config) (*App, error) {
	envCfg := config.New(log)
	inner, err := icompositor.New(log, envCfg, cfg.DisplayName)
	if err != nil {
		return nil, err
	}
	return &App{inner: inner}, nil
}

// Run drives the compositor's frame loop until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	return a.inner.Run(ctx)
}

// Uptime reports how long Run has been driving the frame loop.
func (a *App) Uptime() time.Duration {
	return a.inner.Uptime()
}

// Close releases every resource New acquired.
func (a *App) Close() error {
	return a.inner.Close()
}
