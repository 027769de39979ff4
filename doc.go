// Package compositor is the public entry point for embedding waycomp as a
// library: it wraps internal/compositor's protocol server, Vulkan renderer,
// and seat discovery behind a small Config/New/Run surface.
//
// # Quick start
//
// cmd/waycomp is the reference caller:
//
//	cfg := compositor.DefaultConfig()
//	app, err := compositor.New(log, cfg)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("compositor: startup failed")
//	}
//	defer app.Close()
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer cancel()
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("compositor: fatal error")
//	}
//
// # Architecture
//
//   - internal/atmosphere: the double-buffered scene graph shared between
//     the protocol and renderer sides.
//   - internal/ways: the Wayland protocol server shell.
//   - internal/vkcomp: the Vulkan renderer, swapchain, and GPU image cache.
//   - internal/input: pointer/keyboard routing.
//   - internal/shell: the xdg-shell role state machine.
//   - internal/compositor: the frame loop tying all of the above together.
//
// # Configuration
//
// The only external knob is the THUNDR_DPI environment variable, read
// through internal/config; this package's Config carries the display name
// the Wayland socket is published under.
//
// # Errors
//
// internal/werr's sentinel categories are re-exported here (Err-prefixed)
// for callers outside this module that cannot import an internal package.
package compositor
