// Command waycomp runs the compositor. It takes no subcommands and no
// flags (spec.md §6): the only runtime knob is the THUNDR_DPI environment
// variable, read by internal/config. It runs until SIGINT or SIGTERM and
// prints its uptime on exit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/waycomp/compositor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "waycomp",
		Short: "A Wayland compositor",
		Long:  "waycomp runs a Wayland compositor session until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}
}

func run(ctx context.Context) error {
	sessionID := uuid.New().String()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Str("session_id", sessionID).
		Logger()

	log.Info().Msg("starting waycomp")

	app, err := compositor.New(log, compositor.DefaultConfig())
	if err != nil {
		log.Error().Err(err).Stack().Msg("startup failed")
		return fmt.Errorf("waycomp: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("error during shutdown")
		}
	}()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := app.Run(runCtx)
	uptime := app.Uptime()

	if runErr != nil {
		log.Error().Err(runErr).Dur("uptime", uptime).Stack().Msg("fatal error")
		fmt.Fprintf(os.Stderr, "waycomp: exiting after %s: %v\n", uptime, runErr)
		return runErr
	}

	fmt.Fprintf(os.Stderr, "waycomp: exiting after %s\n", uptime)
	log.Info().Dur("uptime", uptime).Msg("stopped")
	return nil
}
