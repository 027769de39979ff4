// Package config reads the compositor's environment-sourced knobs through
// viper instead of os.Getenv directly, so the env-only contract (no CLI
// flags; spec.md §6) composes cleanly with any knob added later (SPEC_FULL.md
// §6).
package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DPIEnvVar is the environment variable a user overrides the auto-detected
// display DPI with (THUNDR_DPI, named after the Category5 project this
// compositor's atmosphere model is grounded on).
const DPIEnvVar = "THUNDR_DPI"

// DefaultDPI is used when THUNDR_DPI is unset and no auto-detection result
// has been written into Atmosphere yet.
const DefaultDPI = 96

// Config is the compositor's environment-sourced configuration, read once at
// startup. A config-change callback is registered, but no config file is
// read or watched.
type Config struct {
	v   *viper.Viper
	log zerolog.Logger
}

// New builds a Config bound to the process environment. No config file is
// required; every key has an environment-variable source.
func New(log zerolog.Logger) *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("dpi", DPIEnvVar)

	c := &Config{v: v, log: log.With().Str("component", "config").Logger()}
	c.watchFile()
	return c
}

// DPI returns the configured display DPI override, or 0 if THUNDR_DPI is
// unset (the caller should fall back to auto-detection in that case).
func (c *Config) DPI() int {
	if !c.v.IsSet("dpi") || c.v.GetString("dpi") == "" {
		return 0
	}
	dpi := c.v.GetInt("dpi")
	if dpi <= 0 {
		return 0
	}
	return dpi
}

// watchFile registers viper's OnConfigChange callback. WatchConfig is not
// called and no config file is set, so the callback does not fire.
func (c *Config) watchFile() {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.log.Info().Str("file", e.Name).Msg("config file changed, re-reading")
	})
}
