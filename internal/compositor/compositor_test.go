package compositor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/waycomp/compositor/internal/config"
	"github.com/waycomp/compositor/internal/werr"
)

func TestResolveDPIFallsBackToDefault(t *testing.T) {
	t.Setenv(config.DPIEnvVar, "")
	cfg := config.New(zerolog.Nop())
	if got := resolveDPI(cfg); got != config.DefaultDPI {
		t.Errorf("resolveDPI() = %d, want %d", got, config.DefaultDPI)
	}
}

func TestResolveDPIUsesEnvOverride(t *testing.T) {
	t.Setenv(config.DPIEnvVar, "240")
	cfg := config.New(zerolog.Nop())
	if got := resolveDPI(cfg); got != 240 {
		t.Errorf("resolveDPI() = %d, want 240", got)
	}
}

func TestIsFatal(t *testing.T) {
	if !isFatal(fmt.Errorf("wrapped: %w", werr.Fatal)) {
		t.Error("isFatal(wrapped Fatal) = false, want true")
	}
	if isFatal(werr.NotReady) {
		t.Error("isFatal(NotReady) = true, want false")
	}
	if isFatal(errors.New("plain")) {
		t.Error("isFatal(plain error) = true, want false")
	}
}
