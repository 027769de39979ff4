package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDPIFromEnv(t *testing.T) {
	t.Setenv(DPIEnvVar, "192")
	c := New(zerolog.Nop())
	assert.Equal(t, 192, c.DPI())
}

func TestDPIUnsetReturnsZero(t *testing.T) {
	t.Setenv(DPIEnvVar, "")
	c := New(zerolog.Nop())
	assert.Equal(t, 0, c.DPI(), "unset THUNDR_DPI should signal auto-detect fallback")
}

func TestDPIDefaultConstant(t *testing.T) {
	assert.Equal(t, 96, DefaultDPI)
}
