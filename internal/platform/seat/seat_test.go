package seat

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeatTuple(t *testing.T) {
	v := dbus.MakeVariant([]interface{}{"seat0", dbus.ObjectPath("/org/freedesktop/login1/seat/seat0")})
	id, path, err := parseSeatTuple(&v)
	require.NoError(t, err)
	assert.Equal(t, "seat0", id)
	assert.EqualValues(t, "/org/freedesktop/login1/seat/seat0", path)
}

func TestParseSeatTupleRejectsWrongShape(t *testing.T) {
	v := dbus.MakeVariant("not a tuple")
	_, _, err := parseSeatTuple(&v)
	assert.Error(t, err)
}
