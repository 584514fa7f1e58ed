package types

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tundish/turbo-ipc/internal/wire"
)

func TestAddressRoundTrip(t *testing.T) {
	addr := Address{Namespace: "ns", User: "u", Service: "svc", Application: "app"}
	text, err := wire.Dumps(addr)
	require.NoError(t, err)

	decoded, err := wire.Loads(text)
	require.NoError(t, err)
	assert.Equal(t, addr, decoded)
}

func TestScalarPreservesRegexPattern(t *testing.T) {
	s := Scalar{Name: "temp", Unit: "C", Value: "21.5", Regex: regexp.MustCompile(`^\d+(\.\d+)?$`), Tip: "degrees celsius"}
	text, err := wire.Dumps(s)
	require.NoError(t, err)

	decoded, err := wire.Loads(text)
	require.NoError(t, err)
	got, ok := decoded.(Scalar)
	require.True(t, ok)
	assert.Equal(t, s.Regex.String(), got.Regex.String())
	assert.Equal(t, s.Name, got.Name)
}
