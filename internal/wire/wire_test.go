package wire

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name  string
	Value int
	When  time.Time
	Regex *regexp.Regexp
}

func init() {
	Register(testRecord{})
}

func TestDumpsLoadsRoundTrip(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	re := regexp.MustCompile(`^ab+c$`)
	original := testRecord{Name: "n", Value: 42, When: when, Regex: re}

	text, err := Dumps(original)
	require.NoError(t, err)

	decoded, err := Loads(text)
	require.NoError(t, err)

	got, ok := decoded.(testRecord)
	require.True(t, ok)
	assert.Equal(t, original.Name, got.Name)
	assert.Equal(t, original.Value, got.Value)
	assert.Equal(t, original.When.Format(timeLayout), got.When.Format(timeLayout))
	assert.Equal(t, original.Regex.String(), got.Regex.String())
}

func TestLoadsUnknownType(t *testing.T) {
	_, err := Loads(`{"_type": "NoSuchRecord"}`)
	require.Error(t, err)
	var ut *UnknownType
	assert.ErrorAs(t, err, &ut)
}

func TestLoadsPlainScalar(t *testing.T) {
	decoded, err := Loads(`"just a string"`)
	require.NoError(t, err)
	assert.Equal(t, "just a string", decoded)
}
