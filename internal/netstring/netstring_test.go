package netstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"simple", "Hello World!"},
		{"with colon and comma", "a:b,c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder()
			msg, ok, err := dec.Feed(Encode(tt.text))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.text, msg)
		})
	}
}

func TestDecoderSplitAcrossFeeds(t *testing.T) {
	dec := NewDecoder()
	encoded := Encode("split across chunks")

	for i := 0; i < len(encoded)-1; i++ {
		_, ok, err := dec.Feed(encoded[i : i+1])
		require.NoError(t, err)
		assert.False(t, ok)
	}
	msg, ok, err := dec.Feed(encoded[len(encoded)-1:])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "split across chunks", msg)
}

func TestDecoderMultipleMessagesInOneChunk(t *testing.T) {
	dec := NewDecoder()
	var buf []byte
	buf = append(buf, Encode("first")...)
	buf = append(buf, Encode("second")...)

	msg, ok, err := dec.Feed(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", msg)

	msg, ok, err = dec.Feed(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", msg)
}

func TestDecoderFramingFaultResyncs(t *testing.T) {
	dec := NewDecoder()
	bad := []byte("5:abcdeX") // wrong sentinel at the expected offset
	_, ok, err := dec.Feed(bad)
	assert.False(t, ok)
	var ferr *FramingError
	assert.ErrorAs(t, err, &ferr)

	msg, ok, err := dec.Feed(Encode("recovered"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "recovered", msg)
}
